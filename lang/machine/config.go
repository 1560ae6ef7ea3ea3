package machine

import "github.com/caarlos0/env/v6"

// Config carries ambient, environment-tunable capacity hints for a
// Thread (see NewThread). None of these affect observable behavior, only the initial
// sizing of the structures a Thread allocates; this module deliberately
// has no concept of execution deadlines or cancellation (see Non-goals),
// so there are no timeout-shaped fields here.
type Config struct {
	// ModuleCapacityHint sizes the initial ModuleStore.
	ModuleCapacityHint uint32 `env:"ARES_MODULE_CAPACITY" envDefault:"64"`
	// StackCapacityHint sizes the initial operand stack allocation a
	// Thread makes for each function invocation.
	StackCapacityHint uint32 `env:"ARES_STACK_CAPACITY" envDefault:"32"`
}

// NewConfigFromEnv parses Config fields from the process environment,
// falling back to their envDefault tags for anything unset.
func NewConfigFromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// DefaultConfig returns the Config NewConfigFromEnv would produce against
// an empty environment, for callers that construct a Thread without
// reading the process environment (e.g. embedding or tests).
func DefaultConfig() Config {
	return Config{ModuleCapacityHint: 64, StackCapacityHint: 32}
}
