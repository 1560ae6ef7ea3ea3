package machine

import "fmt"

// identityHash hashes a Function/Continuation/Map value by its pointer
// identity. These kinds have no structural equality in this language (two
// distinct maps are never equal even with identical contents), so identity
// is the only consistent notion of equality to hash against.
func identityHash(v Value) uint64 {
	return fnv64String(fmt.Sprintf("%p", v))
}
