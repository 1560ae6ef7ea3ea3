package machine

import "github.com/dolthub/swiss"

// moduleKey addresses a single top-level definition: a module ID plus the
// name bound within it.
type moduleKey struct {
	Module Symbol
	Name   Symbol
}

// ModuleStore is the machine's global table of top-level definitions,
// read and written by a Thread's ModuleGet/ModuleAdd; NewThread gives each
// Thread a fresh one (Thread.Modules). Unlike the
// language's own persistent Map value, the module store is an ordinary
// mutable hash table: a ModuleAdd is a process-wide, last-writer-wins
// side effect, not a value any piece of code can hold a snapshot of, so
// there is no structural-sharing requirement to justify the cost of a
// persistent structure here.
type ModuleStore struct {
	defs *swiss.Map[moduleKey, Value]
}

// NewModuleStore returns an empty store sized for roughly capacity
// definitions.
func NewModuleStore(capacity uint32) *ModuleStore {
	return &ModuleStore{defs: swiss.NewMap[moduleKey, Value](capacity)}
}

// Add binds name within module to v, replacing any prior definition.
func (s *ModuleStore) Add(module, name Symbol, v Value) {
	s.defs.Put(moduleKey{Module: module, Name: name}, v)
}

// Get looks up name within module.
func (s *ModuleStore) Get(module, name Symbol) (Value, bool) {
	return s.defs.Get(moduleKey{Module: module, Name: name})
}
