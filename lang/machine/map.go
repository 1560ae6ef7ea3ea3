package machine

import (
	"math"

	"github.com/mna/nenuphar/lang/pmap"
)

// MapValue is the language's persistent map type: Insert never mutates the
// receiver, so a Value holding a *MapValue can be freely shared across
// closures and continuations without defensive copying.
type MapValue struct {
	m *pmap.Map
}

// NewMap returns the empty persistent map.
func NewMap() *MapValue { return &MapValue{m: pmap.New()} }

func (*MapValue) Kind() Kind        { return KindMap }
func (m *MapValue) String() string  { return "<map>" }

// Get looks up k; the second return value reports whether it was present.
func (m *MapValue) Get(k Value) (Value, bool) {
	if m.m == nil {
		return nil, false
	}
	v, ok := m.m.Get(valueKey{k})
	if !ok {
		return nil, false
	}
	return v.(Value), true
}

// Insert returns a new MapValue with k bound to v, sharing every subtree
// of m unaffected by the change.
func (m *MapValue) Insert(k, v Value) *MapValue {
	base := m.m
	if base == nil {
		base = pmap.New()
	}
	return &MapValue{m: base.Insert(valueKey{k}, v)}
}

// Len returns the number of entries in m.
func (m *MapValue) Len() int {
	if m.m == nil {
		return 0
	}
	return m.m.Len()
}

// valueKey adapts a Value to pmap.Key. Only Int, Float and Symbol have a
// structural hash and equality; Function, Continuation and Map values fall
// back to identity (pointer equality), mirroring the original machine's
// refusal to define a structural Hash for those kinds.
type valueKey struct{ v Value }

func (k valueKey) Hash() uint64 {
	switch n := k.v.(type) {
	case Int:
		return fnv64(uint64(n))
	case Float:
		return fnv64(math.Float64bits(float64(n)))
	case Symbol:
		return fnv64String(string(n))
	default:
		return identityHash(k.v)
	}
}

func (k valueKey) EqualKey(other pmap.Key) bool {
	o, ok := other.(valueKey)
	if !ok {
		return false
	}
	switch a := k.v.(type) {
	case Int:
		b, ok := o.v.(Int)
		return ok && a == b
	case Float:
		b, ok := o.v.(Float)
		return ok && math.Float64bits(float64(a)) == math.Float64bits(float64(b))
	case Symbol:
		b, ok := o.v.(Symbol)
		return ok && a == b
	default:
		return k.v == o.v
	}
}

const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

func fnv64(x uint64) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < 8; i++ {
		h ^= x & 0xff
		h *= fnvPrime64
		x >>= 8
	}
	return h
}

func fnv64String(s string) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}
	return h
}
