// Package pmap implements a persistent (immutable, structurally-shared)
// hash array mapped trie, the same data structure documented in
// _examples/original_source/hamt-rs (the Rust HAMT this module's map.rs
// equivalent was tested against; only its test harness survived the
// distillation, not its implementation, so the trie itself is rebuilt here
// following the classic Bagwell HAMT layout: a tree of 32-way
// bitmap-indexed nodes keyed by successive 5-bit slices of the key hash,
// with collision nodes for colliding hashes). Insert, Get and Delete never
// mutate an existing Map; they return a new handle that shares every
// subtree unaffected by the change with the original.
package pmap

import "math/bits"

// Key is anything that can be used as a persistent map key. Hash must be
// stable for equal keys; EqualKey defines the equality used to detect a
// replace-vs-insert and a hit-vs-miss on lookup.
type Key interface {
	Hash() uint64
	EqualKey(other Key) bool
}

const (
	bitsPerLevel = 5
	fanout       = 1 << bitsPerLevel // 32
	levelMask    = fanout - 1
	maxLevels    = (64 + bitsPerLevel - 1) / bitsPerLevel // 13: hash bits are exhausted after this many levels
)

// Map is an immutable mapping from Key to any value. The zero Map is a
// valid empty map.
type Map struct {
	root *node
	size int
}

// New returns an empty Map.
func New() *Map { return &Map{} }

// Len returns the number of entries in m.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return m.size
}

// Get looks up k in m. The returned bool reports whether k was present,
// matching the Value, bool convention used throughout the machine package
// for fallible lookups that are not always errors.
func (m *Map) Get(k Key) (any, bool) {
	if m == nil || m.root == nil {
		return nil, false
	}
	return m.root.get(k.Hash(), 0, k)
}

// Insert returns a new Map with k bound to v. If k was already present its
// prior value is replaced; every other entry is preserved, including in
// the presence of hash collisions between k and an unrelated key.
func (m *Map) Insert(k Key, v any) *Map {
	if m == nil {
		m = New()
	}
	newRoot, grew := insert(m.root, k.Hash(), 0, k, v)
	size := m.size
	if grew {
		size++
	}
	return &Map{root: newRoot, size: size}
}

// Delete returns a new Map with k removed, or m unchanged (same entries,
// new handle) if k was not present.
func (m *Map) Delete(k Key) *Map {
	if m == nil || m.root == nil {
		return New()
	}
	newRoot, removed := del(m.root, k.Hash(), 0, k)
	size := m.size
	if removed {
		size--
	}
	return &Map{root: newRoot, size: size}
}

// Range calls f for every entry in m, in unspecified order, stopping early
// if f returns false.
func (m *Map) Range(f func(k Key, v any) bool) {
	if m == nil || m.root == nil {
		return
	}
	m.root.forEach(f)
}

// node is either a bitmap-indexed branch, a single-entry leaf or a
// collision leaf holding several entries that hash identically.
type node struct {
	bitmap   uint32
	children []*node // len == popcount(bitmap), indexed by compressed position

	// leaf fields: set iff children == nil.
	isLeaf    bool
	hash      uint64
	keys      []Key
	values    []any
}

func slotBit(hash uint64, level int) uint32 {
	shift := uint(level * bitsPerLevel)
	return 1 << uint((hash>>shift)&levelMask)
}

func popIndex(bitmap uint32, bit uint32) int {
	return bits.OnesCount32(bitmap & (bit - 1))
}

func newLeaf(hash uint64, k Key, v any) *node {
	return &node{isLeaf: true, hash: hash, keys: []Key{k}, values: []any{v}}
}

func (n *node) get(hash uint64, level int, k Key) (any, bool) {
	if n == nil {
		return nil, false
	}
	if n.isLeaf {
		if n.hash != hash {
			return nil, false
		}
		for i, ek := range n.keys {
			if ek.EqualKey(k) {
				return n.values[i], true
			}
		}
		return nil, false
	}
	bit := slotBit(hash, level)
	if n.bitmap&bit == 0 {
		return nil, false
	}
	child := n.children[popIndex(n.bitmap, bit)]
	return child.get(hash, level+1, k)
}

// insert returns the new subtree replacing n, and whether the total entry
// count grew (false if it was a pure value replacement).
func insert(n *node, hash uint64, level int, k Key, v any) (*node, bool) {
	if n == nil {
		return newLeaf(hash, k, v), true
	}
	if n.isLeaf {
		if n.hash == hash {
			for i, ek := range n.keys {
				if ek.EqualKey(k) {
					keys := append([]Key(nil), n.keys...)
					values := append([]any(nil), n.values...)
					values[i] = v
					return &node{isLeaf: true, hash: hash, keys: keys, values: values}, false
				}
			}
			// same hash, different key: grow the collision leaf.
			keys := append(append([]Key(nil), n.keys...), k)
			values := append(append([]any(nil), n.values...), v)
			return &node{isLeaf: true, hash: hash, keys: keys, values: values}, true
		}
		if level >= maxLevels {
			// hash bits exhausted: degenerate to a collision leaf keyed by the
			// (now irrelevant) hash bucket so lookups still work via EqualKey.
			keys := append(append([]Key(nil), n.keys...), k)
			values := append(append([]any(nil), n.values...), v)
			return &node{isLeaf: true, hash: n.hash, keys: keys, values: values}, true
		}
		// split: push the existing leaf one level down alongside the new entry.
		branch := &node{}
		branch = branchInsert(branch, n.hash, level, n)
		newBranch, grew := insertBranch(branch, hash, level, k, v)
		return newBranch, grew
	}

	bit := slotBit(hash, level)
	idx := popIndex(n.bitmap, bit)
	if n.bitmap&bit == 0 {
		children := make([]*node, len(n.children)+1)
		copy(children, n.children[:idx])
		children[idx] = newLeaf(hash, k, v)
		copy(children[idx+1:], n.children[idx:])
		return &node{bitmap: n.bitmap | bit, children: children}, true
	}
	newChild, grew := insert(n.children[idx], hash, level+1, k, v)
	children := append([]*node(nil), n.children...)
	children[idx] = newChild
	return &node{bitmap: n.bitmap, children: children}, grew
}

// branchInsert places an existing leaf subtree into branch at the slot its
// own hash maps to at level; it is only ever called with an empty branch,
// so it never needs to handle an occupied slot.
func branchInsert(branch *node, hash uint64, level int, leaf *node) *node {
	bit := slotBit(hash, level)
	return &node{bitmap: bit, children: []*node{leaf}}
}

// insertBranch inserts (k, v) into branch (built by branchInsert around a
// single displaced leaf), recursing if the new entry collides with the
// displaced leaf's slot at this level.
func insertBranch(branch *node, hash uint64, level int, k Key, v any) (*node, bool) {
	bit := slotBit(hash, level)
	existingBit := branch.bitmap
	if bit == existingBit {
		// same slot as the displaced leaf: recurse one level deeper.
		child, grew := insert(branch.children[0], hash, level+1, k, v)
		return &node{bitmap: bit, children: []*node{child}}, grew
	}
	idx := popIndex(existingBit, bit)
	children := make([]*node, 2)
	otherIdx := 0
	if idx == 0 {
		otherIdx = 1
	}
	children[idx] = newLeaf(hash, k, v)
	children[otherIdx] = branch.children[0]
	return &node{bitmap: existingBit | bit, children: children}, true
}

func del(n *node, hash uint64, level int, k Key) (*node, bool) {
	if n == nil {
		return nil, false
	}
	if n.isLeaf {
		if n.hash != hash {
			return n, false
		}
		for i, ek := range n.keys {
			if ek.EqualKey(k) {
				if len(n.keys) == 1 {
					return nil, true
				}
				keys := append(append([]Key(nil), n.keys[:i]...), n.keys[i+1:]...)
				values := append(append([]any(nil), n.values[:i]...), n.values[i+1:]...)
				return &node{isLeaf: true, hash: hash, keys: keys, values: values}, true
			}
		}
		return n, false
	}
	bit := slotBit(hash, level)
	if n.bitmap&bit == 0 {
		return n, false
	}
	idx := popIndex(n.bitmap, bit)
	newChild, removed := del(n.children[idx], hash, level+1, k)
	if !removed {
		return n, false
	}
	if newChild == nil {
		if len(n.children) == 1 {
			return nil, true
		}
		children := append(append([]*node(nil), n.children[:idx]...), n.children[idx+1:]...)
		return &node{bitmap: n.bitmap &^ bit, children: children}, true
	}
	children := append([]*node(nil), n.children...)
	children[idx] = newChild
	return &node{bitmap: n.bitmap, children: children}, true
}

func (n *node) forEach(f func(k Key, v any) bool) bool {
	if n == nil {
		return true
	}
	if n.isLeaf {
		for i, k := range n.keys {
			if !f(k, n.values[i]) {
				return false
			}
		}
		return true
	}
	for _, c := range n.children {
		if !c.forEach(f) {
			return false
		}
	}
	return true
}
