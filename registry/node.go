// Copyright 2025 The Lattice Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package registry

import (
	"sync"
	"sync/atomic"

	"github.com/latticehttp/dispatch/pattern"
)

// node is one position in the prefix tree. Children fall into three
// disjoint buckets: any number of static children (keyed by literal
// segment text), exactly one single (":name") child, or exactly one
// catch-all ("*name") child. label doubles as the static child's map key
// and, for a single/catch-all node, the parameter name bound at lookup.
//
// mu is the per-node reservation lock: writers hold its read side
// (shared — concurrent writers may traverse or extend the same node) while
// they create children or set value; pruning takes the write side
// (exclusive) to detach an empty node, which therefore blocks until no
// writer is reserving it.
type node[V any] struct {
	parent  *node[V]
	viaKind pattern.Kind
	label   string

	mu       sync.RWMutex
	dead     bool // set under the exclusive side of mu when the node is pruned
	value    atomic.Pointer[V]
	static   sync.Map // string -> *node[V]
	single   atomic.Pointer[node[V]]
	catchAll atomic.Pointer[node[V]]
}

func newNode[V any](parent *node[V], via pattern.Kind, label string) *node[V] {
	return &node[V]{parent: parent, viaKind: via, label: label}
}

// hasStaticChildren reports whether n currently has at least one static
// child, used to enforce static/param sibling exclusivity.
func (n *node[V]) hasStaticChildren() bool {
	has := false
	n.static.Range(func(_, _ any) bool {
		has = true
		return false
	})
	return has
}

// isEmpty reports whether n holds no value and has no children at all —
// the precondition for pruning.
func (n *node[V]) isEmpty() bool {
	if n.value.Load() != nil {
		return false
	}
	if n.single.Load() != nil || n.catchAll.Load() != nil {
		return false
	}
	return !n.hasStaticChildren()
}

// detachFromParent removes n from its parent's child bucket. Caller must
// hold the exclusive side of n.mu and have set n.dead, so a writer that
// already loaded n from the bucket observes the pruning on reservation.
func (n *node[V]) detachFromParent() {
	p := n.parent
	if p == nil {
		return
	}
	switch n.viaKind {
	case pattern.Static:
		p.static.CompareAndDelete(n.label, n)
	case pattern.Single:
		p.single.CompareAndSwap(n, nil)
	case pattern.CatchAll:
		p.catchAll.CompareAndSwap(n, nil)
	}
}

// staticChild returns (creating if absent) the static child keyed by
// label. Returns an error if a single or catch-all child already occupies
// the parameter bucket at this node.
func (n *node[V]) staticChild(label string) (*node[V], error) {
	if n.single.Load() != nil {
		return nil, &siblingCollisionError{reason: "static segment conflicts with existing single (:) sibling"}
	}
	if n.catchAll.Load() != nil {
		return nil, &siblingCollisionError{reason: "static segment conflicts with existing catch-all (*) sibling"}
	}
	if existing, ok := n.static.Load(label); ok {
		return existing.(*node[V]), nil
	}
	fresh := newNode[V](n, pattern.Static, label)
	actual, _ := n.static.LoadOrStore(label, fresh)
	return actual.(*node[V]), nil
}

// singleChild returns (creating if absent) n's single child. Parameter
// names are irrelevant to tree position: a second route using a
// differently-named single segment at the same spot reuses the node
// established by the first.
func (n *node[V]) singleChild(name string) (*node[V], error) {
	if n.hasStaticChildren() {
		return nil, &siblingCollisionError{reason: "single (:) segment conflicts with existing static sibling"}
	}
	if n.catchAll.Load() != nil {
		return nil, &siblingCollisionError{reason: "single (:) segment conflicts with existing catch-all (*) sibling"}
	}
	if existing := n.single.Load(); existing != nil {
		return existing, nil
	}
	fresh := newNode[V](n, pattern.Single, name)
	if n.single.CompareAndSwap(nil, fresh) {
		return fresh, nil
	}
	return n.single.Load(), nil
}

// catchAllChild returns (creating if absent) n's catch-all child. A node
// holding a Route cannot also hold a catch-all child (and vice versa,
// enforced by the caller when setting a value).
func (n *node[V]) catchAllChild(name string) (*node[V], error) {
	if n.hasStaticChildren() {
		return nil, &siblingCollisionError{reason: "catch-all (*) segment conflicts with existing static sibling"}
	}
	if n.single.Load() != nil {
		return nil, &siblingCollisionError{reason: "catch-all (*) segment conflicts with existing single (:) sibling"}
	}
	if n.value.Load() != nil {
		return nil, &siblingCollisionError{reason: "catch-all (*) segment conflicts with a route already held by its parent"}
	}
	if existing := n.catchAll.Load(); existing != nil {
		return existing, nil
	}
	fresh := newNode[V](n, pattern.CatchAll, name)
	if n.catchAll.CompareAndSwap(nil, fresh) {
		return fresh, nil
	}
	return n.catchAll.Load(), nil
}

// siblingCollisionError is the node-local detail behind errs.RouteCollision;
// Add wraps it with the offending route's pattern string.
type siblingCollisionError struct{ reason string }

func (e *siblingCollisionError) Error() string { return e.reason }
