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

// Package registry is a concurrent prefix tree keyed by route path
// segments, generic over the value a route carries. It supports
// thread-safe Add / Remove / Lookup with collision detection on
// registration and lazy, cooperative pruning of emptied branches.
package registry

import (
	"strings"
	"sync/atomic"

	"github.com/latticehttp/dispatch/errs"
	"github.com/latticehttp/dispatch/pattern"
)

// Match is the result of a successful Lookup: the matched value plus the
// raw and percent-decoded path-parameter bindings.
type Match[V any] struct {
	Value         *V
	ParamsRaw     map[string]string
	ParamsDecoded map[string]string
}

// Tree is a concurrent prefix tree mapping parsed path patterns to values
// of type V. The zero value is not usable; construct with New.
//
// dirty marks that a removal emptied at least one node; the writer that set
// it kicks off a prune pass once it has released its reservations. pruning
// single-flights those passes.
type Tree[V any] struct {
	root    *node[V]
	dirty   atomic.Bool
	pruning atomic.Bool
}

// New returns an empty Tree.
func New[V any]() *Tree[V] {
	return &Tree[V]{root: newNode[V](nil, pattern.Static, "")}
}

// Add inserts value at the position described by segs. routeString names
// the route in any RouteCollision raised.
//
// Collisions (each wraps errs.RouteCollision):
//   - the terminal node already holds a value;
//   - a static/single/catch-all sibling-exclusivity violation at any
//     traversed parent;
//   - the terminal node's parent holds a value and segs ends in a
//     catch-all (or vice versa).
//
// The stored pointer is the caller's: Lookup returns it unchanged and
// RemoveExact compares against it, so the route-instance remove form works
// on the same *V the caller registered.
func (t *Tree[V]) Add(routeString string, segs []pattern.Segment, value *V) error {
	for {
		stale, err := t.tryAdd(routeString, segs, value)
		if !stale {
			return err
		}
		// A traversed node was pruned between the child-bucket read and our
		// reservation; every lock has been released, so start over from the
		// root (which is never pruned).
	}
}

func (t *Tree[V]) tryAdd(routeString string, segs []pattern.Segment, value *V) (stale bool, err error) {
	locked := make([]*node[V], 0, len(segs)+1)
	defer func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].mu.RUnlock()
		}
	}()

	cur := t.root
	cur.mu.RLock()
	locked = append(locked, cur)

	for _, seg := range segs {
		child, cerr := t.childFor(cur, seg)
		if cerr != nil {
			return false, &errs.RouteCollision{Pattern: routeString, Reason: cerr.Error()}
		}
		child.mu.RLock()
		locked = append(locked, child)
		if child.dead {
			return true, nil
		}
		cur = child
	}

	if cur.catchAll.Load() != nil {
		return false, &errs.RouteCollision{Pattern: routeString, Reason: "node already has a catch-all (*) child and cannot also hold a route"}
	}
	if !cur.value.CompareAndSwap(nil, value) {
		return false, &errs.RouteCollision{Pattern: routeString, Reason: "a route is already registered at this position"}
	}
	return false, nil
}

func (t *Tree[V]) childFor(cur *node[V], seg pattern.Segment) (*node[V], error) {
	switch seg.Kind {
	case pattern.Single:
		return cur.singleChild(seg.Value)
	case pattern.CatchAll:
		return cur.catchAllChild(seg.Value)
	default:
		return cur.staticChild(seg.Value)
	}
}

// Remove clears whatever value is held at the position described by segs.
// It reports false if no value was present there. The emptied node (and
// any ancestor left empty by the removal) is scheduled for pruning.
func (t *Tree[V]) Remove(segs []pattern.Segment) (*V, bool) {
	return t.remove(segs, nil)
}

// RemoveExact clears the value at the position described by segs only if
// it is identical (by pointer) to value, reporting whether it removed it.
func (t *Tree[V]) RemoveExact(segs []pattern.Segment, value *V) bool {
	_, removed := t.remove(segs, value)
	return removed
}

func (t *Tree[V]) remove(segs []pattern.Segment, expect *V) (*V, bool) {
	old, removed := t.tryRemove(segs, expect)
	if removed {
		// The reservation locks are released by now; run the prune pass the
		// removal made necessary, unless one is already in flight.
		t.dirty.Store(true)
		t.maybePrune()
	}
	return old, removed
}

func (t *Tree[V]) tryRemove(segs []pattern.Segment, expect *V) (old *V, removed bool) {
	locked := make([]*node[V], 0, len(segs)+1)
	defer func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].mu.RUnlock()
		}
	}()

	cur := t.root
	cur.mu.RLock()
	locked = append(locked, cur)

	for _, seg := range segs {
		var child *node[V]
		switch seg.Kind {
		case pattern.Single:
			child = cur.single.Load()
		case pattern.CatchAll:
			child = cur.catchAll.Load()
		default:
			if v, ok := cur.static.Load(seg.Value); ok {
				child = v.(*node[V])
			}
		}
		if child == nil {
			return nil, false
		}
		child.mu.RLock()
		locked = append(locked, child)
		if child.dead {
			// Pruned out from under us; a pruned node held no value, so
			// there is nothing at this position to remove.
			return nil, false
		}
		cur = child
	}

	if expect != nil {
		if !cur.value.CompareAndSwap(expect, nil) {
			return nil, false
		}
		return expect, true
	}
	old = cur.value.Swap(nil)
	return old, old != nil
}

// maybePrune runs a depth-first prune pass if the tree is dirty and no
// other prune is in flight. The loop re-checks dirty after finishing so a
// removal that raced the pass (saw pruning set, left dirty behind) is not
// stranded until the next removal.
func (t *Tree[V]) maybePrune() {
	for t.dirty.Load() {
		if !t.pruning.CompareAndSwap(false, true) {
			return
		}
		t.dirty.Store(false)
		t.prune(t.root)
		t.pruning.Store(false)
	}
}

// prune post-order walks n's subtree, detaching every empty node it can
// exclusively reserve. A node a writer currently reserves is skipped and
// the tree left dirty for a later pass; a detached node is marked dead so
// a writer that raced us knows to retry from the root.
func (t *Tree[V]) prune(n *node[V]) {
	n.static.Range(func(_, v any) bool {
		t.prune(v.(*node[V]))
		return true
	})
	if s := n.single.Load(); s != nil {
		t.prune(s)
	}
	if ca := n.catchAll.Load(); ca != nil {
		t.prune(ca)
	}
	if n.parent == nil {
		return
	}
	if !n.mu.TryLock() {
		t.dirty.Store(true)
		return
	}
	if !n.dead && n.isEmpty() {
		n.dead = true
		n.detachFromParent()
	}
	n.mu.Unlock()
}

// Lookup percent-decodes each raw segment and walks the tree, preferring
// an exact static child over a single child at every step; a catch-all
// child is only consulted once static/single options are exhausted at a
// node, consuming every remaining segment (rejoined with "/", or exactly
// "/" if none remain).
func (t *Tree[V]) Lookup(rawSegments []string) (*Match[V], error) {
	decoded := make([]string, len(rawSegments))
	for i, raw := range rawSegments {
		d, err := pattern.Decode(raw)
		if err != nil {
			return nil, &errs.NoRouteFound{Segments: rawSegments}
		}
		decoded[i] = d
	}

	paramsRaw := make(map[string]string)
	paramsDecoded := make(map[string]string)
	cur := t.root
	i := 0

	for {
		if i == len(decoded) {
			if v := cur.value.Load(); v != nil {
				return &Match[V]{Value: v, ParamsRaw: paramsRaw, ParamsDecoded: paramsDecoded}, nil
			}
			if ca := cur.catchAll.Load(); ca != nil {
				if v := ca.value.Load(); v != nil {
					paramsRaw[ca.label] = "/"
					paramsDecoded[ca.label] = "/"
					return &Match[V]{Value: v, ParamsRaw: paramsRaw, ParamsDecoded: paramsDecoded}, nil
				}
			}
			return nil, &errs.NoRouteFound{Segments: rawSegments}
		}

		seg := decoded[i]
		if child, ok := cur.static.Load(seg); ok {
			cur = child.(*node[V])
			i++
			continue
		}
		if single := cur.single.Load(); single != nil {
			paramsRaw[single.label] = rawSegments[i]
			paramsDecoded[single.label] = seg
			cur = single
			i++
			continue
		}
		if ca := cur.catchAll.Load(); ca != nil {
			paramsRaw[ca.label] = "/" + strings.Join(rawSegments[i:], "/")
			paramsDecoded[ca.label] = "/" + strings.Join(decoded[i:], "/")
			if v := ca.value.Load(); v != nil {
				return &Match[V]{Value: v, ParamsRaw: paramsRaw, ParamsDecoded: paramsDecoded}, nil
			}
			return nil, &errs.NoRouteFound{Segments: rawSegments}
		}
		return nil, &errs.NoRouteFound{Segments: rawSegments}
	}
}
