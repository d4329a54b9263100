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

package dispatch

import (
	"github.com/latticehttp/dispatch/pattern"
	"github.com/latticehttp/dispatch/registry"
	"github.com/latticehttp/dispatch/route"
)

// Registry is the top-level handle on the route registry: it owns the
// concurrent prefix tree and exposes the pattern-string-based add/remove
// operations callers register routes through, wrapping
// registry.Tree[route.Route] so callers never have to parse a pattern
// into segments themselves.
type Registry struct {
	tree *registry.Tree[route.Route]
	cfg  *Config
}

// NewRegistry returns an empty Registry. cfg may be nil; a nil cfg emits
// no diagnostics on collision.
func NewRegistry(cfg *Config) *Registry {
	if cfg == nil {
		cfg = defaultConfig()
	}
	return &Registry{tree: registry.New[route.Route](), cfg: cfg}
}

// Add registers r at the position its pattern describes. It returns
// errs.RouteCollision when the position is already taken or the pattern
// violates the tree's sibling-exclusivity rules.
func (rg *Registry) Add(r *route.Route) error {
	if err := rg.tree.Add(r.String(), r.Segments(), r); err != nil {
		rg.cfg.emit(DiagnosticEvent{
			Kind:    DiagRouteCollision,
			Message: err.Error(),
			Fields:  map[string]any{"route": r.String()},
		})
		return err
	}
	return nil
}

// Remove clears whatever route is registered at pattern's position,
// returning it (or nil, false if none was there).
func (rg *Registry) Remove(rawPattern string) (*route.Route, bool) {
	p, err := pattern.Parse(rawPattern)
	if err != nil {
		return nil, false
	}
	return rg.tree.Remove(p.Segments)
}

// RemoveRoute clears r's registration only if r is the exact instance
// registered at its pattern's position, reporting whether it did. A
// different route that merely shares the pattern is left in place.
func (rg *Registry) RemoveRoute(r *route.Route) bool {
	return rg.tree.RemoveExact(r.Segments(), r)
}

// Lookup runs the prefix-tree walk directly; most callers instead go
// through a Dispatcher, which also performs handler selection.
func (rg *Registry) Lookup(rawSegments []string) (*registry.Match[route.Route], error) {
	return rg.tree.Lookup(rawSegments)
}

// Tree exposes the underlying generic tree for constructing a Dispatcher.
func (rg *Registry) Tree() *registry.Tree[route.Route] { return rg.tree }
