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

// Package route holds a path pattern plus the set of handlers registered
// against it, and the handler selector that performs proactive content
// negotiation over that set.
package route

import (
	"sort"

	"github.com/latticehttp/dispatch/errs"
	"github.com/latticehttp/dispatch/mediatype"
	"github.com/latticehttp/dispatch/pattern"
)

// Route pairs a path pattern with the set of handlers registered against
// it. At least one handler is required at build time; the handler set is
// injective on (method, consumes, produces).
type Route struct {
	pat         pattern.Pattern
	raw         string
	handlers    []*Handler
	constraints map[string]*ParamConstraint // param name -> constraint, may be nil
}

// RouteBuilder constructs a Route from a pattern string and one or more
// handlers.
type RouteBuilder struct {
	raw      string
	pat      pattern.Pattern
	parseErr error
	handlers []*Handler
}

// NewRouteBuilder parses pat as a route pattern (see pattern.Parse) and
// starts a Route builder.
func NewRouteBuilder(pat string) *RouteBuilder {
	p, err := pattern.Parse(pat)
	return &RouteBuilder{raw: pat, pat: p, parseErr: err}
}

// Handler appends a handler to the route under construction.
func (b *RouteBuilder) Handler(h *Handler) *RouteBuilder {
	b.handlers = append(b.handlers, h)
	return b
}

// Build validates uniqueness of (method, consumes, produces) across the
// accumulated handlers and returns the Route.
func (b *RouteBuilder) Build() (*Route, error) {
	if b.parseErr != nil {
		return nil, b.parseErr
	}
	if len(b.handlers) == 0 {
		return nil, &errs.RouteCollision{Pattern: b.raw, Reason: "route must have at least one handler"}
	}
	for i := range b.handlers {
		for j := i + 1; j < len(b.handlers); j++ {
			if b.handlers[i].Equal(b.handlers[j]) {
				return nil, &errs.HandlerCollision{
					Method:   b.handlers[i].Method,
					Consumes: b.handlers[i].Consumes.String(),
					Produces: b.handlers[i].Produces.String(),
				}
			}
		}
	}
	return &Route{pat: b.pat, raw: b.raw, handlers: append([]*Handler(nil), b.handlers...)}, nil
}

// Segments returns the route's parsed path segments.
func (r *Route) Segments() []pattern.Segment { return r.pat.Segments }

// Pattern returns the parsed path pattern.
func (r *Route) Pattern() pattern.Pattern { return r.pat }

// String returns the stable pattern form, e.g. "/users/:id/file/*path".
// NewRouteBuilder(r.String()).Handler(h).Build() yields a Route with the
// same Segments().
func (r *Route) String() string { return r.pat.String() }

// SupportedMethods returns the sorted set of method tokens across the
// route's handlers.
func (r *Route) SupportedMethods() []string {
	seen := make(map[string]struct{}, len(r.handlers))
	for _, h := range r.handlers {
		seen[h.Method] = struct{}{}
	}
	methods := make([]string, 0, len(seen))
	for m := range seen {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

// Handlers returns the route's handler set.
func (r *Route) Handlers() []*Handler { return r.handlers }

// WithConstraint attaches a constraint to a path parameter on an
// already-built Route. The typed Where*/constraint helpers build these.
func (r *Route) WithConstraint(name string, c *ParamConstraint) *Route {
	if r.constraints == nil {
		r.constraints = make(map[string]*ParamConstraint)
	}
	r.constraints[name] = c
	return r
}

// Constraint returns the constraint registered for a parameter name, if any.
func (r *Route) Constraint(name string) (*ParamConstraint, bool) {
	c, ok := r.constraints[name]
	return c, ok
}

// Lookup selects the best-fit handler for (method, contentType, acceptList)
// via Select. contentType is nil if the request carried
// no Content-Type header.
func (r *Route) Lookup(method string, contentType *mediatype.MediaType, acceptList []mediatype.MediaType) (*Handler, error) {
	return Select(r.handlers, r.raw, method, contentType, acceptList)
}
