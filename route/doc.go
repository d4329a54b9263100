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

// Package route represents a single registered path pattern and the set of
// method/media-type handlers attached to it.
//
// This package contains:
//   - Route: a pattern plus its handlers and any typed path-parameter
//     constraints, built through RouteBuilder
//   - Handler: one (method, consumes, produces) tuple and its opaque logic
//   - Select: the handler-selection algorithm run against a Route's handler
//     set for a given method, Content-Type, and Accept list
//   - ParamConstraint: typed validation for a Single/CatchAll path segment
//     (int, float, UUID, regex, enum, date, date-time)
//
// A Route's pattern and handler set are fixed once built; constraints can
// still be attached afterwards through the Where* methods. The registry
// package stores Route values
// at tree positions; it never inspects a Route's handlers or constraints,
// so this package has no dependency on registry and no knowledge of the
// prefix tree it ends up stored in.
//
// # Building a Route
//
//	h, _ := route.NewBuilder("GET").
//		Produces(mediatype.MediaType{Type: "application", Subtype: "json", Quality: 1}).
//		Logic(myHandlerFunc).
//		Build()
//	r, _ := route.NewRouteBuilder("/users/:id").Handler(h).Build()
//	r.WhereInt("id")
//
// # Handler Selection
//
// Route.Lookup delegates to Select, which filters by method, then by
// Content-Type compatibility, then ranks the survivors by Accept quality
// and specificity. Selection failures surface as errs.MethodNotAllowed,
// errs.MediaTypeUnsupported, errs.MediaTypeNotAccepted, or
// errs.AmbiguousHandler.
//
// # Constraints
//
// WhereInt, WhereUUID, and the other Where* methods attach a
// ParamConstraint to a named path segment. Constraint checking happens
// outside this package, after a successful registry lookup has bound
// decoded segment values to parameter names — Route only stores the constraint and
// exposes it through Constraint for the caller to apply.
package route
