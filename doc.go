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

// Package dispatch is the request-dispatch core of an HTTP server library:
// given a parsed request it locates the matching route, selects the
// best-fit handler via proactive content negotiation, invokes it, and
// routes any exception through an ordered error-handler chain that
// produces a fallback response.
//
// Wire-level parsing, byte-level I/O, TLS, connection lifecycle, and the
// HTTP version/upgrade state machine are external collaborators, referenced
// here only through the Request, Channel, and Response interfaces (see
// contracts.go). This package never reads or writes a socket itself.
//
// The dispatch core is organized bottom-up:
//
//	mediatype  parsed Content-Type / Accept values, specificity and
//	           compatibility rules for proactive content negotiation
//	pattern    a route's path as Static / Single / CatchAll segments
//	route      a path pattern plus its handler set, and the handler
//	           selector that ranks candidates by method/consumes/produces
//	registry   the concurrent prefix tree mapping paths to routes
//	errs       the closed exception taxonomy every component raises
//	(root)     Dispatcher, the error-handler chain, configuration, and
//	           the metrics/tracing wiring around one exchange
//
// A single Dispatcher is built once at startup with a *registry.Tree
// populated from route.Route values, and is safe for concurrent use across
// every exchange the embedding server schedules.
package dispatch
