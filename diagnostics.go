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

// DiagnosticEvent is an informational event the dispatcher emits for
// conditions worth surfacing to an observability system without forcing
// one on every caller: an ambiguous handler selection, a route registration
// that Registry.Add rejects, or an error-handler chain that exceeded its
// recovery cap. Prune passes in the registry emit no event.
//
// Diagnostics are optional — the dispatcher behaves identically whether
// or not a DiagnosticHandler is configured.
type DiagnosticEvent struct {
	Kind    DiagnosticKind
	Message string
	Fields  map[string]any
}

// DiagnosticKind categorizes diagnostic events.
type DiagnosticKind string

const (
	// DiagAmbiguousHandler fires when handler selection finds no
	// uncontested bucket and falls back to AmbiguousHandler.
	DiagAmbiguousHandler DiagnosticKind = "ambiguous_handler"
	// DiagRouteCollision fires when Registry.Add rejects a route.
	DiagRouteCollision DiagnosticKind = "route_collision"
	// DiagErrorChainExhausted fires when a user error handler rethrows
	// past max_error_recovery_attempts and the base handler takes over.
	DiagErrorChainExhausted DiagnosticKind = "error_chain_exhausted"
)

// DiagnosticHandler receives diagnostic events from the dispatcher.
// Implementations may log, emit metrics, trace events, or ignore them.
type DiagnosticHandler interface {
	OnDiagnostic(DiagnosticEvent)
}

// DiagnosticHandlerFunc is a function adapter for DiagnosticHandler.
type DiagnosticHandlerFunc func(DiagnosticEvent)

// OnDiagnostic calls f.
func (f DiagnosticHandlerFunc) OnDiagnostic(e DiagnosticEvent) { f(e) }

func (c *Config) emit(e DiagnosticEvent) {
	if c.diagnostics != nil {
		c.diagnostics.OnDiagnostic(e)
	}
}
