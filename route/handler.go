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

package route

import (
	"strings"

	"github.com/latticehttp/dispatch/mediatype"
)

// Logic is the opaque per-request callable a Handler carries. Its concrete
// signature (request, channel) -> error is owned by the root dispatch
// package; keeping it an alias to any here avoids an import cycle.
type Logic any

// Handler is bound to (Method, Consumes, Produces); Logic is opaque and
// does not participate in equality. Built through Builder and immutable
// once built; the same *Handler is shared across every concurrent
// invocation of its route.
type Handler struct {
	Method   string
	Consumes mediatype.MediaType
	Produces mediatype.MediaType
	Logic    Logic
}

// Equal compares the identity tuple only; Logic never participates.
func (h *Handler) Equal(other *Handler) bool {
	return h.Method == other.Method &&
		h.Consumes.Equal(other.Consumes) &&
		h.Produces.Equal(other.Produces)
}

// Builder stages construction method -> consumes -> produces -> logic,
// with validation deferred to Build.
type Builder struct {
	method   string
	consumes mediatype.MediaType
	produces mediatype.MediaType
	logic    Logic
	err      error
}

// NewBuilder starts a handler builder for the given method.
func NewBuilder(method string) *Builder {
	b := &Builder{method: method, consumes: mediatype.NOTHING_AND_ALL}
	if method == "" || strings.ContainsAny(method, " \t\r\n") {
		b.err = &BuildError{Msg: "method must be non-empty and contain no whitespace"}
	}
	return b
}

// BuildError reports an invalid handler definition.
type BuildError struct{ Msg string }

func (e *BuildError) Error() string { return "route: " + e.Msg }

// Consumes sets the media type this handler accepts as Content-Type. Its
// quality must be 1 (consumes is not quality-weighted).
func (b *Builder) Consumes(mt mediatype.MediaType) *Builder {
	if b.err == nil && !mt.IsNothing() && !mt.IsNothingAndAll() && mt.Quality != 1 {
		b.err = &BuildError{Msg: "consumes quality must be 1"}
	}
	b.consumes = mt
	return b
}

// Produces sets the media type this handler writes as Content-Type. Must
// not be NOTHING or NOTHING_AND_ALL, and quality must be 1.
func (b *Builder) Produces(mt mediatype.MediaType) *Builder {
	if b.err == nil {
		if mt.IsNothing() || mt.IsNothingAndAll() {
			b.err = &BuildError{Msg: "produces must not be NOTHING or NOTHING_AND_ALL"}
		} else if mt.Quality != 1 {
			b.err = &BuildError{Msg: "produces quality must be 1"}
		}
	}
	b.produces = mt
	return b
}

// Logic sets the per-request callable.
func (b *Builder) Logic(l Logic) *Builder {
	b.logic = l
	return b
}

// Build validates and returns the Handler.
func (b *Builder) Build() (*Handler, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.produces.IsNothing() || (b.produces.Type == "" && b.produces.Subtype == "") {
		return nil, &BuildError{Msg: "produces is required"}
	}
	if b.logic == nil {
		return nil, &BuildError{Msg: "logic is required"}
	}
	return &Handler{
		Method:   b.method,
		Consumes: b.consumes,
		Produces: b.produces,
		Logic:    b.logic,
	}, nil
}
