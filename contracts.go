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

import "github.com/latticehttp/dispatch/mediatype"

// Request is the read-only view of an inbound exchange the wire-level
// parser hands to the dispatcher. Method, PathSegments, ContentType,
// and Accept never change after construction; Attributes and the path
// parameter maps are populated by the dispatcher as it routes the
// exchange.
type Request interface {
	// Method is the request method token, case-sensitive.
	Method() string
	// PathSegments returns the raw (still percent-encoded), normalized
	// path segments. The root path yields an empty slice.
	PathSegments() []string
	// ContentType returns the parsed Content-Type header and true, or
	// (zero value, false) if the request carried none.
	ContentType() (mediatype.MediaType, bool)
	// Accept returns the parsed Accept list in header order. An absent
	// or empty Accept header yields a nil slice.
	Accept() []mediatype.MediaType

	// Path returns the percent-decoded value bound to a path parameter.
	Path(name string) (string, bool)
	// PathRaw returns the raw (still percent-encoded) value bound to a
	// path parameter.
	PathRaw(name string) (string, bool)
	// SetPathParams installs the parameter bindings produced by a
	// successful registry lookup; the dispatcher calls this before
	// invoking the selected handler, and again with nil maps when the
	// exchange ends.
	SetPathParams(raw, decoded map[string]string)

	// Attributes is a mutable, per-request attribute bag; handlers and
	// error handlers may stash request-scoped values there.
	Attributes() map[string]any
}

// Response carries a status code and headers produced for one exchange.
// Implementations are supplied by the protocol layer; the dispatch core
// only ever builds and inspects them, never serializes them to bytes.
type Response interface {
	// StatusCode returns the response's HTTP status.
	StatusCode() int
	// IsInformational reports whether StatusCode is in the 1xx range.
	IsInformational() bool
	// SetHeader appends or replaces a response header, e.g. "Allow" or
	// "Connection".
	SetHeader(name, value string)
	// Header returns the current value of a response header, or "" if
	// unset.
	Header(name string) string
}

// ResponseBuilder constructs a Response; the base error handler uses it
// to build the fallback responses in its taxonomy table.
type ResponseBuilder interface {
	// NewResponse starts a Response with the given status code.
	NewResponse(status int) Response
}

// Channel is the writable per-exchange connection the dispatcher commits
// a final response to. The dispatcher never reads from it and owns
// neither its lifecycle nor the connection it runs over.
type Channel interface {
	// Write commits resp as the final response for this exchange. Write
	// must be called at most once per exchange; a second call is a
	// protocol-layer bug, not a condition this core checks for.
	Write(resp Response) error
	// ShutdownInput half-closes the connection's read side, used by the
	// ResponseTimeout path of the base error handler.
	ShutdownInput()
	// Close closes the channel outright.
	Close()
	// IsInputOpen reports whether the channel can still be read from.
	IsInputOpen() bool
	// IsOutputOpen reports whether the channel can still be written to.
	// The dispatcher checks this before entering the error chain:
	// if the output is already closed, it logs and closes rather than
	// attempting another write.
	IsOutputOpen() bool

	// Attributes is a mutable attribute bag scoped to the connection's
	// lifetime (outliving any one exchange), e.g. for per-connection
	// keep-alive bookkeeping.
	Attributes() map[string]any
}
