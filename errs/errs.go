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

// Package errs is the closed exception taxonomy the dispatch core and its
// external collaborators (the wire-level parser, the timeout scheduler, the
// connection layer) raise. It is a leaf package so route, registry, and the
// root dispatch package can all classify errors with errors.As/errors.Is
// without import cycles.
//
// Collisions (RouteCollision, HandlerCollision) are surfaced synchronously
// from registration calls and never reach the error-handler chain; every
// other kind flows through the chain described in the root package's
// errchain.go.
package errs

import "errors"

// Sentinel kinds with no associated data. Each is a distinct identity
// (errors.New, not fmt.Errorf) so errors.Is discriminates them.
var (
	ErrRequestLineParse          = errors.New("errs: request line parse error")
	ErrHeaderParse               = errors.New("errs: header parse error")
	ErrHTTPVersionParse          = errors.New("errs: http version parse error")
	ErrHTTPVersionTooNew         = errors.New("errs: http version too new")
	ErrBadHeader                 = errors.New("errs: bad header")
	ErrBadRequest                = errors.New("errs: bad request")
	ErrIllegalRequestBody        = errors.New("errs: illegal request body")
	ErrIllegalResponseBody       = errors.New("errs: illegal response body")
	ErrDecoder                   = errors.New("errs: decoder error")
	ErrUnsupportedTransferCoding = errors.New("errs: unsupported transfer coding")
	ErrEndOfStream               = errors.New("errs: end of stream")
	ErrMaxRequestHeadSize        = errors.New("errs: max request head size exceeded")
	ErrMaxRequestTrailersSize    = errors.New("errs: max request trailers size exceeded")
	ErrMaxRequestBodyBufferSize  = errors.New("errs: max request body buffer size exceeded")
	ErrReadTimeout               = errors.New("errs: read timeout")
	ErrResponseTimeout           = errors.New("errs: response timeout")
	ErrMediaTypeParse            = errors.New("errs: media type parse error")
)

// HTTPVersionTooOld means the client's HTTP version is too old to serve;
// Upgrade names the version the server requires instead.
type HTTPVersionTooOld struct {
	Upgrade string
}

func (e *HTTPVersionTooOld) Error() string {
	return "errs: http version too old, upgrade to " + e.Upgrade
}

// NoRouteFound means no registered route's pattern matched the request path.
type NoRouteFound struct {
	Segments []string
}

func (e *NoRouteFound) Error() string { return "errs: no route found" }

// RouteCollision is raised synchronously from Registry.Add when a new
// route's position in the tree conflicts with an existing route or with
// the tree's structural invariants.
type RouteCollision struct {
	Pattern string
	Reason  string
}

func (e *RouteCollision) Error() string {
	return "errs: route collision for " + e.Pattern + ": " + e.Reason
}

// HandlerCollision is raised synchronously from Route construction when two
// handlers share the same (method, consumes, produces) tuple.
type HandlerCollision struct {
	Method, Consumes, Produces string
}

func (e *HandlerCollision) Error() string {
	return "errs: handler collision for " + e.Method + " " + e.Consumes + " -> " + e.Produces
}

// MethodNotAllowed means the route exists but no handler matches the
// request method. SupportedMethods is sorted.
type MethodNotAllowed struct {
	Route            string
	Method           string
	SupportedMethods []string
}

func (e *MethodNotAllowed) Error() string { return "errs: method not allowed: " + e.Method }

// MediaTypeUnsupported means no handler's consumes is compatible with the
// request's Content-Type.
type MediaTypeUnsupported struct {
	ContentType string
}

func (e *MediaTypeUnsupported) Error() string {
	return "errs: media type unsupported: " + e.ContentType
}

// MediaTypeNotAccepted means no handler's produces is compatible with any
// entry of the request's Accept list.
type MediaTypeNotAccepted struct {
	Accepts []string
}

func (e *MediaTypeNotAccepted) Error() string { return "errs: media type not accepted" }

// AmbiguousHandler means two or more handlers tied for best rank and
// neither a produces- nor consumes-specificity tiebreak resolved it.
type AmbiguousHandler struct {
	Candidates []string
}

func (e *AmbiguousHandler) Error() string { return "errs: ambiguous handler" }

// ResponseRejectedReason enumerates why a response was rejected by the
// client-protocol layer.
type ResponseRejectedReason string

const (
	ClientProtocolUnknownButNeeded ResponseRejectedReason = "client-protocol-unknown-but-needed"
	ClientProtocolDoesNotSupport   ResponseRejectedReason = "client-protocol-does-not-support"
)

// ResponseRejected means the protocol layer refused to write a response.
type ResponseRejected struct {
	Reason ResponseRejectedReason
}

func (e *ResponseRejected) Error() string { return "errs: response rejected: " + string(e.Reason) }

// Unwrap recursively unwraps err through any number of standard-library
// wrapping layers (fmt.Errorf("%w", ...), or any type implementing
// Unwrap() error) until it finds a layer with no further cause, returning
// that innermost error. This implements Open Question 3's "recursive
// unwrap of library-internal wrappers" reading: it only follows the
// standard Unwrap chain, so it never reaches past a third-party error that
// does not itself choose to expose a cause.
func Unwrap(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
