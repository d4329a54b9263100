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
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/latticehttp/dispatch/errs"
)

// ProceedFunc invokes the next handler in the chain (the base handler, if
// none remain) against the same exception, returning whatever it decides.
type ProceedFunc func() (Response, error)

// ErrorHandler is one link in the error-handler chain. It receives
// the exception and the request that was in flight (nil only when
// Chain.Handle was called without one), and either:
//
//   - returns a final Response with a nil error, or
//   - returns (nil, newErr) to raise a new exception: the chain restarts
//     from the first registered handler with newErr, bounded by
//     Config.maxErrorRecoveryAttempts, or
//   - calls proceed() and returns its result verbatim, delegating to the
//     next handler.
type ErrorHandler func(err error, req Request, proceed ProceedFunc) (Response, error)

// Chain is the ordered sequence of user error handlers terminated by the
// always-present base handler. The base handler is not itself an
// ErrorHandler; it is Chain's fallback once the user handlers are
// exhausted, and it never delegates further.
type Chain struct {
	handlers []ErrorHandler
	cfg      *Config
	rb       ResponseBuilder
}

// NewChain builds a Chain. rb constructs the Response values the base
// handler returns; cfg supplies the logger, recovery-attempt cap, and the
// implement_missing_options / ignore_rejected_informational flags.
func NewChain(rb ResponseBuilder, cfg *Config, handlers ...ErrorHandler) *Chain {
	return &Chain{handlers: handlers, cfg: cfg, rb: rb}
}

// Handle routes err through the chain and returns the response to write.
// req may be nil when the caller has no Request at hand; the Dispatcher
// always passes the exchange's Request, registry lookup failures included.
func (c *Chain) Handle(err error, req Request) Response {
	current := errs.Unwrap(err)
	attempts := 0

	for {
		resp, rethrow := c.invoke(0, current, req)
		if rethrow == nil {
			return resp
		}
		attempts++
		if attempts > c.cfg.maxErrorRecoveryAttempts {
			c.cfg.logger.Error("error chain exhausted, forcing 500",
				"attempts", attempts, "kind", fmt.Sprintf("%T", rethrow))
			c.cfg.emit(DiagnosticEvent{
				Kind:    DiagErrorChainExhausted,
				Message: "error-handler chain exceeded max recovery attempts",
				Fields:  map[string]any{"attempts": attempts},
			})
			return c.plainResponse(500)
		}
		current = errs.Unwrap(rethrow)
	}
}

// invoke dispatches err to the handler at idx, or to the base handler once
// idx runs past the end of the registered chain.
func (c *Chain) invoke(idx int, err error, req Request) (Response, error) {
	if idx >= len(c.handlers) {
		return c.base(err, req), nil
	}
	h := c.handlers[idx]
	proceed := func() (Response, error) { return c.invoke(idx+1, err, req) }
	return h(err, req, proceed)
}

func (c *Chain) plainResponse(status int) Response {
	return c.rb.NewResponse(status)
}

// badRequestSentinels are the "400 Bad Request, no log" bucket: every
// one is a distinct errors.New sentinel in errs, so a single errors.Is
// loop classifies them all.
var badRequestSentinels = []error{
	errs.ErrRequestLineParse,
	errs.ErrHeaderParse,
	errs.ErrHTTPVersionParse,
	errs.ErrBadHeader,
	errs.ErrBadRequest,
	errs.ErrIllegalRequestBody,
	errs.ErrDecoder,
	errs.ErrEndOfStream,
}

var payloadTooLargeSentinels = []error{
	errs.ErrMaxRequestHeadSize,
	errs.ErrMaxRequestTrailersSize,
	errs.ErrMaxRequestBodyBufferSize,
}

func isAnyOf(err error, sentinels []error) bool {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// base implements the exception-to-status taxonomy: the terminal handler that maps
// every exception kind this core raises (or that the external protocol
// layer raises) to a fallback Response. It never delegates.
func (c *Chain) base(err error, req Request) Response {
	var (
		versionTooOld    *errs.HTTPVersionTooOld
		noRoute          *errs.NoRouteFound
		methodNotAllowed *errs.MethodNotAllowed
		mediaUnsupported *errs.MediaTypeUnsupported
		mediaNotAccepted *errs.MediaTypeNotAccepted
		ambiguous        *errs.AmbiguousHandler
		rejected         *errs.ResponseRejected
	)

	switch {
	case isAnyOf(err, badRequestSentinels):
		return c.plainResponse(400)

	case errors.As(err, &versionTooOld):
		resp := c.plainResponse(426)
		resp.SetHeader("Upgrade", versionTooOld.Upgrade)
		return resp

	case errors.Is(err, errs.ErrHTTPVersionTooNew):
		return c.plainResponse(505)

	case errors.Is(err, errs.ErrUnsupportedTransferCoding):
		return c.plainResponse(501)

	case isAnyOf(err, payloadTooLargeSentinels):
		c.logError(err, 413, "", nil)
		return c.plainResponse(413)

	case errors.As(err, &noRoute):
		c.logError(err, 404, "", noRoute.Segments)
		return c.plainResponse(404)

	case errors.As(err, &methodNotAllowed):
		return c.methodNotAllowed(methodNotAllowed)

	case errors.As(err, &mediaUnsupported):
		c.logError(err, 415, "", nil)
		return c.plainResponse(415)

	case errors.As(err, &mediaNotAccepted):
		c.logError(err, 406, "", nil)
		return c.plainResponse(406)

	case errors.Is(err, errs.ErrMediaTypeParse),
		errors.As(err, &ambiguous),
		errors.Is(err, errs.ErrIllegalResponseBody):
		c.logError(err, 500, "", nil)
		return c.plainResponse(500)

	case errors.Is(err, errs.ErrReadTimeout):
		return c.plainResponse(408)

	case errors.Is(err, errs.ErrResponseTimeout):
		c.logError(err, 503, "", nil)
		return c.plainResponse(503)

	case errors.As(err, &rejected):
		if rejected.Reason == errs.ClientProtocolUnknownButNeeded {
			c.logError(err, 500, "", nil)
			return c.plainResponse(500)
		}
		resp := c.plainResponse(426)
		resp.SetHeader("Upgrade", "HTTP/1.1")
		return resp

	default:
		c.logError(err, 500, "", nil)
		return c.plainResponse(500)
	}
}

// methodNotAllowed implements the two MethodNotAllowed rows: an OPTIONS
// request against a route that never registered one is answered with a
// synthesized 204 when Config.implementMissingOptions is set, otherwise a
// logged 405. Allow always carries the route's sorted supported methods.
func (c *Chain) methodNotAllowed(e *errs.MethodNotAllowed) Response {
	allow := append([]string(nil), e.SupportedMethods...)
	sort.Strings(allow)

	if e.Method == "OPTIONS" && c.cfg.implementMissingOptions {
		resp := c.plainResponse(204)
		resp.SetHeader("Allow", strings.Join(prepend("OPTIONS", allow), ", "))
		return resp
	}

	c.logError(e, 405, e.Route, nil)
	resp := c.plainResponse(405)
	resp.SetHeader("Allow", strings.Join(allow, ", "))
	return resp
}

// prepend puts s first in a copy of rest, deduplicating an existing s.
func prepend(s string, rest []string) []string {
	out := make([]string, 0, len(rest)+1)
	out = append(out, s)
	for _, r := range rest {
		if r != s {
			out = append(out, r)
		}
	}
	return out
}

func (c *Chain) logError(err error, status int, route string, segments []string) {
	attrs := []any{"kind", fmt.Sprintf("%T", err), "status", status}
	if route != "" {
		attrs = append(attrs, "route", route)
	}
	if segments != nil {
		attrs = append(attrs, "segments", segments)
	}
	c.cfg.logger.Error(err.Error(), attrs...)
}
