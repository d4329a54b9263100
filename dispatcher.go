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
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/latticehttp/dispatch/errs"
	"github.com/latticehttp/dispatch/mediatype"
	"github.com/latticehttp/dispatch/pattern"
	"github.com/latticehttp/dispatch/registry"
	"github.com/latticehttp/dispatch/route"
)

// HandlerFunc is the concrete shape a route.Handler's opaque Logic takes
// in this dispatch core: invoked with the exchange's Request and Channel,
// returning an error that re-enters the error-handler chain. route.Handler
// keeps Logic as route.Logic (an any) precisely so the leaf route package
// never imports this root package.
type HandlerFunc func(Request, Channel) error

// Dispatcher orchestrates a single exchange end to end: registry
// lookup, handler selection, invocation, and — on any error — the
// error-handler chain. A Dispatcher is built once and is safe for
// concurrent use across every exchange the embedding server schedules;
// its only mutable shared state is the Registry, which is itself
// concurrency-safe.
type Dispatcher struct {
	registry *registry.Tree[route.Route]
	chain    *Chain
	cfg      *Config
	metrics  *dispatchMetrics
}

// NewDispatcher builds a Dispatcher over reg, delegating unhandled
// exceptions to chain per cfg.
func NewDispatcher(reg *registry.Tree[route.Route], chain *Chain, cfg *Config) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		chain:    chain,
		cfg:      cfg,
		metrics:  newDispatchMetrics(cfg.meter),
	}
}

// Dispatch runs one exchange end to end:
//
//  1. registry.Lookup(req.PathSegments()) -> Match (or NoRouteFound)
//  2. match.Route.Lookup(method, contentType, accept) -> Handler (or
//     MethodNotAllowed / MediaTypeUnsupported / MediaTypeNotAccepted /
//     AmbiguousHandler)
//  3. path-params are installed on req; the handler's logic is invoked
//  4. any error from 1-3 enters the error-handler chain, whose response is
//     written to ch
//
// Dispatch does not invoke the error chain if ch.IsOutputOpen() is false
// at the moment an error surfaces; it logs and closes ch instead.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, ch Channel) {
	start := time.Now()
	ctx, span := d.cfg.tracer.Start(ctx, "dispatch.route")
	defer span.End()

	outcome := "ok"
	defer func() {
		// The exchange is over: drop the path-param bindings and any
		// request-scoped attributes handlers stashed, so nothing pins the
		// maps past the exchange.
		req.SetPathParams(nil, nil)
		clear(req.Attributes())
		d.metrics.recordDuration(ctx, time.Since(start).Seconds(), outcome)
	}()

	if err := d.dispatch(ctx, req, ch, span); err != nil {
		outcome = "error"
		d.fail(ctx, err, req, ch, span)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request, ch Channel, span trace.Span) error {
	match, err := d.registry.Lookup(req.PathSegments())
	if err != nil {
		d.metrics.recordLookup(ctx, "not_found")
		return err
	}
	d.metrics.recordLookup(ctx, "matched")

	r := match.Value
	span.SetAttributes(attribute.String("dispatch.route", r.String()))

	if err := checkConstraints(r, match.ParamsDecoded, req.PathSegments()); err != nil {
		d.metrics.recordLookup(ctx, "not_found")
		return err
	}

	var ctPtr *mediatype.MediaType
	if ct, ok := req.ContentType(); ok {
		ctPtr = &ct
	}
	handler, err := r.Lookup(req.Method(), ctPtr, req.Accept())
	if err != nil {
		d.metrics.recordSelection(ctx, selectionOutcome(err))
		var ambiguous *errs.AmbiguousHandler
		if errors.As(err, &ambiguous) {
			d.cfg.emit(DiagnosticEvent{
				Kind:    DiagAmbiguousHandler,
				Message: err.Error(),
				Fields:  map[string]any{"route": r.String(), "candidates": ambiguous.Candidates},
			})
		}
		return err
	}
	d.metrics.recordSelection(ctx, "selected")
	span.SetAttributes(attribute.String("dispatch.handler.method", handler.Method))

	req.SetPathParams(match.ParamsRaw, match.ParamsDecoded)

	logic, ok := handler.Logic.(HandlerFunc)
	if !ok {
		return fmt.Errorf("handler logic for %s %s is a %T, not a dispatch.HandlerFunc", handler.Method, r.String(), handler.Logic)
	}
	return logic(req, ch)
}

// fail enters the error-handler chain for err and writes its response to
// ch, unless ch has already been closed for output, in which case the
// exception is logged and the channel is closed instead.
func (d *Dispatcher) fail(ctx context.Context, err error, req Request, ch Channel, span trace.Span) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if !ch.IsOutputOpen() {
		d.cfg.logger.Error("dispatch error with no writable channel", "error", err)
		ch.Close()
		return
	}

	// A response timeout means the client stopped consuming; half-close the
	// read side before answering 503 so no further requests are read off
	// this connection.
	if errors.Is(err, errs.ErrResponseTimeout) {
		ch.ShutdownInput()
	}

	resp := d.chain.Handle(err, req)
	d.metrics.recordError(ctx, errKindName(err), resp.StatusCode())

	if werr := ch.Write(resp); werr != nil {
		d.cfg.logger.Error("failed to write error response", "error", werr)
		ch.Close()
	}
}

// checkConstraints applies any typed path-parameter constraints the route
// declares (route.WhereInt et al.) against the decoded bindings a lookup
// produced. A violation is treated like a registry non-match: the position
// the tree walked to doesn't denote a usable route after all.
func checkConstraints(r *route.Route, decoded map[string]string, rawSegments []string) error {
	for _, seg := range r.Segments() {
		if seg.Kind != pattern.Single && seg.Kind != pattern.CatchAll {
			continue
		}
		c, ok := r.Constraint(seg.Value)
		if !ok {
			continue
		}
		if !c.Matches(decoded[seg.Value]) {
			return &errs.NoRouteFound{Segments: rawSegments}
		}
	}
	return nil
}

func selectionOutcome(err error) string {
	switch err.(type) {
	case *errs.MethodNotAllowed:
		return "method_not_allowed"
	case *errs.MediaTypeUnsupported:
		return "media_type_unsupported"
	case *errs.MediaTypeNotAccepted:
		return "media_type_not_accepted"
	case *errs.AmbiguousHandler:
		return "ambiguous"
	default:
		return "error"
	}
}

func errKindName(err error) string {
	switch err.(type) {
	case *errs.NoRouteFound:
		return "NoRouteFound"
	case *errs.MethodNotAllowed:
		return "MethodNotAllowed"
	case *errs.MediaTypeUnsupported:
		return "MediaTypeUnsupported"
	case *errs.MediaTypeNotAccepted:
		return "MediaTypeNotAccepted"
	case *errs.AmbiguousHandler:
		return "AmbiguousHandler"
	case *errs.HTTPVersionTooOld:
		return "HTTPVersionTooOld"
	case *errs.ResponseRejected:
		return "ResponseRejected"
	default:
		return "other"
	}
}
