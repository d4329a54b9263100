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

package dispatch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticehttp/dispatch"
	"github.com/latticehttp/dispatch/errs"
	"github.com/latticehttp/dispatch/mediatype"
	"github.com/latticehttp/dispatch/route"
)

// fakeResponse is the test double for dispatch.Response.
type fakeResponse struct {
	status  int
	headers map[string]string
}

func (r *fakeResponse) StatusCode() int { return r.status }
func (r *fakeResponse) IsInformational() bool { return r.status >= 100 && r.status < 200 }
func (r *fakeResponse) SetHeader(k, v string) { r.headers[k] = v }
func (r *fakeResponse) Header(k string) string { return r.headers[k] }

type fakeResponseBuilder struct{}

func (fakeResponseBuilder) NewResponse(status int) dispatch.Response {
	return &fakeResponse{status: status, headers: map[string]string{}}
}

// fakeChannel is the test double for dispatch.Channel.
type fakeChannel struct {
	written    dispatch.Response
	outputOpen bool
	inputOpen  bool
	closed     bool
	attrs      map[string]any
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{outputOpen: true, inputOpen: true, attrs: map[string]any{}}
}

func (c *fakeChannel) Write(resp dispatch.Response) error { c.written = resp; return nil }
func (c *fakeChannel) ShutdownInput() { c.inputOpen = false }
func (c *fakeChannel) Close() { c.closed = true; c.outputOpen = false }
func (c *fakeChannel) IsInputOpen() bool { return c.inputOpen }
func (c *fakeChannel) IsOutputOpen() bool { return c.outputOpen }
func (c *fakeChannel) Attributes() map[string]any { return c.attrs }

// fakeRequest is the test double for dispatch.Request.
type fakeRequest struct {
	method      string
	segments    []string
	contentType *mediatype.MediaType
	accept      []mediatype.MediaType
	paramsRaw   map[string]string
	paramsDec   map[string]string
	attrs       map[string]any
}

func newFakeRequest(method, path string) *fakeRequest {
	return &fakeRequest{
		method:   method,
		segments: splitPath(path),
		attrs:    map[string]any{},
	}
}

func splitPath(path string) []string {
	if path == "/" || path == "" {
		return nil
	}
	var out []string
	cur := ""
	for _, r := range path[1:] {
		if r == '/' {
			out = append(out, cur)
			cur = ""
			continue
		}
		cur += string(r)
	}
	out = append(out, cur)
	return out
}

func (r *fakeRequest) Method() string { return r.method }
func (r *fakeRequest) PathSegments() []string { return r.segments }
func (r *fakeRequest) ContentType() (mediatype.MediaType, bool) {
	if r.contentType == nil {
		return mediatype.MediaType{}, false
	}
	return *r.contentType, true
}
func (r *fakeRequest) Accept() []mediatype.MediaType { return r.accept }
func (r *fakeRequest) Path(name string) (string, bool) {
	v, ok := r.paramsDec[name]
	return v, ok
}
func (r *fakeRequest) PathRaw(name string) (string, bool) {
	v, ok := r.paramsRaw[name]
	return v, ok
}
func (r *fakeRequest) SetPathParams(raw, decoded map[string]string) {
	r.paramsRaw, r.paramsDec = raw, decoded
}
func (r *fakeRequest) Attributes() map[string]any { return r.attrs }

func mustMT(t *testing.T, s string) mediatype.MediaType {
	t.Helper()
	mt, err := mediatype.Parse(s)
	require.NoError(t, err)
	return mt
}

func okHandler(t *testing.T, method string, status int) *route.Handler {
	t.Helper()
	h, err := route.NewBuilder(method).
		Produces(mediatype.MediaType{Type: "text", Subtype: "plain", Quality: 1}).
		Logic(dispatch.HandlerFunc(func(req dispatch.Request, ch dispatch.Channel) error {
			return ch.Write(&fakeResponse{status: status, headers: map[string]string{}})
		})).
		Build()
	require.NoError(t, err)
	return h
}

func newDispatcherFor(t *testing.T, cfg *dispatch.Config, routes ...*route.Route) (*dispatch.Dispatcher, *dispatch.Registry) {
	t.Helper()
	if cfg == nil {
		cfg = dispatch.NewConfig()
	}
	reg := dispatch.NewRegistry(cfg)
	for _, r := range routes {
		require.NoError(t, reg.Add(r))
	}
	chain := dispatch.NewChain(fakeResponseBuilder{}, cfg)
	return dispatch.NewDispatcher(reg.Tree(), chain, cfg), reg
}

// GET /hello produces text/plain; Accept: */* selects it and writes 200.
func TestDispatch_SelectsHandlerAndWrites(t *testing.T) {
	h := okHandler(t, "GET", 200)
	r, err := route.NewRouteBuilder("/hello").Handler(h).Build()
	require.NoError(t, err)

	d, _ := newDispatcherFor(t, nil, r)
	req := newFakeRequest("GET", "/hello")
	req.accept = []mediatype.MediaType{mediatype.ALL}
	ch := newFakeChannel()

	d.Dispatch(context.Background(), req, ch)

	require.NotNil(t, ch.written)
	assert.Equal(t, 200, ch.written.StatusCode())
}

// A static route wins over a single-param sibling subtree; the single
// route binds the decoded "id" value.
// The binding is observed inside the handler: the dispatcher releases the
// param maps once the exchange ends.
func TestDispatch_StaticWinsOverSingle(t *testing.T) {
	newUsers := okHandler(t, "GET", 200)

	var gotID string
	byID, err := route.NewBuilder("GET").
		Produces(mediatype.MediaType{Type: "text", Subtype: "plain", Quality: 1}).
		Logic(dispatch.HandlerFunc(func(req dispatch.Request, ch dispatch.Channel) error {
			gotID, _ = req.Path("id")
			return ch.Write(&fakeResponse{status: 200, headers: map[string]string{}})
		})).
		Build()
	require.NoError(t, err)

	rNew, err := route.NewRouteBuilder("/users/new").Handler(newUsers).Build()
	require.NoError(t, err)
	rByID, err := route.NewRouteBuilder("/users/:id").Handler(byID).Build()
	require.NoError(t, err)

	d, _ := newDispatcherFor(t, nil, rNew, rByID)

	reqNew := newFakeRequest("GET", "/users/new")
	chNew := newFakeChannel()
	d.Dispatch(context.Background(), reqNew, chNew)
	assert.Equal(t, 200, chNew.written.StatusCode())

	reqByID := newFakeRequest("GET", "/users/42")
	chByID := newFakeChannel()
	d.Dispatch(context.Background(), reqByID, chByID)
	assert.Equal(t, 200, chByID.written.StatusCode())
	assert.Equal(t, "42", gotID)
}

// A catch-all binds raw and decoded values, and "/" when no segments remain.
func TestDispatch_CatchAllBindings(t *testing.T) {
	var gotRaw, gotDec string
	h, err := route.NewBuilder("GET").
		Produces(mediatype.MediaType{Type: "text", Subtype: "plain", Quality: 1}).
		Logic(dispatch.HandlerFunc(func(req dispatch.Request, ch dispatch.Channel) error {
			gotRaw, _ = req.PathRaw("path")
			gotDec, _ = req.Path("path")
			return ch.Write(&fakeResponse{status: 200, headers: map[string]string{}})
		})).
		Build()
	require.NoError(t, err)
	r, err := route.NewRouteBuilder("/src/*path").Handler(h).Build()
	require.NoError(t, err)

	d, _ := newDispatcherFor(t, nil, r)

	req := newFakeRequest("GET", "/src/a/b%20c")
	ch := newFakeChannel()
	d.Dispatch(context.Background(), req, ch)
	assert.Equal(t, "/a/b%20c", gotRaw)
	assert.Equal(t, "/a/b c", gotDec)

	req2 := newFakeRequest("GET", "/src")
	ch2 := newFakeChannel()
	d.Dispatch(context.Background(), req2, ch2)
	assert.Equal(t, "/", gotDec)
}

// Two handlers tie for rank -> AmbiguousHandler -> base handler emits 500.
func TestDispatch_AmbiguousHandlersEmit500(t *testing.T) {
	textPlain := mediatype.MediaType{Type: "text", Subtype: "plain", Quality: 1}
	h1, err := route.NewBuilder("GET").Consumes(textPlain).Produces(textPlain).
		Logic(dispatch.HandlerFunc(func(dispatch.Request, dispatch.Channel) error { return nil })).Build()
	require.NoError(t, err)
	jsonMT := mediatype.MediaType{Type: "application", Subtype: "json", Quality: 1}
	h2, err := route.NewBuilder("GET").Consumes(textPlain).Produces(jsonMT).
		Logic(dispatch.HandlerFunc(func(dispatch.Request, dispatch.Channel) error { return nil })).Build()
	require.NoError(t, err)

	r, err := route.NewRouteBuilder("/r").Handler(h1).Handler(h2).Build()
	require.NoError(t, err)

	d, _ := newDispatcherFor(t, nil, r)

	req := newFakeRequest("GET", "/r")
	ct := mustMT(t, "text/plain")
	req.contentType = &ct
	req.accept = []mediatype.MediaType{mediatype.ALL}
	ch := newFakeChannel()

	d.Dispatch(context.Background(), req, ch)
	require.NotNil(t, ch.written)
	assert.Equal(t, 500, ch.written.StatusCode())
}

// MethodNotAllowed answers 405 with Allow: GET; with missing-OPTIONS
// implementation enabled, OPTIONS synthesizes 204 with Allow: OPTIONS, GET.
func TestDispatch_MethodNotAllowed(t *testing.T) {
	h, err := route.NewBuilder("GET").
		Consumes(mediatype.MediaType{Type: "application", Subtype: "json", Quality: 1}).
		Produces(mediatype.ALL).
		Logic(dispatch.HandlerFunc(func(dispatch.Request, dispatch.Channel) error { return nil })).
		Build()
	require.NoError(t, err)
	r, err := route.NewRouteBuilder("/r").Handler(h).Build()
	require.NoError(t, err)

	cfg := dispatch.NewConfig()
	d, _ := newDispatcherFor(t, cfg, r)

	req := newFakeRequest("POST", "/r")
	ch := newFakeChannel()
	d.Dispatch(context.Background(), req, ch)
	require.NotNil(t, ch.written)
	assert.Equal(t, 405, ch.written.StatusCode())
	assert.Equal(t, "GET", ch.written.Header("Allow"))

	cfgOptions := dispatch.NewConfig(dispatch.WithImplementMissingOptions(true))
	d2, _ := newDispatcherFor(t, cfgOptions, r)
	reqOptions := newFakeRequest("OPTIONS", "/r")
	chOptions := newFakeChannel()
	d2.Dispatch(context.Background(), reqOptions, chOptions)
	require.NotNil(t, chOptions.written)
	assert.Equal(t, 204, chOptions.written.StatusCode())
	assert.Equal(t, "OPTIONS, GET", chOptions.written.Header("Allow"))
}

// Static and single-param siblings exclude each other at the same parent,
// in both registration orders.
func TestDispatch_StaticSingleSiblingExclusivity(t *testing.T) {
	h := okHandler(t, "GET", 200)

	rB, err := route.NewRouteBuilder("/a/b").Handler(h).Build()
	require.NoError(t, err)
	rX, err := route.NewRouteBuilder("/a/:x").Handler(h).Build()
	require.NoError(t, err)

	cfg := dispatch.NewConfig()
	reg := dispatch.NewRegistry(cfg)
	require.NoError(t, reg.Add(rB))
	err = reg.Add(rX)
	require.Error(t, err)

	reg2 := dispatch.NewRegistry(cfg)
	rA, err := route.NewRouteBuilder("/a").Handler(h).Build()
	require.NoError(t, err)
	require.NoError(t, reg2.Add(rA))
	require.NoError(t, reg2.Add(rX))
}

// NoRouteFound reaches the base handler as a logged 404.
func TestDispatch_NoRouteFound(t *testing.T) {
	h := okHandler(t, "GET", 200)
	r, err := route.NewRouteBuilder("/known").Handler(h).Build()
	require.NoError(t, err)

	d, _ := newDispatcherFor(t, nil, r)
	req := newFakeRequest("GET", "/unknown")
	ch := newFakeChannel()
	d.Dispatch(context.Background(), req, ch)

	require.NotNil(t, ch.written)
	assert.Equal(t, 404, ch.written.StatusCode())
}

// A closed output channel is never written to; the dispatcher just closes it.
func TestDispatch_ClosedChannelSkipsErrorChain(t *testing.T) {
	h := okHandler(t, "GET", 200)
	r, err := route.NewRouteBuilder("/known").Handler(h).Build()
	require.NoError(t, err)

	d, _ := newDispatcherFor(t, nil, r)
	req := newFakeRequest("GET", "/unknown")
	ch := newFakeChannel()
	ch.outputOpen = false

	d.Dispatch(context.Background(), req, ch)

	assert.Nil(t, ch.written)
	assert.True(t, ch.closed)
}

// A handler surfacing a response timeout half-closes the read side before
// the 503 is written.
func TestDispatch_ResponseTimeoutShutsDownInput(t *testing.T) {
	h, err := route.NewBuilder("GET").
		Produces(mediatype.MediaType{Type: "text", Subtype: "plain", Quality: 1}).
		Logic(dispatch.HandlerFunc(func(dispatch.Request, dispatch.Channel) error {
			return errs.ErrResponseTimeout
		})).
		Build()
	require.NoError(t, err)
	r, err := route.NewRouteBuilder("/slow").Handler(h).Build()
	require.NoError(t, err)

	d, _ := newDispatcherFor(t, nil, r)
	req := newFakeRequest("GET", "/slow")
	ch := newFakeChannel()
	d.Dispatch(context.Background(), req, ch)

	require.NotNil(t, ch.written)
	assert.Equal(t, 503, ch.written.StatusCode())
	assert.False(t, ch.IsInputOpen())
}

// RemoveRoute only clears the exact registered instance; an equivalent
// route built from the same pattern is left untouched.
func TestRegistry_RemoveRouteInstance(t *testing.T) {
	h := okHandler(t, "GET", 200)
	r, err := route.NewRouteBuilder("/gone").Handler(h).Build()
	require.NoError(t, err)
	twin, err := route.NewRouteBuilder("/gone").Handler(h).Build()
	require.NoError(t, err)

	reg := dispatch.NewRegistry(nil)
	require.NoError(t, reg.Add(r))

	assert.False(t, reg.RemoveRoute(twin))
	_, err = reg.Lookup([]string{"gone"})
	require.NoError(t, err)

	assert.True(t, reg.RemoveRoute(r))
	_, err = reg.Lookup([]string{"gone"})
	assert.Error(t, err)
}

// A constraint violation behaves like a non-match: the base handler
// answers 404, not 500.
func TestDispatch_ConstraintViolationIs404(t *testing.T) {
	h := okHandler(t, "GET", 200)
	r, err := route.NewRouteBuilder("/users/:id").Handler(h).Build()
	require.NoError(t, err)
	r.WhereInt("id")

	d, _ := newDispatcherFor(t, nil, r)

	req := newFakeRequest("GET", "/users/42")
	ch := newFakeChannel()
	d.Dispatch(context.Background(), req, ch)
	assert.Equal(t, 200, ch.written.StatusCode())

	req2 := newFakeRequest("GET", "/users/abc")
	ch2 := newFakeChannel()
	d.Dispatch(context.Background(), req2, ch2)
	require.NotNil(t, ch2.written)
	assert.Equal(t, 404, ch2.written.StatusCode())
}
