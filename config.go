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
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Config holds the dispatcher's recognized configuration options, plus the
// ambient logging/metrics/tracing wiring. The zero value is not usable;
// build one with NewConfig.
type Config struct {
	maxErrorRecoveryAttempts    int
	implementMissingOptions     bool
	ignoreRejectedInformational bool

	logger      *slog.Logger
	diagnostics DiagnosticHandler
	meter       metric.Meter
	tracer      trace.Tracer
}

// noopLogger discards everything; it is the default so the dispatcher and
// error chain never nil-deref a logger the caller didn't configure.
var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Option configures a Config. Options are applied in NewConfig after
// defaults.
type Option func(*Config)

// defaultConfig returns the Config populated with this package's defaults.
func defaultConfig() *Config {
	return &Config{
		maxErrorRecoveryAttempts: 4,
		logger:                   noopLogger,
		meter:                    noopMeter(),
		tracer:                   noopTracer(),
	}
}

// NewConfig applies defaults then opts, in order, and returns the
// resulting Config.
func NewConfig(opts ...Option) *Config {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithMaxErrorRecoveryAttempts caps how many times a user error handler
// may rethrow a new exception kind through the chain before the
// base handler takes over unconditionally. Default: 4.
func WithMaxErrorRecoveryAttempts(n int) Option {
	return func(c *Config) { c.maxErrorRecoveryAttempts = n }
}

// WithImplementMissingOptions synthesizes a 204 No Content for an
// unmatched OPTIONS request instead of routing it through MethodNotAllowed
// as a 405.
func WithImplementMissingOptions(enable bool) Option {
	return func(c *Config) { c.implementMissingOptions = enable }
}

// WithIgnoreRejectedInformational suppresses 1xx responses rejected by a
// pre-HTTP/1.1 client. The current base handler treats this historical
// variant as the client-protocol-does-not-support ResponseRejected reason
// and answers with 426 regardless of this flag; the option is accepted
// for source compatibility with callers migrating older configuration.
func WithIgnoreRejectedInformational(enable bool) Option {
	return func(c *Config) { c.ignoreRejectedInformational = enable }
}

// WithLogger sets the *slog.Logger the error chain logs to. A nil logger
// is rejected in favor of the no-op default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDiagnostics sets a diagnostic handler for the dispatcher. Diagnostic
// events are optional; the dispatcher behaves identically whether or not
// one is configured.
func WithDiagnostics(handler DiagnosticHandler) Option {
	return func(c *Config) { c.diagnostics = handler }
}

// WithMeter sets the OpenTelemetry Meter dispatch metrics are recorded
// against. The embedding server owns the MeterProvider and its exporter;
// this core never starts one itself.
func WithMeter(m metric.Meter) Option {
	return func(c *Config) {
		if m != nil {
			c.meter = m
		}
	}
}

// WithTracer sets the OpenTelemetry Tracer used for the per-exchange
// dispatch.route span.
func WithTracer(t trace.Tracer) Option {
	return func(c *Config) {
		if t != nil {
			c.tracer = t
		}
	}
}
