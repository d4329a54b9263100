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
	"regexp"
	"strings"
	"sync"
)

// ConstraintKind enumerates the typed path-parameter constraints a route
// may declare.
type ConstraintKind uint8

const (
	ConstraintRegex ConstraintKind = iota
	ConstraintInt
	ConstraintFloat
	ConstraintUUID
	ConstraintEnum
	ConstraintDate
	ConstraintDateTime
)

// ParamConstraint is a compiled, typed constraint for one path parameter.
// A constraint violation is treated as a non-match: the dispatcher reports
// it as NoRouteFound rather than a distinct error kind, and no other route
// is tried.
type ParamConstraint struct {
	Kind    ConstraintKind
	Pattern string // source regex, for ConstraintRegex
	Enum    []string

	once sync.Once
	re   *regexp.Regexp
}

// Matches reports whether value satisfies the constraint. The regex is
// compiled once; Matches is safe for concurrent exchanges sharing a route.
func (c *ParamConstraint) Matches(value string) bool {
	c.once.Do(func() {
		c.re = regexp.MustCompile("^" + c.regexSource() + "$")
	})
	return c.re.MatchString(value)
}

func (c *ParamConstraint) regexSource() string {
	switch c.Kind {
	case ConstraintInt:
		return `\d+`
	case ConstraintFloat:
		return `-?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`
	case ConstraintUUID:
		return `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}`
	case ConstraintEnum:
		escaped := make([]string, 0, len(c.Enum))
		for _, v := range c.Enum {
			escaped = append(escaped, regexp.QuoteMeta(v))
		}
		return "(" + strings.Join(escaped, "|") + ")"
	case ConstraintDate:
		return `\d{4}-\d{2}-\d{2}`
	case ConstraintDateTime:
		return `\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})`
	default: // ConstraintRegex
		return c.Pattern
	}
}

// WhereInt constrains name to decimal digits.
func (r *Route) WhereInt(name string) *Route {
	return r.WithConstraint(name, &ParamConstraint{Kind: ConstraintInt})
}

// WhereFloat constrains name to a floating-point literal.
func (r *Route) WhereFloat(name string) *Route {
	return r.WithConstraint(name, &ParamConstraint{Kind: ConstraintFloat})
}

// WhereUUID constrains name to a canonical UUID.
func (r *Route) WhereUUID(name string) *Route {
	return r.WithConstraint(name, &ParamConstraint{Kind: ConstraintUUID})
}

// WhereRegex constrains name with a custom regex (anchored automatically).
func (r *Route) WhereRegex(name, pattern string) *Route {
	return r.WithConstraint(name, &ParamConstraint{Kind: ConstraintRegex, Pattern: pattern})
}

// WhereEnum constrains name to one of values.
func (r *Route) WhereEnum(name string, values ...string) *Route {
	return r.WithConstraint(name, &ParamConstraint{Kind: ConstraintEnum, Enum: append([]string(nil), values...)})
}

// WhereDate constrains name to an RFC3339 full-date.
func (r *Route) WhereDate(name string) *Route {
	return r.WithConstraint(name, &ParamConstraint{Kind: ConstraintDate})
}

// WhereDateTime constrains name to an RFC3339 date-time.
func (r *Route) WhereDateTime(name string) *Route {
	return r.WithConstraint(name, &ParamConstraint{Kind: ConstraintDateTime})
}
