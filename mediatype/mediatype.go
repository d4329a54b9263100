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

// Package mediatype models an HTTP media type (a parsed Content-Type or
// Accept entry): type, subtype, parameters, and an optional quality value,
// plus the compatibility and specificity rules content negotiation needs.
package mediatype

import (
	"fmt"
	"strconv"
	"strings"
)

// MediaType is an immutable parsed media type, e.g. "application/json;charset=utf-8".
//
// Two sentinel values exist outside the normal type/subtype space: NOTHING
// ("the request carried no Content-Type") and NOTHING_AND_ALL ("this handler
// accepts being invoked with or without a Content-Type"). ALL is the literal
// wildcard "*/*". Quality below 1 is only meaningful for request-side
// (Accept) values; handler-declared consumes/produces always carry quality 1.
type MediaType struct {
	kind       sentinelKind
	Type       string
	Subtype    string
	Parameters map[string]string
	Quality    float64
}

type sentinelKind uint8

const (
	kindNormal sentinelKind = iota
	kindNothing
	kindNothingAndAll
)

var (
	// NOTHING means "the request has no Content-Type header".
	NOTHING = MediaType{kind: kindNothing}
	// NOTHING_AND_ALL means "the handler accepts being invoked with or without a Content-Type".
	NOTHING_AND_ALL = MediaType{kind: kindNothingAndAll} //nolint:revive // sentinel, named for its meaning
	// ALL is the literal "*/*".
	ALL = MediaType{Type: "*", Subtype: "*", Quality: 1}
)

// IsNothing reports whether m is the NOTHING sentinel.
func (m MediaType) IsNothing() bool { return m.kind == kindNothing }

// IsNothingAndAll reports whether m is the NOTHING_AND_ALL sentinel.
func (m MediaType) IsNothingAndAll() bool { return m.kind == kindNothingAndAll }

// ParseError reports a malformed media-type string.
type ParseError struct {
	Input string
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("mediatype: parse %q: %s", e.Input, e.Msg)
}

// Parse parses "type/subtype(;param=value)*" (optional whitespace around
// separators). A "q" parameter, if present and numeric in [0,1], is lifted
// out of Parameters into Quality (default 1). "*/*" and "text/*"-style
// wildcards are accepted; a concrete type with subtype "*" is accepted;
// "*/foo" (wildcard type, concrete subtype) is rejected.
func Parse(s string) (MediaType, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return MediaType{}, &ParseError{Input: s, Msg: "empty media type"}
	}

	head, rest := raw, ""
	if semi := strings.IndexByte(raw, ';'); semi >= 0 {
		head, rest = raw[:semi], raw[semi+1:]
	}
	slash := strings.IndexByte(head, '/')
	if slash < 0 {
		return MediaType{}, &ParseError{Input: s, Msg: "missing '/'"}
	}

	typ := strings.ToLower(strings.TrimSpace(head[:slash]))
	sub := strings.ToLower(strings.TrimSpace(head[slash+1:]))

	if typ == "" || sub == "" {
		return MediaType{}, &ParseError{Input: s, Msg: "empty type or subtype"}
	}
	if typ == "*" && sub != "*" {
		return MediaType{}, &ParseError{Input: s, Msg: "wildcard type with concrete subtype"}
	}

	mt := MediaType{Type: typ, Subtype: sub, Quality: 1}

	for rest != "" {
		var part string
		if semi := strings.IndexByte(rest, ';'); semi >= 0 {
			part, rest = rest[:semi], rest[semi+1:]
		} else {
			part, rest = rest, ""
		}
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			return MediaType{}, &ParseError{Input: s, Msg: "malformed parameter " + part}
		}
		key := strings.ToLower(strings.TrimSpace(part[:eq]))
		val := strings.TrimSpace(part[eq+1:])
		val = strings.Trim(val, `"`)
		if key == "" {
			return MediaType{}, &ParseError{Input: s, Msg: "empty parameter name"}
		}
		if key == "q" {
			q, err := strconv.ParseFloat(val, 64)
			if err != nil || q < 0 || q > 1 {
				return MediaType{}, &ParseError{Input: s, Msg: "invalid q value " + val}
			}
			mt.Quality = q
			continue
		}
		if mt.Parameters == nil {
			mt.Parameters = make(map[string]string, 2)
		}
		mt.Parameters[key] = val
	}

	return mt, nil
}

// Specificity returns an integer comparing media-type concreteness; lower is
// more specific. Concrete type+subtype+N parameters < concrete type+subtype <
// type/* < */* < NOTHING_AND_ALL.
func (m MediaType) Specificity() int {
	if m.IsNothingAndAll() {
		return 1<<31 - 1
	}
	score := 0
	if m.Type == "*" {
		score += 4
	}
	if m.Subtype == "*" {
		score += 2
	}
	score -= len(m.Parameters)
	return score
}

// Compatibility describes how well two media types match.
type Compatibility int

const (
	NOPE Compatibility = iota
	PARTIAL
	EXACT
)

// Compatibility computes the compatibility score between the receiver (the
// handler's declared consumes/produces) and other (the request's
// Content-Type or an Accept entry). Parameter matching is asymmetric: only
// the receiver's declared parameters constrain the match.
func (m MediaType) Compatibility(other MediaType) Compatibility {
	if m.Type == "*" && m.Subtype == "*" {
		return matchParams(m, other, PARTIAL)
	}
	if other.Type == "*" && other.Subtype == "*" {
		return matchParams(m, other, PARTIAL)
	}
	if m.Type != other.Type {
		return NOPE
	}
	if m.Subtype == "*" || other.Subtype == "*" {
		return matchParams(m, other, PARTIAL)
	}
	if m.Subtype != other.Subtype {
		return NOPE
	}
	return matchParams(m, other, EXACT)
}

// matchParams applies the handler-side parameter filter: if m (the
// receiver) declares parameters, every one must match other's value using
// the case rules (charset under text/* is case-insensitive; other
// parameter values are case-sensitive). A receiver with no declared
// parameters matches any parameter set.
func matchParams(m, other MediaType, onMatch Compatibility) Compatibility {
	if len(m.Parameters) == 0 {
		return onMatch
	}
	for k, v := range m.Parameters {
		ov, ok := other.Parameters[k]
		if !ok {
			return NOPE
		}
		if k == "charset" && m.Type == "text" {
			if !strings.EqualFold(v, ov) {
				return NOPE
			}
			continue
		}
		if v != ov {
			return NOPE
		}
	}
	return onMatch
}

// Equal reports whether m and other denote the same media type: same
// sentinel kind, or same type/subtype/quality and parameter set.
func (m MediaType) Equal(other MediaType) bool {
	if m.kind != other.kind {
		return false
	}
	if m.kind != kindNormal {
		return true
	}
	if m.Type != other.Type || m.Subtype != other.Subtype || m.Quality != other.Quality {
		return false
	}
	if len(m.Parameters) != len(other.Parameters) {
		return false
	}
	for k, v := range m.Parameters {
		if other.Parameters[k] != v {
			return false
		}
	}
	return true
}

// String renders the canonical form, e.g. "application/json;charset=utf-8".
func (m MediaType) String() string {
	if m.IsNothing() {
		return "<nothing>"
	}
	if m.IsNothingAndAll() {
		return "<nothing-and-all>"
	}
	var b strings.Builder
	b.WriteString(m.Type)
	b.WriteByte('/')
	b.WriteString(m.Subtype)
	for k, v := range m.Parameters {
		b.WriteByte(';')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	if m.Quality != 1 {
		fmt.Fprintf(&b, ";q=%g", m.Quality)
	}
	return b.String()
}
