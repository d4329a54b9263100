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

package mediatype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr bool
		check   func(t *testing.T, m MediaType)
	}{
		{
			name:  "simple",
			input: "application/json",
			check: func(t *testing.T, m MediaType) {
				assert.Equal(t, "application", m.Type)
				assert.Equal(t, "json", m.Subtype)
				assert.Equal(t, 1.0, m.Quality)
			},
		},
		{
			name:  "with quality",
			input: "text/html;q=0.8",
			check: func(t *testing.T, m MediaType) {
				assert.Equal(t, 0.8, m.Quality)
			},
		},
		{
			name:  "with parameters",
			input: "application/json;version=1;charset=UTF-8",
			check: func(t *testing.T, m MediaType) {
				assert.Equal(t, "1", m.Parameters["version"])
				assert.Equal(t, "UTF-8", m.Parameters["charset"])
				assert.Equal(t, 1.0, m.Quality, "q not present, param not stripped as q")
			},
		},
		{
			name:  "star star",
			input: "*/*",
			check: func(t *testing.T, m MediaType) {
				assert.Equal(t, "*", m.Type)
				assert.Equal(t, "*", m.Subtype)
			},
		},
		{
			name:  "type star",
			input: "text/*",
			check: func(t *testing.T, m MediaType) {
				assert.Equal(t, "text", m.Type)
				assert.Equal(t, "*", m.Subtype)
			},
		},
		{name: "star concrete subtype rejected", input: "*/json", wantErr: true},
		{name: "missing slash", input: "json", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, m)
			}
		})
	}
}

func TestCompatibility(t *testing.T) {
	t.Parallel()

	json := MediaType{Type: "application", Subtype: "json", Quality: 1}
	jsonV1 := MediaType{Type: "application", Subtype: "json", Quality: 1, Parameters: map[string]string{"version": "1"}}
	textStar := MediaType{Type: "text", Subtype: "*", Quality: 1}
	textHTMLUpper := MediaType{Type: "text", Subtype: "html", Parameters: map[string]string{"charset": "UTF-8"}}
	textHTMLLower := MediaType{Type: "text", Subtype: "html", Parameters: map[string]string{"charset": "utf-8"}}

	assert.Equal(t, EXACT, json.Compatibility(json))
	assert.Equal(t, PARTIAL, ALL.Compatibility(json))
	assert.Equal(t, PARTIAL, textStar.Compatibility(MediaType{Type: "text", Subtype: "plain"}))
	assert.Equal(t, NOPE, json.Compatibility(MediaType{Type: "text", Subtype: "plain"}))

	// Handler declares a parameter: request must carry a matching value.
	assert.Equal(t, NOPE, jsonV1.Compatibility(json), "handler requires version param request lacks")
	assert.Equal(t, EXACT, json.Compatibility(jsonV1), "handler has no params, matches anything")

	// charset under text/* is case-insensitive.
	assert.Equal(t, EXACT, textHTMLUpper.Compatibility(textHTMLLower))
}

func TestSpecificity(t *testing.T) {
	t.Parallel()

	concrete := MediaType{Type: "application", Subtype: "json"}
	concreteWithParam := MediaType{Type: "application", Subtype: "json", Parameters: map[string]string{"v": "1"}}
	typeStar := MediaType{Type: "application", Subtype: "*"}

	assert.Less(t, concreteWithParam.Specificity(), concrete.Specificity())
	assert.Less(t, concrete.Specificity(), typeStar.Specificity())
	assert.Less(t, typeStar.Specificity(), ALL.Specificity())
	assert.Less(t, ALL.Specificity(), NOTHING_AND_ALL.Specificity())
}

func TestSentinels(t *testing.T) {
	t.Parallel()

	assert.True(t, NOTHING.IsNothing())
	assert.False(t, NOTHING.IsNothingAndAll())
	assert.True(t, NOTHING_AND_ALL.IsNothingAndAll())
	assert.False(t, ALL.IsNothing())
}
