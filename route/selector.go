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
	"sort"

	"github.com/latticehttp/dispatch/errs"
	"github.com/latticehttp/dispatch/mediatype"
)

// Select is the handler selector: it filters a route's handlers by method
// then consumes, ranks survivors against acceptList, and picks the best
// candidate, detecting ambiguity among tied ones.
func Select(handlers []*Handler, routePattern, method string, contentType *mediatype.MediaType, acceptList []mediatype.MediaType) (*Handler, error) {
	byMethod := filterMethod(handlers, method)
	if len(byMethod) == 0 {
		return nil, &errs.MethodNotAllowed{
			Route:            routePattern,
			Method:           method,
			SupportedMethods: supportedMethods(handlers),
		}
	}

	survivors := filterConsumes(byMethod, contentType)
	if len(survivors) == 0 {
		ct := "<nothing>"
		if contentType != nil {
			ct = contentType.String()
		}
		return nil, &errs.MediaTypeUnsupported{ContentType: ct}
	}

	candidates := rank(survivors, acceptList)
	if len(candidates) == 0 {
		accepts := make([]string, len(acceptList))
		for i, a := range acceptList {
			accepts[i] = a.String()
		}
		return nil, &errs.MediaTypeNotAccepted{Accepts: accepts}
	}

	return pickBest(candidates)
}

func filterMethod(handlers []*Handler, method string) []*Handler {
	var out []*Handler
	for _, h := range handlers {
		if h.Method == method {
			out = append(out, h)
		}
	}
	return out
}

func supportedMethods(handlers []*Handler) []string {
	seen := make(map[string]struct{}, len(handlers))
	for _, h := range handlers {
		seen[h.Method] = struct{}{}
	}
	methods := make([]string, 0, len(seen))
	for m := range seen {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

func filterConsumes(handlers []*Handler, contentType *mediatype.MediaType) []*Handler {
	var out []*Handler
	for _, h := range handlers {
		switch {
		case h.Consumes.IsNothingAndAll():
			out = append(out, h)
		case contentType != nil:
			if h.Consumes.IsNothing() {
				continue
			}
			if h.Consumes.Compatibility(*contentType) != mediatype.NOPE {
				out = append(out, h)
			}
		default:
			if h.Consumes.IsNothing() {
				out = append(out, h)
			}
		}
	}
	return out
}

// candidate is a handler that survived consumes-filtering and ranked
// against acceptList.
type candidate struct {
	handler     *Handler
	rank        float64
	produceSpec int
	consumeSpec int
}

// rank ranks each survivor against acceptList, applying the empty-Accept
// default and the q=0 elimination rule.
func rank(survivors []*Handler, acceptList []mediatype.MediaType) []candidate {
	effective := acceptList
	emptyAccept := len(acceptList) == 0
	if emptyAccept {
		effective = []mediatype.MediaType{mediatype.ALL}
	}

	var out []candidate
	for _, h := range survivors {
		if emptyAccept && len(h.Produces.Parameters) > 0 {
			// A parameters-bearing produces is never selected under the
			// default */*;q=1 Accept; it requires an explicit Accept entry.
			continue
		}

		found := false
		bestSpecificity := 0
		bestQuality := 0.0
		for _, a := range effective {
			if h.Produces.Compatibility(a) == mediatype.NOPE {
				continue
			}
			spec := a.Specificity()
			switch {
			case !found:
				found, bestSpecificity, bestQuality = true, spec, a.Quality
			case spec < bestSpecificity:
				bestSpecificity, bestQuality = spec, a.Quality
			case spec == bestSpecificity && a.Quality > bestQuality:
				bestQuality = a.Quality
			}
		}
		if !found || bestQuality <= 0 {
			continue
		}

		out = append(out, candidate{
			handler:     h,
			rank:        bestQuality,
			produceSpec: h.Produces.Specificity(),
			consumeSpec: h.Consumes.Specificity(),
		})
	}
	return out
}

// pickBest orders candidates by (rank DESC, produceSpec ASC, consumeSpec
// ASC) and walks tied buckets best-first, returning the first singleton
// bucket. If every bucket is contested, the best (first) bucket's members
// are reported as AmbiguousHandler.
func pickBest(candidates []candidate) (*Handler, error) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.rank != b.rank {
			return a.rank > b.rank
		}
		if a.produceSpec != b.produceSpec {
			return a.produceSpec < b.produceSpec
		}
		return a.consumeSpec < b.consumeSpec
	})

	sameBucket := func(a, b candidate) bool {
		return a.rank == b.rank && a.produceSpec == b.produceSpec && a.consumeSpec == b.consumeSpec
	}

	var firstBucket []candidate
	i := 0
	for i < len(candidates) {
		j := i + 1
		for j < len(candidates) && sameBucket(candidates[i], candidates[j]) {
			j++
		}
		bucket := candidates[i:j]
		if firstBucket == nil {
			firstBucket = bucket
		}
		if len(bucket) == 1 {
			return bucket[0].handler, nil
		}
		i = j
	}

	names := make([]string, len(firstBucket))
	for k, c := range firstBucket {
		names[k] = c.handler.Method + " " + c.handler.Consumes.String() + " -> " + c.handler.Produces.String()
	}
	return nil, &errs.AmbiguousHandler{Candidates: names}
}
