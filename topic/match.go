/*
Copyright 2024 The Hivebus Authors.
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package topic implements the permissive pattern matcher used to
// route Records between publishers and subscription queues. The
// four-rule ladder below is intentionally NOT standard glob syntax;
// see spec.md §4.2 and §9 — it must be reproduced exactly to
// preserve subscriber compatibility with existing publishers.
package topic

import (
	"regexp"
	"strings"
	"sync"
)

var patternCache sync.Map // pattern string -> *regexp.Regexp (or nil if invalid)

// Matches reports whether topic matches pattern, evaluated by the
// first applicable rule:
//
//  1. Exact equality.
//  2. If pattern contains '*', treat it as a regex with '*' -> ".*"
//     and require a full-string match. A trailing "/*" segment is
//     "any descendant", not "direct child only" (spec.md §9 OQ2).
//  3. If pattern contains '/', match iff topic contains pattern as a
//     substring, or topic starts with pattern.
//  4. Otherwise, match iff topic starts with pattern.
func Matches(pattern, topic string) bool {
	if pattern == topic {
		return true
	}

	if strings.Contains(pattern, "*") {
		re := compileCached(pattern)
		if re == nil {
			// An invalid regex can never match; this is deliberately
			// permissive (no error return) to match the spec's
			// four-rule ladder, which never fails.
			return false
		}
		return re.MatchString(topic)
	}

	if strings.Contains(pattern, "/") {
		return strings.Contains(topic, pattern) || strings.HasPrefix(topic, pattern)
	}

	return strings.HasPrefix(topic, pattern)
}

func compileCached(pattern string) *regexp.Regexp {
	if v, ok := patternCache.Load(pattern); ok {
		re, _ := v.(*regexp.Regexp)
		return re
	}
	reSrc := "^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*") + "$"
	re, err := regexp.Compile(reSrc)
	if err != nil {
		patternCache.Store(pattern, (*regexp.Regexp)(nil))
		return nil
	}
	patternCache.Store(pattern, re)
	return re
}
