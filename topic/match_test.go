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

package topic

import "testing"

func TestMatches(t *testing.T) {
	cases := []struct {
		pattern, topic string
		want           bool
	}{
		{"foo/bar", "foo/bar", true},
		{"foo/bar", "foo/baz", false},
		{"foo/*", "foo/bar", true},
		{"foo/*", "foo/bar/baz", true}, // trailing "/*" matches any descendant, OQ2
		{"foo/*", "foobar", false},
		{"mavlink/reproc/*", "mavlink/reproc/heartbeat_status", true},
		{"x/y", "x/y/z", true},  // rule 3: substring-or-prefix
		{"x/y", "a/x/y/z", true},
		{"x/y", "x/yy", true}, // substring match per rule 3
		{"foo", "foobar", true},
		{"foo", "barfoo", false},
		{"", "anything", true}, // empty pattern is a prefix of everything
	}
	for _, c := range cases {
		if got := Matches(c.pattern, c.topic); got != c.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", c.pattern, c.topic, got, c.want)
		}
	}
}

// referenceMatch re-implements the four-rule ladder with its own
// substring and prefix helpers, as an equivalence oracle (spec §8's
// quantified invariant); rule 2 reuses the package's compileCached.
func referenceMatch(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	hasStar := false
	hasSlash := false
	for _, r := range pattern {
		if r == '*' {
			hasStar = true
		}
		if r == '/' {
			hasSlash = true
		}
	}
	if hasStar {
		re := compileCached(pattern)
		if re == nil {
			return false
		}
		return re.MatchString(topic)
	}
	if hasSlash {
		return contains(topic, pattern) || hasPrefix(topic, pattern)
	}
	return hasPrefix(topic, pattern)
}

func contains(s, sub string) bool {
	return len(sub) == 0 || (len(s) >= len(sub) && indexOf(s, sub) >= 0)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func TestMatchesAgainstReference(t *testing.T) {
	patterns := []string{"foo/bar", "foo/*", "x/y", "foo", "*", "a/*/c"}
	topics := []string{"foo/bar", "foo/baz", "foo/bar/baz", "x/y/z", "foobar", "a/b/c", ""}
	for _, p := range patterns {
		for _, top := range topics {
			if got, want := Matches(p, top), referenceMatch(p, top); got != want {
				t.Errorf("Matches(%q, %q) = %v, reference = %v", p, top, got, want)
			}
		}
	}
}
