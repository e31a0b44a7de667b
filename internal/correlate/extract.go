/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Package correlate associates tracker work items with source-control
// artifacts by heuristic text matching, absent any foreign key.
package correlate

import (
	"regexp"
	"strings"
)

// Match is one extracted work-item reference and the pattern that found it.
type Match struct {
	Identifier string // canonical uppercase form, e.g. ENG-123
	Pattern    string
}

// Text patterns, most specific first. The first pattern to find an
// identifier names the detection; later duplicates are dropped.
var textPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"url", regexp.MustCompile(`https?://linear\.app/[\w-]+/issue/([A-Za-z]{2,10}-\d{1,6})\b`)},
	{"bracketed", regexp.MustCompile(`\[([A-Z]{2,10}-\d{1,6})\]`)},
	{"hashtag", regexp.MustCompile(`#([A-Z]{2,10}-\d{1,6})\b`)},
	{"colon_suffixed", regexp.MustCompile(`\b([A-Z]{2,10}-\d{1,6}):`)},
	{"identifier", regexp.MustCompile(`\b([A-Z]{2,10}-\d{1,6})\b`)},
}

// Branch names lead with the identifier: eng-123-fix-foo or eng/123-fix-foo,
// case-insensitive.
var branchRe = regexp.MustCompile(`(?i)^([a-z]{2,10})[-/](\d{1,6})(?:[-/_]|$)`)

// ExtractFromText pulls canonical KEY-NUMBER references out of free text
// (titles, bodies). Never fails; empty input yields nil.
func ExtractFromText(text string) []Match {
	if text == "" {
		return nil
	}
	var out []Match
	seen := map[string]struct{}{}
	for _, p := range textPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			id := strings.ToUpper(m[1])
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, Match{Identifier: id, Pattern: p.name})
		}
	}
	return out
}

// ExtractFromBranch reads the leading key-number token of a branch name and
// normalizes it to canonical uppercase form. At most one match per branch.
func ExtractFromBranch(branch string) (Match, bool) {
	m := branchRe.FindStringSubmatch(strings.TrimSpace(branch))
	if m == nil {
		return Match{}, false
	}
	id := strings.ToUpper(m[1]) + "-" + m[2]
	return Match{Identifier: id, Pattern: "branch"}, true
}
