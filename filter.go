// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/drs

package drs

import (
	"fmt"

	"github.com/woozymasta/pathrules"
)

// resourceFilter holds compiled path rules for resource selection.
type resourceFilter struct {
	matcher *pathrules.Matcher
}

// newResourceFilter compiles resource selection path rules.
// A nil filter is returned for an empty rule set and selects everything.
func newResourceFilter(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*resourceFilter, error) {
	rules = normalizeFilterRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidFilterPattern, err)
	}

	return &resourceFilter{matcher: matcher}, nil
}

// normalizeFilterRules normalizes rule patterns and drops empty patterns.
func normalizeFilterRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := normalizeRulePattern(rule.Pattern)
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	return normalized
}

// Match reports whether a resource path like "slp/412.slp" is selected.
func (f *resourceFilter) Match(path string) bool {
	if f == nil || f.matcher == nil {
		return true
	}

	return f.matcher.Included(path, false)
}

// tablesForTypes returns parsed tables limited to requested tags in stored
// order; an empty request means all tables.
func (a *Archive) tablesForTypes(types []TypeTag) []Table {
	if len(types) == 0 {
		return a.tables
	}

	want := make(map[TypeTag]struct{}, len(types))
	for _, t := range types {
		want[t] = struct{}{}
	}

	out := make([]Table, 0, len(types))
	for i := range a.tables {
		if _, ok := want[a.tables[i].Type]; ok {
			out = append(out, a.tables[i])
		}
	}

	return out
}
