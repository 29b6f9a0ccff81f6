package controltree

import (
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Path expressions address controls in the tree:
//
//	house1/room1        child lookup by name
//	/house1             anchored at the container
//	..                  parent
//	...                 every ancestor
//	*                   direct children
//	**                  all descendants
//	*[windows=2]        filter by observable property value
//
// Filters support =, !=, >, <, >=, <=, ~ (regex), key presence and !key
// absence; the special key _key matches the control's own name. Backslash
// escapes the next character.

type tokenKind int

const (
	tokenThis tokenKind = iota
	tokenParent
	tokenAllParents
	tokenRoot
	tokenSub
	tokenFilter
	tokenDirectChildren
	tokenAllChildren
)

type filterOp int

const (
	opEquals filterOp = iota
	opNotEquals
	opGreater
	opLess
	opGreaterOrEquals
	opLessOrEquals
	opRegex
	opPresence
	opAbsence
)

type pathFilter struct {
	key   string
	value string
	op    filterOp
	regex *regexp.Regexp
}

type pathToken struct {
	kind    tokenKind
	key     string
	filters []pathFilter
}

func splitCSV(s string, delimiter rune) []string {
	r := csv.NewReader(strings.NewReader(s))
	r.Comma = delimiter
	record, err := r.Read()
	if err != nil {
		return nil
	}
	return record
}

func tokenizePath(path string) []pathToken {
	const subToken rune = '/'
	const filterOpen rune = '['
	const filterClose rune = ']'
	const escapeToken rune = '\\'

	depth := 0
	var tokensStr []string
	t := ""
	for i := 0; i < len(path); i++ {
		if rune(path[i]) == escapeToken {
			i++
			if i >= len(path) {
				break
			}
			t += string(path[i])
			continue
		}

		if rune(path[i]) == subToken && depth == 0 {
			tokensStr = append(tokensStr, t)
			t = ""
		} else if rune(path[i]) == filterOpen {
			if depth == 0 {
				tokensStr = append(tokensStr, t)
				t = ""
			}
			depth++
		} else if rune(path[i]) == filterClose {
			depth--
		}

		t += string(path[i])
	}
	tokensStr = append(tokensStr, t)

	var tokens []pathToken
	for i, ts := range tokensStr {
		var tok pathToken
		tok.kind = tokenThis

		switch {
		case ts == "" && i == 0 && len(tokensStr) > 1 && strings.HasPrefix(tokensStr[1], "/"):
			tok.kind = tokenRoot

		case (ts == ".." && i == 0) || ts == "/..":
			tok.kind = tokenParent

		case (ts == "..." && i == 0) || ts == "/...":
			tok.kind = tokenAllParents

		case (ts == "*" && i == 0) || ts == "/*":
			tok.kind = tokenDirectChildren

		case (ts == "**" && i == 0) || ts == "/**":
			tok.kind = tokenAllChildren

		case strings.HasPrefix(ts, "[") && strings.HasSuffix(ts, "]"):
			tok.kind = tokenFilter
			for _, p := range splitCSV(strings.Trim(ts, "[]"), ',') {
				tok.filters = append(tok.filters, parseFilter(p))
			}

		case strings.HasPrefix(ts, "/"):
			if len(ts) > 1 {
				tok.kind = tokenSub
				tok.key = strings.TrimPrefix(ts, "/")
			}

		case i == 0 && ts != "":
			tok.kind = tokenSub
			tok.key = ts
		}

		tokens = append(tokens, tok)
	}

	return tokens
}

func parseFilter(p string) pathFilter {
	type opSpec struct {
		sep string
		op  filterOp
	}
	// The operator is the leftmost separator so a regex pattern containing
	// =, < or > stays intact. Two-character operators are listed before
	// their one-character prefixes to win index ties.
	specs := []opSpec{
		{"!=", opNotEquals},
		{">=", opGreaterOrEquals},
		{"<=", opLessOrEquals},
		{"=", opEquals},
		{">", opGreater},
		{"<", opLess},
		{"~", opRegex},
	}
	best := -1
	var bestSpec opSpec
	for _, c := range specs {
		idx := strings.Index(p, c.sep)
		if idx >= 0 && (best < 0 || idx < best) {
			best = idx
			bestSpec = c
		}
	}
	if best >= 0 {
		key, value := p[:best], p[best+len(bestSpec.sep):]
		if bestSpec.op == opRegex {
			re, err := regexp.Compile(value)
			if err != nil {
				re = nil
			}
			return pathFilter{key: key, op: opRegex, regex: re}
		}
		return pathFilter{key: key, value: value, op: bestSpec.op}
	}

	if strings.HasPrefix(p, "!") {
		return pathFilter{key: p[1:], op: opAbsence}
	}
	return pathFilter{key: p, op: opPresence}
}

// Find returns every control matched by the path expression, evaluated
// relative to this control. Duplicates are collapsed.
func (b *BaseControl) Find(path string) []Control {
	tokens := tokenizePath(path)
	if len(tokens) == 0 {
		if b.self == nil {
			return nil
		}
		return []Control{b.self}
	}

	current := []*BaseControl{b}
	for i := range tokens {
		current = applyToken(current, tokens[i])
	}

	result := make([]Control, 0, len(current))
	for _, cb := range current {
		if cb.self != nil {
			result = append(result, cb.self)
		}
	}
	return result
}

// FindOne returns the first control matched by the path expression, or nil.
func (b *BaseControl) FindOne(path string) Control {
	matches := b.Find(path)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

func applyToken(controls []*BaseControl, t pathToken) []*BaseControl {
	var result []*BaseControl

	appendUnique := func(cb *BaseControl) {
		if cb == nil {
			return
		}
		for _, existing := range result {
			if existing == cb {
				return
			}
		}
		result = append(result, cb)
	}

	for _, cb := range controls {
		switch t.kind {
		case tokenThis:
			appendUnique(cb)

		case tokenParent:
			appendUnique(cb.parent)

		case tokenAllParents:
			for p := cb.parent; p != nil; p = p.parent {
				appendUnique(p)
			}

		case tokenRoot:
			if cb.root != nil {
				appendUnique(&cb.root.BaseControl)
			}

		case tokenSub:
			if child, ok := cb.children[t.key]; ok {
				appendUnique(child.Base())
			}

		case tokenFilter:
			if matchesFilters(cb, t.filters) {
				appendUnique(cb)
			}

		case tokenDirectChildren:
			for _, name := range sortedKeys(cb.children) {
				appendUnique(cb.children[name].Base())
			}

		case tokenAllChildren:
			for _, d := range descendants(cb) {
				appendUnique(d)
			}
		}
	}

	return result
}

func descendants(cb *BaseControl) []*BaseControl {
	var result []*BaseControl
	for _, name := range sortedKeys(cb.children) {
		child := cb.children[name].Base()
		result = append(result, child)
		result = append(result, descendants(child)...)
	}
	return result
}

func matchesFilters(cb *BaseControl, filters []pathFilter) bool {
	for _, f := range filters {
		if !matchesFilter(cb, f) {
			return false
		}
	}
	return true
}

func matchesFilter(cb *BaseControl, f pathFilter) bool {
	if f.key == "_key" && f.op == opEquals {
		return cb.name == f.value
	}

	value, present := cb.GetProperty(f.key)
	if !present {
		if _, isChild := cb.children[f.key]; isChild {
			present = true
		}
	}

	switch f.op {
	case opPresence:
		return present
	case opAbsence:
		return !present
	case opEquals:
		return present && fmt.Sprintf("%v", value) == f.value
	case opNotEquals:
		return !present || fmt.Sprintf("%v", value) != f.value
	case opRegex:
		return present && f.regex != nil && f.regex.MatchString(fmt.Sprintf("%v", value))
	}

	// Numeric comparisons.
	if !present {
		return false
	}
	actual, ok := toFloat64(value)
	if !ok {
		parsed, err := strconv.ParseFloat(fmt.Sprintf("%v", value), 64)
		if err != nil {
			return false
		}
		actual = parsed
	}
	expected, err := strconv.ParseFloat(f.value, 64)
	if err != nil {
		return false
	}

	switch f.op {
	case opGreater:
		return actual > expected
	case opLess:
		return actual < expected
	case opGreaterOrEquals:
		return actual >= expected
	case opLessOrEquals:
		return actual <= expected
	}
	return false
}
