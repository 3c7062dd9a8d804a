package router

import "strings"

// SegmentKind identifies how a pattern segment matches a request segment
type SegmentKind uint8

const (
	Static       SegmentKind = iota // literal text
	Param                           // {name}
	Wildcard                        // *
	DeepWildcard                    // **
)

// DeepWildcardParam is the parameter name that holds everything a ** segment consumed
const DeepWildcardParam = "wildcard_deep"

// Segment is one '/'-delimited token of a route pattern
type Segment struct {
	Kind  SegmentKind
	Value string // literal text for Static, parameter name for Param
}

func (s Segment) String() string {
	switch s.Kind {
	case Param:
		return "{" + s.Value + "}"
	case Wildcard:
		return "*"
	case DeepWildcard:
		return "**"
	default:
		return s.Value
	}
}

// Route is a parsed route pattern
type Route []Segment

// ParsePattern tokenizes a route pattern. Empty segments (leading, trailing
// and doubled slashes) are dropped.
func ParsePattern(pattern string) Route {
	tokens := SplitPath(pattern)
	route := make(Route, 0, len(tokens))

	for _, tok := range tokens {
		switch {
		case len(tok) > 2 && tok[0] == '{' && tok[len(tok)-1] == '}':
			route = append(route, Segment{Kind: Param, Value: tok[1 : len(tok)-1]})
		case tok == "*":
			route = append(route, Segment{Kind: Wildcard})
		case tok == "**":
			route = append(route, Segment{Kind: DeepWildcard})
		default:
			route = append(route, Segment{Kind: Static, Value: tok})
		}
	}

	return route
}

// SplitPath splits a request path into its non-empty segments
func SplitPath(path string) []string {
	n := 0
	for i := 0; i < len(path); i++ {
		if path[i] != '/' && (i == 0 || path[i-1] == '/') {
			n++
		}
	}

	segments := make([]string, 0, n)
	for len(path) > 0 {
		var seg string
		seg, path, _ = strings.Cut(path, "/")
		if seg != "" {
			segments = append(segments, seg)
		}
	}

	return segments
}

// String renders the canonical form of the pattern
func (r Route) String() string {
	if len(r) == 0 {
		return "/"
	}

	var b strings.Builder
	for _, seg := range r {
		b.WriteByte('/')
		b.WriteString(seg.String())
	}

	return b.String()
}
