package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vango-dev/lazyblog/pkg/routepath"
)

type segKind uint8

const (
	segLiteral segKind = iota
	segParam
	segRest
)

// segment is one parsed piece of a route path.
type segment struct {
	kind  segKind
	value string // literal text or parameter name
}

// RestParam is the parameter name a trailing "*" segment binds.
const RestParam = "*"

// parsePath splits a route path into segments.
func parsePath(path string) ([]segment, error) {
	raw := routepath.Segments(path)
	segs := make([]segment, 0, len(raw))
	for i, s := range raw {
		switch {
		case s == "*":
			if i != len(raw)-1 {
				return nil, fmt.Errorf("%q must be the last segment", s)
			}
			segs = append(segs, segment{kind: segRest, value: RestParam})
		case strings.HasPrefix(s, ":"):
			name := s[1:]
			if name == "" || strings.ContainsAny(name, ":*") {
				return nil, fmt.Errorf("invalid parameter segment %q", s)
			}
			segs = append(segs, segment{kind: segParam, value: name})
		case strings.Contains(s, "*"):
			return nil, fmt.Errorf("invalid segment %q", s)
		default:
			segs = append(segs, segment{kind: segLiteral, value: s})
		}
	}
	return segs, nil
}

// shape is the matching-relevant form of a path: parameter names are
// erased so ":id" and ":slug" collide.
func shape(segs []segment) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		switch s.kind {
		case segParam:
			parts[i] = ":"
		case segRest:
			parts[i] = "*"
		default:
			parts[i] = s.value
		}
	}
	return strings.Join(parts, "/")
}

// rank orders siblings: literal first, pathless groups, then parameter,
// then rest segments.
func rank(r *Route) int {
	if len(r.segs) == 0 {
		return 1
	}
	switch r.segs[0].kind {
	case segLiteral:
		return 0
	case segParam:
		return 2
	default:
		return 3
	}
}

func sortSiblings(children []*Route) {
	sort.SliceStable(children, func(i, j int) bool {
		return rank(children[i]) < rank(children[j])
	})
}

type param struct {
	name, value string
}

// match tries to match segs against r and its subtree. It returns the
// chain of matched routes starting at r.
func (r *Route) match(segs []string, params []param) ([]*Route, []param, error) {
	rest := segs
	for _, s := range r.segs {
		switch s.kind {
		case segLiteral:
			if len(rest) == 0 || rest[0] != s.value {
				return nil, nil, nil
			}
			rest = rest[1:]
		case segParam:
			if len(rest) == 0 || rest[0] == "" {
				return nil, nil, nil
			}
			v, err := routepath.DecodeSegment(rest[0], false)
			if err != nil {
				return nil, nil, err
			}
			params = append(params, param{s.value, v})
			rest = rest[1:]
		case segRest:
			v, err := routepath.DecodeSegment(strings.Join(rest, "/"), true)
			if err != nil {
				return nil, nil, err
			}
			params = append(params, param{s.value, v})
			rest = nil
		}
	}

	if len(rest) == 0 {
		if r.index != nil {
			return []*Route{r, r.index}, params, nil
		}
		// A pathless group with an index child can still claim the end.
		for _, child := range r.children {
			if len(child.segs) != 0 {
				continue
			}
			chain, p, err := child.match(rest, params)
			if err != nil {
				return nil, nil, err
			}
			if chain != nil && chain[len(chain)-1].Index {
				return append([]*Route{r}, chain...), p, nil
			}
		}
		return []*Route{r}, params, nil
	}

	for _, child := range r.children {
		chain, p, err := child.match(rest, params)
		if err != nil {
			return nil, nil, err
		}
		if chain != nil {
			return append([]*Route{r}, chain...), p, nil
		}
	}
	return nil, nil, nil
}
