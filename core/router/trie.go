package router

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/searchktools/lean-server/core/http"
)

// Route trie errors
var (
	ErrParamConflict       = errors.New("conflicting parameter names at the same position")
	ErrDeepWildcardNotLast = errors.New("** must be the last segment of a pattern")
)

// Params holds the path parameters captured by a match
type Params map[string]string

// Node is a route trie node. Each level of the trie corresponds to one path
// segment. A node may carry a handler and children at the same time.
//
// The trie is built before serving and only read afterwards; Match is safe
// for concurrent use as long as no Insert or Extend runs at the same time.
type Node struct {
	static   map[string]*Node
	param    *paramEdge
	wildcard *Node
	handler  http.Handler

	// deep is set on wildcard nodes registered through a ** segment. It
	// consumes every remaining segment.
	deep http.Handler
}

type paramEdge struct {
	name  string
	child *Node
}

// NewNode creates an empty trie
func NewNode() *Node {
	return &Node{}
}

// Insert registers handler for route. An existing handler at the same
// position is replaced.
func (n *Node) Insert(route Route, handler http.Handler) error {
	for i, seg := range route {
		switch seg.Kind {
		case Static:
			if n.static == nil {
				n.static = make(map[string]*Node)
			}
			child, ok := n.static[seg.Value]
			if !ok {
				child = NewNode()
				n.static[seg.Value] = child
			}
			n = child

		case Param:
			if n.param == nil {
				n.param = &paramEdge{name: seg.Value, child: NewNode()}
			} else if n.param.name != seg.Value {
				return errors.Wrapf(ErrParamConflict, "{%s} vs {%s} in %s", n.param.name, seg.Value, route)
			}
			n = n.param.child

		case Wildcard:
			if n.wildcard == nil {
				n.wildcard = NewNode()
			}
			n = n.wildcard

		case DeepWildcard:
			if i != len(route)-1 {
				return errors.Wrap(ErrDeepWildcardNotLast, route.String())
			}
			if n.wildcard == nil {
				n.wildcard = NewNode()
			}
			n.wildcard.deep = handler
			return nil
		}
	}

	n.handler = handler
	return nil
}

// Match resolves request path segments to a handler. Precedence at every
// level is static, then parameter, then wildcard.
func (n *Node) Match(segments []string) (http.Handler, Params, bool) {
	if len(segments) == 0 {
		if n.handler != nil {
			return n.handler, Params{}, true
		}
		// "/files/**" also matches "/files" itself
		if n.wildcard != nil && n.wildcard.deep != nil {
			return n.wildcard.deep, Params{DeepWildcardParam: ""}, true
		}
		return nil, nil, false
	}

	seg, rest := segments[0], segments[1:]

	if child, ok := n.static[seg]; ok {
		if h, params, ok := child.Match(rest); ok {
			return h, params, true
		}
	}

	if n.param != nil {
		if h, params, ok := n.param.child.Match(rest); ok {
			params[n.param.name] = seg
			return h, params, true
		}
	}

	if w := n.wildcard; w != nil {
		if h, params, ok := w.Match(rest); ok {
			return h, params, true
		}
		if w.deep != nil {
			return w.deep, Params{DeepWildcardParam: strings.Join(segments, "/")}, true
		}
	}

	return nil, nil, false
}

// Lookup returns the handler registered for exactly this route, without
// applying match semantics
func (n *Node) Lookup(route Route) (http.Handler, bool) {
	for _, seg := range route {
		switch seg.Kind {
		case Static:
			n = n.static[seg.Value]
		case Param:
			if n.param == nil || n.param.name != seg.Value {
				return nil, false
			}
			n = n.param.child
		case Wildcard:
			n = n.wildcard
		case DeepWildcard:
			if n.wildcard == nil || n.wildcard.deep == nil {
				return nil, false
			}
			return n.wildcard.deep, true
		}
		if n == nil {
			return nil, false
		}
	}

	return n.handler, n.handler != nil
}

// Extend merges other into n. Handlers of other win over handlers of n at the
// same position. On error n is unchanged. other must not be used afterwards.
func (n *Node) Extend(other *Node) error {
	if err := n.checkExtend(other); err != nil {
		return err
	}
	n.merge(other)
	return nil
}

// checkExtend reports the first parameter conflict Extend would hit, without
// changing either trie
func (n *Node) checkExtend(other *Node) error {
	if n == nil || other == nil {
		return nil
	}

	for key, oc := range other.static {
		if err := n.static[key].checkExtend(oc); err != nil {
			return err
		}
	}

	if op, np := other.param, n.param; op != nil && np != nil {
		if np.name != op.name {
			return errors.Wrapf(ErrParamConflict, "{%s} vs {%s}", np.name, op.name)
		}
		if err := np.child.checkExtend(op.child); err != nil {
			return err
		}
	}

	return n.wildcard.checkExtend(other.wildcard)
}

// merge does the work of Extend once checkExtend passed
func (n *Node) merge(other *Node) {
	if other == nil {
		return
	}

	for key, oc := range other.static {
		if n.static == nil {
			n.static = make(map[string]*Node)
		}
		if child, ok := n.static[key]; ok {
			child.merge(oc)
		} else {
			n.static[key] = oc
		}
	}

	if op := other.param; op != nil {
		if n.param == nil {
			n.param = op
		} else {
			n.param.child.merge(op.child)
		}
	}

	if ow := other.wildcard; ow != nil {
		if n.wildcard == nil {
			n.wildcard = ow
		} else {
			n.wildcard.merge(ow)
		}
	}

	if other.handler != nil {
		n.handler = other.handler
	}
	if other.deep != nil {
		n.deep = other.deep
	}
}

// walk visits every stored handler slot in route order
func (n *Node) walk(prefix Route, fn func(route Route, h *http.Handler)) {
	if n.handler != nil {
		fn(prefix, &n.handler)
	}
	if n.deep != nil {
		// prefix ends in the wildcard segment that leads here
		deep := append(append(Route(nil), prefix[:len(prefix)-1]...), Segment{Kind: DeepWildcard})
		fn(deep, &n.deep)
	}

	keys := make([]string, 0, len(n.static))
	for k := range n.static {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		n.static[k].walk(appendSegment(prefix, Segment{Kind: Static, Value: k}), fn)
	}
	if n.param != nil {
		n.param.child.walk(appendSegment(prefix, Segment{Kind: Param, Value: n.param.name}), fn)
	}
	if n.wildcard != nil {
		n.wildcard.walk(appendSegment(prefix, Segment{Kind: Wildcard}), fn)
	}
}

func appendSegment(prefix Route, seg Segment) Route {
	r := make(Route, len(prefix), len(prefix)+1)
	copy(r, prefix)
	return append(r, seg)
}
