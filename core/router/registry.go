package router

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/searchktools/lean-server/core/http"
)

// Registry errors
var (
	ErrFrozen         = errors.New("route registry is frozen")
	ErrDuplicateRoute = errors.New("route already registered")
	ErrNilHandler     = errors.New("nil handler")
)

// Registry keeps one route trie per HTTP method. It is built during server
// construction, frozen, and then shared read-only by every connection.
type Registry struct {
	trees    map[string]*Node
	notFound http.Handler
	frozen   bool
}

// RouteInfo describes one registered route
type RouteInfo struct {
	Method  string `json:"method"`
	Pattern string `json:"pattern"`
}

// NewRegistry creates an empty registry that answers unmatched requests with
// http.NotFound
func NewRegistry() *Registry {
	return &Registry{
		trees:    make(map[string]*Node),
		notFound: http.NotFound,
	}
}

// SetNotFound replaces the handler used when no route matches
func (r *Registry) SetNotFound(h http.Handler) error {
	if r.frozen {
		return ErrFrozen
	}
	if h == nil {
		return ErrNilHandler
	}
	r.notFound = h
	return nil
}

// Insert registers handler for method and pattern
func (r *Registry) Insert(method, pattern string, handler http.Handler) error {
	if r.frozen {
		return ErrFrozen
	}
	if handler == nil {
		return errors.Wrapf(ErrNilHandler, "%s %s", method, pattern)
	}

	route := ParsePattern(pattern)

	tree, ok := r.trees[method]
	if !ok {
		tree = NewNode()
		r.trees[method] = tree
	}

	if _, exists := tree.Lookup(route); exists {
		return errors.Wrapf(ErrDuplicateRoute, "%s %s", method, route)
	}

	if err := tree.Insert(route, handler); err != nil {
		return errors.Wrapf(err, "%s %s", method, pattern)
	}

	return nil
}

// Lookup resolves method and path. It never fails: unknown methods and
// unmatched paths resolve to the not-found handler with no parameters.
func (r *Registry) Lookup(method, path string) (http.Handler, Params) {
	if tree, ok := r.trees[method]; ok {
		if h, params, ok := tree.Match(SplitPath(path)); ok {
			return h, params
		}
	}
	return r.notFound, Params{}
}

// Extend merges the routes of other into r. Routes of other replace routes
// of r with the same pattern. On error neither registry is changed.
func (r *Registry) Extend(other *Registry) error {
	if r.frozen {
		return ErrFrozen
	}

	for method, otherTree := range other.trees {
		if err := r.trees[method].checkExtend(otherTree); err != nil {
			return errors.Wrap(err, method)
		}
	}

	for method, otherTree := range other.trees {
		tree, ok := r.trees[method]
		if !ok {
			r.trees[method] = otherTree
			continue
		}
		tree.merge(otherTree)
	}

	return nil
}

// Wrap replaces every registered handler, including the not-found handler,
// with wrap(handler)
func (r *Registry) Wrap(wrap func(http.Handler) http.Handler) error {
	return r.WrapRoutes(func(_ RouteInfo, h http.Handler) http.Handler {
		return wrap(h)
	})
}

// WrapRoutes is Wrap with the route each handler serves. The not-found
// handler is passed a zero RouteInfo.
func (r *Registry) WrapRoutes(wrap func(RouteInfo, http.Handler) http.Handler) error {
	if r.frozen {
		return ErrFrozen
	}

	for method, tree := range r.trees {
		tree.walk(nil, func(route Route, h *http.Handler) {
			*h = wrap(RouteInfo{Method: method, Pattern: route.String()}, *h)
		})
	}
	r.notFound = wrap(RouteInfo{}, r.notFound)

	return nil
}

// Freeze makes the registry read-only
func (r *Registry) Freeze() {
	r.frozen = true
}

// Frozen reports whether the registry was frozen
func (r *Registry) Frozen() bool {
	return r.frozen
}

// Routes lists every registered route sorted by pattern, then method
func (r *Registry) Routes() []RouteInfo {
	var routes []RouteInfo
	for method, tree := range r.trees {
		tree.walk(nil, func(route Route, _ *http.Handler) {
			routes = append(routes, RouteInfo{Method: method, Pattern: route.String()})
		})
	}

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Pattern != routes[j].Pattern {
			return routes[i].Pattern < routes[j].Pattern
		}
		return routes[i].Method < routes[j].Method
	})

	return routes
}
