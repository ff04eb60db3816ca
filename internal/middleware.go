package internal

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/go-chi/chi/v5"

	"asms-api/internal/httperr"
	"asms-api/internal/logging"
)

// normalizePath decides the path the router matches against. A non-empty
// "route" query parameter replaces the request path, and trailing slashes
// are dropped so /api/assets/ and /api/assets route the same way.
func normalizePath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			rctx.RoutePath = routePath(r)
		}
		next.ServeHTTP(w, r)
	})
}

func routePath(r *http.Request) string {
	path := r.URL.Path
	if route := r.URL.Query().Get("route"); route != "" {
		path = "/" + strings.Trim(route, "/")
	}
	path = strings.TrimRight(path, "/")
	if path == "" {
		return "/"
	}
	return path
}

// withIDParam copies the {id} path segment into the "id" query parameter,
// which is where every resource handler reads it from
func withIDParam(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}
		r2 := r.Clone(r.Context())
		q := r2.URL.Query()
		q.Set("id", id)
		r2.URL.RawQuery = q.Encode()
		next.ServeHTTP(w, r2)
	})
}

// recoverer turns a panic in a handler into a 500 "Server error" body
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logging.FromContext(r.Context()).
				WithField("panic", rec).
				WithField("stack", string(debug.Stack())).
				Error("handler panicked")
			httperr.Write(w, httperr.Internal(fmt.Errorf("%v", rec)))
		}()
		next.ServeHTTP(w, r)
	})
}

type notFoundResponse struct {
	Error     string `json:"error"`
	Requested string `json:"requested"`
	Method    string `json:"method"`
	URI       string `json:"uri"`
}

// notFound reports the normalized path that failed to match
func notFound(w http.ResponseWriter, r *http.Request) {
	requested := routePath(r)
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePath != "" {
		requested = rctx.RoutePath
	}
	uri := r.RequestURI
	if uri == "" {
		uri = r.URL.RequestURI()
	}
	_ = httperr.WriteJSON(w, http.StatusNotFound, notFoundResponse{
		Error:     "Endpoint not found",
		Requested: requested,
		Method:    r.Method,
		URI:       uri,
	})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	httperr.Write(w, httperr.MethodNotAllowed(""))
}
