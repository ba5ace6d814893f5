package security

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORS lets the browser client, served from another origin, call the API.
type CORS struct {
	origins []string
	methods string
	headers string
	maxAge  int
}

// NewCORS allows the listed origins; "*" allows any.
func NewCORS(origins []string) *CORS {
	return &CORS{
		origins: origins,
		methods: strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}, ", "),
		headers: "Content-Type, X-Request-ID",
		maxAge:  600,
	}
}

func (c *CORS) allowed(origin string) bool {
	return slices.Contains(c.origins, "*") || slices.Contains(c.origins, origin)
}

// Middleware answers preflight requests and tags allowed responses.
// Disallowed origins get no CORS headers, which the browser enforces.
func (c *CORS) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Add("Vary", "Origin")
		if !c.allowed(origin) {
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Expose-Headers", "X-Request-ID")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", c.methods)
			h.Set("Access-Control-Allow-Headers", c.headers)
			h.Set("Access-Control-Max-Age", strconv.Itoa(c.maxAge))
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
