package security

import (
	"net/http"
	"strconv"
	"time"
)

// Headers is a fixed set of response headers added to every response.
type Headers struct {
	always http.Header
	hsts   string
}

// APIHeaders returns the headers for a JSON API read cross-origin by the
// browser client. A positive hstsMaxAge enables Strict-Transport-Security
// on TLS requests.
func APIHeaders(hstsMaxAge time.Duration) *Headers {
	h := &Headers{always: http.Header{}}
	h.always.Set("X-Content-Type-Options", "nosniff")
	h.always.Set("X-Frame-Options", "DENY")
	h.always.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
	h.always.Set("Referrer-Policy", "no-referrer")
	h.always.Set("Cross-Origin-Resource-Policy", "cross-origin")
	h.always.Set("Cache-Control", "no-store")
	if hstsMaxAge > 0 {
		h.hsts = "max-age=" + strconv.FormatInt(int64(hstsMaxAge/time.Second), 10) + "; includeSubDomains"
	}
	return h
}

func (h *Headers) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dst := w.Header()
		for k, v := range h.always {
			dst[k] = v
		}
		if r.TLS != nil && h.hsts != "" {
			dst.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}
