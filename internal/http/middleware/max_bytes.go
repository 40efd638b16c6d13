package middleware

import (
	"fmt"
	"net/http"
)

// maxBytesOverhead covers multipart boundaries and form fields beyond the
// file payload itself.
const maxBytesOverhead = 1 << 20

// MaxBytes limits how much of a request body the server will read.
// Requests declaring a Content-Length over the limit are rejected before any
// of the body is consumed; bodies without a declared length are capped with
// http.MaxBytesReader so a chunked or lying client cannot stream past the
// limit either. A limit of zero or less disables the middleware.
func MaxBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		capped := limit + maxBytesOverhead
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > capped {
				w.Header().Set("Content-Type", "application/problem+json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				fmt.Fprintf(w, `{"title":"Request Entity Too Large","status":413,"detail":"request body exceeds the maximum upload size of %d bytes"}`+"\n", limit)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, capped)
			next.ServeHTTP(w, r)
		})
	}
}
