// Package httpserver constructs the API server with shared timeouts.
package httpserver

import (
	"net/http"
	"time"
)

// New builds the HTTP server. Header reads are bounded tightly; the write
// timeout leaves room for document processing requests that wait on the
// classifier before the first response byte.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
