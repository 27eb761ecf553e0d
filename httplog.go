package main

import (
	"log"
	"net/http"
	"strconv"
	"time"
)

// loggingWriter records status and byte count as the response is
// written.
type loggingWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *loggingWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *loggingWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// httpLog logs one line per request: peer, request line, status, size,
// user agent and latency.
func httpLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggingWriter{ResponseWriter: w}
		next.ServeHTTP(lw, r)

		log.Printf("%s \"%s %s %s\" %d %d %s %dms",
			r.RemoteAddr,
			r.Method,
			r.URL.String(),
			r.Proto,
			lw.status,
			lw.bytes,
			strconv.Quote(r.Header.Get("User-Agent")),
			time.Since(start).Milliseconds())
	})
}
