// Package hlsproxy forwards stream requests to an external HLS
// transcoder and relays its responses.
package hlsproxy

import (
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// hopByHopHeaders must not be forwarded in either direction. The
// access-control headers are also dropped from upstream responses since
// this server applies its own CORS policy.
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailers":            true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

func skipHeader(name string) bool {
	if hopByHopHeaders[http.CanonicalHeaderKey(name)] {
		return true
	}
	return strings.HasPrefix(strings.ToLower(name), "access-control-allow-")
}

// Proxy forwards requests. Safe for concurrent use; one instance serves
// all collections.
type Proxy struct {
	client *http.Client
}

// New returns a proxy whose upstream requests time out after 120
// seconds, enough for a transcoder to produce the first segment.
func New() *Proxy {
	return &Proxy{
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

// Forward relays one GET to serverURL/subpath and streams the response
// back. subpath is escaped per segment before being appended.
func (p *Proxy) Forward(w http.ResponseWriter, r *http.Request, serverURL, subpath string) {
	target := strings.TrimSuffix(serverURL, "/") + "/" + encodePath(subpath)

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		http.Error(w, "", http.StatusBadGateway)
		return
	}
	for name, values := range r.Header {
		if skipHeader(name) {
			continue
		}
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		req.Header.Set("X-Forwarded-For", host)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		log.Printf("hlsproxy: %s: %v", target, err)
		http.Error(w, "", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	for name, values := range resp.Header {
		if skipHeader(name) {
			continue
		}
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	flushCopy(w, resp)
}

// encodePath escapes each path segment while keeping the separators.
func encodePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// flushCopy streams the body, flushing as data arrives so playlist and
// segment bytes reach the player promptly.
func flushCopy(w http.ResponseWriter, resp *http.Response) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}
