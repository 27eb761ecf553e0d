package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/Items//123", "/Items/123"},
		{"/emby/System/Info", "/System/Info"},
		{"/emby", "/"},
		{"/embyx/Items", "/embyx/Items"},
		{"//emby//Users", "/Users"},
		{"/Items", "/Items"},
	}
	for _, tc := range tests {
		var got string
		h := NormalizePath(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.URL.Path
		}))
		req := httptest.NewRequest(http.MethodGet, "http://x"+tc.in, nil)
		h.ServeHTTP(httptest.NewRecorder(), req)
		if got != tc.want {
			t.Errorf("NormalizePath(%q) routed %q, want %q", tc.in, got, tc.want)
		}
	}
}

func etagHandler(etag string) http.Handler {
	return ETag(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if etag != "" {
			w.Header().Set("ETag", etag)
		}
		w.Write([]byte("body"))
	}))
}

func TestETagMatch(t *testing.T) {
	tests := []struct {
		name        string
		etag        string
		ifNoneMatch string
		wantStatus  int
		wantBody    bool
	}{
		{"strong match", `"abc"`, `"abc"`, http.StatusNotModified, false},
		{"weak request matches strong", `"abc"`, `W/"abc"`, http.StatusNotModified, false},
		{"weak response matches strong request", `W/"abc"`, `"abc"`, http.StatusNotModified, false},
		{"list match", `"abc"`, `"x", "abc", "y"`, http.StatusNotModified, false},
		{"star", `"abc"`, `*`, http.StatusNotModified, false},
		{"mismatch", `"abc"`, `"def"`, http.StatusOK, true},
		{"no etag on response", "", `"abc"`, http.StatusOK, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("If-None-Match", tc.ifNoneMatch)
			w := httptest.NewRecorder()
			etagHandler(tc.etag).ServeHTTP(w, req)
			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if got := w.Body.Len() > 0; got != tc.wantBody {
				t.Errorf("body present = %v, want %v", got, tc.wantBody)
			}
		})
	}
}

func TestETagNoConditional(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	etagHandler(`"abc"`).ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "body" {
		t.Errorf("unconditional request altered: %d %q", w.Code, w.Body.String())
	}
}
