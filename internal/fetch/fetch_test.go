package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const page = `<html><head><title>Jobs</title><style>p { color: red }</style></head>
<body>
<h1>Data Scientist</h1>
<script>var tracking = true;</script>
<p>Looking for   3 years Python</p>
</body></html>`

func TestFetchPlainPage(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	text, err := New(nil).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if text != "Data Scientist\nLooking for 3 years Python" {
		t.Fatalf("unexpected text: %q", text)
	}
	if gotUA != userAgent {
		t.Fatalf("expected user agent %q, got %q", userAgent, gotUA)
	}
}

func TestFetchGzipPage(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(page)); err != nil {
		t.Fatalf("gzip: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer server.Close()

	client := New(nil)
	// Keep the transport from decoding gzip on its own.
	client.HTTPClient.Transport = &http.Transport{DisableCompression: true}

	text, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Looking for 3 years Python") {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestFetchErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty" {
			_, _ = w.Write([]byte("<html><body><script>x()</script></body></html>"))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "bad status", url: server.URL + "/missing", want: "bad status"},
		{name: "no text", url: server.URL + "/empty", want: "no text"},
		{name: "scheme", url: "ftp://example.com/job", want: "unsupported url scheme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil).Fetch(context.Background(), tt.url)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
