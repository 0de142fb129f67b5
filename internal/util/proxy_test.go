package util

import (
	"net/http"
	"net/url"
	"testing"
)

func proxyHost(t *testing.T, fn func(*http.Request) (*url.URL, error), target string) string {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		t.Fatal(err)
	}
	u, err := fn(req)
	if err != nil {
		t.Fatalf("proxy func: %v", err)
	}
	if u == nil {
		return ""
	}
	return u.Host
}

func TestNewProxyFunc(t *testing.T) {
	fn := NewProxyFunc("http://proxy.internal:3128", "http://secure.internal:3129", "ensembl.org,.local")

	tests := []struct {
		target string
		want   string
	}{
		{"http://example.com/x", "proxy.internal:3128"},
		{"https://example.com/x", "secure.internal:3129"},
		{"https://grch37.rest.ensembl.org/variation", ""},
		{"http://cache.local/x", ""},
		{"http://127.0.0.1:8080/x", ""},
	}
	for _, tt := range tests {
		if got := proxyHost(t, fn, tt.target); got != tt.want {
			t.Errorf("%s: expected proxy %q, got %q", tt.target, tt.want, got)
		}
	}
}

func TestNewProxyFunc_HTTPSFallsBackToHTTPProxy(t *testing.T) {
	fn := NewProxyFunc("http://proxy.internal:3128", "", "")

	if got := proxyHost(t, fn, "https://example.com"); got != "proxy.internal:3128" {
		t.Errorf("expected https to use the http proxy, got %q", got)
	}
}

func TestNewProxyFunc_Environment(t *testing.T) {
	t.Setenv("HTTP_PROXY", "")
	t.Setenv("HTTPS_PROXY", "")
	t.Setenv("http_proxy", "")
	t.Setenv("https_proxy", "")

	fn := NewProxyFunc("", "", "")
	if got := proxyHost(t, fn, "https://example.com"); got != "" {
		t.Errorf("expected no proxy from empty environment, got %q", got)
	}
}
