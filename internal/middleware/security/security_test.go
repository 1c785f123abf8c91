package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP_Extract(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{name: "direct", remoteAddr: "203.0.113.7:5555", want: "203.0.113.7"},
		{
			name:       "untrusted peer cannot spoof",
			remoteAddr: "203.0.113.7:5555",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4"},
			want:       "203.0.113.7",
		},
		{
			name:       "trusted proxy forwards first hop",
			remoteAddr: "10.0.0.2:80",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.9"},
			want:       "198.51.100.1",
		},
		{
			name:       "trusted proxy with real ip",
			remoteAddr: "127.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": "198.51.100.2"},
			want:       "198.51.100.2",
		},
		{
			name:       "garbage forwarded value",
			remoteAddr: "192.168.1.1:80",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			want:       "192.168.1.1",
		},
		{name: "no port", remoteAddr: "198.51.100.3", want: "198.51.100.3"},
	}

	c := NewClientIP()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := c.Extract(r); got != tt.want {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddTrustedProxy(t *testing.T) {
	c := NewClientIP()
	if err := c.AddTrustedProxy("bogus"); err == nil {
		t.Error("expected error for invalid CIDR")
	}
	if err := c.AddTrustedProxy("203.0.113.0/24"); err != nil {
		t.Fatalf("AddTrustedProxy() error = %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:5555"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	if got := c.Extract(r); got != "198.51.100.1" {
		t.Errorf("Extract() = %q after trusting proxy", got)
	}
}

func TestHeaders(t *testing.T) {
	h := Headers(DefaultHeadersConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	for k, want := range map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Cache-Control":          "no-store",
	} {
		if got := rec.Header().Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("Strict-Transport-Security = %q", got)
	}
}
