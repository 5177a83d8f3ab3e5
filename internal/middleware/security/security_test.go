package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetector_ClientIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{name: "direct", remote: "203.0.113.5:4000", want: "203.0.113.5"},
		{name: "no port", remote: "203.0.113.5", want: "203.0.113.5"},
		{
			name:    "trusted proxy forwards",
			remote:  "10.1.2.3:80",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.4, 10.1.2.3"},
			want:    "198.51.100.4",
		},
		{
			name:    "trusted proxy real ip",
			remote:  "127.0.0.1:80",
			headers: map[string]string{"X-Real-IP": "198.51.100.9"},
			want:    "198.51.100.9",
		},
		{
			name:    "untrusted peer cannot spoof",
			remote:  "203.0.113.5:4000",
			headers: map[string]string{"X-Forwarded-For": "1.1.1.1"},
			want:    "203.0.113.5",
		},
		{
			name:    "garbage forwarded value",
			remote:  "192.168.0.2:80",
			headers: map[string]string{"X-Forwarded-For": "not-an-ip"},
			want:    "192.168.0.2",
		},
	}
	d := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/loans", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := d.ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
	if got := d.GetMetrics().SpoofedForwarding; got != 1 {
		t.Errorf("SpoofedForwarding = %d, want 1", got)
	}
}

func TestDetector_AddTrustedProxy(t *testing.T) {
	d := NewDetector()
	if err := d.AddTrustedProxy("bogus"); err == nil {
		t.Error("expected error for invalid CIDR")
	}
	if err := d.AddTrustedProxy("203.0.113.0/24"); err != nil {
		t.Fatalf("AddTrustedProxy() error = %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.5:4000"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	if got := d.ClientIP(r); got != "198.51.100.1" {
		t.Errorf("ClientIP() = %q", got)
	}
}

func TestDetector_DetectSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{name: "normal", method: http.MethodGet, target: "/api/transactions?q=rent", want: false},
		{name: "path traversal", method: http.MethodGet, target: "/api/../etc/passwd", want: true},
		{name: "dotenv", method: http.MethodGet, target: "/.env", want: true},
		{name: "sql in path", method: http.MethodGet, target: "/api/x union select y", want: true},
		{name: "script in query", method: http.MethodGet, target: "/api/transactions?q=<script>", want: true},
		{name: "scanner agent", method: http.MethodGet, target: "/", agent: "sqlmap/1.7", want: true},
		{name: "trace method", method: http.MethodTrace, target: "/", want: true},
	}
	d := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/", nil)
			r.URL.Path, r.URL.RawQuery = splitTarget(tt.target)
			if tt.agent != "" {
				r.Header.Set("User-Agent", tt.agent)
			}
			if got := d.DetectSuspiciousRequest(r); got != tt.want {
				t.Errorf("DetectSuspiciousRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func splitTarget(target string) (string, string) {
	for i := 0; i < len(target); i++ {
		if target[i] == '?' {
			return target[:i], target[i+1:]
		}
	}
	return target, ""
}

func TestHeaders(t *testing.T) {
	h := Headers(DefaultHeadersConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS should not be set over plain HTTP, got %q", got)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	r.TLS = &tls.ConnectionState{}
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if got := w.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("Strict-Transport-Security = %q", got)
	}
}
