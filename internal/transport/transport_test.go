package transport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNew_Standard(t *testing.T) {
	rt := New(Options{DialTimeout: 2 * time.Second})

	tr, ok := rt.(*http.Transport)
	if !ok {
		t.Fatalf("New() = %T, want *http.Transport", rt)
	}
	if tr.TLSHandshakeTimeout != 2*time.Second {
		t.Errorf("TLSHandshakeTimeout = %v, want 2s", tr.TLSHandshakeTimeout)
	}
}

func TestNew_Chrome(t *testing.T) {
	if _, ok := New(Options{ChromeFingerprint: true}).(*chromeTransport); !ok {
		t.Error("ChromeFingerprint should select the uTLS transport")
	}
}

func TestChromeTransport_PlainHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Write([]byte("echo:" + string(body)))
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewChromeTransport(time.Second), Timeout: 5 * time.Second}
	resp, err := client.Post(srv.URL, "text/plain", strings.NewReader("cart"))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "echo:cart" {
		t.Errorf("body = %q, want echo:cart", body)
	}
}
