package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/giygas/adherence-api/config"
)

func TestRealIPMiddleware_SingleIP(t *testing.T) {
	// X-Forwarded-For with single IP (no comma)
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.1")
	req.RemoteAddr = "192.168.1.1:12345"

	rr := httptest.NewRecorder()
	handler := RealIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rr.Header().Set("X-Real-IP", r.RemoteAddr)
	}))
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status OK, got %d", rr.Code)
	}

	realIP := rr.Header().Get("X-Real-IP")
	if realIP != "203.0.113.1" {
		t.Errorf("Expected RemoteAddr to be '203.0.113.1', got '%s'", realIP)
	}
}

func TestRealIPMiddleware_MultipleIPs(t *testing.T) {
	// X-Forwarded-For chains are comma separated, first entry is the client
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.1, 198.51.100.2, 10.0.0.1")
	req.RemoteAddr = "192.168.1.1:12345"

	rr := httptest.NewRecorder()
	handler := RealIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rr.Header().Set("X-Real-IP", r.RemoteAddr)
	}))
	handler.ServeHTTP(rr, req)

	realIP := rr.Header().Get("X-Real-IP")
	if realIP != "203.0.113.1" {
		t.Errorf("Expected first IP from the chain, got '%s'", realIP)
	}
}

func TestRealIPMiddleware_WithoutXForwardedFor(t *testing.T) {
	// Request without X-Forwarded-For header keeps the original RemoteAddr
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"

	rr := httptest.NewRecorder()
	handler := RealIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rr.Header().Set("X-Original-RemoteAddr", r.RemoteAddr)
	}))
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status OK, got %d", rr.Code)
	}

	originalAddr := rr.Header().Get("X-Original-RemoteAddr")
	if originalAddr != "192.168.1.1:12345" {
		t.Errorf("Expected original RemoteAddr, got '%s'", originalAddr)
	}
}

func TestBlockDirectAccessMiddleware_LocalhostIPv4(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "127.0.0.1:12345"

	rr := httptest.NewRecorder()
	handler := BlockDirectAccessMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("allowed"))
	}))
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status OK for localhost, got %d", rr.Code)
	}
}

func TestBlockDirectAccessMiddleware_LocalhostIPv6(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "[::1]:12345"

	rr := httptest.NewRecorder()
	handler := BlockDirectAccessMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("allowed"))
	}))
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status OK for localhost IPv6, got %d", rr.Code)
	}
}

func TestBlockDirectAccessMiddleware_DirectIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"

	rr := httptest.NewRecorder()
	handler := BlockDirectAccessMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("allowed"))
	}))
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected status Forbidden for direct access, got %d", rr.Code)
	}
}

func TestBlockDirectAccessMiddleware_WithXForwardedFor(t *testing.T) {
	// Should allow when X-Forwarded-For is present (proxy)
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "192.168.1.1")
	req.RemoteAddr = "192.168.1.1:12345"

	rr := httptest.NewRecorder()
	handler := BlockDirectAccessMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("allowed"))
	}))
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status OK when proxied, got %d", rr.Code)
	}
}

func TestBlockDirectAccessMiddleware_WithXRealIP(t *testing.T) {
	// Should allow when X-Real-IP is present (proxy)
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Real-IP", "192.168.1.1")
	req.RemoteAddr = "192.168.1.1:12345"

	rr := httptest.NewRecorder()
	handler := BlockDirectAccessMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("allowed"))
	}))
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status OK when proxied, got %d", rr.Code)
	}
}

func TestRequestSizeMiddleware_ExceedsMaxSize(t *testing.T) {
	// Content-Length exceeding the configured maximum
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Content-Length", "2000000") // 2MB, larger than 1MB limit

	rr := httptest.NewRecorder()
	cfg := config.Config{MaxRequestBody: 1024 * 1024, MaxHeaderSize: 1024 * 1024}
	handler := RequestSizeMiddleware(&cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("allowed"))
	}))
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413 for large Content-Length, got %d", rr.Code)
	}
}

func TestRequestSizeMiddleware_ExactlyMaxSize(t *testing.T) {
	// The middleware uses > (not >=), so exact max size is allowed
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Content-Length", "1048576") // Exactly 1MB

	rr := httptest.NewRecorder()
	cfg := config.Config{MaxRequestBody: 1024 * 1024, MaxHeaderSize: 1024 * 1024}
	handler := RequestSizeMiddleware(&cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("allowed"))
	}))
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status OK for Content-Length at exact max size, got %d", rr.Code)
	}
}

func TestRequestSizeMiddleware_NoContentLength(t *testing.T) {
	// No Content-Length header should be allowed through
	req := httptest.NewRequest("GET", "/", nil)

	rr := httptest.NewRecorder()
	cfg := config.Config{MaxRequestBody: 1024 * 1024, MaxHeaderSize: 1024 * 1024}
	handler := RequestSizeMiddleware(&cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("allowed"))
	}))
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status OK when no Content-Length, got %d", rr.Code)
	}
}
