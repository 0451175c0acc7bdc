package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/giygas/adherence-api/adherence/entities"
	"github.com/giygas/adherence-api/config"
	"github.com/giygas/adherence-api/data"
	"github.com/giygas/adherence-api/handlers"
	"github.com/giygas/adherence-api/health"
	"github.com/giygas/adherence-api/interfaces"
	"github.com/giygas/adherence-api/logging"
	"github.com/giygas/adherence-api/validation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// noopRebuilder satisfies interfaces.Rebuilder without touching any data
type noopRebuilder struct{}

func (noopRebuilder) Rebuild() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Port:           "8080",
		Address:        "localhost",
		Env:            config.EnvTest,
		LogLevel:       "info",
		MaxRequestBody: 1048576,
		MaxHeaderSize:  1048576,
	}
}

func newTestServer(cfg *config.Config, dc *data.DataContainer) *Server {
	validator := validation.NewDataValidator()
	healthChecker := health.NewHealthChecker(dc)
	handler := handlers.NewHTTPHandler(dc, validator, noopRebuilder{}, healthChecker)
	return NewServer(cfg, dc, handler, healthChecker)
}

// TestNewServer tests server creation with various configurations
func TestNewServer(t *testing.T) {
	// Initialize logging for tests
	logging.InitLogger("")

	cfg := testConfig()
	dc := data.NewDataContainer()
	server := newTestServer(cfg, dc)

	if server == nil {
		t.Fatal("Server should not be nil")
	}

	if server.server.Addr != cfg.Address+":"+cfg.Port {
		t.Errorf("Expected server address %s, got %s", cfg.Address+":"+cfg.Port, server.server.Addr)
	}

	if server.dataStore != interfaces.DataStore(dc) {
		t.Error("Data store should be set correctly")
	}

	if server.config != cfg {
		t.Error("Config should be set correctly")
	}

	if server.router == nil {
		t.Error("Router should not be nil")
	}

	if server.handler == nil {
		t.Error("HTTP handler should not be nil")
	}

	if server.healthChecker == nil {
		t.Error("Health checker should not be nil")
	}
}

// TestSetupMiddleware tests that all expected middleware are configured
func TestSetupMiddleware(t *testing.T) {
	// Initialize logging for tests
	logging.InitLogger("")

	server := newTestServer(testConfig(), data.NewDataContainer())

	// Create a test request to verify middleware chain
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "127.0.0.1:1234" // Set localhost RemoteAddr to pass BlockDirectAccessMiddleware
	rr := httptest.NewRecorder()

	// Add a test route to verify middleware is working
	server.router.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		// Check if request ID is available in the context
		requestID := middleware.GetReqID(r.Context())
		if requestID == "" {
			t.Error("RequestID should be available in request context")
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("test"))
	})

	server.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
}

// TestSetupRoutes tests that all expected routes are configured
func TestSetupRoutes(t *testing.T) {
	// Initialize logging for tests
	logging.InitLogger("")

	server := newTestServer(testConfig(), data.NewDataContainer())

	// Test API routes
	apiRoutes := []struct {
		method string
		path   string
	}{
		{"GET", "/review"},
		{"GET", "/review/medications"},
		{"GET", "/review/medications/med-1/timeline"},
		{"POST", "/review/dispensings"},
		{"DELETE", "/review/dispensings/some-id"},
		{"PUT", "/review/medications/med-1/package-size"},
		{"GET", "/health"},
		{"GET", "/metrics"},
	}

	// Test documentation routes
	docRoutes := []string{
		"/",
		"/docs",
		"/docs/openapi.yaml",
		"/favicon.ico",
	}

	router := server.router.(*chi.Mux)

	for _, route := range apiRoutes {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(route.method, route.path, nil)
		req.RemoteAddr = "127.0.0.1:1234" // Set localhost RemoteAddr to pass BlockDirectAccessMiddleware
		router.ServeHTTP(rr, req)

		// A 405 means chi matched the path but with another method,
		// which would point at a wiring mistake
		if rr.Code == http.StatusMethodNotAllowed {
			t.Errorf("Route %s %s returned 405, method mismatch in route setup", route.method, route.path)
		}

		// Routes needing data may 404 on an empty container, that still
		// proves the route is registered
		t.Logf("Route %s %s returned status %d", route.method, route.path, rr.Code)
	}

	for _, route := range docRoutes {
		req := httptest.NewRequest("GET", route, nil)
		req.RemoteAddr = "127.0.0.1:1234"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		// Documentation routes may return 404 if files don't exist in test environment
		if rr.Code == http.StatusNotFound {
			t.Logf("Documentation route %s returned 404 (file may not exist in test env)", route)
		} else {
			t.Logf("Documentation route %s returned status %d", route, rr.Code)
		}
	}
}

// TestServerLifecycle tests server start and shutdown
func TestServerLifecycle(t *testing.T) {
	// Initialize logging for tests
	logging.InitLogger("")

	cfg := testConfig()
	cfg.Port = "0" // Automatic port assignment
	cfg.LogLevel = "error"

	server := newTestServer(cfg, data.NewDataContainer())

	// Test server start
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	// Test graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		t.Errorf("Server shutdown should not error: %v", err)
	}

	// Check if server start returned (should happen after shutdown)
	select {
	case err := <-errChan:
		if err == nil {
			t.Error("Server should return error after shutdown")
		} else if !strings.Contains(err.Error(), "Server closed") {
			t.Errorf("Error should indicate server was closed: %v", err)
		}
	case <-time.After(1 * time.Second):
		t.Error("Server should have shutdown within 1 second")
	}
}

// TestGetHealthData tests health data generation
func TestGetHealthData(t *testing.T) {
	// Initialize logging for tests
	logging.InitLogger("")

	dc := data.NewDataContainer()

	medications := []entities.PrescribedMedication{
		{ID: "med-1", Name: "Metoprolol 50mg"},
		{ID: "med-2", Name: "Lisinopril 10mg"},
	}
	timelines := []entities.Timeline{
		{MedicationID: "med-1", Name: "Metoprolol 50mg"},
	}
	dc.UpdateSnapshot(interfaces.ReviewSnapshot{
		Medications:  medications,
		Timelines:    timelines,
		TimelinesMap: map[string]entities.Timeline{"med-1": timelines[0]},
	})

	server := newTestServer(testConfig(), dc)

	healthData := server.GetHealthData()

	if healthData.Status == "" {
		t.Error("Status should not be empty")
	}

	if healthData.Uptime == "" {
		t.Error("Uptime should not be empty")
	}

	if healthData.MemoryUsage < 0 {
		t.Error("Memory usage should be non-negative")
	}

	if healthData.LastUpdate == "" {
		t.Error("Last update should not be empty")
	}

	if healthData.NextUpdate == "" {
		t.Error("Next update should not be empty")
	}

	if healthData.MedicationCount != 2 {
		t.Errorf("Should count seeded medications, got %d", healthData.MedicationCount)
	}

	if healthData.TimelineCount != 1 {
		t.Errorf("Should count seeded timelines, got %d", healthData.TimelineCount)
	}
}

// TestServerConfiguration tests server configuration values
func TestServerConfiguration(t *testing.T) {
	server := newTestServer(testConfig(), data.NewDataContainer())

	// Verify HTTP server configuration
	if server.server.ReadTimeout != 15*time.Second {
		t.Errorf("Read timeout should be 15 seconds, got %v", server.server.ReadTimeout)
	}

	if server.server.WriteTimeout != 15*time.Second {
		t.Errorf("Write timeout should be 15 seconds, got %v", server.server.WriteTimeout)
	}

	if server.server.IdleTimeout != 60*time.Second {
		t.Errorf("Idle timeout should be 60 seconds, got %v", server.server.IdleTimeout)
	}
}

// BenchmarkNewServer benchmarks server creation
func BenchmarkNewServer(b *testing.B) {
	logging.InitLogger("")

	cfg := testConfig()
	dc := data.NewDataContainer()
	validator := validation.NewDataValidator()
	healthChecker := health.NewHealthChecker(dc)
	handler := handlers.NewHTTPHandler(dc, validator, noopRebuilder{}, healthChecker)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NewServer(cfg, dc, handler, healthChecker)
	}
}

// BenchmarkGetHealthData benchmarks health data generation
func BenchmarkGetHealthData(b *testing.B) {
	logging.InitLogger("")

	server := newTestServer(testConfig(), data.NewDataContainer())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = server.GetHealthData()
	}
}
