package samclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestResolveBatch verifies request shape and that number and string VMP
// values both decode.
func TestResolveBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/vmp-codes/batch" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}

		var req struct {
			Cnks []string `json:"cnks"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if len(req.Cnks) != 3 {
			t.Errorf("Expected 3 codes in the batch, got %d", len(req.Cnks))
		}

		w.Header().Set("Content-Type", "application/json")
		// One numeric VMP, one string VMP, one code left unresolved.
		w.Write([]byte(`{"results":[
			{"cnk":"1111111","vmp":42},
			{"cnk":"2222222","vmp":"43"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	resolved, err := client.ResolveBatch(context.Background(), []string{"1111111", "2222222", "3333333"})
	if err != nil {
		t.Fatalf("ResolveBatch failed: %v", err)
	}

	if len(resolved) != 2 {
		t.Fatalf("Expected 2 resolved codes, got %d", len(resolved))
	}
	if resolved["1111111"] != 42 {
		t.Errorf("Expected 42 for 1111111, got %d", resolved["1111111"])
	}
	if resolved["2222222"] != 43 {
		t.Errorf("Expected 43 for string-typed 2222222, got %d", resolved["2222222"])
	}
	if _, ok := resolved["3333333"]; ok {
		t.Error("Expected 3333333 to stay unresolved")
	}
}

// TestResolveBatchEmptyInput verifies no request goes out for an empty
// batch.
func TestResolveBatchEmptyInput(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	resolved, err := client.ResolveBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("ResolveBatch failed: %v", err)
	}
	if len(resolved) != 0 {
		t.Errorf("Expected empty result, got %v", resolved)
	}
	if called {
		t.Error("Expected no HTTP request for an empty batch")
	}
}

// TestResolveBatchErrors verifies that failures surface as errors so the
// matching pass can degrade.
func TestResolveBatchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr bool
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantErr: true,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"results": [{`))
			},
			wantErr: true,
		},
		{
			name: "not found is a normal empty state",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(server.URL, time.Second)
			resolved, err := client.ResolveBatch(context.Background(), []string{"1111111"})

			if tt.wantErr && err == nil {
				t.Error("Expected an error")
			}
			if !tt.wantErr {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				if len(resolved) != 0 {
					t.Errorf("Expected empty result, got %v", resolved)
				}
			}
		})
	}
}

// TestResolveBatchContextCancelled verifies the request honors context
// cancellation.
func TestResolveBatchContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(server.URL, time.Second)
	if _, err := client.ResolveBatch(ctx, []string{"1111111"}); err == nil {
		t.Error("Expected an error from the cancelled context")
	}
}
