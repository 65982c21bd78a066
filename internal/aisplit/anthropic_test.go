package aisplit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
)

func TestAnthropicGenerator(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		want          string
		wantTransient bool
		wantErr       bool
	}{
		{
			name:   "text blocks are joined",
			status: http.StatusOK,
			body: `{"id": "msg_1", "type": "message", "role": "assistant", "model": "test",
				"content": [{"type": "text", "text": "{\"splits\": "}, {"type": "text", "text": "[]}"}],
				"stop_reason": "end_turn", "usage": {"input_tokens": 10, "output_tokens": 5}}`,
			want: `{"splits": []}`,
		},
		{
			name:          "rate limited",
			status:        http.StatusTooManyRequests,
			body:          `{"type": "error", "error": {"type": "rate_limit_error", "message": "slow down"}}`,
			wantTransient: true,
			wantErr:       true,
		},
		{
			name:          "overloaded",
			status:        529,
			body:          `{"type": "error", "error": {"type": "overloaded_error", "message": "busy"}}`,
			wantTransient: true,
			wantErr:       true,
		},
		{
			name:    "bad request",
			status:  http.StatusBadRequest,
			body:    `{"type": "error", "error": {"type": "invalid_request_error", "message": "nope"}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
					t.Errorf("failed to decode request: %v", err)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			gen := NewAnthropicGenerator("test-key", "test-model", option.WithBaseURL(srv.URL))
			got, err := gen.Generate(context.Background(), "split lunch")

			if gotBody["model"] != "test-model" {
				t.Errorf("model = %v, want test-model", gotBody["model"])
			}
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				if errors.Is(err, ErrTransient) != tt.wantTransient {
					t.Errorf("transient = %v, want %v (%v)", errors.Is(err, ErrTransient), tt.wantTransient, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Generate() = %q, want %q", got, tt.want)
			}
		})
	}
}
