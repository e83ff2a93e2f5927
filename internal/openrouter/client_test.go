// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const testKey = "sk-or-test-abcdefghijklmnopqrstuvwxyz"

// =============================================================================
// CREDENTIAL VALIDATION TESTS
// =============================================================================

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid key", "sk-or-abc123", false},
		{"valid with whitespace", "  sk-or-abc123  ", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"wrong prefix", "sk-ant-abc123", true},
		{"prefix missing", "abc123", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAPIKey(tc.key)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidCredential) {
					t.Errorf("want ErrInvalidCredential, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestListModels_InvalidKeyNoNetworkCall(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := NewClient().WithBaseURL(server.URL)

	_, err := client.ListModels(context.Background(), "not-a-key")
	if !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("want ErrInvalidCredential, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("local validation must not issue a network call, saw %d", calls.Load())
	}
}

// =============================================================================
// MODEL LISTING TESTS
// =============================================================================

func TestListModels_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer "+testKey {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"id":"vendor/model-x","name":"Model X","provider":"vendor",
			 "pricing":{"prompt":0.001,"completion":0.002},
			 "config":{"context_length":32000,"filetype_capabilities":["text"]}},
			{"id":"vendor/model-y","name":"Model Y","provider":"vendor"}
		]}`))
	}))
	defer server.Close()

	client := NewClient().WithBaseURL(server.URL)
	models, err := client.ListModels(context.Background(), testKey)
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}

	if len(models) != 2 {
		t.Fatalf("got %d models, want 2", len(models))
	}
	if models[0].ID != "vendor/model-x" || models[0].Provider != "vendor" {
		t.Errorf("model[0] = %+v", models[0])
	}
	if models[0].Pricing == nil || models[0].Pricing.Prompt != 0.001 {
		t.Errorf("pricing not parsed: %+v", models[0].Pricing)
	}
	if models[0].Config == nil || models[0].Config.ContextLength != 32000 {
		t.Errorf("config not parsed: %+v", models[0].Config)
	}
	if models[1].Pricing != nil {
		t.Error("absent pricing should stay nil")
	}
}

func TestListModels_EmptyDataField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient().WithBaseURL(server.URL)
	models, err := client.ListModels(context.Background(), testKey)
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if models == nil || len(models) != 0 {
		t.Errorf("absent data field should yield empty slice, got %v", models)
	}
}

// =============================================================================
// STATUS CLASSIFICATION TESTS
// =============================================================================

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantAuth   bool
		wantStatus int
		wantMsg    string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, true, 0, ""},
		{"server error with message", http.StatusInternalServerError, `{"error":{"message":"upstream exploded"}}`, false, 500, "upstream exploded"},
		{"rate limited without body", http.StatusTooManyRequests, `oops`, false, 429, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := NewClient().WithBaseURL(server.URL)
			_, err := client.ListModels(context.Background(), testKey)
			if err == nil {
				t.Fatal("expected error")
			}

			if tc.wantAuth {
				if !errors.Is(err, ErrAuthenticationFailed) {
					t.Errorf("want ErrAuthenticationFailed, got %v", err)
				}
				return
			}

			var reqErr *RequestError
			if !errors.As(err, &reqErr) {
				t.Fatalf("want RequestError, got %v", err)
			}
			if reqErr.Status != tc.wantStatus {
				t.Errorf("Status = %d, want %d", reqErr.Status, tc.wantStatus)
			}
			if reqErr.Message != tc.wantMsg {
				t.Errorf("Message = %q, want %q", reqErr.Message, tc.wantMsg)
			}
		})
	}
}

func TestNetworkErrorClassification(t *testing.T) {
	// Server closed before the call: transport-level failure, no response.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient().WithBaseURL(server.URL)
	_, err := client.ListModels(context.Background(), testKey)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("want ErrNetwork, got %v", err)
	}
}

func TestClassifyTransportError_CredentialText(t *testing.T) {
	tests := []struct {
		err      string
		wantAuth bool
	}{
		{"No auth credentials found", true},
		{"proxy authentication required", true},
		{"tls: bad credentials presented", true},
		{"connection refused", false},
		{"dial tcp: i/o timeout", false},
	}

	for _, tc := range tests {
		got := classifyTransportError(errors.New(tc.err))
		if tc.wantAuth && !errors.Is(got, ErrAuthenticationFailed) {
			t.Errorf("%q: want ErrAuthenticationFailed, got %v", tc.err, got)
		}
		if !tc.wantAuth && !errors.Is(got, ErrNetwork) {
			t.Errorf("%q: want ErrNetwork, got %v", tc.err, got)
		}
	}
}

// =============================================================================
// COMPLETION TESTS
// =============================================================================

func TestSendCompletion_Success(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("X-Title"); got != "ChatSphere" {
			t.Errorf("X-Title = %q", got)
		}
		if got := r.Header.Get("HTTP-Referer"); got == "" {
			t.Error("HTTP-Referer header missing")
		}
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"choices":[{"message":{"content":"hi there"}}]}`))
	}))
	defer server.Close()

	client := NewClient().WithBaseURL(server.URL)
	temp := 0.4
	got, err := client.SendCompletion(context.Background(), testKey, "vendor/model-x",
		[]ChatMessage{NewUserMessage("hello")}, "Be terse.", &temp)
	if err != nil {
		t.Fatalf("SendCompletion failed: %v", err)
	}
	if got != "hi there" {
		t.Errorf("content = %q, want %q", got, "hi there")
	}

	if captured.Model != "vendor/model-x" {
		t.Errorf("payload model = %q", captured.Model)
	}
	if captured.Temperature != 0.4 {
		t.Errorf("payload temperature = %v", captured.Temperature)
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("payload has %d messages, want system + user", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" || captured.Messages[0].Content != "Be terse." {
		t.Errorf("system prompt not prepended: %+v", captured.Messages[0])
	}
	if captured.Messages[1].Role != "user" || captured.Messages[1].Content != "hello" {
		t.Errorf("user message altered: %+v", captured.Messages[1])
	}
}

func TestSendCompletion_NoSystemPromptNoTemperature(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	client := NewClient().WithBaseURL(server.URL)
	_, err := client.SendCompletion(context.Background(), testKey, "vendor/model-x",
		[]ChatMessage{NewUserMessage("hello")}, "", nil)
	if err != nil {
		t.Fatalf("SendCompletion failed: %v", err)
	}

	if len(captured.Messages) != 1 {
		t.Errorf("empty system prompt must not be prepended: %d messages", len(captured.Messages))
	}
	if captured.Temperature != DefaultTemperature {
		t.Errorf("temperature = %v, want default %v", captured.Temperature, DefaultTemperature)
	}
}

func TestSendCompletion_TemperatureClamped(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewClient().WithBaseURL(server.URL)
	temp := 9.5
	client.SendCompletion(context.Background(), testKey, "m", []ChatMessage{NewUserMessage("x")}, "", &temp)
	if captured.Temperature != 2.0 {
		t.Errorf("temperature = %v, want clamped 2.0", captured.Temperature)
	}
}

func TestSendCompletion_MissingModel(t *testing.T) {
	client := NewClient().WithBaseURL("http://unused.invalid")
	_, err := client.SendCompletion(context.Background(), testKey, "  ", nil, "", nil)
	if !errors.Is(err, ErrMissingModel) {
		t.Errorf("want ErrMissingModel, got %v", err)
	}
}

func TestSendCompletion_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewClient().WithBaseURL(server.URL)
	got, err := client.SendCompletion(context.Background(), testKey, "m", []ChatMessage{NewUserMessage("x")}, "", nil)
	if err != nil {
		t.Fatalf("structurally absent content is not an error, got %v", err)
	}
	if got != "" {
		t.Errorf("content = %q, want empty", got)
	}
}

func TestSendCompletion_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>definitely not json</html>`))
	}))
	defer server.Close()

	client := NewClient().WithBaseURL(server.URL)
	_, err := client.SendCompletion(context.Background(), testKey, "m", []ChatMessage{NewUserMessage("x")}, "", nil)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("want ErrMalformedResponse, got %v", err)
	}
}
