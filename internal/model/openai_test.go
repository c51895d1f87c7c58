package model

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var testTool = Tool{
	Name:        "apply_task_operations",
	Description: "apply operations",
	Parameters:  map[string]any{"type": "object"},
}

func completion(t *testing.T, message map[string]any) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []any{map[string]any{"index": 0, "message": message, "finish_reason": "tool_calls"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func TestOpenAIReturnsToolArguments(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &got)
		w.Header().Set("Content-Type", "application/json")
		w.Write(completion(t, map[string]any{
			"role": "assistant",
			"tool_calls": []any{map[string]any{
				"id":   "call_1",
				"type": "function",
				"function": map[string]any{
					"name":      "apply_task_operations",
					"arguments": `{"operations":[]}`,
				},
			}},
		}))
	}))
	defer srv.Close()

	c := NewOpenAI(OpenAIConfig{BaseURL: srv.URL + "/v1", APIKey: "k", Model: "test-model"})
	out, err := c.Complete(context.Background(), Request{System: "sys", User: "add milk", Tool: testTool})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if string(out) != `{"operations":[]}` {
		t.Fatalf("out = %s", out)
	}
	if auth != "Bearer k" {
		t.Fatalf("Authorization = %q", auth)
	}
	if got["model"] != "test-model" {
		t.Fatalf("model = %v", got["model"])
	}
	choice, _ := got["tool_choice"].(map[string]any)
	fn, _ := choice["function"].(map[string]any)
	if fn["name"] != "apply_task_operations" {
		t.Fatalf("tool_choice = %v", got["tool_choice"])
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", got["messages"])
	}
}

func TestOpenAIContentFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(completion(t, map[string]any{"role": "assistant", "content": `{"operations":[]}`}))
	}))
	defer srv.Close()

	c := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, APIKey: "k"})
	out, err := c.Complete(context.Background(), Request{Tool: testTool})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if string(out) != `{"operations":[]}` {
		t.Fatalf("out = %s", out)
	}
}

func TestOpenAINoOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(completion(t, map[string]any{"role": "assistant"}))
	}))
	defer srv.Close()

	c := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, APIKey: "k"})
	if _, err := c.Complete(context.Background(), Request{Tool: testTool}); !errors.Is(err, ErrNoOutput) {
		t.Fatalf("err = %v, want ErrNoOutput", err)
	}
}

func TestOpenAIUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, APIKey: "k"})
	if _, err := c.Complete(context.Background(), Request{Tool: testTool}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestOpenAITimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, APIKey: "k", Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := c.Complete(context.Background(), Request{Tool: testTool})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("timeout not applied")
	}
}
