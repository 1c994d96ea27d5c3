package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "m1", body["model"])
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hola"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/v1/", APIKey: "key", Model: "m1"})
	out, err := c.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "hola", out)
}

func TestClient_CompleteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}).Complete(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClient_StreamComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, piece := range []string{"Hola", "", " mundo"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", piece)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	var chunks []string
	full, err := NewClient(Config{BaseURL: srv.URL}).StreamComplete(context.Background(), nil, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hola mundo", full)
	assert.Equal(t, []string{"Hola", " mundo"}, chunks)
}

func TestClient_EmbedBatchKeepsOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[2]},{"index":0,"embedding":[1]}]}`))
	}))
	defer srv.Close()

	out, err := NewClient(Config{BaseURL: srv.URL}).EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, out)

	_, err = NewClient(Config{BaseURL: srv.URL}).EmbedBatch(context.Background(), []string{"a", "  "})
	assert.Error(t, err)
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "Despido sin justa causa", CleanTitle("\"Despido sin justa causa\"\nextra", "x"))
	assert.Equal(t, "fallback", CleanTitle("  ", "fallback"))
	assert.Equal(t, "New chat", CleanTitle("", ""))
	assert.Len(t, []rune(CleanTitle(strings.Repeat("a", 200), "")), 80)
}

func TestSystemPromptWithContext(t *testing.T) {
	p := SystemPrompt([]string{"clausula uno", "clausula dos"})
	assert.Contains(t, p, "[1] clausula uno")
	assert.Contains(t, p, "[2] clausula dos")
	assert.Equal(t, legalSystemPrompt, SystemPrompt(nil))
}
