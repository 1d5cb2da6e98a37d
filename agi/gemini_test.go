package agi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Title    string `json:"title"`
	Sections []struct {
		Heading string   `json:"heading"`
		Content []string `json:"content"`
	} `json:"sections"`
}

func TestGenerateJSON(t *testing.T) {
	var gotPrompt, gotMime, gotKey, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotPrompt = req.Contents[0].Parts[0].Text
		gotMime = req.GenerationConfig.ResponseMimeType

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[
			{"text":"` + "```json\\n" + `{\"title\":\"Fest Report\",\"sections\":[{\"heading\":\"Executive Summary\",\"content\":[\"ok\"]}]}` + "\\n```" + `"}]}}]}`))
	}))
	defer srv.Close()

	g := NewGemini("k-123", "gemini-1.5-flash").WithBaseURL(srv.URL)
	var out doc
	require.NoError(t, g.GenerateJSON(context.Background(), "summarize", &out))

	assert.Equal(t, "/models/gemini-1.5-flash:generateContent", gotPath)
	assert.Equal(t, "k-123", gotKey)
	assert.Equal(t, "summarize", gotPrompt)
	assert.Equal(t, "application/json", gotMime)
	assert.Equal(t, "Fest Report", out.Title)
	require.Len(t, out.Sections, 1)
	assert.Equal(t, []string{"ok"}, out.Sections[0].Content)
}

func TestGenerateJSONErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"api error", http.StatusTooManyRequests, `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`},
		{"no candidates", http.StatusOK, `{"candidates":[]}`},
		{"not json text", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"sorry"}]}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			var out doc
			err := NewGemini("k", "m").WithBaseURL(srv.URL).GenerateJSON(context.Background(), "p", &out)
			assert.Error(t, err)
		})
	}
}
