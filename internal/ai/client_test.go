package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiClient_GenerateText(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "key-123", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"isRelevant\":"},{"text":" \"yes\"}"}]}}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("key-123", "gemini-test", srv.URL)
	text, err := c.GenerateText(context.Background(), "classify", &InlineData{MimeType: "audio/wav", Data: []byte("RIFF")})
	require.NoError(t, err)
	assert.Equal(t, `{"isRelevant": "yes"}`, text)

	require.Len(t, got.Contents, 1)
	parts := got.Contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "audio/wav", parts[0].InlineData.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("RIFF")), parts[0].InlineData.Data)
	assert.Equal(t, "classify", parts[1].Text)
}

func TestGeminiClient_Errors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
		},
		"empty candidates": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		},
		"bad body": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			_, err := NewGeminiClient("k", "m", srv.URL).GenerateText(context.Background(), "p", nil)
			assert.Error(t, err)
		})
	}
}
