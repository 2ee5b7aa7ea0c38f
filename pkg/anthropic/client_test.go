package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const scriptJSON = `{
	"title": "Morning Routine",
	"theme": "warm sunrise tones",
	"totalDuration": 0,
	"scenes": [
		{"number": 1, "title": "Wake up", "description": "alarm rings", "visualPrompt": "bedroom at dawn", "durationSeconds": 2.5},
		{"number": 2, "title": "Coffee", "description": "pouring coffee", "visualPrompt": "steaming mug close-up", "durationSeconds": 3.5}
	]
}`

func newMessagesServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func textResponse(text string) map[string]any {
	return map[string]any{
		"content": []map[string]any{{"type": "text", "text": text}},
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
}

func TestGenerateScript(t *testing.T) {
	var gotReq messageRequest
	srv := newMessagesServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(textResponse("Here is your script:\n" + scriptJSON))
	})

	client, err := NewClient("test-key", WithBaseURL(srv.URL), WithModel("test-model"), WithMaxTokens(128))
	require.NoError(t, err)

	script, err := client.GenerateScript(context.Background(), ScriptRequest{
		Captions:   "wake up, make coffee, go outside",
		StyleHints: "cinematic",
		NumScenes:  2,
	})
	require.NoError(t, err)

	require.Equal(t, "test-model", gotReq.Model)
	require.Equal(t, 128, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 1)
	require.Contains(t, gotReq.Messages[0].Content, "cinematic")

	require.Equal(t, "Morning Routine", script.Title)
	require.Equal(t, "warm sunrise tones", script.Theme)
	require.Len(t, script.Scenes, 2)
	require.Equal(t, 1, script.Scenes[0].Number)
	require.Equal(t, 2, script.Scenes[1].Number)
	// totalDuration was 0 in the payload, so it is summed from scenes
	require.InDelta(t, 6.0, script.TotalDuration, 0.001)
}

func TestGenerateScriptRequiresCaptions(t *testing.T) {
	client, err := NewClient("test-key")
	require.NoError(t, err)

	_, err = client.GenerateScript(context.Background(), ScriptRequest{Captions: "   "})
	require.Error(t, err)
}

func TestGenerateScriptUpstreamError(t *testing.T) {
	srv := newMessagesServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"overloaded_error"}}`, http.StatusServiceUnavailable)
	})

	client, err := NewClient("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = client.GenerateScript(context.Background(), ScriptRequest{Captions: "some captions"})
	require.Error(t, err)
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantValid bool
		wantErr   bool
	}{
		{name: "accepted", status: http.StatusOK, wantValid: true},
		{name: "bad request still proves the key", status: http.StatusBadRequest, wantValid: true},
		{name: "unauthorized", status: http.StatusUnauthorized, wantValid: false},
		{name: "forbidden", status: http.StatusForbidden, wantValid: false},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newMessagesServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			client, err := NewClient("test-key", WithBaseURL(srv.URL))
			require.NoError(t, err)

			valid, err := client.ValidateKey(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantValid, valid)
		})
	}
}

func TestParseScript(t *testing.T) {
	t.Run("fenced output", func(t *testing.T) {
		script, err := parseScript("```json\n" + scriptJSON + "\n```")
		require.NoError(t, err)
		require.Len(t, script.Scenes, 2)
	})

	t.Run("no json", func(t *testing.T) {
		_, err := parseScript("I could not produce a script.")
		require.Error(t, err)
	})

	t.Run("empty scenes", func(t *testing.T) {
		_, err := parseScript(`{"title":"x","theme":"y","totalDuration":10,"scenes":[]}`)
		require.Error(t, err)
	})

	t.Run("non-positive duration", func(t *testing.T) {
		_, err := parseScript(`{"title":"x","theme":"y","scenes":[{"title":"a","description":"b","visualPrompt":"c","durationSeconds":0}]}`)
		require.Error(t, err)
	})
}
