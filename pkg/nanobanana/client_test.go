package nanobanana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient("")
	require.Error(t, err)
}

func TestSubmitGeneration(t *testing.T) {
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/generate", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]string{"task_id": "task-42"})
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	taskID, err := client.SubmitGeneration(context.Background(), GenerationRequest{
		Prompt:             "a steaming mug at dawn",
		Model:              "flash",
		ReferenceImageURLs: []string{"https://example.com/ref.png"},
	})
	require.NoError(t, err)
	require.Equal(t, "task-42", taskID)

	require.Equal(t, "a steaming mug at dawn", gotBody.Prompt)
	require.Equal(t, "flash", gotBody.Model)
	require.Equal(t, []string{"https://example.com/ref.png"}, gotBody.ReferenceImageURLs)
	require.Equal(t, aspectRatioReel, gotBody.AspectRatio)
}

func TestSubmitGenerationRequiresPrompt(t *testing.T) {
	client, err := NewClient("test-key")
	require.NoError(t, err)

	_, err = client.SubmitGeneration(context.Background(), GenerationRequest{Prompt: "  "})
	require.Error(t, err)
}

func TestSubmitGenerationMissingTaskID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = client.SubmitGeneration(context.Background(), GenerationRequest{Prompt: "x"})
	require.Error(t, err)
}

func TestGetTaskStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tasks/task-42", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":    "completed",
			"image_url": "https://cdn.example.com/out.png",
		})
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	status, err := client.GetTaskStatus(context.Background(), "task-42")
	require.NoError(t, err)
	require.Equal(t, TaskStatusCompleted, status.Status)
	require.Equal(t, "https://cdn.example.com/out.png", status.ImageURL)
	require.True(t, status.Terminal())
}

func TestGetTaskStatusFailedTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "failed",
			"error":  "content policy violation",
		})
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	status, err := client.GetTaskStatus(context.Background(), "task-7")
	require.NoError(t, err)
	require.Equal(t, TaskStatusFailed, status.Status)
	require.Equal(t, "content policy violation", status.Error)
	require.True(t, status.Terminal())
}

func TestTaskStatusTerminal(t *testing.T) {
	require.False(t, TaskStatus{Status: TaskStatusPending}.Terminal())
	require.False(t, TaskStatus{Status: TaskStatusProcessing}.Terminal())
	require.True(t, TaskStatus{Status: TaskStatusCompleted}.Terminal())
	require.True(t, TaskStatus{Status: TaskStatusFailed}.Terminal())
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantValid bool
		wantErr   bool
	}{
		{name: "accepted", status: http.StatusOK, wantValid: true},
		{name: "unauthorized", status: http.StatusUnauthorized, wantValid: false},
		{name: "server error", status: http.StatusBadGateway, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/balance", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			t.Cleanup(srv.Close)

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
