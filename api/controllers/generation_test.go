package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reelforge/reelforge-backend/api/responses"
	"github.com/reelforge/reelforge-backend/internal/images"
	"github.com/reelforge/reelforge-backend/pkg/db/models"
	"github.com/reelforge/reelforge-backend/pkg/enums"
	pkgerrors "github.com/reelforge/reelforge-backend/pkg/errors"
	"github.com/reelforge/reelforge-backend/pkg/logger"
)

type stubImagesService struct {
	startAck    *images.BatchStart
	startErr    error
	startCalls  int
	status      *images.StatusView
	statusErr   error
	statusCalls int
	scene       *models.Scene
	sceneErr    error
	gotModel    string
}

func (s *stubImagesService) StartBatch(ctx context.Context, projectID uuid.UUID, input images.BatchInput) (*images.BatchStart, error) {
	s.startCalls++
	s.gotModel = input.Model
	return s.startAck, s.startErr
}

func (s *stubImagesService) RunBatch(ctx context.Context, projectID uuid.UUID, input images.BatchInput) error {
	return nil
}

func (s *stubImagesService) GenerateScene(ctx context.Context, projectID, sceneID uuid.UUID, model string) (*models.Scene, error) {
	s.gotModel = model
	return s.scene, s.sceneErr
}

func (s *stubImagesService) Status(ctx context.Context, projectID uuid.UUID) (*images.StatusView, error) {
	s.statusCalls++
	return s.status, s.statusErr
}

func generationRouter(svc images.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test"})
	r := chi.NewRouter()
	r.Post("/api/projects/{projectID}/generate-images", StartImageBatch(svc, logg))
	r.Post("/api/projects/{projectID}/scenes/{sceneID}/generate-image", GenerateSceneImage(svc, logg))
	r.Get("/api/projects/{projectID}/generation-status", GenerationStatus(svc, logg))
	return r
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) responses.ErrorEnvelope {
	t.Helper()
	var body responses.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

func TestStartImageBatchAccepted(t *testing.T) {
	svc := &stubImagesService{startAck: &images.BatchStart{Status: "started", TotalScenes: 4}}
	router := generationRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/projects/"+uuid.NewString()+"/generate-images", strings.NewReader(`{"model":"pro"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if svc.gotModel != "pro" {
		t.Fatalf("model not passed through, got %q", svc.gotModel)
	}

	var ack images.BatchStart
	if err := json.NewDecoder(w.Body).Decode(&ack); err != nil {
		t.Fatalf("failed to decode ack: %v", err)
	}
	if ack.Status != "started" || ack.TotalScenes != 4 {
		t.Fatalf("unexpected ack %+v", ack)
	}
}

func TestStartImageBatchEmptyBodyAllowed(t *testing.T) {
	svc := &stubImagesService{startAck: &images.BatchStart{Status: "started", TotalScenes: 1}}
	router := generationRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/projects/"+uuid.NewString()+"/generate-images", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
}

func TestStartImageBatchBadModelRejected(t *testing.T) {
	svc := &stubImagesService{}
	router := generationRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/projects/"+uuid.NewString()+"/generate-images", strings.NewReader(`{"model":"ultra"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if svc.startCalls != 0 {
		t.Fatalf("service must not be called on invalid input")
	}
}

func TestStartImageBatchConflict(t *testing.T) {
	svc := &stubImagesService{startErr: pkgerrors.New(pkgerrors.CodeConflict, "image generation already running for this project")}
	router := generationRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/projects/"+uuid.NewString()+"/generate-images", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if body := decodeErrorBody(t, w); body.Error.Code != string(pkgerrors.CodeConflict) {
		t.Fatalf("unexpected error code %s", body.Error.Code)
	}
}

func TestStartImageBatchBadProjectID(t *testing.T) {
	router := generationRouter(&stubImagesService{})

	req := httptest.NewRequest(http.MethodPost, "/api/projects/not-a-uuid/generate-images", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGenerateSceneImageDependencyFailure(t *testing.T) {
	svc := &stubImagesService{sceneErr: pkgerrors.New(pkgerrors.CodeDependency, "content policy violation")}
	router := generationRouter(svc)

	url := "/api/projects/" + uuid.NewString() + "/scenes/" + uuid.NewString() + "/generate-image"
	req := httptest.NewRequest(http.MethodPost, url, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if body := decodeErrorBody(t, w); body.Error.Message != "content policy violation" {
		t.Fatalf("recorded failure message must be exposed, got %q", body.Error.Message)
	}
}

func TestGenerationStatusIdempotentReRead(t *testing.T) {
	svc := &stubImagesService{status: &images.StatusView{
		Status:          enums.GenerationStatusGeneratingImages,
		CompletedScenes: 3,
		TotalScenes:     8,
	}}
	router := generationRouter(svc)

	url := "/api/projects/" + uuid.NewString() + "/generation-status"

	var bodies []string
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		bodies = append(bodies, w.Body.String())
	}

	// polling is a pure read: identical state, identical body
	if bodies[0] != bodies[1] {
		t.Fatalf("status re-read changed: %s vs %s", bodies[0], bodies[1])
	}
	if svc.statusCalls != 2 {
		t.Fatalf("expected 2 status reads, got %d", svc.statusCalls)
	}

	var status images.StatusView
	if err := json.Unmarshal([]byte(bodies[0]), &status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if status.CompletedScenes != 3 || status.TotalScenes != 8 {
		t.Fatalf("unexpected status %+v", status)
	}
}
