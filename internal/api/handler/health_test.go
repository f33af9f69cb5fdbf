package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clipforge/remuxd/internal/repository"
)

func TestHealthHandler_Live(t *testing.T) {
	handler := NewHealthHandler(newMockJobRepository(), &fakeTool{}, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.Live(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Content-Type = %q, want %q", contentType, "application/json")
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != "ok" {
		t.Errorf("status = %q, want %q", resp.Status, "ok")
	}
	if resp.Timestamp == "" {
		t.Error("timestamp should not be empty")
	}
}

func TestHealthHandler_Ready_Success(t *testing.T) {
	repo := newMockJobRepository()
	repo.stats = &repository.QueueStats{
		Queued:     5,
		Processing: 2,
		Completed:  100,
		Failed:     3,
		Retrying:   1,
	}
	handler := NewHealthHandler(repo, &fakeTool{}, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	handler.Ready(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != "ok" {
		t.Errorf("status = %q, want %q", resp.Status, "ok")
	}
	if resp.Queue == nil {
		t.Fatal("queue stats should not be nil")
	}
	if resp.Queue.Queued != 5 {
		t.Errorf("queued = %d, want %d", resp.Queue.Queued, 5)
	}
	if resp.Queue.Retrying != 1 {
		t.Errorf("retrying = %d, want %d", resp.Queue.Retrying, 1)
	}
}

func TestHealthHandler_Ready_ToolUnavailable(t *testing.T) {
	tool := &fakeTool{err: errors.New("executable not found")}
	handler := NewHealthHandler(newMockJobRepository(), tool, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	handler.Ready(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != "error" {
		t.Errorf("status = %q, want %q", resp.Status, "error")
	}
	if resp.Reason == "" {
		t.Error("reason should name the failing check")
	}
}

func TestHealthHandler_Ready_MissingWorkspace(t *testing.T) {
	handler := NewHealthHandler(newMockJobRepository(), &fakeTool{}, "/nonexistent/workspace/dir")

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	handler.Ready(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestHealthHandler_Ready_RepositoryError(t *testing.T) {
	repo := newMockJobRepository()
	repo.statsErr = errors.New("database unavailable")
	handler := NewHealthHandler(repo, &fakeTool{}, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	handler.Ready(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestHealthHandler_Stats(t *testing.T) {
	repo := newMockJobRepository()
	repo.stats = &repository.QueueStats{Queued: 4}
	workspaceDir := t.TempDir()
	handler := NewHealthHandler(repo, &fakeTool{}, workspaceDir)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	w := httptest.NewRecorder()

	handler.Stats(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var stats SystemStats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if stats.WorkspaceDir != workspaceDir {
		t.Errorf("workspace_dir = %q, want %q", stats.WorkspaceDir, workspaceDir)
	}
	if stats.NumCPU == 0 {
		t.Error("num_cpu should not be zero")
	}
	if stats.Queue == nil || stats.Queue.Queued != 4 {
		t.Error("queue stats should be included")
	}
}
