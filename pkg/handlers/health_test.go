package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/mealvita-inc/mealvita-engine/pkg/config"
	"github.com/mealvita-inc/mealvita-engine/pkg/services"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Healthy(ctx context.Context) error {
	return s.err
}

func testExclusions() *services.ExclusionMap {
	return services.NewExclusionMap(map[string][]string{
		"Lactosa": {"leche", "queso"},
		"Gluten":  {"harina de trigo"},
	})
}

func TestHealthHandler_Health(t *testing.T) {
	cfg := &config.Config{
		Version: "test-version",
		Env:     "test",
	}
	// Liveness must not depend on the database.
	handler := NewHealthHandler(cfg, stubPinger{err: errors.New("down")}, testExclusions(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if body := rec.Body.String(); body != "ok" {
		t.Errorf("expected body 'ok', got '%s'", body)
	}
}

func TestHealthHandler_Ping(t *testing.T) {
	cfg := &config.Config{
		Version: "1.2.3",
		Env:     "test",
	}
	handler := NewHealthHandler(cfg, stubPinger{}, testExclusions(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()

	handler.Ping(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response PingResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", response.Status)
	}
	if response.Service != "mealvita-engine" {
		t.Errorf("expected service 'mealvita-engine', got '%s'", response.Service)
	}
	if response.Version != "1.2.3" {
		t.Errorf("expected version '1.2.3', got '%s'", response.Version)
	}
	if response.Database != "ok" {
		t.Errorf("expected database 'ok', got '%s'", response.Database)
	}
	if response.ExclusionRules != 2 {
		t.Errorf("expected 2 exclusion rules, got %d", response.ExclusionRules)
	}
}

func TestHealthHandler_Ping_DatabaseDown(t *testing.T) {
	cfg := &config.Config{
		Version: "1.2.3",
		Env:     "test",
	}
	handler := NewHealthHandler(cfg, stubPinger{err: errors.New("connection refused")}, testExclusions(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()

	handler.Ping(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}

	var response PingResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != "degraded" {
		t.Errorf("expected status 'degraded', got '%s'", response.Status)
	}
	if response.Database != "unreachable" {
		t.Errorf("expected database 'unreachable', got '%s'", response.Database)
	}
}
