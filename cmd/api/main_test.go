package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/praxisfinder/therapy-platform/internal/config"
	"github.com/praxisfinder/therapy-platform/internal/notify"
	"github.com/praxisfinder/therapy-platform/pkg/logging"
)

func TestSetupMetricsExposesMatchingCounters(t *testing.T) {
	reg, matchMetrics, _, _ := setupMetrics()
	if matchMetrics == nil {
		t.Fatalf("expected matching metrics")
	}

	matchMetrics.ObserveRun("exact", 0.01)

	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "praxisfinder_matching_runs_total") {
		t.Fatalf("expected matching run counter to be exported")
	}
}

func TestSetupStorageFallsBackToMemory(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{}

	store, cleanup, err := setupStorage(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()

	if store.therapists == nil || store.patients == nil || store.matches == nil {
		t.Fatalf("expected in-memory repositories")
	}
	if store.outbox != nil {
		t.Fatalf("expected nil outbox without a database")
	}
}

func TestSetupVelocityDisabledWithoutRedis(t *testing.T) {
	logger := logging.New("error")
	if v := setupVelocity(&appconfig.Config{}, logger); v != nil {
		t.Fatalf("expected nil velocity checker without REDIS_ADDR")
	}
}

func TestSetupEmailSenderDefaultsToStub(t *testing.T) {
	logger := logging.New("error")
	sender, err := setupEmailSender(context.Background(), &appconfig.Config{}, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := sender.(*notify.StubEmailSender); !ok {
		t.Fatalf("expected stub sender, got %T", sender)
	}
}
