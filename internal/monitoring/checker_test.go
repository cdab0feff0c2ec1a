package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/sells-group/catalog-cli/internal/config"
)

func TestChecker_RunStopsOnCancel(t *testing.T) {
	collector := NewCollector(nil)
	cfg := config.MonitoringConfig{CheckIntervalSecs: 1}
	checker := NewChecker(collector, NewAlerter(cfg, 100), cfg)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("checker did not stop after context cancellation")
	}
}

func TestChecker_DefaultInterval(t *testing.T) {
	// A zero interval must not panic the ticker; the loop falls back to
	// the five minute default and still honors cancellation.
	collector := NewCollector(nil)
	cfg := config.MonitoringConfig{}
	checker := NewChecker(collector, NewAlerter(cfg, 100), cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("checker did not stop")
	}
}
