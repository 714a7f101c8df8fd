package main

import (
	"context"
	"errors"
	"mongods/internal/config"
	"mongods/internal/logger"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (f *fakePruner) DeleteBefore(cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return 3, f.err
}

func (f *fakePruner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestRunAuditRetention(t *testing.T) {
	logger.Discard()
	pruner := &fakePruner{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		runAuditRetention(ctx, pruner, 24*time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool { return pruner.calls() == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done

	pruner.mu.Lock()
	defer pruner.mu.Unlock()
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), pruner.cutoffs[0], time.Minute)
}

func TestRunAuditRetention_Disabled(t *testing.T) {
	pruner := &fakePruner{err: errors.New("unused")}

	runAuditRetention(context.Background(), pruner, 0)

	assert.Equal(t, 0, pruner.calls())
}

// blockingPruner holds DeleteBefore open until release is closed.
type blockingPruner struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingPruner) DeleteBefore(cutoff time.Time) (int64, error) {
	close(b.entered)
	<-b.release
	return 0, nil
}

func TestAuditSweep_StopWaitsForRunningSweep(t *testing.T) {
	logger.Discard()
	pruner := &blockingPruner{entered: make(chan struct{}), release: make(chan struct{})}

	sweep := startAuditSweep(pruner, time.Hour)
	<-pruner.entered

	stopped := make(chan struct{})
	go func() {
		sweep.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while DeleteBefore was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(pruner.release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the sweep finished")
	}
}

func TestAuditSweep_StopNil(t *testing.T) {
	var sweep *auditSweep
	assert.NotPanics(t, sweep.Stop)
}

func TestComponents_CloseReleasesAuditDatabase(t *testing.T) {
	logger.Discard()
	cfg := &config.Config{
		APIKey:             "0123456789abcdef0123456789abcdef",
		GrafanaURL:         "http://127.0.0.1:1",
		AuditDB:            filepath.Join(t.TempDir(), "audit.db"),
		AuditRetention:     time.Hour,
		RateLimitPerMinute: 60,
		RateLimitBurst:     5,
		ForwardTimeout:     time.Second,
	}

	comps, err := buildComponents(cfg)
	require.NoError(t, err)
	require.NotNil(t, comps.db)

	rec := httptest.NewRecorder()
	comps.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	comps.close()

	assert.Error(t, comps.db.Ping())
	select {
	case <-comps.sweep.done:
	default:
		t.Fatal("audit sweep still running after close")
	}
}

func TestComponents_AuditDisabled(t *testing.T) {
	logger.Discard()
	comps, err := buildComponents(&config.Config{RateLimitPerMinute: 60, RateLimitBurst: 5})
	require.NoError(t, err)

	assert.Nil(t, comps.db)
	assert.Nil(t, comps.sweep)
	assert.NotPanics(t, comps.close)
}
