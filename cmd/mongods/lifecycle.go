package main

import (
	"context"
	"database/sql"
	"fmt"
	"mongods/internal/api"
	"mongods/internal/config"
	"mongods/internal/core"
	"mongods/internal/data"
	"mongods/internal/logger"
	"mongods/internal/service"
	"net/http"
	"time"
)

// components is everything one server run brings up besides the listener.
type components struct {
	handler http.Handler
	limiter *api.RateLimiter
	sweep   *auditSweep
	db      *sql.DB
}

func buildComponents(cfg *config.Config) (*components, error) {
	c := &components{}

	var auditRepo core.AuditRepository
	if cfg.AuditDB != "" {
		db, err := data.InitDB(cfg.AuditDB)
		if err != nil {
			return nil, fmt.Errorf("init audit database: %w", err)
		}
		repo := data.NewAuditRepo(db)
		c.db = db
		c.sweep = startAuditSweep(repo, cfg.AuditRetention)
		auditRepo = repo
	} else {
		logger.Info.Println("Audit trail disabled")
	}

	authSvc := service.NewAuthService(cfg.APIKey)
	hostClient := service.NewHostClient(cfg.GrafanaURL, cfg.GrafanaToken, cfg.ForwardTimeout)
	datasource := service.NewDataSource(instanceSettings(cfg), hostClient, core.NewTemplateSrv(nil), auditRepo)
	if cfg.DatasourceUID == "" {
		logger.Info.Println("DATASOURCE_UID is not set; /api/ds/health will be unavailable")
	}
	logger.Info.Printf("Forwarding to %s, api key %s...", cfg.GrafanaURL, authSvc.KeyPrefix())

	c.limiter = api.NewRateLimiter(float64(cfg.RateLimitPerMinute), cfg.RateLimitBurst)
	c.handler = api.NewHandler(datasource, auditRepo, authSvc, c.limiter).Routes()
	return c, nil
}

// close stops background work and waits for it before the database goes away.
func (c *components) close() {
	if c.limiter != nil {
		c.limiter.Stop()
	}
	c.sweep.Stop()
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			logger.Error.Printf("Failed to close audit database: %v", err)
		}
	}
}

type auditPruner interface {
	DeleteBefore(cutoff time.Time) (int64, error)
}

type auditSweep struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startAuditSweep(repo auditPruner, retention time.Duration) *auditSweep {
	ctx, cancel := context.WithCancel(context.Background())
	s := &auditSweep{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		runAuditRetention(ctx, repo, retention)
	}()
	return s
}

// Stop cancels the sweep and returns once a running DeleteBefore has finished.
func (s *auditSweep) Stop() {
	if s == nil {
		return
	}
	s.cancel()
	<-s.done
}

// runAuditRetention deletes audit entries older than retention once at start
// and then hourly until ctx is done. A zero retention keeps everything.
func runAuditRetention(ctx context.Context, repo auditPruner, retention time.Duration) {
	if retention <= 0 {
		return
	}

	sweep := func() {
		n, err := repo.DeleteBefore(time.Now().Add(-retention))
		if err != nil {
			logger.Error.Printf("Audit retention sweep failed: %v", err)
			return
		}
		if n > 0 {
			logger.Info.Printf("Audit retention removed %d entries", n)
		}
	}

	sweep()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
