package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/filestore/internal/server/cache"
	"github.com/dmitrijs2005/filestore/internal/server/health"
	"github.com/dmitrijs2005/filestore/internal/server/repositories/repomanager"
)

// Report is the combined liveness status. Each field holds the probe time
// in seconds or common.NotAvailable.
type Report struct {
	DB    any `json:"db"`
	Cache any `json:"cache"`
}

type HealthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       cache.Store
	timeout     time.Duration
}

func NewHealthService(db *sql.DB, m repomanager.RepositoryManager, store cache.Store, timeout time.Duration) *HealthService {
	return &HealthService{db: db, repomanager: m, store: store, timeout: timeout}
}

// Check probes the catalog and the cache concurrently. It never fails.
func (s *HealthService) Check(ctx context.Context) Report {
	dbCheck := health.BoolCheck(s.repomanager.Files(s.db).HealthCheck)
	cacheCheck := health.CheckFunc(s.store.Ping)

	var r Report
	done := make(chan struct{})
	go func() {
		r.Cache = health.Probe(ctx, cacheCheck, s.timeout)
		close(done)
	}()
	r.DB = health.Probe(ctx, dbCheck, s.timeout)
	<-done
	return r
}
