package jobs

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// PoolStats logs connection pool usage for the database and the cache.
// Either source may be nil.
type PoolStats struct {
	db    func() sql.DBStats
	redis func() *redis.PoolStats
	log   *logrus.Logger
}

func NewPoolStats(db func() sql.DBStats, redis func() *redis.PoolStats, log *logrus.Logger) *PoolStats {
	return &PoolStats{db: db, redis: redis, log: log}
}

func (p *PoolStats) Name() string { return "pool_stats" }

func (p *PoolStats) Run(ctx context.Context) error {
	if p.db != nil {
		s := p.db()
		p.log.WithFields(logrus.Fields{
			"pool":          "postgres",
			"open":          s.OpenConnections,
			"in_use":        s.InUse,
			"idle":          s.Idle,
			"wait_count":    s.WaitCount,
			"wait_duration": s.WaitDuration.String(),
		}).Info("connection pool stats")
	}
	if p.redis != nil {
		if s := p.redis(); s != nil {
			p.log.WithFields(logrus.Fields{
				"pool":        "redis",
				"hits":        s.Hits,
				"misses":      s.Misses,
				"timeouts":    s.Timeouts,
				"total_conns": s.TotalConns,
				"idle_conns":  s.IdleConns,
			}).Info("connection pool stats")
		}
	}
	return nil
}
