package cli

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/darved2305/VeriTextAI/internal/analysis"
	"github.com/darved2305/VeriTextAI/internal/config"
	"github.com/darved2305/VeriTextAI/internal/corpus"
	"github.com/darved2305/VeriTextAI/internal/corpus/redisindex"
	"github.com/darved2305/VeriTextAI/internal/db"
	"github.com/darved2305/VeriTextAI/internal/metrics"
	"github.com/darved2305/VeriTextAI/internal/workspace"
	"github.com/darved2305/VeriTextAI/pkg/logger"
)

// app holds everything one command needs. close releases it.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	corpus  *corpus.Resilient
	engine  *analysis.Engine
	checks  *db.CheckStore
	dataDir string

	conn    *sql.DB
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger.Named("veritext"),
		metrics: metrics.New(nil),
	}
	if err := a.init(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	dir, err := workspace.Ensure(a.cfg.Storage.DataDir)
	if err != nil {
		return err
	}
	a.dataDir = dir

	var inner corpus.Corpus
	switch a.cfg.Corpus.Backend {
	case "memory":
		inner = corpus.NewMemory()
	case "sqlite":
		conn, err := a.db()
		if err != nil {
			return err
		}
		inner = db.NewCorpusStore(conn)
	case "redis":
		idx, err := redisindex.New(ctx, redisindex.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
			Prefix:   a.cfg.Redis.Prefix,
		}, a.logger.Named("redis"))
		if err != nil {
			return err
		}
		a.closers = append(a.closers, idx.Close)
		inner = idx
	default:
		return fmt.Errorf("unknown corpus backend %q", a.cfg.Corpus.Backend)
	}

	cc := a.cfg.Corpus
	a.corpus = corpus.NewResilient(inner, corpus.ResilientConfig{
		Timeout:          time.Duration(cc.TimeoutMs) * time.Millisecond,
		MaxAttempts:      cc.MaxAttempts,
		FailureThreshold: cc.FailureThreshold,
		Cooldown:         time.Duration(cc.CooldownSec) * time.Second,
		RateLimit:        cc.RateLimit,
		Burst:            cc.Burst,
		Logger:           a.logger.Named("corpus"),
		OnError:          a.metrics.CorpusError,
	})

	if a.cfg.Storage.Persist {
		conn, err := a.db()
		if err != nil {
			return err
		}
		a.checks = db.NewCheckStore(conn)
	}

	rules, err := config.LoadRules(a.cfg.Rules.Path)
	if err != nil {
		return err
	}
	a.engine, err = analysis.New(analysis.Options{
		Corpus:                a.corpus,
		Rules:                 rules,
		GapTokens:             a.cfg.Engine.GapTokens,
		TolerateCorpusFailure: a.cfg.Engine.TolerateCorpusFailure,
		Logger:                a.logger.Named("analysis"),
		Metrics:               a.metrics,
	})
	return err
}

func (a *app) db() (*sql.DB, error) {
	if a.conn != nil {
		return a.conn, nil
	}
	conn, err := db.Open(workspace.DBPath(a.dataDir))
	if err != nil {
		return nil, err
	}
	a.conn = conn
	a.closers = append(a.closers, conn.Close)
	return conn, nil
}

func (a *app) timeout() time.Duration {
	return time.Duration(a.cfg.Engine.TimeoutSec) * time.Second
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
