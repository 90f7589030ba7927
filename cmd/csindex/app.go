package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	csaws "github.com/kailas-cloud/csindex/internal/cloudsearch/aws"
	"github.com/kailas-cloud/csindex/internal/config"
	dbRedis "github.com/kailas-cloud/csindex/internal/db/redis"
	"github.com/kailas-cloud/csindex/internal/metrics"
	"github.com/kailas-cloud/csindex/internal/registry"
	recordrepo "github.com/kailas-cloud/csindex/internal/repository/record"
	chiTransport "github.com/kailas-cloud/csindex/internal/transport/chi"
	healthuc "github.com/kailas-cloud/csindex/internal/usecase/health"
	lifecycleuc "github.com/kailas-cloud/csindex/internal/usecase/lifecycle"
	"github.com/kailas-cloud/csindex/internal/usecase/naming"
	pipelineuc "github.com/kailas-cloud/csindex/internal/usecase/pipeline"
	reconcileuc "github.com/kailas-cloud/csindex/internal/usecase/reconcile"
	recordsuc "github.com/kailas-cloud/csindex/internal/usecase/records"
	searchuc "github.com/kailas-cloud/csindex/internal/usecase/search"
)

// app is the composition root shared by every command.
type app struct {
	services chiTransport.Services
	store    *dbRedis.Store
	interval time.Duration
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterCloudSearchMetrics()

	cs := cfg.CloudSearch
	remote, err := csaws.New(ctx, csaws.Config{
		AccessKeyID:       cs.AccessKeyID,
		SecretAccessKey:   cs.SecretAccessKey,
		Region:            cs.Region,
		Endpoint:          cs.Endpoint,
		RequestsPerSecond: float64(cs.RequestsPerSecond),
	})
	if err != nil {
		return nil, fmt.Errorf("create cloudsearch client: %w", err)
	}

	reg := registry.New()
	for _, ic := range cfg.Indexes {
		def, err := ic.Definition()
		if err != nil {
			return nil, err
		}
		idx, err := registry.NewDeclaredIndex(def)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(idx); err != nil {
			return nil, err
		}
	}
	logger.Info("Registered indexes", zap.Int("count", len(cfg.Indexes)))

	interval := time.Duration(cs.SpinlockIntervalSec) * time.Second
	namer := naming.New(cs.DomainPrefix, cs.StrictDomainNames, logger)
	reconciler := reconcileuc.New(reg, namer, remote, logger)
	poller := lifecycleuc.NewPoller(interval, time.Duration(cs.MaxSpinlockSec)*time.Second, logger)
	pipeline := pipelineuc.New(reg, namer, reconciler, remote, pipelineuc.Config{
		PrepareSilently: cs.PrepareSilently,
		MaxBatchBytes:   cs.MaxBatchBytes,
	}, logger)

	a := &app{
		interval: interval,
		services: chiTransport.Services{
			Registry:   reg,
			Namer:      namer,
			Reconciler: reconciler,
			Lifecycle:  lifecycleuc.New(reg, namer, remote, reconciler, poller, logger),
			Pipeline:   pipeline,
			Search:     searchuc.New(reg, namer, reconciler, remote, cs.ParallelSearch, logger),
		},
	}

	// Pass a nil interface, not a typed nil pointer, when the store is disabled.
	var pinger healthuc.StorePinger
	if len(cfg.Records.Addrs) > 0 {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:       cfg.Records.Addrs,
			Password:    cfg.Records.Password,
			DialTimeout: time.Duration(cfg.Records.DialTimeoutSec) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("create record store: %w", err)
		}
		timeout := time.Duration(cfg.Records.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("record store not ready: %w", err)
		}
		logger.Info("Connected to record store", zap.Strings("addrs", cfg.Records.Addrs))

		a.store = store
		pinger = store
		a.services.Records = recordsuc.New(
			recordrepo.New(store, cfg.Records.KeyPrefix), reg, pipeline,
			recordsuc.Config{Realtime: cfg.Records.Realtime, SyncBatchSize: cfg.Records.SyncBatchSize},
			logger,
		)
	}
	a.services.Health = healthuc.New(remote, pinger)
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}
