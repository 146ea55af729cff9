package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/qna/internal/config"
	"github.com/alfredjeanlab/qna/internal/events"
	"github.com/alfredjeanlab/qna/internal/feed"
	"github.com/alfredjeanlab/qna/internal/identity"
	"github.com/alfredjeanlab/qna/internal/idgen"
	"github.com/alfredjeanlab/qna/internal/presence"
	"github.com/alfredjeanlab/qna/internal/server"
	"github.com/alfredjeanlab/qna/internal/store"
	"github.com/alfredjeanlab/qna/internal/store/memory"
	"github.com/alfredjeanlab/qna/internal/store/postgres"
	qnasync "github.com/alfredjeanlab/qna/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the qna HTTP and gRPC server",
	GroupID: "system",
	// Override PersistentPreRunE so we don't create a client connection.
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		// Load configuration.
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// Open the store.
		var st store.Store
		if cfg.DatabaseURL != "" {
			dbCtx, dbCancel := context.WithTimeout(cmd.Context(), time.Minute)
			pg, err := postgres.New(dbCtx, cfg.DatabaseURL)
			dbCancel()
			if err != nil {
				return err
			}
			st = pg
			logger.Info("using postgres store")
		} else {
			st = memory.New()
			logger.Warn("QNA_DATABASE_URL not set, questions are kept in memory only")
		}

		// Identity registry and token issuer.
		var registry identity.Registry = identity.NoopRegistry{}
		var redisRegistry *identity.RedisRegistry
		if cfg.RedisURL != "" {
			redisRegistry, err = identity.NewRedisRegistry(cfg.RedisURL)
			if err != nil {
				st.Close()
				return err
			}
			if err := redisRegistry.Ping(cmd.Context()); err != nil {
				logger.Warn("redis not reachable yet", "err", err)
			}
			registry = redisRegistry
			logger.Info("identity registry enabled", "redis_url", cfg.RedisURL)
		}
		issuer, err := identity.NewIssuer([]byte(cfg.TokenSecret), cfg.TokenTTL, registry)
		if err != nil {
			st.Close()
			return err
		}
		if cfg.AdminUID == "" {
			logger.Warn("QNA_ADMIN_UID not set, nobody can answer questions")
		}

		// Instance tag on published changes.
		host, _ := os.Hostname()
		origin := idgen.Instance(host)

		// Live feed.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		hub := feed.NewHub()
		syncer := feed.NewSyncer(st, hub,
			feed.WithLogger(logger),
			feed.WithResyncInterval(cfg.ResyncInterval),
			feed.WithOrigin(origin),
		)
		syncerDone := make(chan struct{})
		go func() {
			defer close(syncerDone)
			if err := syncer.Run(ctx); err != nil {
				logger.Error("feed syncer error", "err", err)
			}
		}()

		// Event bus: announce our writes, reload on everyone else's.
		var publisher events.Publisher = &events.Noop{}
		if cfg.NATSURL != "" {
			bus, err := events.Dial(cfg.NATSURL, logger, nats.ReconnectHandler(func(nc *nats.Conn) {
				// Changes published while we were away are lost.
				logger.Info("event bus reconnected, resyncing", "url", nc.ConnectedUrl())
				syncer.Resync()
			}))
			if err != nil {
				cancel()
				<-syncerDone
				st.Close()
				return err
			}
			publisher = bus
			go func() {
				if err := syncer.Watch(ctx, bus); err != nil {
					logger.Error("event bus watch error", "err", err)
				}
			}()
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			logger.Info("events disabled (QNA_NATS_URL not set)")
		}

		tracker := presence.New()
		tracker.StartReaper(&presence.ReaperConfig{
			OnEvict: func(uid string) { logger.Debug("viewer evicted", "uid", uid) },
		})

		// Create server components.
		qnaServer, err := server.NewQnAServer(server.Config{
			Store:     st,
			Publisher: publisher,
			Hub:       hub,
			Notifier:  syncer,
			Issuer:    issuer,
			Presence:  tracker,
			AdminUID:  cfg.AdminUID,
			Lang:      cfg.UILang,
			Origin:    origin,
			Logger:    logger,
		})
		if err != nil {
			cancel()
			publisher.Close()
			st.Close()
			return err
		}
		grpcServer := server.NewGRPCServer(qnaServer)

		// Start gRPC listener.
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			cancel()
			publisher.Close()
			st.Close()
			return err
		}

		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		// Start HTTP server. Request contexts are cancelled when shutdown
		// begins so open SSE streams end.
		reqCtx, stopRequests := context.WithCancel(context.Background())
		defer stopRequests()
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           qnaServer.NewHTTPHandler(),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return reqCtx },
		}
		httpServer.RegisterOnShutdown(stopRequests)

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// Start backup scheduler if any destinations are configured.
		var scheduler *qnasync.Scheduler
		if cfg.BackupEnabled() {
			var dests []qnasync.Destination

			if cfg.BackupS3Bucket != "" {
				s3Dest, err := qnasync.NewS3Destination(
					context.Background(),
					cfg.BackupS3Bucket,
					cfg.BackupS3Key,
					cfg.BackupS3Region,
					cfg.BackupS3Endpoint,
				)
				if err != nil {
					logger.Error("failed to create S3 backup destination", "err", err)
				} else {
					dests = append(dests, s3Dest)
					logger.Info("backup S3 destination enabled", "bucket", cfg.BackupS3Bucket, "key", cfg.BackupS3Key)
				}
			}

			if cfg.BackupGitRepo != "" {
				gitDest := qnasync.NewGitDestination(cfg.BackupGitRepo, cfg.BackupGitFile, cfg.BackupGitBranch)
				dests = append(dests, gitDest)
				logger.Info("backup git destination enabled", "repo", cfg.BackupGitRepo, "file", cfg.BackupGitFile)
			}

			if len(dests) > 0 {
				scheduler = qnasync.NewScheduler(st, dests, cfg.BackupInterval, logger)
				scheduler.Start()
				logger.Info("backup scheduler started", "interval", cfg.BackupInterval)
			}
		}

		// Log startup info.
		logger.Info("qna server started",
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
			"lang", cfg.UILang,
			"origin", origin,
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		// Graceful shutdown.
		if scheduler != nil {
			scheduler.Stop()
			logger.Info("backup scheduler stopped")
		}

		// Watch streams never finish on their own.
		grpcStopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(grpcStopped)
		}()
		select {
		case <-grpcStopped:
		case <-time.After(5 * time.Second):
			grpcServer.Stop()
		}
		logger.Info("gRPC server stopped")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		cancel()
		<-syncerDone
		tracker.Stop()
		if redisRegistry != nil {
			if err := redisRegistry.Close(); err != nil {
				logger.Error("error closing identity registry", "err", err)
			}
		}
		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}
