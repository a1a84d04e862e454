package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"voxelrealm/internal/config"
	"voxelrealm/internal/obslog"
	"voxelrealm/internal/persistence/snapshot"
	"voxelrealm/internal/wiring"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address")
		serverID    = flag.String("server_id", "server-1", "server identifier reported to clients")
		configPath  = flag.String("config", "./configs/server.yaml", "path to server config")
		logLevel    = flag.String("log_level", "info", "log level: debug, info, warn, error")
		dev         = flag.Bool("dev", false, "use development log encoding")
		snapshotArg = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest  = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if -snapshot is empty")
	)
	flag.Parse()

	logger, err := obslog.New(*logLevel, *dev)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	graph, err := wiring.InitializeGraph(cfg, logger, *serverID)
	if err != nil {
		logger.Fatal("wire graph", zap.Error(err))
	}
	defer graph.Index.Close()

	snapshotDir := filepath.Join(cfg.DataDirectory, "snapshots")
	snapshotToLoad := *snapshotArg
	if snapshotToLoad == "" && *loadLatest {
		if latest, err := snapshot.LatestPath(snapshotDir); err != nil {
			logger.Warn("find latest snapshot", zap.Error(err))
		} else {
			snapshotToLoad = latest
		}
	}
	if snapshotToLoad != "" {
		doc, err := snapshot.Load(snapshotToLoad)
		if err != nil {
			logger.Fatal("load snapshot", zap.String("path", snapshotToLoad), zap.Error(err))
		}
		if err := snapshot.Restore(doc, graph.Store, graph.Layers, graph.Catalog); err != nil {
			logger.Fatal("restore snapshot", zap.String("path", snapshotToLoad), zap.Error(err))
		}
		logger.Info("resumed from snapshot", zap.String("path", snapshotToLoad), zap.Int("entities", len(doc.Entities)))
	}

	ctx, cancel := signalContext()
	defer cancel()

	// The simulation loop and the auto-save ticker are supervised
	// together: either one failing hard cancels the group so the
	// process shuts down instead of limping along half-alive.
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := graph.Process.Run(groupCtx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	})
	group.Go(func() error {
		runAutoSave(groupCtx, cfg, graph, *serverID, logger)
		return nil
	})

	mux := http.NewServeMux()
	graph.Admin.Register(mux)
	mux.HandleFunc("/v1/ws", graph.WS.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", zap.String("addr", *addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("listen and serve", zap.Error(err))
	}
	cancel()

	if err := group.Wait(); err != nil {
		logger.Error("background task group stopped with error", zap.Error(err))
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func runAutoSave(ctx context.Context, cfg config.Config, graph *wiring.Graph, serverID string, logger *zap.Logger) {
	ticker := time.NewTicker(cfg.AutoSaveInterval())
	defer ticker.Stop()

	dir := filepath.Join(cfg.DataDirectory, "snapshots")
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			var doc snapshot.DocumentV1
			graph.Process.Query(func() {
				doc = snapshot.Capture(serverID, graph.Store, graph.Layers, graph.Catalog)
			})
			path := filepath.Join(dir, now.UTC().Format("20060102-150405")+".json.zst")
			if err := snapshot.Save(path, doc); err != nil {
				logger.Error("auto-save snapshot", zap.Error(err))
				continue
			}
			graph.Index.RecordSnapshot(path, len(doc.Entities), len(doc.Layers), now)
			logger.Info("auto-saved snapshot", zap.String("path", path), zap.Int("entities", len(doc.Entities)))
		}
	}
}
