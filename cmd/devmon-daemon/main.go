package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cptspacemanspiff/device-monitor/internal/config"
	dbussvc "github.com/cptspacemanspiff/device-monitor/internal/dbus"
	"github.com/cptspacemanspiff/device-monitor/internal/monitor"
	"github.com/cptspacemanspiff/device-monitor/internal/remote"
	"github.com/cptspacemanspiff/device-monitor/internal/storage"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the TOML configuration file")
	verbose := flag.Bool("verbose", false, "enable all verbose logging (equivalent to -log=all)")
	logFlag := flag.String("log", "", "comma-separated log topics: cpu,memory,network,disk,process,terminate,storage,sleep (or 'all')")
	resetDB := flag.Bool("reset-db", false, "delete the database and exit")
	once := flag.Bool("once", false, "sample twice, print the snapshot as JSON and exit")
	flag.Parse()

	handler := &topicHandler{
		inner:  slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}),
		topics: parseTopics(*logFlag, *verbose),
	}
	logger := slog.New(handler)

	terminateLog := logger.With("topic", "terminate")
	storageLog := logger.With("topic", "storage")
	sleepLog := logger.With("topic", "sleep")

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		logger.Error("load config", "path", *configPath, "err", err)
		os.Exit(1)
	}

	if *resetDB {
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if err := os.Remove(cfg.Storage.DBPath + suffix); err != nil && !os.IsNotExist(err) {
				logger.Error("delete database", "err", err)
				os.Exit(1)
			}
		}
		logger.Info("database deleted", "path", cfg.Storage.DBPath)
		return
	}

	ch, err := openChannel(cfg.Device)
	if err != nil {
		logger.Error("open device channel", "transport", cfg.Device.Transport, "err", err)
		os.Exit(1)
	}
	if c, ok := ch.(interface{ Close() error }); ok {
		defer c.Close()
	}

	queryTimeout := time.Duration(cfg.Collection.QueryTimeoutSeconds) * time.Second
	establishCtx, cancel := context.WithTimeout(context.Background(), 2*queryTimeout)
	err = remote.Establish(establishCtx, ch)
	cancel()
	if err != nil {
		logger.Error("device unreachable", "transport", cfg.Device.Transport, "err", err)
		os.Exit(1)
	}
	logger.Info("device connected", "transport", cfg.Device.Transport, "serial", cfg.Device.Serial, "host", cfg.Device.Host)

	var db *storage.DB
	if cfg.Storage.Enabled && !*once {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0755); err != nil {
			logger.Error("create data dir", "err", err)
			os.Exit(1)
		}
		db, err = storage.Open(cfg.Storage.DBPath)
		if err != nil {
			logger.Error("open database", "err", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	topN := cfg.Collection.TopProcesses
	sampler := monitor.NewSampler(ch, monitor.Options{
		Interval:        time.Duration(cfg.Collection.IntervalSeconds) * time.Second,
		QueryTimeout:    queryTimeout,
		HistoryCapacity: cfg.Collection.HistoryCapacity,
		DiskPath:        cfg.Collection.DiskPath,
		OnCycle: func(snap *monitor.Snapshot) {
			if db != nil {
				persist(db, snap, topN, storageLog)
			}
		},
	}, logger)

	if *once {
		ctx := context.Background()
		sampler.RunCycle(ctx)
		time.Sleep(sampler.Interval())
		out, err := json.MarshalIndent(sampler.RunCycle(ctx), "", "  ")
		if err != nil {
			logger.Error("encode snapshot", "err", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	terminator := monitor.NewTerminator(ch, queryTimeout, terminateLog)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	applyConfig := func(next *config.Config) {
		sampler.SetInterval(time.Duration(next.Collection.IntervalSeconds) * time.Second)
		if next.Device != cfg.Device || next.Storage != cfg.Storage ||
			next.Collection.DiskPath != cfg.Collection.DiskPath ||
			next.Collection.HistoryCapacity != cfg.Collection.HistoryCapacity ||
			next.Collection.QueryTimeoutSeconds != cfg.Collection.QueryTimeoutSeconds {
			logger.Warn("config change needs a restart to take full effect")
		}
	}

	svc := dbussvc.NewService(dbussvc.Options{
		Snapshots:      sampler.Store(),
		Terminator:     terminator,
		DB:             db,
		Config:         cfg,
		ConfigPath:     *configPath,
		OnConfigChange: applyConfig,
		Logger:         logger,
	})
	conn, err := svc.Export()
	if err != nil {
		logger.Warn("D-Bus service unavailable, running headless", "err", err)
	} else {
		defer conn.Close()
		logger.Info("D-Bus service registered", "name", "org.devmon.Monitor")
	}

	go func() {
		err := config.Watch(ctx, *configPath, logger, func(next *config.Config) {
			svc.SetConfig(next)
			applyConfig(next)
		})
		if err != nil {
			logger.Warn("config watch unavailable", "err", err)
		}
	}()

	// A host suspend leaves a gap the device kept counting through.
	sleepMon, err := dbussvc.NewSleepMonitor(sleepLog)
	if err != nil {
		logger.Warn("sleep monitor unavailable", "err", err)
	} else {
		defer sleepMon.Close()
		go func() {
			for {
				select {
				case <-sleepMon.Wake():
					sleepLog.Info("host resumed, resetting rate baselines")
					sampler.ResetBaselines()
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	if db != nil {
		go runCleanup(ctx, db, cfg.Cleanup, storageLog)
	}

	logger.Info("devmon-daemon started", "interval", sampler.Interval(), "query_timeout", queryTimeout)
	if err := sampler.Run(ctx); err != nil {
		logger.Error("sampler stopped", "err", err)
	}

	logger.Info("shutting down")
	waitCtx, cancelWait := context.WithTimeout(context.Background(), queryTimeout)
	defer cancelWait()
	if err := terminator.Wait(waitCtx); err != nil {
		terminateLog.Warn("pending termination requests abandoned", "err", err)
	}
}

func openChannel(d config.DeviceConfig) (remote.Channel, error) {
	switch d.Transport {
	case config.TransportADB:
		return remote.NewADB(d.ADBPath, d.Serial), nil
	case config.TransportSSH:
		return remote.NewSSH(remote.SSHOptions{
			Host:         d.Host,
			Port:         d.Port,
			User:         d.User,
			Password:     d.Password,
			IdentityFile: d.IdentityFile,
			KnownHosts:   d.KnownHosts,
		})
	case config.TransportLocal:
		return remote.NewLocal(), nil
	}
	return nil, fmt.Errorf("unknown transport %q", d.Transport)
}

func persist(db *storage.DB, snap *monitor.Snapshot, topN int, logger *slog.Logger) {
	sample, procs := storage.FromSnapshot(snap, topN)
	if err := db.InsertMetricSample(sample); err != nil {
		logger.Error("store metric sample", "err", err)
		return
	}
	if err := db.InsertProcessSamples(procs); err != nil {
		logger.Error("store process samples", "err", err)
		return
	}
	logger.Debug("stored", "cycle", snap.Cycle, "processes", len(procs), "stale", sample.Stale)
}

func runCleanup(ctx context.Context, db *storage.DB, cfg config.CleanupConfig, logger *slog.Logger) {
	ticker := time.NewTicker(time.Duration(cfg.IntervalHours) * time.Hour)
	defer ticker.Stop()

	for {
		cutoff := time.Now().Add(-time.Duration(cfg.RetentionDays) * 24 * time.Hour).Unix()
		if n, err := db.DeleteOlderThan(cutoff); err != nil {
			logger.Error("cleanup", "err", err)
		} else {
			logger.Info("cleanup", "deleted_rows", n, "retention_days", cfg.RetentionDays)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
