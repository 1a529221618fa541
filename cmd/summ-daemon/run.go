package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/HexSleeves/summ-daemon/internal/config"
	"github.com/HexSleeves/summ-daemon/internal/fsys"
	"github.com/HexSleeves/summ-daemon/internal/handler"
	"github.com/HexSleeves/summ-daemon/internal/logger"
	"github.com/HexSleeves/summ-daemon/internal/multiplexer"
	"github.com/HexSleeves/summ-daemon/internal/supervisor"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daemon",
	RunE:  runDaemon,
}

func init() {
	runCmd.Flags().Bool("console", false, "mirror logs to a colored console (for direct/debug runs); default is file-only, for running under a service manager")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	handler.DaemonVersion = Version

	cfgManager := config.NewManager(cfgFile)
	cfg, err := cfgManager.Load()
	if err != nil {
		return err
	}

	verbose := viper.GetBool("verbose")
	console, _ := cmd.Flags().GetBool("console")
	quick := logger.Setup.Service
	if console {
		quick = logger.Setup.Foreground
	}
	logCfg := quick(cfg.BaseDir, verbose).
		WithLevel(cfg.Logging.Level).
		WithFile(cfg.Logging.File).
		WithMaxSize(cfg.Logging.MaxSizeMB)
	log, err := logCfg.Build()
	if err != nil {
		return err
	}
	defer log.Close()

	mux, err := multiplexer.New(cfg.Multiplexer.Backend, cfg.Multiplexer.Prefix, cfg.Multiplexer.MinVersion, log)
	if err != nil {
		return err
	}

	sup := supervisor.New(supervisor.Config{
		BaseDir:           cfg.BaseDir,
		Mux:               mux,
		FS:                fsys.OSFS{},
		Logger:            log,
		ReconcileInterval: cfg.ReconcileInterval,
		CleanupInterval:   cfg.CleanupInterval,
		Retention:         cfg.Retention,
		StaleThreshold:    cfg.StaleThreshold,
		MetricsEnabled:    cfg.Metrics.Enabled,
		MetricsAddr:       cfg.Metrics.ListenAddr,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return sup.Run(ctx)
}
