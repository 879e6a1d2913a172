package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"royale-audit/internal/cache"
	"royale-audit/internal/config"
	"royale-audit/internal/logger"
	"royale-audit/internal/metrics"
	"royale-audit/internal/pipeline"
	"royale-audit/internal/report"
	"royale-audit/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const programName = "royale-audit"

var globalFlags = struct {
	configFile string
	debug      bool
}{}

// app holds everything one command needs, built once from the config.
type app struct {
	cfg      *config.Config
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	store    *cache.Store
	acquirer *pipeline.Acquirer
	runner   *pipeline.Runner

	// reloader is set when templates come from a directory.
	reloader *report.ReloadingRenderer
}

func newApp(cfg *config.Config, live bool) (*app, error) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	store, err := cache.Open(cfg, m)
	if err != nil {
		return nil, err
	}

	var src pipeline.Source
	if live {
		src = service.NewClient(cfg.API.BaseURL, cfg.API.Key, cfg.API.Timeout, m)
	}
	pager := service.NewPaginator(cfg.API.PageSize, cfg.API.MaxPages, cfg.API.PageDelay)
	acq := pipeline.NewAcquirer(src, store, pager, cfg.Clan.Tag, cfg.Cache.TTL)

	var (
		renderer report.Renderer
		reloader *report.ReloadingRenderer
	)
	if cfg.Report.TemplatesDir != "" {
		reloader, err = report.NewReloadingRenderer(cfg.Report.TemplatesDir)
		renderer = reloader
	} else {
		renderer, err = report.NewTemplateRenderer("")
	}
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		registry: reg,
		metrics:  m,
		store:    store,
		acquirer: acq,
		reloader: reloader,
		runner: &pipeline.Runner{
			Acquirer: acq,
			Renderer: renderer,
			Pages:    cfg.Report.Pages,
			OutDir:   cfg.Report.OutputDir,
			TopN:     cfg.Report.TopPlayers,
			Metrics:  m,
		},
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("cache.close_failed", "err", err)
	}
}

func loadedConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, errors.New("no config found in context")
	}
	return cfg, nil
}

// setup initializes logging, validates the config and builds the app for one command.
func setup(cmd *cobra.Command, live bool) (*app, error) {
	cfg, err := loadedConfig(cmd)
	if err != nil {
		return nil, err
	}
	if globalFlags.debug {
		cfg.Log.Level = "debug"
	}
	logger.Init(cfg.Log)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if live {
		if err := cfg.RequireAPIKey(); err != nil {
			return nil, err
		}
	}
	return newApp(cfg, live)
}

func runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Load fresh cache or fetch live data, audit and render all pages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return batch(cmd, pipeline.ModeCached)
		},
	}
}

func renderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Render all pages from cached data only",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return batch(cmd, pipeline.ModeOffline)
		},
	}
}

func batch(cmd *cobra.Command, mode pipeline.Mode) error {
	a, err := setup(cmd, mode != pipeline.ModeOffline)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("=== generation start ===", "mode", mode.String(), "clan", a.cfg.Clan.Tag)
	s, err := a.runner.Run(cmd.Context(), mode)
	if err != nil {
		return err
	}
	logger.Info("=== generation complete ===",
		"rendered", s.Rendered, "failed", s.Failed,
		"danger", s.Stats.Danger, "warning", s.Stats.Warning, "on_track", s.Stats.OnTrack)
	return nil
}

func fetchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch clan, current war and the full war log into the cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			logger.Info("=== fetch start ===", "clan", a.cfg.Clan.Tag)
			ds, err := a.acquirer.Acquire(cmd.Context(), pipeline.ModeRefresh)
			if err != nil {
				return err
			}
			logger.Info("=== fetch complete ===",
				"members", len(ds.Clan.MemberList), "war", ds.War != nil, "wars", len(ds.WarLog))
			return nil
		},
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Clan war deck audit and static report generator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(globalFlags.configFile)
			if err != nil {
				return err
			}
			cmd.SetContext(config.WithContext(cmd.Context(), cfg))
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&globalFlags.configFile, "config", "", "config file path (e.g. etc/royale-audit.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")

	rootCmd.AddCommand(runCommand())
	rootCmd.AddCommand(fetchCommand())
	rootCmd.AddCommand(renderCommand())
	rootCmd.AddCommand(serveCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}
