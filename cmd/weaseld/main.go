// weaseld hosts the session bridge: it owns the input engine, serves input
// method clients over a local socket and drives the candidate panel.
//
//	weaseld [-config weaseld.toml] [-socket path] [-panel none|terminal|web]
//	        [-listen addr] [-debug]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/godbus/dbus/v5"

	"weasel/internal/config"
	"weasel/internal/deployer"
	"weasel/internal/echo"
	"weasel/internal/ime"
	"weasel/internal/ipc"
	"weasel/internal/logging"
	"weasel/internal/metrics"
	"weasel/internal/panel"
	"weasel/internal/store"
)

// Version is set at build time.
var Version = "dev"

var (
	configPath = flag.String("config", "", "path to weaseld.toml")
	socketPath = flag.String("socket", "", "IPC socket path (overrides config)")
	panelKind  = flag.String("panel", "", "candidate panel: none, terminal or web")
	listenAddr = flag.String("listen", "", "web panel address (overrides config)")
	debug      = flag.Bool("debug", false, "enable debug logging")
	version    = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()
	if *version {
		fmt.Println("weaseld", Version)
		return
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "weaseld: %v\n", err)
		os.Exit(1)
	}
}

func loadSettings() (*config.Settings, error) {
	s, err := config.LoadSettings(*configPath)
	if err != nil {
		return nil, err
	}
	if *socketPath != "" {
		s.SocketPath = *socketPath
	}
	if *panelKind != "" {
		s.Panel.Kind = *panelKind
	}
	if *listenAddr != "" {
		s.Panel.Listen = *listenAddr
	}
	if *debug {
		s.Logging.Level = "debug"
	}
	// The terminal panel owns the tty.
	if s.Panel.Kind == config.PanelTerminal && s.Logging.Output != "file" {
		s.Logging.Output = "file"
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func newLogger(s *config.Settings) (*logging.Logger, error) {
	level, err := logging.ParseLevel(s.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(s.Logging.Format)
	if err != nil {
		return nil, err
	}
	return logging.New(&logging.Config{
		Level:     level,
		Format:    format,
		Output:    s.Logging.Output,
		FilePath:  s.Logging.FilePath,
		AddSource: *debug,
		Component: "weaseld",
	})
}

func run() error {
	settings, err := loadSettings()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	logger, err := newLogger(settings)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer logger.Close()
	logging.SetDefault(logger)

	crash := logging.NewCrashHandler(&logging.CrashHandlerConfig{
		CrashDir:  filepath.Join(settings.UserDataDir, "crashes"),
		Version:   Version,
		Component: "weaseld",
		Logger:    logger,
	})
	if err := crash.CleanupOldCrashReports(30 * 24 * time.Hour); err != nil {
		logger.Debug("cleanup crash reports", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	registry := metrics.NewRegistry("weasel")
	style := ime.DefaultStyle()
	ui, stopPanel, err := startPanel(ctx, cancel, settings, &style, registry, logger)
	if err != nil {
		return err
	}
	defer stopPanel()

	observer := ime.Observers{metrics.NewBridgeMetrics(registry)}
	if settings.Journal.Enabled {
		journal, err := store.Open(settings.Journal.Path, logger.WithComponent("journal").Logger)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer journal.Close()
		observer = append(observer, journal)
	}

	var srv *ipc.Server
	engine := echo.New(echo.Options{
		Logger: logger.WithComponent("engine").Logger,
		OnDeployed: func() {
			srv.Post(func(b *ime.Bridge) { b.EndMaintenance() })
		},
	})

	bridge := ime.New(ime.Options{
		Engine: engine,
		UI:     ui,
		Probe:  deployer.NewProbe(settings.UserDataDir),
		Traits: ime.Traits{
			SharedDataDir:        settings.SharedDataDir,
			UserDataDir:          settings.UserDataDir,
			DistributionName:     settings.Distribution.Name,
			DistributionCodeName: settings.Distribution.CodeName,
			DistributionVersion:  settings.Distribution.Version,
			AppName:              "weasel.weaseld",
		},
		Logger:   logger.WithComponent("bridge").Logger,
		Observer: observer,
	})

	cfg := ipc.DefaultServerConfig(settings.SocketPath)
	cfg.BufferSize = settings.BufferSize
	cfg.Logger = logger
	cfg.Crash = crash
	cfg.OnShutdown = cancel
	srv = ipc.NewServer(cfg, bridge)

	if err := srv.Do(func(b *ime.Bridge) { b.Initialize() }); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if err := srv.Start(); err != nil {
		srv.Do(func(b *ime.Bridge) { b.Finalize() })
		srv.Stop()
		return fmt.Errorf("start ipc server: %w", err)
	}

	if settings.DBus.Enabled {
		front, err := exportDBus(srv)
		if err != nil {
			logger.Warn("dbus front-end unavailable", "error", err)
		} else {
			defer front.Close()
		}
	}

	if settings.Watch.Enabled {
		w := config.NewWatcher(settings.UserDataDir, settings.Watch.Debounce(), func(name string) {
			logger.Info("user config changed", "file", name)
			srv.Post(func(b *ime.Bridge) {
				b.StartMaintenance()
				b.EndMaintenance()
			})
		})
		if err := w.Start(); err != nil {
			logger.Warn("config watcher unavailable", "dir", settings.UserDataDir, "error", err)
		} else {
			defer w.Close()
		}
	}

	logger.Info("weaseld started",
		"version", Version,
		"socket", srv.SocketPath(),
		"panel", settings.Panel.Kind,
		"log_level", settings.Logging.Level)
	<-ctx.Done()
	logger.Info("shutting down")

	if err := srv.Do(func(b *ime.Bridge) { b.Finalize() }); err != nil {
		logger.Warn("finalize", "error", err)
	}
	return srv.Stop()
}

func exportDBus(srv *ipc.Server) (*ipc.DBusFront, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	front := ipc.NewDBusFront(srv)
	if err := front.Export(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return front, nil
}

// startPanel builds the configured surface. The returned UI is nil for
// PanelNone.
func startPanel(ctx context.Context, quit func(), s *config.Settings, style *ime.UIStyle, registry *metrics.Registry, logger *logging.Logger) (ime.UI, func(), error) {
	switch s.Panel.Kind {
	case config.PanelTerminal:
		screen, err := tcell.NewScreen()
		if err != nil {
			return nil, nil, fmt.Errorf("create screen: %w", err)
		}
		if err := screen.Init(); err != nil {
			return nil, nil, fmt.Errorf("init screen: %w", err)
		}
		t := panel.NewTerminal(screen, style)
		go t.Run(ctx, quit)
		return t, screen.Fini, nil

	case config.PanelWeb:
		web := panel.NewWeb(style, logger.WithComponent("panel").Logger)
		mux := http.NewServeMux()
		mux.Handle("/", web.Handler())
		mux.Handle("GET /metrics", registry.HTTPHandler())
		server := &http.Server{
			Addr:              s.Panel.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("web panel stopped", "addr", s.Panel.Listen, "error", err)
			}
		}()
		logger.Info("web panel listening", "addr", s.Panel.Listen)
		stop := func() {
			web.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}
		return web, stop, nil
	}
	return nil, func() {}, nil
}
