// Rune-indexd is the code-context engine daemon: it indexes one or more
// workspaces and answers search tool calls over MCP stdio.
//
// Usage:
//
//	# Index the current directory with defaults
//	rune-indexd
//
//	# Index a specific workspace with a config file
//	rune-indexd --workspace /src/project --config ~/.config/rune/config.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coderune/rune/internal/config"
	"github.com/coderune/rune/internal/engine"
	"github.com/coderune/rune/internal/logging"
	"github.com/coderune/rune/pkg/tools"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		workspace  string
		cacheDir   string
		logLevel   string
	)

	root := &cobra.Command{
		Use:          "rune-indexd",
		Short:        "Code-context engine serving search tools over MCP stdio",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath, workspace, cacheDir, logLevel)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to config.yaml (default ~/.config/rune/config.yaml)")
	root.Flags().StringVar(&workspace, "workspace", "", "workspace root to index (overrides config)")
	root.Flags().StringVar(&cacheDir, "cache-dir", "", "on-disk cache directory (overrides config)")
	root.Flags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(*cobra.Command, []string) {
			fmt.Printf("rune-indexd %s (%s)\n", version, gitCommit)
		},
	})
	return root
}

func run(ctx context.Context, configPath, workspace, cacheDir, logLevel string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if workspace != "" {
		cfg.Workspace = config.WorkspaceConfig{Root: workspace}
		cfg.ApplyDefaults()
	}
	if cacheDir != "" {
		cfg.Storage.Dir = cacheDir
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng := engine.New(log)
	if err := eng.Initialize(ctx, cfg); err != nil {
		return err
	}
	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := eng.Stop(context.Background()); err != nil {
			log.Error(context.Background(), "shutdown incomplete", zap.Error(err))
		}
	}()

	server, err := tools.NewServer(tools.Config{Name: "rune", Version: version}, eng)
	if err != nil {
		return err
	}

	log.Info(ctx, "serving tool calls over stdio", zap.String("version", version))
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// newLogger builds the daemon logger. Output goes to stderr: stdout
// carries the MCP stdio frames.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := logging.NewDefaultConfig()
	logCfg.Output.Stdout = false
	logCfg.Output.Stderr = true
	logCfg.Format = cfg.Logging.Format

	if cfg.Logging.Level != "" {
		level, err := logging.LevelFromString(cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		logCfg.Level = level
	}
	return logging.NewLogger(logCfg, nil)
}
