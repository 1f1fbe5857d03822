package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ucpllm/internal/config"
	"ucpllm/internal/logging"
	"ucpllm/internal/protocol"
	"ucpllm/internal/schema"
	"ucpllm/internal/store"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Logger
	logger *zap.Logger
)

// rootCmd runs the interactive interview.
var rootCmd = &cobra.Command{
	Use:   "ucp [document.json]",
	Short: "UCP-LLM - build a User Context Protocol through a guided interview",
	Long: `ucp interviews you section by section and produces a User Context
Protocol: a structured profile you paste into a language model so it knows
who it is talking to.

Run without arguments to start or resume an interview. Pass a document path
to resume that document directly.`,
	Args: cobra.MaximumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The interview owns the terminal; console logging would tear the UI.
		if cmd == cmd.Root() {
			logger = zap.NewNop()
			return nil
		}

		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: runInterview,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file")

	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// environment is what every command needs: config, catalog, renderer and store.
type environment struct {
	cfg      *config.Config
	cat      *schema.Catalog
	renderer *protocol.Renderer
	store    *store.Store
}

func setup() (*environment, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	if err := logging.Initialize(cfg.Logging.Directory, logging.Options{
		DebugMode:  cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		Categories: cfg.Logging.Categories,
	}); err != nil {
		logger.Warn("File logging disabled", zap.Error(err))
	}

	var cat *schema.Catalog
	if cfg.Interview.CatalogPath != "" {
		cat, err = schema.Load(cfg.Interview.CatalogPath)
	} else {
		cat, err = schema.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	logging.Boot("catalog %s loaded: %d sections, %d invented questions", cat.Version, len(cat.Sections), len(cat.Invented))

	env := &environment{
		cfg:      cfg,
		cat:      cat,
		renderer: protocol.NewRenderer(cat, protocol.WithAppName(cfg.Render.AppName)),
	}

	var history *store.SnapshotStore
	if cfg.Storage.Snapshots {
		history, err = store.NewSnapshotStore(cfg.Storage.SnapshotDB)
		if err != nil {
			logger.Warn("Snapshot history unavailable", zap.String("path", cfg.Storage.SnapshotDB), zap.Error(err))
			history = nil
		}
	}
	env.store = store.New(cat, store.NewFileStore(cfg.Storage.DocumentsDir), history)
	env.store.Keep = cfg.Storage.Keep
	return env, nil
}

func (e *environment) Close() {
	if e.store.History != nil {
		_ = e.store.History.Close()
	}
}

// openHistory returns the snapshot store, opening it even when snapshots
// are switched off for new saves.
func (e *environment) openHistory() (*store.SnapshotStore, error) {
	if e.store.History != nil {
		return e.store.History, nil
	}
	if _, err := os.Stat(e.cfg.Storage.SnapshotDB); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no snapshot history at %s", e.cfg.Storage.SnapshotDB)
	}
	h, err := store.NewSnapshotStore(e.cfg.Storage.SnapshotDB)
	if err != nil {
		return nil, err
	}
	e.store.History = h
	return h, nil
}
