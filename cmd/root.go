package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"coderag/internal/config"
	"coderag/internal/embedder"
	"coderag/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagRoot     string
	flagStore    string
	flagBackend  string
	flagProvider string
	flagModel    string
	flagOllama   string
	flagLogLevel string
)

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "coderag",
	Short:         "Index a Python codebase and answer questions about it with retrieval",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd, args)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default <root>/.coderag/config.toml)")
	pf.StringVar(&flagRoot, "root", ".", "project root")
	pf.StringVar(&flagStore, "store", "", "store artifact path (default <root>/.coderag/index.gob)")
	pf.StringVar(&flagBackend, "backend", "", "store backend: gob or sqlite (default from the store extension)")
	pf.StringVar(&flagProvider, "provider", "", "embedding provider: ollama, openai, hash or none")
	pf.StringVar(&flagModel, "model", "", "embedding model")
	pf.StringVar(&flagOllama, "ollama", "", "ollama base URL")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn or error")
}

// loadConfig layers defaults, the config file, .env, CODERAG_* variables and
// flags, then installs the logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	root, err := commandRoot(cmd, args)
	if err != nil {
		return err
	}

	path, required := flagConfig, true
	if path == "" {
		path, required = filepath.Join(root, config.DefaultStorageDir, "config.toml"), false
	}
	c, err := config.Load(path, required)
	if err != nil {
		return err
	}
	if err := config.LoadDotEnv(root); err != nil {
		return err
	}
	c.ApplyEnvOverrides()

	pf := cmd.Flags()
	if pf.Changed("store") {
		c.StorePath = flagStore
	}
	if pf.Changed("backend") {
		c.Backend = flagBackend
	}
	if pf.Changed("provider") {
		c.Embedding.Provider = flagProvider
	}
	if pf.Changed("model") {
		c.Embedding.Model = flagModel
	}
	if pf.Changed("ollama") {
		c.Embedding.OllamaURL = flagOllama
		c.Chat.OllamaURL = flagOllama
	}
	if pf.Changed("log-level") {
		c.LogLevel = flagLogLevel
	}

	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cfg = c
	logger = cfg.NewLogger()
	slog.SetDefault(logger)
	return nil
}

// rootArgAnnotation marks commands whose optional first argument is the
// project root.
const rootArgAnnotation = "root-arg"

// commandRoot returns the absolute project root: the first argument for
// commands annotated with rootArgAnnotation, --root otherwise.
func commandRoot(cmd *cobra.Command, args []string) (string, error) {
	root := flagRoot
	if cmd.Annotations[rootArgAnnotation] == "true" && len(args) > 0 {
		root = args[0]
	}
	return filepath.Abs(root)
}

// openStore opens the index for root. When no embedding provider is usable
// the store is opened degraded.
func openStore(root string) (*store.Index, error) {
	var enc store.Embedder
	e, err := embedder.New(cfg.Embedding, logger)
	switch {
	case errors.Is(err, embedder.ErrNoProvider):
		logger.Info("embeddings disabled", "provider", cfg.Embedding.Provider)
	case err != nil:
		logger.Warn("embedding provider unavailable, continuing without embeddings", "error", err)
	default:
		enc = e
	}

	opts := []store.Option{store.WithLogger(logger)}
	if cfg.Backend != "" {
		opts = append(opts, store.WithBackend(cfg.Backend))
	}
	st, err := store.Open(cfg.ResolveStorePath(root), enc, opts...)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}
