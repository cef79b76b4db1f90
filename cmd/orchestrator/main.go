package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/maios-ai/orchestrator/internal/api"
	"github.com/maios-ai/orchestrator/internal/artifact"
	"github.com/maios-ai/orchestrator/internal/catalog"
	"github.com/maios-ai/orchestrator/internal/config"
	"github.com/maios-ai/orchestrator/internal/engine"
	"github.com/maios-ai/orchestrator/internal/store"
	"github.com/maios-ai/orchestrator/internal/worker"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     config.ServiceName,
		Short:   "Orchestration execution engine",
		Long:    "Accepts intents over HTTP, decomposes them into task plans, and executes them asynchronously with pollable progress.",
		Version: config.ServiceVersion,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		listenAddr       string
		dbPath           string
		workflowsPath    string
		executionTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the orchestration HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()

			// Flags override the environment.
			if cmd.Flags().Changed("listen") {
				cfg.ListenAddr = listenAddr
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			if cmd.Flags().Changed("workflows") {
				cfg.WorkflowsPath = workflowsPath
			}
			if cmd.Flags().Changed("execution-timeout") {
				cfg.ExecutionTimeout = executionTimeout
			}

			return serve(cfg)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", ":8080", "address to listen on")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (empty = in-memory store)")
	cmd.Flags().StringVar(&workflowsPath, "workflows", "", "YAML file with additional workflow definitions")
	cmd.Flags().DurationVar(&executionTimeout, "execution-timeout", engine.DefaultExecutionTimeout, "wall-clock budget per execution")

	return cmd
}

func serve(cfg config.Config) error {
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("starting",
		"service", config.ServiceName,
		"version", config.ServiceVersion,
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
	)

	var (
		s   store.Store
		err error
	)
	if cfg.DBPath != "" {
		s, err = store.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
	} else {
		s = store.NewMemoryStore()
	}
	defer s.Close()

	cat := catalog.New()
	if cfg.WorkflowsPath != "" {
		if err := cat.LoadFile(afero.NewOsFs(), cfg.WorkflowsPath); err != nil {
			return fmt.Errorf("load workflows: %w", err)
		}
		logger.Info("workflows loaded", "path", cfg.WorkflowsPath, "workflows", cat.Workflows())
	}

	workers := worker.NewRegistry(worker.Simulated{})

	eng := engine.NewEngine(s, cat, workers, artifact.NewReportGenerator(), logger)
	eng.SetExecutionTimeout(cfg.ExecutionTimeout)

	srv := api.NewServer(cfg.ListenAddr, s, cat, workers, eng, logger)
	return srv.Run()
}
