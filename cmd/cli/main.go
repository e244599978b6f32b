package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"streamkv/config"
	"streamkv/pkg/conn"
	"streamkv/pkg/health"
	"streamkv/pkg/operator"
	"streamkv/pkg/ops"
	"streamkv/storage"
)

var configFile string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "streamkv",
		Short: "streamkv - connection-resilient key-value access for record pipelines",
		Long:  `streamkv puts and gets records against a remote key-value store, surviving store outages without losing liveness`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "streamkv.properties", "Path to the store configuration file")

	// Add subcommands
	rootCmd.AddCommand(putCmd())
	rootCmd.AddCommand(getCmd())
	rootCmd.AddCommand(pipelineCmd())
	rootCmd.AddCommand(healthCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runtime wires the operator stack from configuration. A missing or invalid
// config file is the one fatal startup condition; an unreachable store is
// not, the manager just starts down.
type runtime struct {
	cfg     *config.Config
	manager *conn.Manager
	exec    *ops.Executor
	put     *operator.Put
	get     *operator.Get
}

func newRuntime() (*runtime, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}

	if cfg.Logging.Prefix != "" {
		log.SetPrefix(cfg.Logging.Prefix + " ")
	}

	dial, err := storage.OpenDialer(cfg.Store)
	if err != nil {
		return nil, err
	}

	manager := conn.NewManager(dial, conn.Policy{
		RetryInterval: cfg.Reconnect.RetryInterval(),
		MaxInterval:   cfg.Reconnect.MaxInterval(),
		DialTimeout:   cfg.Store.DialTimeout(),
	})
	exec := ops.NewExecutor(manager, cfg.Store.OpTimeout())

	return &runtime{
		cfg:     cfg,
		manager: manager,
		exec:    exec,
		put:     operator.NewPut(exec, cfg.Operator, health.Default),
		get:     operator.NewGet(exec, cfg.Operator, health.Default),
	}, nil
}

func (r *runtime) Close() {
	r.manager.Close()
}
