package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stratus-data/stratus/pkg/api"
	"github.com/stratus-data/stratus/pkg/config"
	"github.com/stratus-data/stratus/pkg/logger"
	"github.com/stratus-data/stratus/pkg/warehouse"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var configPath string
	var logLevel string

	root := &cobra.Command{
		Use:   "stratus",
		Short: "Stratus - Configuration and dashboard service for the Tasty Bytes weather pipeline",
		Long: `Stratus manages the YAML configuration of the Tasty Bytes weather/sales
pipeline and serves its dashboard data from Snowflake. It validates data
quality thresholds, edits configuration values in place, and exposes the
daily weather and sales metrics over HTTP.`,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the pipeline configuration file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Stratus v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long:  "Write the default configuration document to the configured path, overwriting any existing file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteDefaultDocument(configPath); err != nil {
				return err
			}
			fmt.Printf("wrote default configuration to %s\n", configPath)
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Print a summary of the loaded configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore(configPath, logLevel)
			if err != nil {
				return err
			}
			return printJSON(store.Summary())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate data quality thresholds",
		Long:  "Check every data quality rule's threshold against its rule type's valid range. Exits non-zero if any rule is invalid.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore(configPath, logLevel)
			if err != nil {
				return err
			}

			results := store.ValidateThresholds()
			invalid := 0
			for _, rule := range store.DataQualityRules() {
				status := "ok"
				if !results[rule.Name] {
					status = "invalid"
					invalid++
				}
				fmt.Printf("  %-30s %-14s threshold=%-8g %s\n", rule.Name, rule.Type, rule.Threshold, status)
			}
			if invalid > 0 {
				return fmt.Errorf("%d data quality rule(s) have invalid thresholds", invalid)
			}
			fmt.Println("all thresholds valid")
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "get <section.key>",
		Short: "Read a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore(configPath, logLevel)
			if err != nil {
				return err
			}

			section, key, err := config.ParseKeyPath(args[0])
			if err != nil {
				return err
			}
			value, err := store.Get(section, key)
			if err != nil {
				return err
			}
			return printJSON(value)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "set <section.key> <value>",
		Short: "Update a configuration value and persist the file",
		Long: `Update a single configuration value and write the whole document back
to disk. The value is parsed as a bool, integer, or float where possible,
and stored as a string otherwise.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore(configPath, logLevel)
			if err != nil {
				return err
			}

			section, key, err := config.ParseKeyPath(args[0])
			if err != nil {
				return err
			}
			if err := store.UpdateConfig(section, key, parseScalar(args[1])); err != nil {
				return err
			}
			fmt.Printf("set %s.%s = %s\n", section, key, args[1])
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Verify warehouse connectivity",
		Long:  "Resolve connection parameters from the environment and open a test connection to Snowflake.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore(configPath, logLevel)
			if err != nil {
				return err
			}

			params, err := store.ConnectionParams()
			if err != nil {
				return err
			}

			log, err := logger.New(loggerConfig(logLevel))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			client, err := warehouse.Connect(ctx, params, log)
			if err != nil {
				return err
			}
			defer client.Close()

			fmt.Printf("connected to %s as %s\n", params["account"], params["user"])
			return nil
		},
	})

	var addr string
	var source string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve dashboard data over HTTP",
		Long: `Start the HTTP API serving the daily weather and sales metrics from
Snowflake, along with configuration and Prometheus metrics endpoints.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore(configPath, logLevel)
			if err != nil {
				return err
			}
			return serve(store, addr, source, logLevel)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", api.DefaultAddr, "Listen address")
	serveCmd.Flags().StringVar(&source, "source", "weather_data", "Default data source served when requests name none")
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadStore opens the configuration file with a logger at the given
// level. If loading fails it reports the error, writes the default
// document, and retries once.
func loadStore(path, level string) (*config.Store, error) {
	var opts []config.Option
	if log, err := logger.New(loggerConfig(level)); err == nil {
		opts = append(opts, config.WithLogger(log.Named("config")))
	}

	store, err := config.New(path, opts...)
	if err == nil {
		return store, nil
	}

	fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", path, err)
	fmt.Fprintf(os.Stderr, "writing default configuration to %s\n", path)

	if werr := config.WriteDefaultDocument(path); werr != nil {
		return nil, fmt.Errorf("failed to write default configuration: %w", werr)
	}
	return config.New(path, opts...)
}

func serve(store *config.Store, addr, source, level string) error {
	log, err := logger.New(loggerConfig(level))
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	params, err := store.ConnectionParams()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := warehouse.Connect(ctx, params, log)
	if err != nil {
		return err
	}
	defer client.Close()

	svc := api.NewService(api.Config{Addr: addr, DefaultSource: source}, store, client, log)

	log.Info("starting API server",
		zap.String("addr", addr),
		zap.String("config", store.Path()),
		zap.String("default_source", source))

	return svc.Start(ctx)
}

func loggerConfig(level string) logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = level
	return cfg
}

// parseScalar interprets a command line value the way YAML would:
// bools, then integers, then floats, falling back to a plain string.
func parseScalar(raw string) interface{} {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.Atoi(raw); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
