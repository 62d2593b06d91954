package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"llmpoold/internal/backend"
	"llmpoold/internal/config"
	"llmpoold/internal/pool"
)

const envPrefix = "LLMPOOL_"

// newRootCmd builds the command tree. The root runs serve so a bare
// `llmpoold` starts the daemon.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "llmpoold",
		Short:         "Pool of isolated LLM workers behind an HTTP control API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv(envPrefix+"CONFIG"), "Config file (.yaml, .json, .toml)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(configPath, os.LookupEnv, cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
	bindServeFlags(serve.Flags())
	root.AddCommand(serve)
	root.RunE = serve.RunE
	bindServeFlags(root.Flags())

	root.AddCommand(&cobra.Command{
		Use:    "worker",
		Short:  "Serve one worker over stdin/stdout (started by the process strategy)",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			logger := newLogger(os.Getenv(envPrefix+"LOG_LEVEL"), "json", os.Stderr)
			out, err := protocolStdout()
			if err != nil {
				return fmt.Errorf("redirect stdout: %w", err)
			}
			defer out.Close()
			return pool.ServeWorker(ctx, os.Stdin, out, backend.Default().Spawn, logger)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "backends",
		Short: "List registered backend loaders",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, b := range backend.Default().Backends() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", b.Name, strings.Join(b.Loaders, ","))
			}
		},
	})
	return root
}

// bindServeFlags registers the serve flags. Values are read back through
// FlagSet.Visit so only flags given on the command line override.
func bindServeFlags(fs *pflag.FlagSet) {
	fs.String("addr", config.DefaultAddr, "HTTP listen address, e.g. :8080")
	fs.String("strategy", config.DefaultStrategy, "Execution strategy: thread|process")
	fs.String("workers-dir", "", "Directory of worker definition files registered at boot")
	fs.Int("max-queue-depth", 0, "Per-worker input queue bound (0=default)")
	fs.Int("max-wait-ms", 0, "Wait for queue space before 429 (0=default)")
	fs.Int("start-timeout-ms", 0, "Bound on worker spawn (0=default)")
	fs.Int("stop-timeout-ms", 0, "Graceful stop bound before abort (0=default)")
	fs.Int("generate-timeout-ms", 0, "Bound on a single generate request (0=none)")
	fs.String("worker-command", "", "Worker binary for the process strategy (default: this binary)")
	fs.String("log-level", "", "Log level: debug|info|warn|error")
	fs.String("log-format", "", "Log format: json|console")
	fs.String("nats-url", "", "Publish lifecycle events to this NATS server")
	fs.String("nats-subject", "", "Subject prefix for lifecycle events")
	fs.Bool("trace-stdout", false, "Export OpenTelemetry spans to stdout")
	fs.String("cors-origins", "", "Comma-separated list of allowed CORS origins (empty disables CORS)")
}

// resolveConfig layers the config file, LLMPOOL_* environment variables and
// explicitly set flags, in that order, then applies defaults and validates.
func resolveConfig(path string, lookup func(string) (string, bool), fs *pflag.FlagSet) (config.Config, error) {
	var cfg config.Config
	if strings.TrimSpace(path) != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return cfg, err
	}
	var ferr error
	fs.Visit(func(f *pflag.Flag) {
		if ferr == nil {
			ferr = applySetting(&cfg, f.Name, f.Value.String())
		}
	})
	if ferr != nil {
		return cfg, ferr
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// settings maps flag names to their environment suffixes.
var settings = []struct{ flag, env string }{
	{"addr", "ADDR"},
	{"strategy", "STRATEGY"},
	{"workers-dir", "WORKERS_DIR"},
	{"max-queue-depth", "MAX_QUEUE_DEPTH"},
	{"max-wait-ms", "MAX_WAIT_MS"},
	{"start-timeout-ms", "START_TIMEOUT_MS"},
	{"stop-timeout-ms", "STOP_TIMEOUT_MS"},
	{"generate-timeout-ms", "GENERATE_TIMEOUT_MS"},
	{"worker-command", "WORKER_COMMAND"},
	{"log-level", "LOG_LEVEL"},
	{"log-format", "LOG_FORMAT"},
	{"nats-url", "NATS_URL"},
	{"nats-subject", "NATS_SUBJECT"},
	{"trace-stdout", "TRACE_STDOUT"},
	{"cors-origins", "CORS_ORIGINS"},
}

func applyEnv(c *config.Config, lookup func(string) (string, bool)) error {
	for _, s := range settings {
		if v, ok := lookup(envPrefix + s.env); ok && v != "" {
			if err := applySetting(c, s.flag, v); err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, s.env, err)
			}
		}
	}
	return nil
}

// applySetting assigns the raw value v of the named setting to c.
// Unknown names (e.g. --config) are ignored.
func applySetting(c *config.Config, name, v string) error {
	atoi := func(dst *int) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s %q", name, v)
		}
		*dst = n
		return nil
	}
	switch name {
	case "addr":
		c.Addr = v
	case "strategy":
		c.Strategy = v
	case "workers-dir":
		c.WorkersDir = v
	case "max-queue-depth":
		return atoi(&c.MaxQueueDepth)
	case "max-wait-ms":
		return atoi(&c.MaxWaitMS)
	case "start-timeout-ms":
		return atoi(&c.StartTimeoutMS)
	case "stop-timeout-ms":
		return atoi(&c.StopTimeoutMS)
	case "generate-timeout-ms":
		return atoi(&c.GenerateTimeoutMS)
	case "worker-command":
		c.WorkerCommand = v
	case "log-level":
		c.LogLevel = v
	case "log-format":
		c.LogFormat = v
	case "nats-url":
		c.NATSURL = v
	case "nats-subject":
		c.NATSSubject = v
	case "trace-stdout":
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s %q", name, v)
		}
		c.TraceStdout = b
	case "cors-origins":
		c.CORSOrigins = splitCSV(v)
	}
	return nil
}

// splitCSV splits a comma-separated list, trimming blanks and dropping empties.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
