package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/YusovID/onetalk-router/internal/app"
	"github.com/YusovID/onetalk-router/internal/config"
	"github.com/YusovID/onetalk-router/internal/notify"
	"github.com/YusovID/onetalk-router/pkg/logger/slogpretty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

type rootOptions struct {
	configPath string
	output     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "onetalkctl",
		Short:         "OneTalk router administration",
		Long:          "onetalkctl manages lines, users and routing rules and routes communications against the OneTalk store.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case outputText, outputJSON, outputYAML:
				return nil
			default:
				return fmt.Errorf("unknown output format %q, expected text, json or yaml", opts.output)
			}
		},
	}

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "config/local.yaml"
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfig, "path to the OneTalk config file")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", outputText, "output format (text, json, yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log with the configured environment handler")

	cmd.AddCommand(newPhoneCmd(opts))
	cmd.AddCommand(newDepartmentCmd(opts))
	cmd.AddCommand(newUserCmd(opts))
	cmd.AddCommand(newRuleCmd(opts))
	cmd.AddCommand(newRouteCmd(opts))
	cmd.AddCommand(newEndCallCmd(opts))
	cmd.AddCommand(newStatsCmd(opts))
	cmd.AddCommand(newDemoCmd(opts))

	return cmd
}

// environment is what every subcommand runs against.
type environment struct {
	cfg *config.Config
	app *app.App
	log *slog.Logger
	out *printer
}

func openEnvironment(cmd *cobra.Command, opts *rootOptions) (*environment, func(), error) {
	cfg, err := config.LoadPath(opts.configPath)
	if err != nil {
		return nil, nil, err
	}

	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	if opts.verbose {
		log = slogpretty.SetupLogger(cfg.Env)
	}

	store, err := app.Open(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	loc, err := cfg.Routing.Location()
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	sinks := notify.NewMulti(log).Add("markdown", notify.NewMarkdownLog(cfg.Notify.InsightsDir, loc))

	a, err := app.New(cfg, store, log, sinks)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	env := &environment{
		cfg: cfg,
		app: a,
		log: log,
		out: &printer{w: cmd.OutOrStdout(), format: opts.output},
	}

	return env, func() { _ = store.Close() }, nil
}

// run opens the environment around fn.
func run(cmd *cobra.Command, opts *rootOptions, fn func(env *environment) error) error {
	env, closeEnv, err := openEnvironment(cmd, opts)
	if err != nil {
		return err
	}
	defer closeEnv()

	return fn(env)
}

type printer struct {
	w      io.Writer
	format string
}

// print writes v as JSON or YAML, or calls text with a tabwriter.
// YAML keys follow the JSON field names.
func (p *printer) print(v any, text func(w io.Writer)) error {
	switch p.format {
	case outputJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")

		return enc.Encode(v)
	case outputYAML:
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}

		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}

		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		defer enc.Close()

		return enc.Encode(generic)
	default:
		tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
		text(tw)

		return tw.Flush()
	}
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}

	return *s
}

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
		os.Exit(1)
	}
}
