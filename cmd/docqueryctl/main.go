package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/app"
	"github.com/kailas-cloud/docquery/internal/config"
	"github.com/kailas-cloud/docquery/internal/domain"
	logpkg "github.com/kailas-cloud/docquery/internal/logger"
	healthuc "github.com/kailas-cloud/docquery/internal/usecase/health"
	"github.com/kailas-cloud/docquery/internal/version"
)

// errNotOK makes the process exit non-zero without printing a second message.
var errNotOK = errors.New("not ok")

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		if !errors.Is(err, errNotOK) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "docqueryctl",
		Short:         "Operator tool for the docquery pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.PersistentFlags().String("env", config.GetEnv(), "config environment (local, dev, prod)")
	root.PersistentFlags().String("config", "", "path to a config file, overrides --env")

	root.AddCommand(askCmd(), checkCmd(), versionCmd())
	return root
}

func askCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <query...>",
		Short: "Resolve a query in-process and print the response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cfg, err := build(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			category, _ := cmd.Flags().GetString("category")
			if category == "" {
				category = cfg.Query.Category
			}

			resp := a.Resolver.Resolve(cmd.Context(), domain.Query{
				Text:     strings.Join(args, " "),
				Category: category,
			})
			if err := printJSON(cmd.OutOrStdout(), resp); err != nil {
				return err
			}
			if resp.Status != domain.StatusOK {
				return errNotOK
			}
			return nil
		},
	}
	cmd.Flags().String("category", "", "category to search, defaults to query.category")
	return cmd
}

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe the vector store and embedding provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := build(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			timeout, _ := cmd.Flags().GetDuration("timeout")
			report := a.Health.WithTimeout(timeout).Check(cmd.Context())

			// Errors are hidden from the JSON report; an operator needs them.
			for name, msg := range report.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", name, msg)
			}
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if report.Status != healthuc.Healthy {
				return errNotOK
			}
			return nil
		},
	}
	cmd.Flags().Duration("timeout", 5*time.Second, "per-component check timeout")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func build(cmd *cobra.Command) (*app.App, config.Config, error) {
	env, _ := cmd.Flags().GetString("env")
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return nil, cfg, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, cfg, fmt.Errorf("create logger: %w", err)
	}

	a, err := app.New(&cfg, logger.With(zap.String("component", "ctl")))
	if err != nil {
		return nil, cfg, err
	}
	return a, cfg, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
