package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goliatone/go-sparse"
	"github.com/goliatone/go-sparse/internal/tree"
	"github.com/goliatone/go-sparse/pkg/metrics"
	"github.com/goliatone/go-sparse/pkg/watch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

type cli struct {
	out    io.Writer
	errOut io.Writer

	level   string
	logFile string
	format  string

	logger *slog.Logger
	closer io.Closer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:           "sparse",
		Short:         "Inspect and edit documents linked by $ref pointers",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLevel(c.level)
			if err != nil {
				return err
			}
			logLevel.Set(level)
			c.logger, c.closer, err = newLogger(c.errOut, c.logFile)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.closer != nil {
				return c.closer.Close()
			}
			return nil
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.PersistentFlags().StringVar(&c.level, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&c.logFile, "log-file", "", "also write JSON logs to this file")

	getCmd := &cobra.Command{
		Use:   "get FILE [POINTER]",
		Short: "Print the node at POINTER with every $ref substituted",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  c.runGet,
	}
	getCmd.Flags().StringVar(&c.format, "format", "json-pretty", "output format (json, json-pretty, yaml)")

	refsCmd := &cobra.Command{
		Use:   "refs FILE",
		Short: "List the $ref pointers of a document and where they resolve",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runRefs,
	}

	var engine string
	evalCmd := &cobra.Command{
		Use:   "eval FILE EXPR",
		Short: "Evaluate an expression against the dereferenced document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEval(args[0], args[1], engine)
		},
	}
	evalCmd.Flags().StringVar(&engine, "engine", "expr", "expression engine (expr, cel, js)")

	setCmd := &cobra.Command{
		Use:   "set FILE POINTER VALUE",
		Short: "Write a JSON value at POINTER and save the document",
		Args:  cobra.ExactArgs(3),
		RunE:  c.runSet,
	}

	convertCmd := &cobra.Command{
		Use:   "convert FILE DEST",
		Short: "Write FILE to DEST in the format implied by its extension",
		Args:  cobra.ExactArgs(2),
		RunE:  c.runConvert,
	}

	var rewrite string
	fmtCmd := &cobra.Command{
		Use:   "fmt FILE",
		Short: "Rewrite FILE and every document it references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFmt(args[0], rewrite)
		},
	}
	fmtCmd.Flags().StringVar(&rewrite, "format", "auto", "format override (auto, json, json-pretty, yaml)")

	var metricsAddr string
	watchCmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Reload FILE and its references whenever they change on disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd, args[0], metricsAddr)
		},
	}
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	rootCmd.AddCommand(getCmd, refsCmd, evalCmd, setCmd, convertCmd, fmtCmd, watchCmd)
	return rootCmd
}

func (c *cli) options(extra ...sparse.Option) []sparse.Option {
	opts := []sparse.Option{sparse.WithLogger(sparse.NewSlogLogger(c.logger))}
	return append(opts, extra...)
}

func (c *cli) runGet(cmd *cobra.Command, args []string) error {
	format, err := sparse.ParseFormat(c.format)
	if err != nil {
		return err
	}
	if format == sparse.FormatAuto {
		format = sparse.FormatJSONPretty
	}
	pointer := "/"
	if len(args) == 2 {
		pointer = args[1]
	}
	state, err := sparse.NewStateFromFile(args[0], c.options()...)
	if err != nil {
		return err
	}
	node, err := state.Dereference(state.RootPath(), pointer)
	if err != nil {
		return err
	}
	payload, err := format.Marshal(node)
	if err != nil {
		return err
	}
	_, err = c.out.Write(payload)
	if err == nil && format == sparse.FormatJSON {
		_, err = fmt.Fprintln(c.out)
	}
	return err
}

func (c *cli) runRefs(cmd *cobra.Command, args []string) error {
	state, err := sparse.NewStateFromFile(args[0], c.options()...)
	if err != nil {
		return err
	}
	file, err := state.File(state.RootPath())
	if err != nil {
		return err
	}
	for _, info := range tree.Refs(file.Value()) {
		location := info.Location
		if location == "" {
			location = "/"
		}
		target := "?"
		if meta, err := sparse.NewMetadata(info.Ref, state.RootPath()); err == nil {
			target = meta.Path() + "#" + meta.Pointer()
			if _, err := state.Node(meta.Path(), meta.Pointer()); err != nil {
				target += " (unresolved)"
			}
		}
		if _, err := fmt.Fprintf(c.out, "%s\t%s\t%s\n", location, info.Ref, target); err != nil {
			return err
		}
	}
	return nil
}

func (c *cli) runEval(path, expr, engine string) error {
	evaluator, err := sparse.NewEvaluator(engine, sparse.NewMapProgramCache(), nil)
	if err != nil {
		return err
	}
	root, err := sparse.NewRootFromFile[any](path, c.options(sparse.WithEvaluator(evaluator))...)
	if err != nil {
		return err
	}
	resp, err := root.Evaluate(expr)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(resp.Value)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, string(payload))
	return err
}

func (c *cli) runSet(cmd *cobra.Command, args []string) error {
	var value any
	if err := json.Unmarshal([]byte(args[2]), &value); err != nil {
		// Bare words are taken as strings.
		value = args[2]
	}
	state, err := sparse.NewStateFromFile(args[0], c.options()...)
	if err != nil {
		return err
	}
	if err := state.ReplaceAt(state.RootPath(), args[1], value); err != nil {
		return err
	}
	return state.SaveToDisk(sparse.FormatAuto)
}

func (c *cli) runConvert(cmd *cobra.Command, args []string) error {
	state, err := sparse.NewStateFromFile(args[0], c.options()...)
	if err != nil {
		return err
	}
	return state.Export(state.RootPath(), args[1])
}

func (c *cli) runFmt(path, rewrite string) error {
	format, err := sparse.ParseFormat(rewrite)
	if err != nil {
		return err
	}
	state, err := sparse.NewStateFromFile(path, c.options()...)
	if err != nil {
		return err
	}
	if _, err := state.Dereference(state.RootPath(), "/"); err != nil {
		return err
	}
	return state.SaveToDisk(format)
}

func (c *cli) runWatch(cmd *cobra.Command, path, metricsAddr string) error {
	registry := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		return err
	}
	logger := sparse.MultiLogger(sparse.NewSlogLogger(c.logger), recorder)
	root, err := sparse.NewRootFromFile[any](path, sparse.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := root.State().Write(func(s *sparse.State) error {
		_, err := s.Dereference(s.RootPath(), "/")
		return err
	}); err != nil {
		return err
	}

	if metricsAddr != "" {
		server := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				c.logger.Error("metrics server stopped", slog.String("error", err.Error()))
			}
		}()
		defer server.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watch.New(root.State(), &watch.Options{
		Logger: c.logger,
		OnReload: func(res watch.Result) {
			if res.Err != nil {
				c.logger.Warn("reload failed", slog.String("error", res.Err.Error()))
				return
			}
			if len(res.Changed) == 0 {
				return
			}
			if err := root.Update(); err != nil {
				c.logger.Warn("update failed", slog.String("error", err.Error()))
				return
			}
			fmt.Fprintf(c.out, "reloaded %s\n", strings.Join(res.Changed, ", "))
		},
	})
	if err != nil {
		return err
	}
	defer w.Stop()
	if err := w.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "watching %s\n", strings.Join(w.Dirs(), ", "))
	<-ctx.Done()
	return nil
}
