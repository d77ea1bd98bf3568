package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"amplecache/internal/cache"
	"amplecache/internal/config"
	"amplecache/internal/mcpserver"
	"amplecache/internal/store"
)

var version = "dev"

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	stdout, stderr io.Writer

	configFile string
	dbPath     string
	logLevel   string
	logPretty  bool

	cfg      config.Config
	handler  slog.Handler
	closeLog func()
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, closeLog: func() {}}
	root := &cobra.Command{
		Use:           "amplecache",
		Short:         "Read-only MCP server over the Amplenote desktop cache",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.closeLog()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	flags := root.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "YAML config file (default $AMPLENOTE_CONFIG)")
	flags.StringVar(&a.dbPath, "db", "", "path to amplenote.db (overrides db_path)")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	flags.BoolVar(&a.logPretty, "log-pretty", false, "human readable logs on stderr")

	root.AddCommand(a.serveCmd(), a.toolsCmd(), a.callCmd(), a.versionCmd())
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if cmd.Flags().Changed("log-pretty") {
		cfg.LogPretty = a.logPretty
	}
	a.cfg = cfg
	a.handler, a.closeLog = setupLogging(a.stderr, cfg.LogLevel, cfg.LogPretty, cfg.DevLogFile)
	return nil
}

// open verifies the cache and returns the tool server on top of it.
func (a *app) open(ctx context.Context) (*mcpserver.Server, func(), error) {
	db, err := store.Open(a.cfg.DBPath, store.OpenOptions{
		BusyTimeout: a.cfg.BusyTimeout,
		LockTimeout: a.cfg.LockTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.Verify(verifyCtx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	engine := cache.New(db, a.engineOptions())
	slog.Info("cache opened", "path", db.Path())
	return mcpserver.New(engine, version), func() { _ = db.Close() }, nil
}

func (a *app) engineOptions() cache.Options {
	return cache.Options{
		DefaultSearchLimit: a.cfg.DefaultSearchLimit,
		DefaultListLimit:   a.cfg.DefaultListLimit,
		MaxLimit:           a.cfg.MaxQueryLimit,
	}
}

func (a *app) serve(ctx context.Context) error {
	srv, closeDB, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer closeDB()
	return srv.ServeStdio(server.WithErrorLogger(slog.NewLogLogger(a.handler, slog.LevelError)))
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the query tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the available tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Tool definitions do not touch the database.
			srv := mcpserver.New(cache.New(nil, a.engineOptions()), version)
			for _, t := range srv.Tools() {
				fmt.Fprintf(a.stdout, "%-28s %s\n", t.Definition.Name, firstLine(t.Definition.Description))
			}
			return nil
		},
	}
}

func (a *app) callCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "call <tool> [json-arguments]",
		Short: "Run a single tool against the cache and print the result",
		Example: `  amplecache call list_tasks
  amplecache call query_tasks '{"flagsFilter":"urgent","sort_by":"due"}'
  amplecache call get_note_by_name '{"name":"meeting"}' --output yaml`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "json" && output != "yaml" {
				return fmt.Errorf("unknown output format %q", output)
			}
			toolArgs := map[string]any{}
			if len(args) == 2 && strings.TrimSpace(args[1]) != "" {
				if err := json.Unmarshal([]byte(args[1]), &toolArgs); err != nil {
					return fmt.Errorf("tool arguments must be a JSON object: %w", err)
				}
			}
			srv, closeDB, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()
			res, err := srv.Call(cmd.Context(), args[0], toolArgs)
			if err != nil {
				return err
			}
			return a.printResult(res, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "json or yaml")
	return cmd
}

func (a *app) printResult(res *mcp.CallToolResult, output string) error {
	text := resultText(res)
	if res.IsError {
		return errors.New(text)
	}
	if output == "json" {
		_, err := fmt.Fprintln(a.stdout, text)
		return err
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return fmt.Errorf("decode tool result: %w", err)
	}
	enc := yaml.NewEncoder(a.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(*cobra.Command, []string) {
			fmt.Fprintln(a.stdout, version)
		},
	}
}

func resultText(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if text, ok := c.(mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
