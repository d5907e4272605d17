// Command rbtc is the CLI front end spec.md Section 2 calls for: a `check`
// subcommand that typechecks a project once (or keeps watching it) and an
// `lsp` subcommand that serves the editor protocol over stdio. Grounded on
// the teacher's cmd/lci/main.go: urfave/cli app with global config/root
// flags, subcommands doing the real work, signal.Notify driving graceful
// shutdown of a long-running server loop.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/rbtc/internal/ast"
	"github.com/standardbeagle/rbtc/internal/cachestore"
	"github.com/standardbeagle/rbtc/internal/config"
	"github.com/standardbeagle/rbtc/internal/core"
	"github.com/standardbeagle/rbtc/internal/diagnostics"
	"github.com/standardbeagle/rbtc/internal/editorfront"
	"github.com/standardbeagle/rbtc/internal/rtlog"
	"github.com/standardbeagle/rbtc/internal/typechecker"
	"github.com/standardbeagle/rbtc/internal/version"
	"github.com/standardbeagle/rbtc/internal/watchfront"
)

func main() {
	app := &cli.App{
		Name:    "rbtc",
		Usage:   "gradual static type checker",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Config file path (rbtc.kdl is read from this path's directory; --root takes precedence)", Value: "rbtc.kdl"},
			&cli.StringFlag{Name: "root", Aliases: []string{"r"}, Usage: "Project root directory (overrides config)"},
		},
		Commands: []*cli.Command{
			checkCommand(),
			lspCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	// config.Load/LoadWithRoot take the directory holding rbtc.kdl.
	configDir := filepath.Dir(c.String("config"))
	root := c.String("root")
	if root != "" {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve root path %q: %w", root, err)
		}
		return config.LoadWithRoot(configDir, absRoot)
	}
	return config.Load(configDir)
}

// collectFiles walks cfg.Project.Root, returning every path the project's
// Matcher includes, relative to the root.
func collectFiles(cfg *config.Config) ([]string, error) {
	matcher := config.NewMatcher(cfg, cfg.Project.Root)
	var out []string
	err := filepath.WalkDir(cfg.Project.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(cfg.Project.Root, path)
		if relErr != nil {
			return relErr
		}
		if matcher.Included(rel) {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

// resolvePaths honors explicit positional arguments over config-driven
// discovery: `rbtc check a.rb b.rb` typechecks exactly those files, while
// `rbtc check` with no arguments falls back to walking the project root.
func resolvePaths(cfg *config.Config, args []string) ([]string, error) {
	if len(args) == 0 {
		return collectFiles(cfg)
	}
	out := make([]string, len(args))
	for i, a := range args {
		abs, err := filepath.Abs(a)
		if err != nil {
			return nil, fmt.Errorf("resolve path %q: %w", a, err)
		}
		out[i] = abs
	}
	return out, nil
}

func parseSeverity(s string) (diagnostics.Severity, error) {
	switch strings.ToLower(s) {
	case "", "error":
		return diagnostics.SeverityError, nil
	case "warning":
		return diagnostics.SeverityWarning, nil
	case "info":
		return diagnostics.SeverityInfo, nil
	}
	return 0, fmt.Errorf("unknown severity %q (want error, warning, or info)", s)
}

func severityString(s diagnostics.Severity) string {
	switch s {
	case diagnostics.SeverityError:
		return "error"
	case diagnostics.SeverityWarning:
		return "warning"
	case diagnostics.SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// printDiagnostic renders one diagnostic as "path:line:col: severity: message
// [code]", matching the compact one-line-per-problem shape most CLI
// typecheckers print to stdout.
func printDiagnostic(gs *core.GlobalState, d *diagnostics.Diagnostic) {
	path := "<unknown>"
	var lc core.LineCol
	if loc := d.Loc(); loc.Exists() {
		f := gs.Files.Get(loc.File)
		path = f.Path
		lc = f.Lines.LineCol(loc.Offsets.Begin)
	}
	fmt.Printf("%s:%d:%d: %s: %s [%s]\n", path, lc.Line, lc.Column, severityString(d.Severity()), d.Message(), d.Code())
}

// reportDiagnostics prints every diagnostic gathered during a check run and
// reports whether any of them is at or above threshold, i.e. should fail the
// command's exit code.
func reportDiagnostics(gs *core.GlobalState, items []any, threshold diagnostics.Severity) bool {
	failed := false
	for _, item := range items {
		d, ok := item.(*diagnostics.Diagnostic)
		if !ok {
			continue
		}
		printDiagnostic(gs, d)
		if d.Severity() <= threshold {
			failed = true
		}
	}
	return failed
}

func readUpdates(paths []string) ([]typechecker.FileUpdate, error) {
	updates := make([]typechecker.FileUpdate, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		updates = append(updates, typechecker.FileUpdate{Path: p, Content: content})
	}
	return updates, nil
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "typecheck a project once, or keep watching it with --watch",
		ArgsUsage: "[paths...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "watch", Usage: "re-typecheck on every file system change"},
			&cli.StringFlag{Name: "cache-dir", Usage: "on-disk pass-cache directory (overrides config)"},
			&cli.StringFlag{Name: "severity", Usage: "minimum severity (error, warning, info) that fails the exit code", Value: "error"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if dir := c.String("cache-dir"); dir != "" {
				cfg.Cache.Dir = dir
			}
			threshold, err := parseSeverity(c.String("severity"))
			if err != nil {
				return err
			}

			paths, err := resolvePaths(cfg, c.Args().Slice())
			if err != nil {
				return fmt.Errorf("collect files: %w", err)
			}
			updates, err := readUpdates(paths)
			if err != nil {
				return err
			}

			tc := typechecker.New()
			defer tc.Destroy()

			var store *cachestore.Store
			if cfg.Cache.Dir != "" {
				dir := cfg.Cache.Dir
				if !filepath.IsAbs(dir) {
					dir = filepath.Join(cfg.Project.Root, dir)
				}
				store, err = cachestore.Open(dir, 4096)
				if err != nil {
					rtlog.Log("cmd/check", "cache unavailable, continuing without it: %v", err)
				}
			}
			_ = store // wired for future pass-artifact persistence; presence never changes typecheck results

			if err := tc.Initialize(updates); err != nil {
				return fmt.Errorf("initialize: %w", err)
			}

			failed, err := reportInitialDiagnostics(tc, threshold)
			if err != nil {
				return err
			}

			if c.Bool("watch") {
				return watchAndRecheck(cfg, tc)
			}
			if failed {
				os.Exit(1)
			}
			return nil
		},
	}
}

// reportInitialDiagnostics drains and prints every diagnostic raised by the
// check just run, via RunQuery so the caller never touches the
// Typechecker's GlobalState directly.
func reportInitialDiagnostics(tc *typechecker.Typechecker, threshold diagnostics.Severity) (bool, error) {
	result, err := tc.RunQuery(func(gs *core.GlobalState, files []core.FileRef, trees map[core.FileRef]ast.Node) (any, error) {
		return reportDiagnostics(gs, gs.Errors.Drain(), threshold), nil
	}, nil)
	if err != nil {
		return false, fmt.Errorf("drain diagnostics: %w", err)
	}
	failed, _ := result.(bool)
	return failed, nil
}

func watchAndRecheck(cfg *config.Config, tc *typechecker.Typechecker) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	w, err := watchfront.New(cfg, cfg.Project.Root, 300*time.Millisecond, func(edits []watchfront.PathEdit) {
		var updates []typechecker.FileUpdate
		for _, e := range edits {
			if e.Kind == watchfront.KindRemove {
				continue
			}
			content, err := os.ReadFile(e.Path)
			if err != nil {
				rtlog.Log("cmd/check", "re-read %s: %v", e.Path, err)
				continue
			}
			updates = append(updates, typechecker.FileUpdate{Path: e.Path, Content: content})
		}
		if len(updates) == 0 {
			return
		}
		log.Printf("typecheck-run-info: started files=%d", len(updates))
		committed := tc.Typecheck(updates)
		state := "ended"
		if !committed {
			state = "cancelled"
		}
		log.Printf("typecheck-run-info: %s", state)
	})
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Stop()

	fmt.Printf("watching %s for changes (ctrl-c to stop)\n", cfg.Project.Root)
	select {
	case <-ctx.Done():
		return nil
	case sig := <-sigChan:
		log.Printf("received signal %v, shutting down", sig)
		return nil
	}
}

func lspCommand() *cli.Command {
	return &cli.Command{
		Name:  "lsp",
		Usage: "serve hover/definition/references/completion over MCP's stdio transport",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			paths, err := collectFiles(cfg)
			if err != nil {
				return fmt.Errorf("collect files: %w", err)
			}
			updates, err := readUpdates(paths)
			if err != nil {
				return err
			}

			tc := typechecker.New()
			defer tc.Destroy()
			if err := tc.Initialize(updates); err != nil {
				return fmt.Errorf("initialize: %w", err)
			}

			srv := editorfront.NewServer(tc, log.New(os.Stderr, "", log.LstdFlags))

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigChan
				cancel()
			}()

			watcher, err := watchfront.New(cfg, cfg.Project.Root, 300*time.Millisecond, func(edits []watchfront.PathEdit) {
				var upd []typechecker.FileUpdate
				for _, e := range edits {
					if e.Kind == watchfront.KindRemove {
						continue
					}
					content, readErr := os.ReadFile(e.Path)
					if readErr != nil {
						continue
					}
					upd = append(upd, typechecker.FileUpdate{Path: e.Path, Content: content})
				}
				if len(upd) == 0 {
					return
				}
				srv.NotifyRunInfo("started", pathsOf(upd))
				committed := tc.Typecheck(upd)
				state := "ended"
				if !committed {
					state = "cancelled"
				}
				srv.NotifyRunInfo(state, pathsOf(upd))
			})
			if err == nil {
				if startErr := watcher.Start(); startErr == nil {
					defer watcher.Stop()
				}
			}

			return srv.Run(ctx)
		},
	}
}

func pathsOf(updates []typechecker.FileUpdate) []string {
	out := make([]string, len(updates))
	for i, u := range updates {
		out[i] = u.Path
	}
	return out
}
