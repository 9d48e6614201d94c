package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/chmdznr/bulk-renamer/internal/config"
	"github.com/chmdznr/bulk-renamer/internal/db"
	"github.com/chmdznr/bulk-renamer/internal/logging"
	"github.com/chmdznr/bulk-renamer/internal/tasks"
	"github.com/chmdznr/bulk-renamer/pkg/models"
	"github.com/chmdznr/bulk-renamer/pkg/utils"
	"github.com/chmdznr/bulk-renamer/pkg/version"
)

// env carries the process streams so the app can run inside tests
type env struct {
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	confirm  func(prompt string) (bool, error)
	progress tasks.ProgressFactory
	color    logging.ColorMode
}

func osEnv() *env {
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	e := &env{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		color:  logging.ColorAuto,
	}
	e.confirm = newConfirm(e.stdin, e.stdout, interactive)
	if logging.IsTerminal(os.Stderr) {
		e.progress = newProgressFactory(os.Stderr)
	}
	return e
}

func main() {
	if err := run(osEnv(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(e *env, args []string) error {
	app := newApp(e)
	return app.Run(hoistFlags(app, args))
}

// hoistFlags moves root flags that follow TARGET_DIR in front of it, so
// "bulkrename DIR --remove X" parses like "bulkrename --remove X DIR".
// Subcommand invocations and everything after "--" are left alone.
func hoistFlags(app *cli.App, args []string) []string {
	if len(args) < 2 {
		return args
	}
	for _, cmd := range app.Commands {
		if cmd.HasName(args[1]) {
			return args
		}
	}

	valued := make(map[string]bool)
	for _, f := range app.Flags {
		if _, ok := f.(*cli.BoolFlag); ok {
			continue
		}
		for _, name := range f.Names() {
			valued[name] = true
		}
	}

	flags := []string{args[0]}
	var positional []string
	for i := 1; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			positional = append(positional, args[i:]...)
			break
		}
		if len(arg) < 2 || arg[0] != '-' {
			positional = append(positional, arg)
			continue
		}
		flags = append(flags, arg)
		name := strings.TrimLeft(arg, "-")
		if !strings.Contains(name, "=") && valued[name] && i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	return append(flags, positional...)
}

var errNoTarget = errors.New("a target directory or --config is required")

func newApp(e *env) *cli.App {
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version",
		Usage: "print the version",
	}

	return &cli.App{
		Name:      "bulkrename",
		Usage:     "Batch-remove literal substrings from file and directory names",
		UsageText: "bulkrename [flags] [TARGET_DIR]\nbulkrename --config FILE [flags]\n\n" +
			"A TARGET_DIR named like a command needs a path prefix, e.g. ./history or ./version.",
		ArgsUsage: "[TARGET_DIR]",
		Version:   version.Version,
		Reader:    e.stdin,
		Writer:    e.stdout,
		ErrWriter: e.stderr,
		// patterns may contain commas
		DisableSliceFlagSeparator: true,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:      "remove",
				Usage:     "substring to remove from names (repeatable)",
				KeepSpace: true,
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "YAML configuration `FILE` (excludes TARGET_DIR)",
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Usage:   "preview the renames without touching anything",
			},
			&cli.BoolFlag{
				Name:  "no-mac-clean",
				Usage: "skip the macOS ._ file cleanup",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "only print the summaries",
			},
			&cli.BoolFlag{
				Name:  "no-recursive",
				Usage: "only process the direct children of each directory",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "do not ask for confirmation in config mode",
			},
			&cli.StringFlag{
				Name:  "journal",
				Usage: "record every run in the sqlite journal `FILE`",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "write a JSON run report to `FILE`",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "also append log lines to `FILE`",
			},
		},
		Action: e.runAction,
		Commands: []*cli.Command{
			{
				Name:  "history",
				Usage: "Show the most recent runs recorded in a journal",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "journal",
						Usage:    "sqlite journal `FILE`",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "number of runs to show",
						Value: 20,
					},
				},
				Action: e.showHistory,
			},
			{
				Name:  "version",
				Usage: "Print detailed version information",
				Action: func(c *cli.Context) error {
					fmt.Fprintf(e.stdout, "Version:    %s\n", version.Version)
					fmt.Fprintf(e.stdout, "Git commit: %s\n", version.GitCommit)
					fmt.Fprintf(e.stdout, "Built:      %s\n", version.BuildTime)
					return nil
				},
			},
		},
	}
}

func (e *env) runAction(c *cli.Context) error {
	target := c.Args().First()
	configPath := c.String("config")

	switch {
	case c.NArg() > 1:
		return fmt.Errorf("expected at most one TARGET_DIR, got %d", c.NArg())
	case target != "" && configPath != "":
		return fmt.Errorf("--config and TARGET_DIR cannot be used together")
	case target == "" && configPath == "":
		_ = cli.ShowAppHelp(c)
		return errNoTarget
	}

	logFile := c.String("log-file")
	if logFile != "" {
		var err error
		if logFile, err = config.ExpandPath(logFile); err != nil {
			return err
		}
	}
	logger, err := logging.New(logging.Options{Out: e.stdout, Err: e.stderr, Color: e.color, LogFile: logFile})
	if err != nil {
		return fmt.Errorf("failed to open log file: %v", err)
	}
	defer logger.Close()

	if configPath != "" {
		return e.runConfig(c, configPath, logger)
	}
	return e.runSingle(c, target, logger)
}

func (e *env) runSingle(c *cli.Context, target string, logger *logging.Logger) error {
	root, err := config.ExpandPath(target)
	if err != nil {
		return fmt.Errorf("invalid target %s: %v", target, err)
	}

	patterns := c.StringSlice("remove")
	if len(patterns) == 0 {
		patterns = config.DefaultPatterns()
	}

	execCfg := tasks.DefaultExecutorConfig()
	execCfg.DryRun = c.Bool("dry-run")
	execCfg.Verbose = !c.Bool("quiet")
	execCfg.MacClean = !c.Bool("no-mac-clean")

	var reportCfg config.ReportConfig
	if p := c.String("report"); p != "" {
		if reportCfg.Path, err = config.ExpandPath(p); err != nil {
			return err
		}
	}

	if execCfg.DryRun {
		tasks.PrintDryRunBanner(e.stdout)
	}

	task := models.Task{
		Directories: []string{root},
		Patterns:    patterns,
		Recursive:   !c.Bool("no-recursive"),
	}
	return e.execute(c, execCfg, []models.Task{task}, c.String("journal"), reportCfg, logger)
}

func (e *env) runConfig(c *cli.Context, path string, logger *logging.Logger) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	execCfg := tasks.DefaultExecutorConfig()
	execCfg.DryRun = cfg.DryRun || c.Bool("dry-run")
	execCfg.Verbose = cfg.Verbose && !c.Bool("quiet")
	execCfg.MacClean = cfg.MacClean && !c.Bool("no-mac-clean")

	if c.Bool("no-recursive") {
		for i := range cfg.Tasks {
			cfg.Tasks[i].Recursive = false
		}
	}

	journal := cfg.Journal
	if c.IsSet("journal") {
		journal = c.String("journal")
	}
	reportCfg := cfg.Report
	if c.IsSet("report") {
		if reportCfg.Path, err = config.ExpandPath(c.String("report")); err != nil {
			return err
		}
	}

	tasks.PrintPlan(e.stdout, cfg.Tasks, execCfg.Verbose)
	if execCfg.DryRun {
		tasks.PrintDryRunBanner(e.stdout)
	}

	if cfg.ConfirmBeforeRun && !c.Bool("yes") {
		ok, err := e.confirm("Proceed? [y/N] ")
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %v", err)
		}
		if !ok {
			fmt.Fprintln(e.stdout, "Cancelled.")
			return nil
		}
	}

	return e.execute(c, execCfg, cfg.Tasks, journal, reportCfg, logger)
}

func (e *env) execute(c *cli.Context, execCfg tasks.ExecutorConfig, list []models.Task, journalPath string, reportCfg config.ReportConfig, logger *logging.Logger) error {
	var opts []tasks.Option
	if e.progress != nil {
		opts = append(opts, tasks.WithProgress(e.progress))
	}

	if journalPath != "" {
		path, err := config.ExpandPath(journalPath)
		if err != nil {
			return err
		}
		journal, err := db.New(path)
		if err != nil {
			return fmt.Errorf("failed to open journal: %v", err)
		}
		defer journal.Close()
		opts = append(opts, tasks.WithJournal(journal))
	}

	executor := tasks.NewExecutor(&execCfg, e.stdout, logger, opts...)
	runs, err := executor.Run(list)
	if err != nil {
		return err
	}
	executor.Publish(c.Context, runs, reportCfg)
	return nil
}

func (e *env) showHistory(c *cli.Context) error {
	path, err := config.ExpandPath(c.String("journal"))
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("journal %s not found", path)
	}

	journal, err := db.New(path)
	if err != nil {
		return fmt.Errorf("failed to open journal: %v", err)
	}
	defer journal.Close()

	runs, err := journal.ListRuns(c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(e.stdout, "No runs recorded")
		return nil
	}

	for _, run := range runs {
		mode := "real"
		if run.DryRun {
			mode = "dry-run"
		}
		task := run.Task
		if task == "" {
			task = "-"
		}
		fmt.Fprintf(e.stdout, "#%d %s [%s] %s %s\n",
			run.ID,
			run.Stats.StartTime.Local().Format("2006-01-02 15:04:05"),
			mode,
			task,
			run.Root,
		)
		fmt.Fprintf(e.stdout, "    patterns: %s\n", strings.Join(quoteAll(run.Patterns), ", "))
		fmt.Fprintf(e.stdout, "    scanned %s files, %s dirs | renamed %s files, %s dirs | errors %s | %s\n",
			utils.FormatCount(run.Stats.FilesScanned),
			utils.FormatCount(run.Stats.DirsScanned),
			utils.FormatCount(run.Stats.FilesRenamed),
			utils.FormatCount(run.Stats.DirsRenamed),
			utils.FormatCount(run.Stats.Errors),
			utils.FormatDuration(run.Stats.Duration()),
		)

		counts, err := journal.EntryCounts(run.ID)
		if err != nil {
			return fmt.Errorf("failed to count entries of run %d: %v", run.ID, err)
		}
		if len(counts) > 0 {
			fmt.Fprintf(e.stdout, "    entries: %s\n", formatOutcomes(counts))
		}
	}
	return nil
}

// formatOutcomes renders outcome counts as "renamed=2, skipped=1" in name order
func formatOutcomes(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%s", name, utils.FormatCount(uint64(counts[name])))
	}
	return strings.Join(parts, ", ")
}

func quoteAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
