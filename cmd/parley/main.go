package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/parley/internal/classify"
	"github.com/hpungsan/parley/internal/config"
	"github.com/hpungsan/parley/internal/db"
	"github.com/hpungsan/parley/internal/mcp"
	"github.com/hpungsan/parley/internal/session"
	"github.com/hpungsan/parley/internal/suggest"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// runMode is what main does with its arguments.
type runMode int

const (
	modeServe   runMode = iota // MCP over stdio
	modeBanner                 // bare invocation on a terminal
	modeHelp                   // help or version; no database needed
	modeCLI                    // a known subcommand
	modeUnknown                // unknown argument on a terminal
)

var subcommands = []string{"replay", "list", "show", "report", "delete", "purge", "export", "import"}

// detectMode picks the run mode from os.Args-style args. Piped stdin with no
// recognized command means an MCP client launched us.
func detectMode(args []string, stdinIsTerminal bool) runMode {
	if len(args) < 2 {
		if stdinIsTerminal {
			return modeBanner
		}
		return modeServe
	}
	switch arg := args[1]; {
	case arg == "help" || arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v":
		return modeHelp
	case slices.Contains(subcommands, arg):
		return modeCLI
	case stdinIsTerminal:
		return modeUnknown
	}
	return modeServe
}

func stdinIsTerminal() bool {
	stat, err := os.Stdin.Stat()
	return err == nil && stat.Mode()&os.ModeCharDevice != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
                  _
   _ __  __ _ _ _| |___ _  _
  | '_ \/ _' | '_| / -_) || |
  | .__/\__,_|_| |_\___|\_, |
  |_|                   |__/

  Real-time sales call analysis

  Usage: parley <command> [options]
         parley --help

  MCP server mode requires piped input.`)
}

// setupLogging sends logs to stderr so stdout carries only JSON output.
func setupLogging(cfg *config.Config) {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(cfg.Level())
}

// newManager wires the session manager for MCP mode. Suggestions are enabled
// only when the API key is available.
func newManager(cfg *config.Config, log logrus.FieldLogger) (*session.Manager, error) {
	lex, err := cfg.Lexicon()
	if err != nil {
		return nil, err
	}
	deps := session.Deps{
		Registry: classify.NewRegistry(lex),
		Logger:   log,
	}
	if gen, err := suggest.NewHTTPGenerator(cfg.HTTPConfig()); err != nil {
		log.WithError(err).Info("suggestions disabled")
	} else {
		deps.Generator = gen
	}
	return session.NewManager(cfg.SessionOptions(), deps), nil
}

func warnUnknownDisabled(cfg *config.Config, log logrus.FieldLogger) {
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.WithField("tools", unknown).Warn("unknown tools in disabled_tools")
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		log.WithField("types", unknown).Warn("unknown types in disabled_types")
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	mode := detectMode(os.Args, stdinIsTerminal())
	switch mode {
	case modeBanner:
		printBanner()
		return
	case modeHelp:
		if err := newCLIApp(nil, config.DefaultConfig()).Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	case modeUnknown:
		fatal("unknown command %q\nRun 'parley --help' for usage.", os.Args[1])
	}

	home, err := os.UserHomeDir()
	if err != nil {
		fatal("could not determine home directory: %v", err)
	}
	baseDir := filepath.Join(home, config.RepoDirName)
	cwd, err := os.Getwd()
	if err != nil {
		fatal("could not determine working directory: %v", err)
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	setupLogging(cfg)

	database, err := db.Init(baseDir)
	if err != nil {
		fatal("failed to initialize database: %v", err)
	}
	db.ConfigurePool(database, cfg)

	if err := run(mode, database, cfg); err != nil {
		database.Close()
		fatal("%v", err)
	}
	database.Close()
}

func run(mode runMode, database *sql.DB, cfg *config.Config) error {
	if mode == modeCLI {
		return newCLIApp(database, cfg).Run(os.Args)
	}
	log := logrus.StandardLogger()
	warnUnknownDisabled(cfg, log)
	mgr, err := newManager(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to load lexicon: %w", err)
	}
	return mcp.Run(database, cfg, mgr, Version)
}
