package main

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/parley/internal/classify"
	"github.com/hpungsan/parley/internal/config"
	"github.com/hpungsan/parley/internal/errors"
	"github.com/hpungsan/parley/internal/ops"
	"github.com/hpungsan/parley/internal/report"
	"github.com/hpungsan/parley/internal/session"
	"github.com/hpungsan/parley/internal/suggest"
	"github.com/hpungsan/parley/internal/transcript"
)

// maxReplayLine bounds one JSONL line of a replay file.
const maxReplayLine = 1 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "parley",
		Usage:   "Real-time sales call analysis",
		Version: Version,
		Commands: []*cli.Command{
			replayCmd(db, cfg),
			listCmd(db),
			showCmd(db),
			reportCmd(db),
			deleteCmd(db),
			purgeCmd(db),
			exportCmd(db, cfg),
			importCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// ReplayOutput is printed by replay after the session ends.
type ReplayOutput struct {
	Summary session.Summary `json:"summary"`
	Events  int             `json:"events"`
	Dropped int             `json:"dropped"`
	Skipped int             `json:"skipped"`
	Saved   *ops.SaveOutput `json:"saved,omitempty"`
}

// replayCmd runs a recorded transcript through one session.
func replayCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Replay speech events (JSON Lines) through a session and print its summary",
		ArgsUsage: "[file|-]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "platform", Aliases: []string{"p"}, Value: "replay", Usage: "Platform tag for the session"},
			&cli.BoolFlag{Name: "events", Aliases: []string{"e"}, Usage: "Print session events as JSON Lines while replaying"},
			&cli.BoolFlag{Name: "save", Aliases: []string{"s"}, Usage: "Save the final summary"},
			&cli.BoolFlag{Name: "suggest", Usage: "Request live suggestions from the configured endpoint"},
		},
		Action: func(c *cli.Context) error {
			in, closeIn, err := openReplayInput(c)
			if err != nil {
				return outputError(err)
			}
			defer closeIn()

			out := c.App.Writer
			log := logrus.StandardLogger()

			lex, err := cfg.Lexicon()
			if err != nil {
				return outputError(err)
			}
			deps := session.Deps{Registry: classify.NewRegistry(lex), Logger: log}
			if c.Bool("events") {
				deps.Sink = newJSONLSink(out)
			}
			if c.Bool("suggest") {
				gen, err := suggest.NewHTTPGenerator(cfg.HTTPConfig())
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				deps.Generator = gen
			}
			if c.Bool("save") && db == nil {
				return outputError(errors.NewInvalidRequest("--save needs a database"))
			}

			s, err := session.New("", cfg.SessionOptions(), deps)
			if err != nil {
				return outputError(err)
			}
			if _, err := s.Handle(session.StartCommand{Platform: c.String("platform")}); err != nil {
				return outputError(err)
			}

			result := ReplayOutput{}
			scanner := bufio.NewScanner(in)
			scanner.Buffer(make([]byte, 0, 64*1024), maxReplayLine)
			lineNum := 0
			for scanner.Scan() {
				lineNum++
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				var raw transcript.RawEvent
				if err := json.Unmarshal([]byte(line), &raw); err != nil {
					log.WithFields(logrus.Fields{"line": lineNum, "error": err}).Warn("skipping invalid replay line")
					result.Skipped++
					continue
				}
				reply, err := s.Handle(session.IngestCommand{Event: raw})
				if err != nil {
					return outputError(err)
				}
				result.Events++
				if reply.Ingest.Dropped {
					result.Dropped++
				}
			}
			if err := scanner.Err(); err != nil {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("line %d: %v", lineNum+1, err)))
			}

			reply, err := s.Handle(session.EndCommand{})
			if err != nil {
				return outputError(err)
			}
			sum := *reply.Summary
			// Let in-flight suggestions land on the event stream before the summary.
			s.Wait()
			result.Summary = sum

			if c.Bool("save") {
				saved, err := ops.Save(c.Context, db, sum)
				if err != nil {
					return outputError(err)
				}
				result.Saved = saved
			}

			return outputJSON(out, result)
		},
	}
}

// openReplayInput returns the first argument as a file, or the app reader
// when the argument is missing or "-".
func openReplayInput(c *cli.Context) (io.Reader, func(), error) {
	path := c.Args().First()
	if path == "" || path == "-" {
		return c.App.Reader, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.NewFileNotFound(path)
		}
		return nil, nil, errors.NewInternal(err)
	}
	return f, func() { f.Close() }, nil
}

// jsonlSink writes each event as one JSON line. Suggestion events arrive
// from other goroutines, hence the lock.
type jsonlSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newJSONLSink(w io.Writer) *jsonlSink {
	return &jsonlSink{enc: json.NewEncoder(w)}
}

func (s *jsonlSink) Emit(e session.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(e)
}

// listCmd creates the list command.
func listCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List stored session summaries, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "platform", Aliases: []string{"p"}, Usage: "Filter by platform"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted summaries"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, db, ops.ListInput{
				Platform:       c.String("platform"),
				Limit:          c.Int("limit"),
				Offset:         c.Int("offset"),
				IncludeDeleted: c.Bool("include-deleted"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c.App.Writer, output)
		},
	}
}

// showCmd creates the show command.
func showCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a stored session summary",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted summaries"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Fetch(c.Context, db, ops.FetchInput{
				ID:             c.Args().First(),
				IncludeDeleted: c.Bool("include-deleted"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c.App.Writer, output)
		},
	}
}

// reportCmd creates the report command. Output is the rendered report, not JSON.
func reportCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Render a stored session summary as Markdown or HTML",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: string(report.FormatMarkdown), Usage: "Report format: markdown|html"},
		},
		Action: func(c *cli.Context) error {
			format, err := report.ParseFormat(c.String("format"))
			if err != nil {
				return outputError(err)
			}

			stored, err := ops.Fetch(c.Context, db, ops.FetchInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}

			content, err := report.Render(stored.Summary, format)
			if err != nil {
				return outputError(err)
			}
			_, err = io.WriteString(c.App.Writer, content)
			return err
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Soft-delete a stored session summary",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(c.Context, db, ops.DeleteInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c.App.Writer, output)
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Permanently delete soft-deleted summaries",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "platform", Aliases: []string{"p"}, Usage: "Filter by platform"},
			&cli.StringFlag{Name: "older-than", Usage: "Only purge if deleted more than N days ago (e.g., 7d)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.PurgeInput{}

			if platform := c.String("platform"); platform != "" {
				input.Platform = &platform
			}
			if olderThan := c.String("older-than"); olderThan != "" {
				days, err := parseDuration(olderThan)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.OlderThanDays = &days
			}

			output, err := ops.Purge(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c.App.Writer, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export stored summaries to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Usage: "Export file path (default: ~/.parley/exports/<platform>-<timestamp>.jsonl)"},
			&cli.StringFlag{Name: "platform", Aliases: []string{"p"}, Usage: "Filter by platform"},
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted summaries"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ExportInput{
				Path:           c.String("path"),
				IncludeDeleted: c.Bool("include-deleted"),
			}
			if platform := c.String("platform"); platform != "" {
				input.Platform = &platform
			}

			output, err := ops.Export(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c.App.Writer, output)
		},
	}
}

// importCmd creates the import command.
func importCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import summaries from a JSONL export",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: string(ops.ImportModeError), Usage: "Collision mode: error|replace|rename"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, db, cfg, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c.App.Writer, output)
		},
	}
}

// Helper functions

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if pErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", pErr.Code, pErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}
