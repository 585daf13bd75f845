package mcp

import (
	"context"
	"database/sql"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/hpungsan/parley/internal/config"
	"github.com/hpungsan/parley/internal/ops"
	"github.com/hpungsan/parley/internal/session"
)

// Tool groups that disabled_types can switch off as a whole.
const (
	GroupSession = "session" // live call control
	GroupSummary = "summary" // stored summaries
)

// KnownTypes lists the tool groups accepted in disabled_types.
var KnownTypes = []string{GroupSession, GroupSummary}

type tool struct {
	group  string
	def    mcp.Tool
	handle func(*Handlers) server.ToolHandlerFunc
}

// tools is every tool the server offers, in registration order.
var tools = []tool{
	{GroupSession, sessionStartToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionStart }},
	{GroupSession, sessionIngestToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionIngest }},
	{GroupSession, sessionSummaryToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionSummary }},
	{GroupSession, sessionEventsToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionEvents }},
	{GroupSession, sessionEndToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionEnd }},
	{GroupSession, sessionListToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionList }},
	{GroupSummary, summaryFetchToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSummaryFetch }},
	{GroupSummary, summaryListToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSummaryList }},
	{GroupSummary, summaryReportToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSummaryReport }},
	{GroupSummary, summaryDeleteToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSummaryDelete }},
	{GroupSummary, summaryPurgeToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSummaryPurge }},
	{GroupSummary, summaryExportToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSummaryExport }},
	{GroupSummary, summaryImportToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSummaryImport }},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.def.Name
	}
	slices.Sort(names)
	return names
}

// ValidateDisabledTools returns the entries of names that are not tools.
func ValidateDisabledTools(names []string) []string {
	return unknown(names, AllToolNames())
}

// ValidateDisabledTypes returns the entries of names that are not tool groups.
func ValidateDisabledTypes(names []string) []string {
	return unknown(names, KnownTypes)
}

func unknown(names, known []string) []string {
	var out []string
	for _, n := range names {
		if !slices.Contains(known, n) {
			out = append(out, n)
		}
	}
	return out
}

// enabledTools filters tools by cfg.DisabledTools and cfg.DisabledTypes.
func enabledTools(cfg *config.Config) []tool {
	var out []tool
	for _, t := range tools {
		if slices.Contains(cfg.DisabledTypes, t.group) || slices.Contains(cfg.DisabledTools, t.def.Name) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// NewServer creates the parley MCP server with every enabled tool registered.
func NewServer(db *sql.DB, cfg *config.Config, sessions *session.Manager, version string) *server.MCPServer {
	s := server.NewMCPServer("parley", version, server.WithToolCapabilities(true))
	h := NewHandlers(db, cfg, sessions)
	for _, t := range enabledTools(cfg) {
		s.AddTool(t.def, t.handle(h))
	}
	return s
}

// Run serves MCP over stdio until stdin closes, then ends the sessions that
// are still live and saves their summaries.
func Run(db *sql.DB, cfg *config.Config, sessions *session.Manager, version string) error {
	s := NewServer(db, cfg, sessions, version)
	err := server.ServeStdio(s)
	saveRemaining(context.Background(), db, sessions, logrus.StandardLogger())
	return err
}

func saveRemaining(ctx context.Context, db *sql.DB, sessions *session.Manager, log logrus.FieldLogger) {
	for _, sum := range sessions.Shutdown() {
		if _, err := ops.Save(ctx, db, sum); err != nil {
			log.WithError(err).WithField("session_id", sum.SessionID).Warn("failed to save summary on shutdown")
		}
	}
}
