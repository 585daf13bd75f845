package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/hpungsan/parley/internal/config"
	"github.com/hpungsan/parley/internal/errors"
	"github.com/hpungsan/parley/internal/ops"
	"github.com/hpungsan/parley/internal/report"
	"github.com/hpungsan/parley/internal/session"
	"github.com/hpungsan/parley/internal/transcript"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	sessions *session.Manager
	log      logrus.FieldLogger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, sessions *session.Manager) *Handlers {
	return &Handlers{db: db, cfg: cfg, sessions: sessions, log: logrus.StandardLogger()}
}

// Request types for each tool

// SessionStartRequest represents the arguments for session_start.
type SessionStartRequest struct {
	Platform   string            `json:"platform,omitempty"`
	SpeakerMap map[string]string `json:"speaker_map,omitempty"`
}

// SessionIngestRequest represents the arguments for session_ingest.
type SessionIngestRequest struct {
	SessionID   string                  `json:"session_id"`
	Text        string                  `json:"text"`
	Speaker     transcript.SpeakerLabel `json:"speaker,omitempty"`
	IsFinal     *bool                   `json:"is_final,omitempty"`
	TimestampMs *int64                  `json:"timestamp_ms,omitempty"`
	Confidence  *float64                `json:"confidence,omitempty"`
}

// SessionRef identifies a live session.
type SessionRef struct {
	SessionID string `json:"session_id"`
}

// SessionEventsRequest represents the arguments for session_events.
type SessionEventsRequest struct {
	SessionID string `json:"session_id"`
	Max       int    `json:"max,omitempty"`
}

// SessionEndRequest represents the arguments for session_end.
type SessionEndRequest struct {
	SessionID string `json:"session_id"`
	Save      *bool  `json:"save,omitempty"`
}

// SummaryFetchRequest represents the arguments for summary_fetch.
type SummaryFetchRequest struct {
	ID             string `json:"id"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
}

// SummaryListRequest represents the arguments for summary_list.
type SummaryListRequest struct {
	Platform       string `json:"platform,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
}

// SummaryReportRequest represents the arguments for summary_report.
type SummaryReportRequest struct {
	ID     string `json:"id"`
	Format string `json:"format,omitempty"`
}

// SummaryDeleteRequest represents the arguments for summary_delete.
type SummaryDeleteRequest struct {
	ID string `json:"id"`
}

// SummaryPurgeRequest represents the arguments for summary_purge.
type SummaryPurgeRequest struct {
	Platform      *string `json:"platform,omitempty"`
	OlderThanDays *int    `json:"older_than_days,omitempty"`
}

// SummaryExportRequest represents the arguments for summary_export.
type SummaryExportRequest struct {
	Path           string  `json:"path,omitempty"`
	Platform       *string `json:"platform,omitempty"`
	IncludeDeleted bool    `json:"include_deleted,omitempty"`
}

// SummaryImportRequest represents the arguments for summary_import.
type SummaryImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// Response types that are not ops outputs

// SessionStartResponse is returned by session_start.
type SessionStartResponse struct {
	SessionID string        `json:"session_id"`
	Platform  string        `json:"platform"`
	State     session.State `json:"state"`
}

// SessionEventsResponse is returned by session_events.
type SessionEventsResponse struct {
	SessionID string          `json:"session_id"`
	Events    []session.Event `json:"events"`
	Count     int             `json:"count"`
}

// SessionEndResponse is returned by session_end. When saving fails the
// summary is still returned and SaveError says why.
type SessionEndResponse struct {
	Summary   session.Summary `json:"summary"`
	Saved     *ops.SaveOutput `json:"saved,omitempty"`
	SaveError map[string]any  `json:"save_error,omitempty"`
}

// SessionListResponse is returned by session_list.
type SessionListResponse struct {
	Sessions []session.Info `json:"sessions"`
}

// SummaryReportResponse is returned by summary_report.
type SummaryReportResponse struct {
	ID      string        `json:"id"`
	Format  report.Format `json:"format"`
	Content string        `json:"content"`
}

// Handler implementations

// HandleSessionStart handles the session_start tool call.
func (h *Handlers) HandleSessionStart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionStartRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	s, err := h.sessions.Start(input.Platform, input.SpeakerMap)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(SessionStartResponse{
		SessionID: s.ID(),
		Platform:  s.Platform(),
		State:     s.State(),
	})
}

// HandleSessionIngest handles the session_ingest tool call.
func (h *Handlers) HandleSessionIngest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionIngestRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	// Tool ingests default to final; interim captions must set is_final=false.
	if input.IsFinal == nil {
		final := true
		input.IsFinal = &final
	}

	reply, err := h.sessions.Dispatch(input.SessionID, session.IngestCommand{Event: transcript.RawEvent{
		Text:       input.Text,
		Speaker:    input.Speaker,
		IsFinal:    input.IsFinal,
		Timestamp:  input.TimestampMs,
		Confidence: input.Confidence,
	}})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(reply.Ingest)
}

// HandleSessionSummary handles the session_summary tool call.
func (h *Handlers) HandleSessionSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRef](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	s, err := h.sessions.Get(input.SessionID)
	if err != nil {
		return errorResult(err), nil
	}

	sum, err := s.Summary()
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(sum)
}

// HandleSessionEvents handles the session_events tool call.
func (h *Handlers) HandleSessionEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionEventsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Max < 0 {
		return errorResult(errors.NewInvalidRequest("max must be non-negative")), nil
	}

	events, err := h.sessions.Events(input.SessionID, input.Max)
	if err != nil {
		return errorResult(err), nil
	}
	if events == nil {
		events = []session.Event{}
	}

	return successResult(SessionEventsResponse{
		SessionID: input.SessionID,
		Events:    events,
		Count:     len(events),
	})
}

// HandleSessionEnd handles the session_end tool call.
func (h *Handlers) HandleSessionEnd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionEndRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	reply, err := h.sessions.Dispatch(input.SessionID, session.EndCommand{})
	if err != nil {
		return errorResult(err), nil
	}
	sum := *reply.Summary

	resp := SessionEndResponse{Summary: sum}
	if input.Save == nil || *input.Save {
		saved, err := ops.Save(ctx, h.db, sum)
		if err != nil {
			h.log.WithError(err).WithField("session_id", sum.SessionID).Warn("failed to save summary")
			resp.SaveError = errorObject(err)
		} else {
			resp.Saved = saved
		}
	}

	return successResult(resp)
}

// HandleSessionList handles the session_list tool call.
func (h *Handlers) HandleSessionList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(SessionListResponse{Sessions: h.sessions.List()})
}

// HandleSummaryFetch handles the summary_fetch tool call.
func (h *Handlers) HandleSummaryFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SummaryFetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fetch(ctx, h.db, ops.FetchInput{
		ID:             input.ID,
		IncludeDeleted: input.IncludeDeleted,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSummaryList handles the summary_list tool call.
func (h *Handlers) HandleSummaryList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SummaryListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.db, ops.ListInput{
		Platform:       input.Platform,
		Limit:          input.Limit,
		Offset:         input.Offset,
		IncludeDeleted: input.IncludeDeleted,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSummaryReport handles the summary_report tool call.
func (h *Handlers) HandleSummaryReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SummaryReportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	format, err := report.ParseFormat(input.Format)
	if err != nil {
		return errorResult(err), nil
	}

	stored, err := ops.Fetch(ctx, h.db, ops.FetchInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	content, err := report.Render(stored.Summary, format)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(SummaryReportResponse{ID: stored.SessionID, Format: format, Content: content})
}

// HandleSummaryDelete handles the summary_delete tool call.
func (h *Handlers) HandleSummaryDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SummaryDeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Delete(ctx, h.db, ops.DeleteInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSummaryPurge handles the summary_purge tool call.
func (h *Handlers) HandleSummaryPurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SummaryPurgeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Purge(ctx, h.db, ops.PurgeInput{
		Platform:      input.Platform,
		OlderThanDays: input.OlderThanDays,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSummaryExport handles the summary_export tool call.
func (h *Handlers) HandleSummaryExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SummaryExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.db, h.cfg, ops.ExportInput{
		Path:           input.Path,
		Platform:       input.Platform,
		IncludeDeleted: input.IncludeDeleted,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSummaryImport handles the summary_import tool call.
func (h *Handlers) HandleSummaryImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SummaryImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(ctx, h.db, h.cfg, ops.ImportInput{
		Path: input.Path,
		Mode: ops.ImportMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
func errorResult(err error) *mcp.CallToolResult {
	content, _ := json.Marshal(map[string]any{"error": errorObject(err)})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// errorObject builds the {code, message, status[, details]} payload for err.
// Internal errors never expose details, and errors without a code are
// reported as a generic internal error.
func errorObject(err error) map[string]any {
	pErr, ok := errors.As(err)
	if !ok {
		return map[string]any{
			"code":    string(errors.ErrInternal),
			"message": "an internal error occurred",
			"status":  500,
		}
	}

	// Keep wrapper context such as "line 3: " in front of the message.
	msg := pErr.Message
	if prefix, found := strings.CutSuffix(err.Error(), pErr.Error()); found {
		msg = prefix + msg
	}

	obj := map[string]any{
		"code":    string(pErr.Code),
		"message": msg,
		"status":  pErr.Status,
	}
	if pErr.Code != errors.ErrInternal && pErr.Details != nil {
		obj["details"] = pErr.Details
	}
	return obj
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
