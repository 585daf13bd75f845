package mcp

import "github.com/mark3labs/mcp-go/mcp"

var sessionStartToolDef = mcp.NewTool("session_start",
	mcp.WithDescription("Start analysing a new sales call. Returns the session_id used by the other session_* tools."),
	mcp.WithString("platform", mcp.Description("Meeting platform tag, e.g. zoom, meet, teams (default: unknown)")),
	mcp.WithObject("speaker_map",
		mcp.Description(`Raw speaker label to role, e.g. {"0":"salesperson","1":"client"}. Overrides the configured map for this session.`)),
)

var sessionIngestToolDef = mcp.NewTool("session_ingest",
	mcp.WithDescription("Push one speech-to-text event into a live session. Final events are classified and aggregated; interim events only update captions."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID from session_start")),
	mcp.WithString("text", mcp.Required(), mcp.Description("Recognized text")),
	mcp.WithString("speaker", mcp.Description("Raw speaker label or diarization index")),
	mcp.WithBoolean("is_final", mcp.Description("Whether the recognizer considers the text final (default: true)")),
	mcp.WithNumber("timestamp_ms", mcp.Description("Event time in unix milliseconds (default: now)")),
	mcp.WithNumber("confidence", mcp.Description("Recognizer confidence in [0,1] (default: 1)")),
)

var sessionSummaryToolDef = mcp.NewTool("session_summary",
	mcp.WithDescription("Get the live analytics summary of a session."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var sessionEventsToolDef = mcp.NewTool("session_events",
	mcp.WithDescription("Drain queued events (detections, sentiment updates, suggestions, captions) of a session, oldest first."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	mcp.WithNumber("max", mcp.Description("Maximum events to return (default: all queued)")),
)

var sessionEndToolDef = mcp.NewTool("session_end",
	mcp.WithDescription("End a session and return its final summary. The summary is saved unless save is false."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	mcp.WithBoolean("save", mcp.Description("Persist the final summary (default: true)")),
)

var sessionListToolDef = mcp.NewTool("session_list",
	mcp.WithDescription("List live sessions."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var summaryFetchToolDef = mcp.NewTool("summary_fetch",
	mcp.WithDescription("Fetch a stored session summary by ID."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
	mcp.WithBoolean("include_deleted", mcp.Description("Include soft-deleted summaries")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var summaryListToolDef = mcp.NewTool("summary_list",
	mcp.WithDescription("List stored summaries, newest first."),
	mcp.WithString("platform", mcp.Description("Filter by platform")),
	mcp.WithNumber("limit", mcp.Description("Maximum items (default: 20, max: 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
	mcp.WithBoolean("include_deleted", mcp.Description("Include soft-deleted summaries")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var summaryReportToolDef = mcp.NewTool("summary_report",
	mcp.WithDescription("Render a stored summary as a call report."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
	mcp.WithString("format", mcp.Enum("markdown", "html"), mcp.Description("Report format (default: markdown)")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var summaryDeleteToolDef = mcp.NewTool("summary_delete",
	mcp.WithDescription("Soft-delete a stored summary."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
	mcp.WithDestructiveHintAnnotation(true),
)

var summaryPurgeToolDef = mcp.NewTool("summary_purge",
	mcp.WithDescription("Permanently delete soft-deleted summaries."),
	mcp.WithString("platform", mcp.Description("Only purge this platform")),
	mcp.WithNumber("older_than_days", mcp.Description("Only purge summaries deleted more than N days ago")),
	mcp.WithDestructiveHintAnnotation(true),
)

var summaryExportToolDef = mcp.NewTool("summary_export",
	mcp.WithDescription("Export stored summaries to a JSONL file."),
	mcp.WithString("path", mcp.Description("Output .jsonl path (default: ~/.parley/exports/<platform|all>-<timestamp>.jsonl)")),
	mcp.WithString("platform", mcp.Description("Filter by platform")),
	mcp.WithBoolean("include_deleted", mcp.Description("Include soft-deleted summaries")),
)

var summaryImportToolDef = mcp.NewTool("summary_import",
	mcp.WithDescription("Import summaries from a JSONL export."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Input .jsonl path")),
	mcp.WithString("mode", mcp.Enum("error", "replace", "rename"), mcp.Description("ID collision handling (default: error)")),
)
