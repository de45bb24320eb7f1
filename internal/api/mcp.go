package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ajakab/perch/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store    *storage.Store
	Exporter DailyExporter
}

// NewMCPServer creates an MCP server exposing the timeline to agent
// clients over stdio.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"perch",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("perch: local timeline of captured files, notes, thoughts, and reminders."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("capture_thought",
			mcp.WithDescription("Record a note or free-form thought on the timeline."),
			mcp.WithString("note", mcp.Description("Short note or title"), mcp.Required()),
			mcp.WithString("content", mcp.Description("Optional longer text body")),
		),
		mcpCaptureThought(deps),
	)

	s.AddTool(
		mcp.NewTool("list_timeline",
			mcp.WithDescription("List recent timeline events, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of events (default 20)")),
		),
		mcpListTimeline(deps),
	)

	s.AddTool(
		mcp.NewTool("set_reminder",
			mcp.WithDescription("Attach a reminder to an existing timeline event."),
			mcp.WithString("event_id", mcp.Description("Timeline event id"), mcp.Required()),
			mcp.WithNumber("remind_at", mcp.Description("Fire time in milliseconds since epoch"), mcp.Required()),
			mcp.WithString("message", mcp.Description("Reminder message")),
		),
		mcpSetReminder(deps),
	)

	s.AddTool(
		mcp.NewTool("export_day",
			mcp.WithDescription("Render and persist the daily digest for a calendar date."),
			mcp.WithString("date", mcp.Description("Date key, YYYY-MM-DD"), mcp.Required()),
			mcp.WithString("format", mcp.Description("Output format: md or html (default md)")),
		),
		mcpExportDay(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"timeline://today",
			"Today's Timeline",
			mcp.WithResourceDescription("Events captured today, as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceToday(deps),
	)

	return s
}

func mcpCaptureThought(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		note, err := req.RequireString("note")
		if err != nil {
			return mcpError("note is required"), nil
		}
		content := req.GetString("content", "")

		detail, err := deps.Store.CreateTextEvent(storage.TextEventInput{
			Note:        note,
			TextContent: content,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to capture: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Captured event %s", detail.Event.ID)), nil
	}
}

func mcpListTimeline(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		details, err := deps.Store.ListEvents(storage.ListQuery{PageSize: limit})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list events: %v", err)), nil
		}
		if len(details) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(details)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal events: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSetReminder(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		eventID, err := req.RequireString("event_id")
		if err != nil {
			return mcpError("event_id is required"), nil
		}
		remindAt, err := req.RequireFloat("remind_at")
		if err != nil {
			return mcpError("remind_at is required"), nil
		}
		message := req.GetString("message", "")

		rem, err := deps.Store.CreateReminder(eventID, int64(remindAt), message)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to create reminder: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Reminder %s set for %s", rem.ID,
			time.UnixMilli(rem.RemindAt).Format(time.RFC3339))), nil
	}
}

func mcpExportDay(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		date, err := req.RequireString("date")
		if err != nil {
			return mcpError("date is required"), nil
		}
		format := req.GetString("format", "md")

		path, err := deps.Exporter.GenerateDaily(date, format)
		if err != nil {
			return mcpError(fmt.Sprintf("export failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Exported to %s", path)), nil
	}
}

func mcpResourceToday(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		now := time.Now()
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

		details, err := deps.Store.ListEvents(storage.ListQuery{
			StartDate: start.UnixMilli(),
			EndDate:   now.UnixMilli(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list today's events: %w", err)
		}

		b, err := json.Marshal(details)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal events: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
