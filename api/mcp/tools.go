package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/minutes/pkg/storage"
)

const (
	defaultToolLimit = 20
	maxToolLimit     = 500
)

var (
	currentSummaryToolName    = "current_summary"
	currentSummaryDescription = "Return the live rolling summary of the meeting in progress, with whether the summarizer is running and how many fragments are waiting to be summarized."

	recentSegmentsToolName    = "recent_segments"
	recentSegmentsDescription = "Return the most recent transcript segments of the meeting, oldest first. Use this to quote what was actually said."

	summaryHistoryToolName    = "summary_history"
	summaryHistoryDescription = "Return earlier snapshots of the rolling summary, oldest first, to see how the meeting minutes evolved."
)

// CurrentSummaryInput takes no arguments.
type CurrentSummaryInput struct{}

// CurrentSummaryOutput is the structured output of current_summary.
type CurrentSummaryOutput struct {
	Available       bool   `json:"available"`
	Summary         string `json:"summary"`
	LastSummaryTime string `json:"last_summary_time,omitempty"`
	Pending         int    `json:"pending"`
	Running         bool   `json:"running"`
	Model           string `json:"model,omitempty"`
}

// LimitInput bounds how many records a tool returns.
type LimitInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of records to return, newest kept (default 20, max 500)"`
}

// SegmentOutput is one transcript segment.
type SegmentOutput struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Line      string `json:"line"`
}

// RecentSegmentsOutput is the structured output of recent_segments.
type RecentSegmentsOutput struct {
	Segments []SegmentOutput `json:"segments"`
}

// SummaryOutput is one summary snapshot.
type SummaryOutput struct {
	ID        int64  `json:"id"`
	Summary   string `json:"summary"`
	CreatedAt string `json:"created_at"`
}

// SummaryHistoryOutput is the structured output of summary_history.
type SummaryHistoryOutput struct {
	Summaries []SummaryOutput `json:"summaries"`
}

func (s *Server) handleCurrentSummary(_ context.Context, _ *mcp.CallToolRequest, _ CurrentSummaryInput) (*mcp.CallToolResult, CurrentSummaryOutput, error) {
	snap := s.config.Snapshots.Snapshot()

	output := CurrentSummaryOutput{
		Pending: snap.Pending,
		Running: snap.Running,
		Model:   snap.Model,
	}
	if snap.Summary != nil {
		output.Available = true
		output.Summary = *snap.Summary
	}
	if !snap.LastSummaryTime.IsZero() {
		output.LastSummaryTime = snap.LastSummaryTime.Format(time.RFC3339)
	}

	text := output.Summary
	if !output.Available {
		text = "No summary has been produced yet."
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, output, nil
}

func (s *Server) handleRecentSegments(ctx context.Context, _ *mcp.CallToolRequest, input LimitInput) (*mcp.CallToolResult, RecentSegmentsOutput, error) {
	segments, err := s.config.Driver.Segments(ctx, toolLimit(input.Limit))
	if err != nil {
		s.config.Logger.Error("mcp recent_segments failed", "error", err)
		return errorResult(fmt.Sprintf("Loading segments failed: %v", err)), RecentSegmentsOutput{}, nil
	}

	output := RecentSegmentsOutput{Segments: make([]SegmentOutput, 0, len(segments))}
	for _, seg := range segments {
		output.Segments = append(output.Segments, SegmentOutput{
			ID:        seg.ID,
			Timestamp: seg.Timestamp.Format(time.RFC3339),
			Speaker:   seg.SpeakerName(),
			Text:      seg.Text,
			Line:      seg.Line(),
		})
	}

	return jsonResult(output)
}

func (s *Server) handleSummaryHistory(ctx context.Context, _ *mcp.CallToolRequest, input LimitInput) (*mcp.CallToolResult, SummaryHistoryOutput, error) {
	records, err := s.config.Driver.Summaries(ctx, toolLimit(input.Limit))
	if err != nil {
		s.config.Logger.Error("mcp summary_history failed", "error", err)
		return errorResult(fmt.Sprintf("Loading summaries failed: %v", err)), SummaryHistoryOutput{}, nil
	}

	output := SummaryHistoryOutput{Summaries: make([]SummaryOutput, 0, len(records))}
	for _, rec := range records {
		output.Summaries = append(output.Summaries, summaryOutput(rec))
	}

	return jsonResult(output)
}

func summaryOutput(rec storage.SummaryRecord) SummaryOutput {
	return SummaryOutput{
		ID:        rec.ID,
		Summary:   rec.Text,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	}
}

func toolLimit(limit int) int {
	if limit <= 0 {
		return defaultToolLimit
	}
	return min(limit, maxToolLimit)
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}

// jsonResult mirrors the structured output as JSON text content.
func jsonResult[T any](output T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		var zero T
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
