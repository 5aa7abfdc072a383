// Package export renders stored meeting minutes to documents.
package export

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"

	"github.com/papercomputeco/minutes/pkg/storage"
)

const (
	fontName  = "Calibri"
	fontSize  = 11
	titleSize = 18
	monoFont  = "Consolas"
)

var (
	reHeading = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	reBold    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBullet  = regexp.MustCompile(`^[\-\*]\s+(.+)$`)
)

// Minutes is everything that goes into an exported document.
type Minutes struct {
	Title      string
	ExportedAt time.Time

	// Summary is the latest rolling summary, or empty.
	Summary string

	// History holds every stored summary, oldest first.
	History []storage.SummaryRecord

	Segments []storage.Segment
}

// Load reads the latest summary, summary history and full transcript from driver.
func Load(ctx context.Context, driver storage.Driver, title string) (*Minutes, error) {
	m := &Minutes{Title: title, ExportedAt: time.Now()}

	latest, err := driver.LatestSummary(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("loading latest summary: %w", err)
	default:
		m.Summary = latest.Text
	}

	if m.History, err = driver.Summaries(ctx, 0); err != nil {
		return nil, fmt.Errorf("loading summaries: %w", err)
	}
	if m.Segments, err = driver.Segments(ctx, 0); err != nil {
		return nil, fmt.Errorf("loading segments: %w", err)
	}
	return m, nil
}

// WriteDOCX renders m to a .docx file at path. The summary is treated as
// markdown: headings, bullets and **bold** are kept.
func WriteDOCX(m *Minutes, path string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("creating document: %w", err)
	}

	title := m.Title
	if title == "" {
		title = "Meeting minutes"
	}
	addStyledRun(doc.AddParagraph(""), title, true, titleSize)
	if !m.ExportedAt.IsZero() {
		addStyledRun(doc.AddParagraph(""), "Exported "+m.ExportedAt.Format(time.RFC1123), false, fontSize)
	}

	addStyledRun(doc.AddParagraph(""), "Summary", true, 15)
	if strings.TrimSpace(m.Summary) == "" {
		addStyledRun(doc.AddParagraph(""), "No summary was produced.", false, fontSize)
	} else {
		addMarkdown(doc, m.Summary)
	}

	addStyledRun(doc.AddParagraph(""), "Transcript", true, 15)
	if len(m.Segments) == 0 {
		addStyledRun(doc.AddParagraph(""), "No segments were recorded.", false, fontSize)
	}
	for _, seg := range m.Segments {
		p := doc.AddParagraph("")
		p.AddText(seg.Timestamp.Format("15:04:05") + "  ").Font(monoFont).Size(fontSize).Color("666666")
		p.AddText(seg.SpeakerName() + ": ").Font(fontName).Size(fontSize).Bold(true)
		p.AddText(seg.Text).Font(fontName).Size(fontSize)
	}

	if len(m.History) > 1 {
		addStyledRun(doc.AddParagraph(""), "Summary history", true, 15)
		for _, rec := range m.History {
			addStyledRun(doc.AddParagraph(""), rec.CreatedAt.Format("15:04:05"), true, fontSize)
			addMarkdown(doc, rec.Text)
		}
	}

	if err := doc.SaveTo(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func addMarkdown(doc *docx.RootDoc, markdown string) {
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "---" {
			continue
		}

		if m := reHeading.FindStringSubmatch(trimmed); m != nil {
			addStyledRun(doc.AddParagraph(""), m[2], true, headingSize(len(m[1])))
			continue
		}

		if m := reBullet.FindStringSubmatch(trimmed); m != nil {
			addRichText(doc.AddParagraph(""), "• "+m[1])
			continue
		}

		addRichText(doc.AddParagraph(""), trimmed)
	}
}

func headingSize(level int) uint64 {
	switch level {
	case 1:
		return 15
	case 2:
		return 14
	case 3:
		return 13
	default:
		return fontSize
	}
}

func addStyledRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(cleanInline(text)).Font(fontName).Size(size)
	if bold {
		run.Bold(true)
	}
}

func addRichText(p *docx.Paragraph, text string) {
	parts := reBold.Split(text, -1)
	matches := reBold.FindAllStringSubmatch(text, -1)

	for i, part := range parts {
		if part != "" {
			p.AddText(cleanInline(part)).Font(fontName).Size(fontSize)
		}
		if i < len(matches) {
			p.AddText(cleanInline(matches[i][1])).Font(fontName).Size(fontSize).Bold(true)
		}
	}
}

func cleanInline(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	return strings.ReplaceAll(s, "`", "")
}
