package cliui

import (
	"github.com/papercomputeco/minutes/pkg/transcript"
	"github.com/papercomputeco/minutes/pkg/utils"
)

// FormatFragment renders f as a styled "HH:MM:SS speaker: text" line. Text
// longer than maxText runes is truncated; zero or less keeps it whole.
func FormatFragment(f transcript.Fragment, maxText int) string {
	text := f.Text
	if maxText > 0 {
		text = utils.Truncate(text, maxText)
	}

	name := f.SpeakerName()
	return TimeStyle.Render(f.Timestamp.Local().Format("15:04:05")) + " " +
		SpeakerStyle(name).Render(name+":") + " " + text
}
