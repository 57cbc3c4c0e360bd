package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/dshills/pixstorm/internal/app"
)

var (
	statsTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statsLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(16)
	statsBox   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

// renderStats formats the end-of-run summary.
func renderStats(a *app.Application) string {
	snap := a.Metrics().Snapshot()
	buf := a.BufferStats()
	img := a.ImageCacheStats()

	rows := [][2]string{
		{"mode", a.Mode().String()},
		{"frames", humanize.Comma(int64(snap.FrameCount))},
		{"uptime", snap.Uptime.Round(time.Millisecond).String()},
		{"frame time", fmt.Sprintf("avg %s, max %s",
			time.Duration(snap.AvgFrameTimeNs).Round(time.Microsecond),
			time.Duration(snap.MaxFrameTimeNs).Round(time.Microsecond))},
		{"sustainable fps", fmt.Sprintf("%.1f", snap.AvgFPS())},
		{"dropped", fmt.Sprintf("%d (%.1f%%)", snap.DroppedFrames, snap.DropRate())},
		{"cells written", humanize.Comma(int64(snap.CellsWritten))},
		{"cells sent", humanize.Comma(int64(snap.DiffCells))},
		{"full redraws", humanize.Comma(int64(buf.FullRedraws))},
		{"payloads", fmt.Sprintf("%d sent, %d cached, %s",
			snap.Payloads, snap.CachedFrames, humanize.Bytes(snap.PayloadBytes))},
		{"image cache", fmt.Sprintf("%d entries, %.0f%% hits", img.Entries, img.HitRate()*100)},
	}
	if snap.ShaderErrors > 0 || snap.AvgShaderNs > 0 {
		rows = append(rows, [2]string{"shader", fmt.Sprintf("avg %s, %d errors",
			time.Duration(snap.AvgShaderNs).Round(time.Microsecond), snap.ShaderErrors)})
	}

	var b strings.Builder
	b.WriteString(statsTitle.Render("pixstorm stats"))
	for _, r := range rows {
		b.WriteString("\n")
		b.WriteString(statsLabel.Render(r[0]))
		b.WriteString(r[1])
	}
	return statsBox.Render(b.String()) + "\n"
}
