// Package heatmap renders a GitHub-like daily activity heatmap as SVG.
package heatmap

import (
	"fmt"
	"html"
	"strings"
	"time"
)

var months = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// GenerateDailyHeatmapSVG returns an SVG string with one cell per day,
// one column per week starting on Sunday. data must be in ascending order.
func GenerateDailyHeatmapSVG(data []Data, opts *Options) string {
	if opts == nil {
		opts = DefaultOptions()
	}
	if len(data) == 0 {
		return ""
	}

	startDate := truncateToMidnight(data[0].Date)
	endDate := truncateToMidnight(data[len(data)-1].Date)

	countMap := make(map[string]int, len(data))
	maxCount := 0
	for _, d := range data {
		countMap[d.Date.Format("2006-01-02")] = d.Count
		if d.Count > maxCount {
			maxCount = d.Count
		}
	}

	// align first column to Sunday
	firstSunday := startDate.AddDate(0, 0, -int(startDate.Weekday()))
	weeks := int(endDate.Sub(firstSunday).Hours()/24)/7 + 1

	titleHeight := 0
	if opts.Title != "" {
		titleHeight = opts.FontSize + 8
	}
	top := titleHeight + opts.FontSize + 4
	step := opts.CellSize + opts.CellPadding
	width := weeks*step + opts.CellPadding
	height := 7*step + opts.CellPadding + top

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`+"\n", width, height)
	fmt.Fprintf(&sb, `  <style>.label{font-family:%s;font-size:%dpx;fill:#666}.title{font-family:%s;font-size:%dpx;fill:#333;font-weight:bold}</style>`+"\n",
		opts.FontFamily, opts.FontSize, opts.FontFamily, opts.FontSize)

	if opts.Title != "" {
		fmt.Fprintf(&sb, `  <text x="%d" y="%d" class="title">%s</text>`+"\n",
			opts.CellPadding, opts.FontSize+2, html.EscapeString(opts.Title))
	}

	// month labels
	lastMonth := time.Month(0)
	for w := 0; w < weeks; w++ {
		current := firstSunday.AddDate(0, 0, w*7)
		if current.Day() <= 7 && current.Month() != lastMonth {
			fmt.Fprintf(&sb, `  <text x="%d" y="%d" class="label">%s</text>`+"\n",
				opts.CellPadding+w*step, titleHeight+opts.FontSize, months[current.Month()-1])
			lastMonth = current.Month()
		}
	}

	for w := 0; w < weeks; w++ {
		for i := 0; i < 7; i++ {
			current := firstSunday.AddDate(0, 0, w*7+i)
			key := current.Format("2006-01-02")
			count, ok := countMap[key]
			if !ok {
				continue
			}
			x := opts.CellPadding + w*step
			y := opts.CellPadding + top + i*step
			fmt.Fprintf(&sb, `  <rect x="%d" y="%d" width="%d" height="%d" fill="%s" data-date="%s" data-count="%d">`+"\n",
				x, y, opts.CellSize, opts.CellSize, opts.Colors[level(count, maxCount, len(opts.Colors))], key, count)
			fmt.Fprintf(&sb, `    <title>%s: %d</title>`+"\n", key, count)
			sb.WriteString(`  </rect>` + "\n")
		}
	}

	sb.WriteString(`</svg>`)
	return sb.String()
}

// level maps count onto 0..levels-1. Zero is always level 0 and the busiest
// day is always the top level.
func level(count, maxCount, levels int) int {
	if count <= 0 || maxCount <= 0 || levels <= 1 {
		return 0
	}
	l := 1 + (count-1)*(levels-1)/maxCount
	if l >= levels {
		l = levels - 1
	}
	return l
}
