package heatmap

import (
	"strings"
	"testing"
	"time"
)

func TestCountByDay(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 3, 23, 59, 59, 0, time.UTC)
	times := []time.Time{
		time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 1, 17, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 3, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC), // 範囲外
	}

	data := CountByDay(times, from, to)
	want := []int{2, 0, 1}
	if len(data) != len(want) {
		t.Fatalf("Expected %d days, got %d", len(want), len(data))
	}
	for i, d := range data {
		if d.Count != want[i] {
			t.Errorf("day %s: expected %d, got %d", d.Date.Format("2006-01-02"), want[i], d.Count)
		}
	}
}

func TestGenerateDailyHeatmapSVG(t *testing.T) {
	data := CountByDay([]time.Time{
		time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
	}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))

	opts := DefaultOptions()
	opts.Title = `Batch <A> & "B"`
	svg := GenerateDailyHeatmapSVG(data, opts)

	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatal("Expected SVG to be generated")
	}
	if !strings.Contains(svg, `data-date="2025-01-10" data-count="1"`) {
		t.Error("Expected cell for 2025-01-10 with count 1")
	}
	if !strings.Contains(svg, `data-date="2025-01-15"`) {
		t.Error("Expected endDate (2025-01-15) to be included")
	}
	// endDateを超えた日付は含まれないこと
	if strings.Contains(svg, `data-date="2025-01-16"`) {
		t.Error("Date after range should not be included")
	}
	// タイトルはエスケープされること
	if !strings.Contains(svg, "Batch &lt;A&gt; &amp; &#34;B&#34;") {
		t.Errorf("Expected escaped title in %s", svg)
	}
	if !strings.Contains(svg, ">Jan<") {
		t.Error("Expected month label")
	}
}

func TestGenerateDailyHeatmapSVGEmpty(t *testing.T) {
	if svg := GenerateDailyHeatmapSVG(nil, nil); svg != "" {
		t.Errorf("Expected empty string, got %q", svg)
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		count, max, levels, want int
	}{
		{0, 10, 5, 0},
		{1, 10, 5, 1},
		{10, 10, 5, 4},
		{5, 10, 5, 2},
		{3, 0, 5, 0},
		{1, 1, 1, 0},
	}
	for _, tt := range tests {
		if got := level(tt.count, tt.max, tt.levels); got != tt.want {
			t.Errorf("level(%d, %d, %d) = %d, want %d", tt.count, tt.max, tt.levels, got, tt.want)
		}
	}
}
