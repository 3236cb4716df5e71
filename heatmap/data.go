package heatmap

import (
	"time"
)

// Data holds the date and number of samples registered that day.
type Data struct {
	Date  time.Time
	Count int
}

// Options configures rendering parameters.
type Options struct {
	CellSize    int      // size of each day cell (px)
	CellPadding int      // padding between cells (px)
	Colors      []string // array of N CSS colors for levels 0..N-1
	FontSize    int      // font size for labels (px)
	FontFamily  string   // font family for labels
	Title       string   // optional title, e.g. the lot name
}

// DefaultOptions returns the options used by the graph endpoint.
func DefaultOptions() *Options {
	return &Options{
		CellSize:    12,
		CellPadding: 2,
		FontSize:    10,
		FontFamily:  "sans-serif",
		Colors:      []string{"#ebedf0", "#9be9a8", "#40c463", "#30a14e", "#216e39"},
	}
}

// CountByDay buckets timestamps into one Data entry per day from from to to,
// inclusive. Days without timestamps get a zero count.
func CountByDay(times []time.Time, from, to time.Time) []Data {
	counts := make(map[string]int, len(times))
	for _, t := range times {
		counts[t.In(from.Location()).Format("2006-01-02")]++
	}

	var data []Data
	day := truncateToMidnight(from)
	last := truncateToMidnight(to)
	for !day.After(last) {
		data = append(data, Data{Date: day, Count: counts[day.Format("2006-01-02")]})
		day = day.AddDate(0, 0, 1)
	}
	return data
}

// truncateToMidnight zeroes time component
func truncateToMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
