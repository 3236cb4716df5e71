// Package model provides value objects for codes and API parameter validation.
package model

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Code lengths.
const (
	LotCodeLength    = 8
	SerialCodeLength = 4
	FullCodeLength   = LotCodeLength + SerialCodeLength
)

// CodeGenerator returns a string of length decimal digits.
type CodeGenerator func(length int) string

// RandomCode draws every digit independently and uniformly.
func RandomCode(length int) string {
	var sb strings.Builder
	sb.Grow(length)
	for range length {
		sb.WriteByte(byte('0' + rand.IntN(10)))
	}
	return sb.String()
}

// NormalizeNewlines rewrites CRLF and lone CR line breaks as LF, the only
// form a CSV round trip preserves.
func NormalizeNewlines(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
}

// isDigits reports whether s consists of exactly n ASCII digits.
func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// LotCode represents an 8-digit lot code value object.
type LotCode struct {
	value string
}

// NewLotCode creates a new lot code value object.
func NewLotCode(code string) (LotCode, error) {
	if !isDigits(code, LotCodeLength) {
		return LotCode{}, fmt.Errorf("lot code must be %d digits", LotCodeLength)
	}
	return LotCode{value: code}, nil
}

// String returns the lot code string.
func (c LotCode) String() string {
	return c.value
}

// SerialCode represents a 4-digit serial code value object.
type SerialCode struct {
	value string
}

// NewSerialCode creates a new serial code value object.
func NewSerialCode(code string) (SerialCode, error) {
	if !isDigits(code, SerialCodeLength) {
		return SerialCode{}, fmt.Errorf("serial code must be %d digits", SerialCodeLength)
	}
	return SerialCode{value: code}, nil
}

// String returns the serial code string.
func (c SerialCode) String() string {
	return c.value
}

// FullCode represents a 12-digit sample code value object.
type FullCode struct {
	value string
}

// JoinFullCode concatenates a lot code and a serial code.
func JoinFullCode(lot LotCode, serial SerialCode) FullCode {
	return FullCode{value: lot.value + serial.value}
}

// NewFullCode creates a new full code value object.
func NewFullCode(code string) (FullCode, error) {
	if !isDigits(code, FullCodeLength) {
		return FullCode{}, fmt.Errorf("full code must be %d digits", FullCodeLength)
	}
	return FullCode{value: code}, nil
}

// LotCode returns the leading lot code part.
func (c FullCode) LotCode() LotCode {
	return LotCode{value: c.value[:LotCodeLength]}
}

// SerialCode returns the trailing serial code part.
func (c FullCode) SerialCode() SerialCode {
	return SerialCode{value: c.value[LotCodeLength:]}
}

// String returns the full code string.
func (c FullCode) String() string {
	return c.value
}

// MaxDateRangeDays bounds the span of a DateRange.
const MaxDateRangeDays = 366 * 5

// DateRange represents a date range value object.
type DateRange struct {
	from time.Time
	to   time.Time
}

// NewDateRange creates a new date range value object.
// Empty bounds default to the latest week plus 52 weeks.
func NewDateRange(fromStr, toStr string) (*DateRange, error) {
	defaultFrom, defaultTo := getDefaultDateRange(time.Now())

	fromTime := defaultFrom
	if fromStr != "" {
		t, err := parseDateTime(fromStr)
		if err != nil {
			return nil, fmt.Errorf("invalid from parameter. Use ISO8601 format (YYYY-MM-DD or YYYY-MM-DDThh:mm:ssZ)")
		}
		fromTime = t
	}

	toTime := defaultTo
	if toStr != "" {
		t, err := parseDateTime(toStr)
		if err != nil {
			return nil, fmt.Errorf("invalid to parameter. Use ISO8601 format (YYYY-MM-DD or YYYY-MM-DDThh:mm:ssZ)")
		}
		toTime = t
	}

	fromTime = normalizeToBeginOfDay(fromTime)
	toTime = normalizeToEndOfDay(toTime)
	if toTime.Before(fromTime) {
		return nil, fmt.Errorf("from must not be after to")
	}
	if toTime.Sub(fromTime) > MaxDateRangeDays*24*time.Hour {
		return nil, fmt.Errorf("date range must not exceed %d days", MaxDateRangeDays)
	}

	return &DateRange{from: fromTime, to: toTime}, nil
}

// From returns the start date.
func (d *DateRange) From() time.Time {
	return d.from
}

// To returns the end date.
func (d *DateRange) To() time.Time {
	return d.to
}

// Contains reports whether t falls inside the range.
func (d *DateRange) Contains(t time.Time) bool {
	return !t.Before(d.from) && !t.After(d.to)
}

// getDefaultDateRange calculates the default date range for the latest week + 52 weeks.
func getDefaultDateRange(now time.Time) (time.Time, time.Time) {
	weekday := int(now.Weekday())
	latestWeekStart := now.AddDate(0, 0, -weekday)
	return latestWeekStart.AddDate(0, 0, -52*7), now
}

func normalizeToBeginOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func normalizeToEndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 999999999, t.Location())
}

// parseDateTime accepts RFC3339 or a bare YYYY-MM-DD in local time.
func parseDateTime(dateStr string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", dateStr, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unable to parse date")
}
