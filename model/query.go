package model

import (
	"encoding/csv"
	"io"
	"strings"
)

// Legacy search rows carry at least these columns:
// datetime, Lot, Serial, FullCode, Name, Notes, Active.
const (
	legacyMinFields   = 7
	legacyLotField    = 1
	legacySerialField = 2
	legacyActiveField = 6
)

// Query is the parsed form of a search string. It is either a
// FullCodeQuery or a LegacyQuery.
type Query interface {
	isQuery()
}

// FullCodeQuery is a bare 12-digit sample code.
type FullCodeQuery struct {
	FullCode FullCode
}

// LegacyQuery is a comma delimited row in the old export layout.
type LegacyQuery struct {
	LotCode    string
	SerialCode string
	Active     bool
}

func (FullCodeQuery) isQuery() {}
func (LegacyQuery) isQuery()   {}

// ParseQuery parses a user supplied search string. Input without a comma
// must be a 12-digit full code; anything else is read as a single CSV row.
func ParseQuery(input string) (Query, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, &FormatError{Input: input, Message: "empty search string"}
	}

	if !strings.Contains(input, ",") {
		code, err := NewFullCode(input)
		if err != nil {
			return nil, &FormatError{Input: input, Message: err.Error()}
		}
		return FullCodeQuery{FullCode: code}, nil
	}

	r := csv.NewReader(strings.NewReader(input))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	fields, err := r.Read()
	if err != nil {
		return nil, &FormatError{Input: input, Message: err.Error()}
	}
	// a second record means several rows were pasted
	if _, err := r.Read(); err != io.EOF {
		return nil, &FormatError{Input: input, Message: "legacy code must be a single row"}
	}
	if len(fields) < legacyMinFields {
		return nil, &FormatError{Input: input, Message: "legacy code needs at least 7 fields"}
	}

	lotCode := strings.TrimSpace(fields[legacyLotField])
	serialCode := strings.TrimSpace(fields[legacySerialField])
	if lotCode == "" || serialCode == "" {
		return nil, &FormatError{Input: input, Message: "legacy code is missing lot or serial"}
	}

	return LegacyQuery{
		LotCode:    lotCode,
		SerialCode: serialCode,
		Active:     strings.TrimSpace(fields[legacyActiveField]) == "True",
	}, nil
}
