// Package search resolves user entered codes to a lot and sample.
package search

import (
	"errors"
	"fmt"

	"github.com/stsysd/lotbook/model"
)

// Lookup is the read-only part of the record store the resolver needs.
type Lookup interface {
	FindLot(lotCode string) (*model.Lot, error)
	FindSampleByFullCode(fullCode string) (*model.Sample, error)
	FindSampleBySerial(lotCode, serialCode string) (*model.Sample, error)
}

// Result is a resolved lot and sample pair. Active is the sample's own
// flag for a full code search and the pasted flag for a legacy row.
type Result struct {
	Lot    *model.Lot    `json:"lot"`
	Sample *model.Sample `json:"sample"`
	Active bool          `json:"active"`
}

// Resolver translates search strings into lot and sample pairs.
type Resolver struct {
	lookup Lookup
}

// NewResolver creates a resolver backed by lookup.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve parses input and looks the codes up. It never mutates the store.
func (r *Resolver) Resolve(input string) (*Result, error) {
	query, err := model.ParseQuery(input)
	if err != nil {
		return nil, err
	}

	switch q := query.(type) {
	case model.FullCodeQuery:
		return r.resolveFullCode(q)
	case model.LegacyQuery:
		return r.resolveLegacy(q)
	default:
		return nil, fmt.Errorf("unsupported query type %T", query)
	}
}

func (r *Resolver) resolveFullCode(q model.FullCodeQuery) (*Result, error) {
	sample, err := r.lookup.FindSampleByFullCode(q.FullCode.String())
	if err != nil {
		return nil, err
	}
	lot, err := r.lookup.FindLot(q.FullCode.LotCode().String())
	if err != nil {
		return nil, err
	}
	return &Result{Lot: lot, Sample: sample, Active: sample.Active}, nil
}

// resolveLegacy looks the lot and the serial up independently. A sample in
// the named lot wins; otherwise the first sample with that serial in any lot
// is used, as older exports relied on.
func (r *Resolver) resolveLegacy(q model.LegacyQuery) (*Result, error) {
	lot, err := r.lookup.FindLot(q.LotCode)
	if err != nil {
		return nil, err
	}

	sample, err := r.lookup.FindSampleBySerial(q.LotCode, q.SerialCode)
	if errors.Is(err, model.ErrSampleNotFound) {
		sample, err = r.lookup.FindSampleBySerial("", q.SerialCode)
	}
	if err != nil {
		return nil, err
	}

	return &Result{Lot: lot, Sample: sample, Active: q.Active}, nil
}
