// Package models defines data structures for Tidemark.
package models

import (
	"fmt"

	"github.com/openquant/tidemark/internal/dates"
)

// SeriesKind distinguishes the categories of time series the system tracks.
// It is a closed set; every kind determines the provider path, the numeric
// fields a row carries and which watermark accessor applies.
type SeriesKind int

const (
	KindTrade SeriesKind = iota
	KindDividend
	KindForex
	KindIndex
)

var kindNames = map[SeriesKind]string{
	KindTrade:    "eod",
	KindDividend: "dividend",
	KindForex:    "forex",
	KindIndex:    "index",
}

// ParseSeriesKind parses a kind name as accepted on the CLI and in config.
func ParseSeriesKind(s string) (SeriesKind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown series kind %q", s)
}

func (k SeriesKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("SeriesKind(%d)", int(k))
}

// Valid reports whether k is one of the defined kinds.
func (k SeriesKind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// PathPrefix returns the provider endpoint prefix for per-instrument history.
// Trade, forex and index series all use the EOD endpoint; dividends have
// their own.
func (k SeriesKind) PathPrefix() string {
	if k == KindDividend {
		return "div"
	}
	return "eod"
}

// BulkEligible reports whether the per-exchange bulk endpoint may serve this
// kind. Dividend data is unreliable via bulk and must always go through the
// per-instrument path.
func (k SeriesKind) BulkEligible() bool {
	return k != KindDividend
}

// SeriesRow is one dated provider row, before it is joined to an internal
// instrument. Trade, forex and index rows populate the OHLCV fields; dividend
// rows populate the dividend fields. Ticker and Exchange are stamped by the
// fetch layer since the historical payload does not echo them back.
type SeriesRow struct {
	Date     dates.Date `json:"date"`
	Ticker   string     `json:"ticker"`
	Exchange string     `json:"exchange"`

	Open     float64 `json:"open,omitempty"`
	High     float64 `json:"high,omitempty"`
	Low      float64 `json:"low,omitempty"`
	Close    float64 `json:"close,omitempty"`
	AdjClose float64 `json:"adjusted_close,omitempty"`
	Volume   int64   `json:"volume,omitempty"`

	DeclarationDate dates.Date `json:"declaration_date,omitempty"`
	RecordDate      dates.Date `json:"record_date,omitempty"`
	PaymentDate     dates.Date `json:"payment_date,omitempty"`
	Period          string     `json:"period,omitempty"`
	Currency        string     `json:"currency,omitempty"`
	Value           float64    `json:"value,omitempty"`
	UnadjustedValue float64    `json:"unadjusted_value,omitempty"`
}

// Identity returns the external (ticker, exchange) identity of the row.
func (r SeriesRow) Identity() string {
	return r.Ticker + "." + r.Exchange
}

// SeriesPoint is one persisted observation for one (instrument, kind) pair.
// Points are immutable once stored; the triple (Kind, InstrumentID, Date) is
// unique and enforced at write time via the insert key.
type SeriesPoint struct {
	Kind         SeriesKind `json:"kind"`
	InstrumentID string     `json:"instrument_id" badgerhold:"index"`
	Date         dates.Date `json:"date"`

	Open     float64 `json:"open,omitempty"`
	High     float64 `json:"high,omitempty"`
	Low      float64 `json:"low,omitempty"`
	Close    float64 `json:"close,omitempty"`
	AdjClose float64 `json:"adjusted_close,omitempty"`
	Volume   int64   `json:"volume,omitempty"`

	DeclarationDate dates.Date `json:"declaration_date,omitempty"`
	RecordDate      dates.Date `json:"record_date,omitempty"`
	PaymentDate     dates.Date `json:"payment_date,omitempty"`
	Period          string     `json:"period,omitempty"`
	Currency        string     `json:"currency,omitempty"`
	Value           float64    `json:"value,omitempty"`
	UnadjustedValue float64    `json:"unadjusted_value,omitempty"`
}

// Key returns the unique storage key for the point.
func (p SeriesPoint) Key() string {
	return fmt.Sprintf("%s|%s|%s", p.Kind, p.InstrumentID, p.Date)
}

// PointFromRow builds a SeriesPoint from a fetched row joined to an
// instrument.
func PointFromRow(kind SeriesKind, instrumentID string, r SeriesRow) SeriesPoint {
	return SeriesPoint{
		Kind:            kind,
		InstrumentID:    instrumentID,
		Date:            r.Date,
		Open:            r.Open,
		High:            r.High,
		Low:             r.Low,
		Close:           r.Close,
		AdjClose:        r.AdjClose,
		Volume:          r.Volume,
		DeclarationDate: r.DeclarationDate,
		RecordDate:      r.RecordDate,
		PaymentDate:     r.PaymentDate,
		Period:          r.Period,
		Currency:        r.Currency,
		Value:           r.Value,
		UnadjustedValue: r.UnadjustedValue,
	}
}

// FetchTask is one per-instrument fetch window, created fresh per
// synchronization run. Overlap with already-stored dates is tolerated; the
// merge engine re-filters strictly against the stored watermark.
type FetchTask struct {
	Instrument *Instrument
	Ticker     string
	Exchange   string
	From       dates.Date
	To         dates.Date
}

// FetchFailure records one instrument whose fetch failed. A failure never
// aborts the surrounding batch.
type FetchFailure struct {
	Instrument *Instrument
	Err        error
}

// FetchMethod selects how a synchronization run retrieves data.
type FetchMethod int

const (
	// MethodAuto picks bulk for short windows and history otherwise.
	MethodAuto FetchMethod = iota
	// MethodHistorical forces per-instrument history calls.
	MethodHistorical
	// MethodBulk forces the per-exchange bulk endpoint.
	MethodBulk
)

// ParseFetchMethod parses a method name as accepted on the CLI.
func ParseFetchMethod(s string) (FetchMethod, error) {
	switch s {
	case "auto":
		return MethodAuto, nil
	case "historical":
		return MethodHistorical, nil
	case "bulk":
		return MethodBulk, nil
	}
	return 0, fmt.Errorf("unknown fetch method %q", s)
}

func (m FetchMethod) String() string {
	switch m {
	case MethodAuto:
		return "auto"
	case MethodHistorical:
		return "historical"
	case MethodBulk:
		return "bulk"
	}
	return fmt.Sprintf("FetchMethod(%d)", int(m))
}
