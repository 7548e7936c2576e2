package models

import "fmt"

// InstrumentClass groups instruments sharing time-series capability.
type InstrumentClass int

const (
	ClassEquity InstrumentClass = iota
	ClassETF
	ClassIndex
	ClassForex
)

var classNames = map[InstrumentClass]string{
	ClassEquity: "equity",
	ClassETF:    "etf",
	ClassIndex:  "index",
	ClassForex:  "forex",
}

// ParseInstrumentClass parses a class name as accepted on the CLI.
func ParseInstrumentClass(s string) (InstrumentClass, error) {
	for c, name := range classNames {
		if name == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown instrument class %q", s)
}

func (c InstrumentClass) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return fmt.Sprintf("InstrumentClass(%d)", int(c))
}

// InstrumentStatus tracks whether an instrument still takes part in fetch
// cycles.
type InstrumentStatus int

const (
	StatusActive InstrumentStatus = iota
	StatusDelisted
)

func (s InstrumentStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusDelisted:
		return "delisted"
	}
	return fmt.Sprintf("InstrumentStatus(%d)", int(s))
}

// Instrument is any entity owning a time series: a listed equity, an ETF, an
// index or a currency pair. ID is immutable after creation; the external
// (Ticker, Exchange) identity may be updated by reconciliation.
type Instrument struct {
	ID       string           `json:"id"`
	Ticker   string           `json:"ticker" badgerhold:"index"`
	Exchange string           `json:"exchange"`
	Name     string           `json:"name,omitempty"`
	Currency string           `json:"currency"`
	Class    InstrumentClass  `json:"class"`
	Status   InstrumentStatus `json:"status"`

	// CentsQuoted marks instruments whose raw prices are stored in cents;
	// consumers always receive values normalized to currency units.
	CentsQuoted bool `json:"cents_quoted,omitempty"`

	// Distributing marks instruments expected to pay distributions. A
	// wholly-absent dividend series for a distributing instrument is an
	// error in total-return computations.
	Distributing bool `json:"distributing,omitempty"`
}

// Identity returns the external provider identity, e.g. "BHP.AU".
func (i *Instrument) Identity() string {
	return i.Ticker + "." + i.Exchange
}

// Active reports whether the instrument takes part in fetch cycles.
func (i *Instrument) Active() bool {
	return i.Status == StatusActive
}
