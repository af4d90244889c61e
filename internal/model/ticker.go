package model

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
)

type InstrumentType string

const (
	Spot    InstrumentType = "SPOT"
	Swap    InstrumentType = "SWAP"
	Futures InstrumentType = "FUTURES"
	Option  InstrumentType = "OPTION"
)

func (t InstrumentType) Valid() bool {
	switch t {
	case Spot, Swap, Futures, Option:
		return true
	default:
		return false
	}
}

// Ticker is an upstream ticker record annotated with the segment it was
// requested for and the local favorite flag. Fields holds every upstream
// field untouched.
type Ticker struct {
	InstID     string
	Tag        InstrumentType
	IsFavorite bool
	Fields     Record
}

func (t Ticker) GetUID() string {
	return t.InstID
}

func (t Ticker) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(t.Fields)+3)
	for k, v := range t.Fields {
		out[k] = v
	}
	out["instId"] = t.InstID
	out["tag"] = t.Tag
	out["isFavorite"] = t.IsFavorite
	return sonic.Marshal(out)
}

func (t *Ticker) UnmarshalJSON(data []byte) error {
	var fields Record
	if err := JSON.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("%w: ticker is not an object", ErrUnexpectedShape)
	}

	t.InstID = fields.String("instId")
	if tag, ok := fields["tag"].(string); ok {
		t.Tag = InstrumentType(tag)
	}
	if fav, ok := fields["isFavorite"].(bool); ok {
		t.IsFavorite = fav
	}
	delete(fields, "instId")
	delete(fields, "tag")
	delete(fields, "isFavorite")
	t.Fields = fields
	return nil
}

// ChangePercent is the 24h change between open24h and last, in percent.
func (t Ticker) ChangePercent() (decimal.Decimal, error) {
	last, err := decimal.NewFromString(t.Fields.String("last"))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: can't parse last price", err)
	}
	open, err := decimal.NewFromString(t.Fields.String("open24h"))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: can't parse open24h price", err)
	}
	if open.IsZero() {
		return decimal.Zero, nil
	}
	return last.Sub(open).Div(open).Mul(decimal.NewFromInt(100)), nil
}
