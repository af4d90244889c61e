package model

import "github.com/bytedance/sonic"

type Instrument struct {
	InstID   string
	InstType InstrumentType
	BaseCcy  string
	QuoteCcy string
	Fields   Record
}

func (i Instrument) GetUID() string {
	return i.InstID
}

func (i Instrument) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(i.Fields)+4)
	for k, v := range i.Fields {
		out[k] = v
	}
	out["instId"] = i.InstID
	out["instType"] = i.InstType
	out["baseCcy"] = i.BaseCcy
	out["quoteCcy"] = i.QuoteCcy
	return sonic.Marshal(out)
}

func (i *Instrument) UnmarshalJSON(data []byte) error {
	var fields Record
	if err := JSON.Unmarshal(data, &fields); err != nil {
		return err
	}
	i.InstID = fields.String("instId")
	i.InstType = InstrumentType(fields.String("instType"))
	i.BaseCcy = fields.String("baseCcy")
	i.QuoteCcy = fields.String("quoteCcy")
	for _, k := range []string{"instId", "instType", "baseCcy", "quoteCcy"} {
		delete(fields, k)
	}
	i.Fields = fields
	return nil
}
