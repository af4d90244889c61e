package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/bytedance/sonic"
)

var ErrUnexpectedShape = errors.New("unexpected response shape")

// JSON decodes upstream bodies. Numbers stay json.Number so records re-encode
// exactly as received.
var JSON = sonic.Config{UseNumber: true}.Froze()

// Record is an opaque upstream object (balance, position, order).
type Record map[string]any

func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// ErrorResponse is the error body of the dashboard backend.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
