package model

import (
	"bytes"
	"fmt"
)

// ListEnvelope accepts either a bare JSON array or an object whose "data"
// field holds the array. Anything else is ErrUnexpectedShape.
type ListEnvelope[T any] struct {
	Items []T
}

func (e *ListEnvelope[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("%w: empty body", ErrUnexpectedShape)
	}

	switch trimmed[0] {
	case '[':
		var items []T
		if err := JSON.Unmarshal(trimmed, &items); err != nil {
			return fmt.Errorf("%w: can't decode list", err)
		}
		e.Items = items
	case '{':
		var wrapper struct {
			Data *[]T `json:"data"`
		}
		if err := JSON.Unmarshal(trimmed, &wrapper); err != nil {
			return fmt.Errorf("%w: can't decode wrapped list", err)
		}
		if wrapper.Data == nil {
			return fmt.Errorf("%w: object without data list", ErrUnexpectedShape)
		}
		e.Items = *wrapper.Data
	default:
		return fmt.Errorf("%w: %.32s", ErrUnexpectedShape, trimmed)
	}

	if e.Items == nil {
		e.Items = make([]T, 0)
	}
	return nil
}
