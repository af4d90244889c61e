package model

import (
	"errors"
	"reflect"
	"testing"

	"github.com/bytedance/sonic"
)

func TestListEnvelope_Shapes(t *testing.T) {
	bare := `[{"instId":"ETH-USDT","last":"2000"},{"instId":"BTC-USDT","last":"60000"}]`
	wrapped := `{"code":"0","data":[{"instId":"ETH-USDT","last":"2000"},{"instId":"BTC-USDT","last":"60000"}]}`

	var a, b ListEnvelope[Ticker]
	if err := sonic.Unmarshal([]byte(bare), &a); err != nil {
		t.Fatalf("bare: %v", err)
	}
	if err := sonic.Unmarshal([]byte(wrapped), &b); err != nil {
		t.Fatalf("wrapped: %v", err)
	}

	if len(a.Items) != 2 {
		t.Fatalf("len(bare) = %d, want 2", len(a.Items))
	}
	if !reflect.DeepEqual(a.Items, b.Items) {
		t.Errorf("bare and wrapped differ:\n%v\n%v", a.Items, b.Items)
	}
	if a.Items[0].InstID != "ETH-USDT" || a.Items[0].Fields.String("last") != "2000" {
		t.Errorf("unexpected first ticker: %+v", a.Items[0])
	}
}

func TestListEnvelope_EmptyList(t *testing.T) {
	var e ListEnvelope[Record]
	if err := sonic.Unmarshal([]byte(`[]`), &e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Items == nil || len(e.Items) != 0 {
		t.Errorf("Items = %#v, want empty non-nil slice", e.Items)
	}
}

func TestListEnvelope_UnexpectedShape(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"string", `"oops"`},
		{"number", `42`},
		{"object without data", `{"detail":"boom"}`},
		{"null data", `{"data":null}`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e ListEnvelope[Ticker]
			err := e.UnmarshalJSON([]byte(tt.body))
			if !errors.Is(err, ErrUnexpectedShape) {
				t.Errorf("err = %v, want ErrUnexpectedShape", err)
			}
		})
	}
}
