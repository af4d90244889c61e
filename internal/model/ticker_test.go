package model

import (
	"testing"

	"github.com/bytedance/sonic"
)

func TestTicker_JSONIsFlat(t *testing.T) {
	var tk Ticker
	if err := sonic.Unmarshal([]byte(`{"instId":"ETH-USDT","price":"2000"}`), &tk); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	tk.Tag = Spot

	data, err := sonic.Marshal(tk)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]any
	if err := sonic.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal flat: %v", err)
	}

	want := map[string]any{
		"instId":     "ETH-USDT",
		"price":      "2000",
		"tag":        "SPOT",
		"isFavorite": false,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestTicker_ChangePercent(t *testing.T) {
	tests := []struct {
		name    string
		fields  Record
		want    string
		wantErr bool
	}{
		{"up", Record{"last": "110", "open24h": "100"}, "10", false},
		{"down", Record{"last": "75", "open24h": "100"}, "-25", false},
		{"zero open", Record{"last": "75", "open24h": "0"}, "0", false},
		{"missing last", Record{"open24h": "100"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Ticker{Fields: tt.fields}.ChangePercent()
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("ChangePercent() = %s, want %s", got, tt.want)
			}
		})
	}
}
