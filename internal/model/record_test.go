package model

import (
	"strings"
	"testing"

	"github.com/bytedance/sonic"
)

func TestTicker_LargeNumbersKept(t *testing.T) {
	const body = `{"instId":"BTC-USDT","ts":9007199254740993,"last":64000.125}`

	var tk Ticker
	if err := JSON.Unmarshal([]byte(body), &tk); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := tk.Fields.String("ts"); got != "9007199254740993" {
		t.Errorf("ts = %s, want 9007199254740993", got)
	}

	data, err := sonic.Marshal(tk)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"ts":9007199254740993`, `"last":64000.125`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("%s missing from %s", want, data)
		}
	}
}

func TestTicker_NumericChangePercent(t *testing.T) {
	var tk Ticker
	if err := JSON.Unmarshal([]byte(`{"instId":"ETH-USDT","last":110,"open24h":100}`), &tk); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got, err := tk.ChangePercent()
	if err != nil {
		t.Fatalf("ChangePercent: %v", err)
	}
	if got.String() != "10" {
		t.Errorf("ChangePercent() = %s, want 10", got)
	}
}
