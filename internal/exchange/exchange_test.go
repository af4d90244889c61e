package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/STTM-NSU/market-sync/internal/config"
	"github.com/STTM-NSU/market-sync/internal/logger"
	"github.com/STTM-NSU/market-sync/internal/model"
	"github.com/bytedance/sonic"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *ExchangeService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewExchangeService(config.APIConfig{
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	}, logger.NewNopLogger())
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestGetTickers_BareAndWrapped(t *testing.T) {
	const records = `[{"instId":"ETH-USDT","last":"2000"},{"instId":"BTC-USDT","last":"60000"}]`

	var gotInstType string
	bare := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		gotInstType = r.URL.Query().Get("instType")
		writeJSON(w, http.StatusOK, records)
	})
	wrapped := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":`+records+`}`)
	})

	ctx := context.Background()
	a, err := bare.GetTickers(ctx, model.Spot)
	if err != nil {
		t.Fatalf("bare: %v", err)
	}
	b, err := wrapped.GetTickers(ctx, model.Spot)
	if err != nil {
		t.Fatalf("wrapped: %v", err)
	}

	if gotInstType != "SPOT" {
		t.Errorf("instType query = %q, want SPOT", gotInstType)
	}
	if len(a) != 2 {
		t.Fatalf("len = %d, want 2", len(a))
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("bare and wrapped responses differ:\n%v\n%v", a, b)
	}
}

func TestGetTickers_UnexpectedShape(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"msg":"maintenance"}`)
	})

	_, err := s.GetTickers(context.Background(), model.Swap)
	if !errors.Is(err, model.ErrUnexpectedShape) {
		t.Errorf("err = %v, want ErrUnexpectedShape", err)
	}
}

func TestGet_APIError(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"detail":"invalid key"}`)
	})

	_, err := s.GetBalance(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", apiErr.StatusCode)
	}
	if apiErr.Detail != "invalid key" {
		t.Errorf("Detail = %q, want %q", apiErr.Detail, "invalid key")
	}
}

func TestGetBalance(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/balance" {
			t.Errorf("path = %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, `{"totalEq":"1234.5","details":[]}`)
	})

	balance, err := s.GetBalance(context.Background())
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance.String("totalEq") != "1234.5" {
		t.Errorf("totalEq = %q", balance.String("totalEq"))
	}
}

func TestGetPositions_LargeIntegersKept(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[{"posId":18446744073709551615,"cTime":1712345678901234567}]`)
	})

	positions, err := s.GetPositions(context.Background())
	if err != nil {
		t.Fatalf("GetPositions: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("len = %d, want 1", len(positions))
	}
	if got := positions[0].String("posId"); got != "18446744073709551615" {
		t.Errorf("posId = %s", got)
	}

	data, err := sonic.Marshal(positions)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"cTime":1712345678901234567`) {
		t.Errorf("re-encoded positions lost precision: %s", data)
	}
}

func TestGetHistoryOrders_QueryAndHeaders(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/orders/history" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("instType"); got != "SWAP" {
			t.Errorf("instType = %q, want SWAP", got)
		}
		if r.Header.Get(_requestIDHeader) == "" {
			t.Error("missing request id header")
		}
		writeJSON(w, http.StatusOK, `[{"ordId":"1"},{"ordId":"2"}]`)
	})

	orders, err := s.GetHistoryOrders(context.Background(), model.Swap)
	if err != nil {
		t.Fatalf("GetHistoryOrders: %v", err)
	}
	if len(orders) != 2 || orders[1].String("ordId") != "2" {
		t.Errorf("orders = %v", orders)
	}
}

func TestGetPositions_NotAList(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `null`)
	})

	if _, err := s.GetPositions(context.Background()); !errors.Is(err, model.ErrUnexpectedShape) {
		t.Errorf("err = %v, want ErrUnexpectedShape", err)
	}
}

func TestGet_ContextCanceled(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := s.GetPendingOrders(ctx); err == nil {
		t.Error("expected error for canceled request")
	}
}
