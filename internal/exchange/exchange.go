package exchange

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/STTM-NSU/market-sync/internal/config"
	"github.com/STTM-NSU/market-sync/internal/logger"
	"github.com/STTM-NSU/market-sync/internal/model"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"resty.dev/v3"
)

const (
	_tickersURL       = "/api/tickers"
	_instrumentsURL   = "/api/instruments"
	_balanceURL       = "/api/balance"
	_positionsURL     = "/api/positions"
	_pendingOrdersURL = "/api/orders/pending"
	_historyOrdersURL = "/api/orders/history"

	_requestIDHeader = "X-Request-Id"
)

// APIError is a non-2xx answer of the dashboard backend.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend api error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("backend api error %d: %s", e.StatusCode, e.Detail)
}

type ExchangeService struct {
	c   *resty.Client
	cfg config.APIConfig

	logger logger.Logger
}

func NewExchangeService(cfg config.APIConfig, logger logger.Logger) *ExchangeService {
	client := resty.New().
		SetLogger(logger).
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &ExchangeService{
		c:      client,
		cfg:    cfg,
		logger: logger,
	}
}

// get issues one GET and decodes a 2xx body into result with sonic.
func (s *ExchangeService) get(ctx context.Context, path string, query map[string]string, result any) error {
	req := s.c.R().
		SetContext(ctx).
		SetHeader(_requestIDHeader, uuid.NewString()).
		SetQueryParams(query).
		SetDoNotParseResponse(true)

	resp, err := req.Get(path)
	if err != nil {
		return fmt.Errorf("%w: can't send request %s", err, path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: can't read response %s", err, path)
	}

	s.logger.Debugf("got response %s status: %s, %s", resp.Request.URL, resp.Status(), resp.Duration())

	if resp.IsError() {
		var errResp model.ErrorResponse
		if err := sonic.Unmarshal(body, &errResp); err != nil {
			errResp.Detail = string(body)
		}
		return &APIError{StatusCode: resp.StatusCode(), Detail: errResp.Detail}
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%s unexpected response status: %s", path, resp.Status())
	}

	if err := model.JSON.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: can't decode %s", err, path)
	}
	return nil
}

// GetTickers accepts both a bare list and a {"data": [...]} wrapper.
func (s *ExchangeService) GetTickers(ctx context.Context, instType model.InstrumentType) ([]model.Ticker, error) {
	var env model.ListEnvelope[model.Ticker]
	if err := s.get(ctx, _tickersURL, map[string]string{"instType": string(instType)}, &env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

func (s *ExchangeService) GetInstruments(ctx context.Context, instType model.InstrumentType) ([]model.Instrument, error) {
	var env model.ListEnvelope[model.Instrument]
	if err := s.get(ctx, _instrumentsURL, map[string]string{"instType": string(instType)}, &env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

func (s *ExchangeService) GetBalance(ctx context.Context) (model.Record, error) {
	var balance model.Record
	if err := s.get(ctx, _balanceURL, nil, &balance); err != nil {
		return nil, err
	}
	if balance == nil {
		return nil, fmt.Errorf("%w: balance is not an object", model.ErrUnexpectedShape)
	}
	return balance, nil
}

func (s *ExchangeService) GetPositions(ctx context.Context) ([]model.Record, error) {
	return s.getRecords(ctx, _positionsURL, nil)
}

func (s *ExchangeService) GetPendingOrders(ctx context.Context) ([]model.Record, error) {
	return s.getRecords(ctx, _pendingOrdersURL, nil)
}

func (s *ExchangeService) GetHistoryOrders(ctx context.Context, instType model.InstrumentType) ([]model.Record, error) {
	return s.getRecords(ctx, _historyOrdersURL, map[string]string{"instType": string(instType)})
}

func (s *ExchangeService) getRecords(ctx context.Context, path string, query map[string]string) ([]model.Record, error) {
	var records []model.Record
	if err := s.get(ctx, path, query, &records); err != nil {
		return nil, err
	}
	if records == nil {
		return nil, fmt.Errorf("%w: %s is not a list", model.ErrUnexpectedShape, path)
	}
	return records, nil
}
