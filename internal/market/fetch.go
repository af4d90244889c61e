package market

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/STTM-NSU/market-sync/internal/model"
)

// FetchTickers replaces the ticker list with the segment's tickers. An empty
// instType means SPOT. Failures are logged and the previous list is kept.
func (s *Store) FetchTickers(ctx context.Context, instType model.InstrumentType) {
	if err := s.fetchTickers(ctx, instType); err != nil {
		s.logger.Errorf("%s: can't fetch tickers", err)
	}
}

func (s *Store) FetchInstruments(ctx context.Context, instType model.InstrumentType) {
	if err := s.fetchInstruments(ctx, instType); err != nil {
		s.logger.Errorf("%s: can't fetch instruments", err)
	}
}

func (s *Store) FetchBalance(ctx context.Context) {
	if err := s.fetchBalance(ctx); err != nil {
		s.logger.Errorf("%s: can't fetch balance", err)
	}
}

func (s *Store) FetchPositions(ctx context.Context) {
	if err := s.fetchPositions(ctx); err != nil {
		s.logger.Errorf("%s: can't fetch positions", err)
	}
}

// FetchOrders refreshes pending and history orders concurrently. Each list is
// applied on its own: one failing does not hold back the other.
func (s *Store) FetchOrders(ctx context.Context) {
	if err := s.fetchOrders(ctx); err != nil {
		s.logger.Errorf("%s: can't fetch orders", err)
	}
}

func (s *Store) fetchTickers(ctx context.Context, instType model.InstrumentType) error {
	if instType == "" {
		instType = model.Spot
	}
	seq := s.seq.Add(1)

	s.mu.Lock()
	startLoading := len(s.tickers) == 0 && !s.loading
	if startLoading {
		s.loading = true
	}
	s.mu.Unlock()
	if startLoading {
		s.notify(FieldLoading)
	}
	defer s.clearLoading()

	tickers, err := s.api.GetTickers(ctx, instType)
	if err != nil {
		return fmt.Errorf("%w: %s tickers", err, instType)
	}

	s.apply(ctx, FieldTickers, seq, func() {
		for i := range tickers {
			tickers[i].Tag = instType
			tickers[i].IsFavorite = slices.Contains(s.favorites, tickers[i].InstID)
		}
		s.tickers = tickers
	})
	return nil
}

func (s *Store) clearLoading() {
	s.mu.Lock()
	wasLoading := s.loading
	s.loading = false
	s.mu.Unlock()

	if wasLoading {
		s.notify(FieldLoading)
	}
}

func (s *Store) fetchInstruments(ctx context.Context, instType model.InstrumentType) error {
	if instType == "" {
		instType = model.Spot
	}
	seq := s.seq.Add(1)

	instruments, err := s.api.GetInstruments(ctx, instType)
	if err != nil {
		return fmt.Errorf("%w: %s instruments", err, instType)
	}

	s.apply(ctx, FieldInstruments, seq, func() {
		s.instruments = instruments
	})
	return nil
}

func (s *Store) fetchBalance(ctx context.Context) error {
	seq := s.seq.Add(1)

	balance, err := s.api.GetBalance(ctx)
	if err != nil {
		return err
	}

	s.apply(ctx, FieldAccountBalance, seq, func() {
		s.accountBalance = balance
	})
	return nil
}

func (s *Store) fetchPositions(ctx context.Context) error {
	seq := s.seq.Add(1)

	positions, err := s.api.GetPositions(ctx)
	if err != nil {
		return err
	}

	s.apply(ctx, FieldPositions, seq, func() {
		s.positions = positions
	})
	return nil
}

func (s *Store) fetchOrders(ctx context.Context) error {
	pendingSeq := s.seq.Add(1)
	historySeq := s.seq.Add(1)

	var (
		wg                     sync.WaitGroup
		pendingErr, historyErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		orders, err := s.api.GetPendingOrders(ctx)
		if err != nil {
			pendingErr = fmt.Errorf("%w: pending orders", err)
			return
		}
		s.apply(ctx, FieldPendingOrders, pendingSeq, func() {
			s.pendingOrders = orders
		})
	}()
	go func() {
		defer wg.Done()
		orders, err := s.api.GetHistoryOrders(ctx, s.cfg.HistoryInstType)
		if err != nil {
			historyErr = fmt.Errorf("%w: history orders", err)
			return
		}
		s.apply(ctx, FieldHistoryOrders, historySeq, func() {
			s.historyOrders = orders
		})
	}()
	wg.Wait()

	return errors.Join(pendingErr, historyErr)
}
