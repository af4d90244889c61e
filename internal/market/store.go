package market

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/STTM-NSU/market-sync/internal/config"
	"github.com/STTM-NSU/market-sync/internal/logger"
	"github.com/STTM-NSU/market-sync/internal/model"
	"github.com/STTM-NSU/market-sync/internal/storage"
	"github.com/bytedance/sonic"
)

// API is the dashboard backend as seen by the store.
type API interface {
	GetTickers(ctx context.Context, instType model.InstrumentType) ([]model.Ticker, error)
	GetInstruments(ctx context.Context, instType model.InstrumentType) ([]model.Instrument, error)
	GetBalance(ctx context.Context) (model.Record, error)
	GetPositions(ctx context.Context) ([]model.Record, error)
	GetPendingOrders(ctx context.Context) ([]model.Record, error)
	GetHistoryOrders(ctx context.Context, instType model.InstrumentType) ([]model.Record, error)
}

// State is a copy of everything the store exposes.
type State struct {
	Tickers        []model.Ticker     `json:"tickers"`
	Instruments    []model.Instrument `json:"instruments"`
	Loading        bool               `json:"loading"`
	Favorites      []string           `json:"favorites"`
	AccountBalance model.Record       `json:"accountBalance"`
	Positions      []model.Record     `json:"positions"`
	PendingOrders  []model.Record     `json:"pendingOrders"`
	HistoryOrders  []model.Record     `json:"historyOrders"`
	SelectedSymbol string             `json:"selectedSymbol"`
}

// Store keeps the dashboard state in sync with the backend. Each
// wholesale-replaced field is written only by the latest issued fetch for it:
// every fetch takes a sequence number when issued and a result is dropped if a
// later fetch of the same field was already applied.
type Store struct {
	cfg     config.StoreConfig
	api     API
	storage storage.Storage
	logger  logger.Logger

	seq atomic.Uint64

	mu             sync.RWMutex
	tickers        []model.Ticker
	instruments    []model.Instrument
	loading        bool
	favorites      []string
	accountBalance model.Record
	positions      []model.Record
	pendingOrders  []model.Record
	historyOrders  []model.Record
	selectedSymbol string
	applied        map[Field]uint64

	persistMu sync.Mutex

	poll poller

	subsMu sync.Mutex
	subs   map[chan Change]struct{}
}

func NewStore(ctx context.Context, cfg config.StoreConfig, api API, storage storage.Storage, logger logger.Logger) *Store {
	cfg.Setup()

	s := &Store{
		cfg:            cfg,
		api:            api,
		storage:        storage,
		logger:         logger,
		tickers:        make([]model.Ticker, 0),
		instruments:    make([]model.Instrument, 0),
		accountBalance: model.Record{},
		positions:      make([]model.Record, 0),
		pendingOrders:  make([]model.Record, 0),
		historyOrders:  make([]model.Record, 0),
		selectedSymbol: cfg.SelectedSymbol,
		applied:        make(map[Field]uint64),
		subs:           make(map[chan Change]struct{}),
	}
	s.favorites = s.loadFavorites(ctx)

	return s
}

func (s *Store) loadFavorites(ctx context.Context) []string {
	favorites := make([]string, 0)

	data, err := s.storage.Get(ctx, s.cfg.FavoritesKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Errorf("%s: can't load favorites", err)
		}
		return favorites
	}

	var stored []string
	if err := sonic.Unmarshal(data, &stored); err != nil {
		s.logger.Errorf("%s: can't decode favorites %q", err, data)
		return favorites
	}
	for _, id := range stored {
		if !slices.Contains(favorites, id) {
			favorites = append(favorites, id)
		}
	}
	return favorites
}

// Snapshot returns a copy of the whole state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return State{
		Tickers:        slices.Clone(s.tickers),
		Instruments:    slices.Clone(s.instruments),
		Loading:        s.loading,
		Favorites:      slices.Clone(s.favorites),
		AccountBalance: s.accountBalance.Clone(),
		Positions:      slices.Clone(s.positions),
		PendingOrders:  slices.Clone(s.pendingOrders),
		HistoryOrders:  slices.Clone(s.historyOrders),
		SelectedSymbol: s.selectedSymbol,
	}
}

func (s *Store) Tickers() []model.Ticker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tickers)
}

func (s *Store) Favorites() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.favorites)
}

func (s *Store) IsFavorite(instID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.favorites, instID)
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) SelectedSymbol() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedSymbol
}

func (s *Store) SelectSymbol(instID string) {
	s.mu.Lock()
	changed := s.selectedSymbol != instID
	s.selectedSymbol = instID
	s.mu.Unlock()

	if changed {
		s.notify(FieldSelectedSymbol)
	}
}

// ToggleFavorite flips membership of instID, persists the whole set and
// patches the flag of the loaded ticker with that id. Returns the new
// membership. Persistence failures are logged, the in-memory toggle stands.
func (s *Store) ToggleFavorite(ctx context.Context, instID string) bool {
	// persistMu is held across the whole toggle so storage sees toggles in
	// the order they happened; storage I/O runs without s.mu.
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	idx := slices.Index(s.favorites, instID)
	isFavorite := idx < 0
	if isFavorite {
		s.favorites = append(s.favorites, instID)
	} else {
		s.favorites = slices.Delete(s.favorites, idx, idx+1)
	}
	favorites := slices.Clone(s.favorites)

	patched := false
	for i := range s.tickers {
		if s.tickers[i].InstID == instID {
			s.tickers[i].IsFavorite = isFavorite
			patched = true
			break
		}
	}
	s.mu.Unlock()

	s.notify(FieldFavorites)
	if patched {
		s.notify(FieldTickers)
	}

	s.persistFavorites(ctx, favorites)
	return isFavorite
}

func (s *Store) persistFavorites(ctx context.Context, favorites []string) {
	data, err := sonic.Marshal(favorites)
	if err != nil {
		s.logger.Errorf("%s: can't encode favorites", err)
		return
	}
	if err := s.storage.Set(ctx, s.cfg.FavoritesKey, data); err != nil {
		s.logger.Errorf("%s: can't persist favorites", err)
	}
}

// currentInstType is the segment polling keeps refreshing: the tag of the
// loaded tickers, or the configured default when nothing is loaded.
func (s *Store) currentInstType() model.InstrumentType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.tickers) > 0 && s.tickers[0].Tag != "" {
		return s.tickers[0].Tag
	}
	return s.cfg.DefaultInstType
}

// apply runs set under the write lock if the fetch identified by seq is still
// the newest one for field and ctx is still live. Reports whether it applied.
func (s *Store) apply(ctx context.Context, field Field, seq uint64, set func()) bool {
	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		s.logger.Debugf("drop %s result: %s", field, ctx.Err())
		return false
	}
	if last := s.applied[field]; seq < last {
		s.mu.Unlock()
		s.logger.Debugf("drop stale %s result: seq %d < %d", field, seq, last)
		return false
	}
	s.applied[field] = seq
	set()
	s.mu.Unlock()

	s.notify(field)
	return true
}
