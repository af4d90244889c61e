package market

type Field string

const (
	FieldTickers        Field = "tickers"
	FieldInstruments    Field = "instruments"
	FieldLoading        Field = "loading"
	FieldFavorites      Field = "favorites"
	FieldAccountBalance Field = "accountBalance"
	FieldPositions      Field = "positions"
	FieldPendingOrders  Field = "pendingOrders"
	FieldHistoryOrders  Field = "historyOrders"
	FieldSelectedSymbol Field = "selectedSymbol"
)

// Change tells a subscriber which field was written. Subscribers read the new
// value through Snapshot.
type Change struct {
	Field Field `json:"field"`
}

const _subscriberBuffer = 64

// Subscribe registers a change listener. Delivery never blocks the store: a
// subscriber that falls behind by more than the buffer misses notifications.
// The returned func unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, _subscriberBuffer)

	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()

	unsubscribe := func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
	return ch, unsubscribe
}

func (s *Store) notify(field Field) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	for ch := range s.subs {
		select {
		case ch <- Change{Field: field}:
		default:
		}
	}
}
