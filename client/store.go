package client

import (
	"context"
	"database/sql"
	"strconv"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// State is the persisted session pair. Both fields are written and cleared
// together; a token without an expiry, or an expiry without a token, is an
// invalid state.
type State struct {
	Token string
	// ExpiresAt is a unix timestamp in milliseconds.
	ExpiresAt int64
}

// Empty reports whether the state holds no session.
func (s State) Empty() bool {
	return s.Token == "" && s.ExpiresAt == 0
}

// Orphaned reports whether only one half of the pair is present.
func (s State) Orphaned() bool {
	return (s.Token == "") != (s.ExpiresAt == 0)
}

// Store persists session state across process restarts.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
	Clear(ctx context.Context) error
}

// MemoryStore is a non-durable Store for tests and short-lived processes.
type MemoryStore struct {
	mu    sync.Mutex
	state State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *MemoryStore) Save(ctx context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = State{}
	return nil
}

var _ Store = (*MemoryStore)(nil)

const (
	keyToken     = "token"
	keyExpiresAt = "expires_at"
)

// stateRecord is a keyed row in the local session_state table.
type stateRecord struct {
	bun.BaseModel `bun:"table:session_state,alias:ss"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value,notnull"`
}

// SQLStore keeps the session pair in a local sqlite database so a session
// survives process restarts. Save and Clear run in a transaction: the token
// and the expiry change together or not at all.
type SQLStore struct {
	db *bun.DB
}

func NewSQLStore(db *bun.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Init creates the backing table.
func (s *SQLStore) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*stateRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create session state table")
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context) (State, error) {
	var records []stateRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.key IN (?, ?)", keyToken, keyExpiresAt).
		Scan(ctx)
	if err != nil {
		return State{}, errors.Wrap(err, errors.CategoryInternal, "failed to load session state")
	}

	state := State{}
	for _, rec := range records {
		switch rec.Key {
		case keyToken:
			state.Token = rec.Value
		case keyExpiresAt:
			state.ExpiresAt = parseMillis(rec.Value)
		}
	}

	return state, nil
}

func (s *SQLStore) Save(ctx context.Context, state State) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		records := []stateRecord{
			{Key: keyToken, Value: state.Token},
			{Key: keyExpiresAt, Value: formatMillis(state.ExpiresAt)},
		}

		_, err := tx.NewInsert().
			Model(&records).
			On("CONFLICT (key) DO UPDATE").
			Set("value = EXCLUDED.value").
			Exec(ctx)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to save session state")
		}
		return nil
	})
}

func (s *SQLStore) Clear(ctx context.Context) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*stateRecord)(nil)).
			Where("?TableAlias.key IN (?, ?)", keyToken, keyExpiresAt).
			Exec(ctx)
		if err != nil && err != sql.ErrNoRows {
			return errors.Wrap(err, errors.CategoryInternal, "failed to clear session state")
		}
		return nil
	})
}

var _ Store = (*SQLStore)(nil)

func parseMillis(s string) int64 {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return ms
}

func formatMillis(ms int64) string {
	return strconv.FormatInt(ms, 10)
}
