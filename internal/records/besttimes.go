package records

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Record is one best completion time. Username is empty for the anonymous
// local scope.
type Record struct {
	Username   string    `json:"username,omitempty"`
	Difficulty string    `json:"difficulty"`
	Seconds    int       `json:"seconds"`
	SetAt      time.Time `json:"set_at"`
}

// BestTimes keeps the lowest completed time per difficulty, optionally
// scoped to a player. A record is written only when it improves on the
// stored best.
type BestTimes struct {
	store *Store
}

func NewBestTimes(db *sql.DB) (*BestTimes, error) {
	store, err := NewStore(db, "besttimes")
	if err != nil {
		return nil, fmt.Errorf("unable to create records store: %w", err)
	}
	return &BestTimes{store: store}, nil
}

// The anonymous scope and player scopes share one store; keys are
// "difficulty" or "username:difficulty". Difficulty names never contain a
// colon, usernames may, so the username goes first and we cut on the last
// separator when listing.
func key(username, difficulty string) string {
	if username == "" {
		return difficulty
	}
	return username + ":" + difficulty
}

// Best returns the stored best for a difficulty, or nil if none is set.
func (b *BestTimes) Best(username, difficulty string) (*Record, error) {
	rec, err := b.store.Get(key(username, difficulty))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Submit records a completed time and reports whether it improved (and
// therefore replaced) the stored best.
func (b *BestTimes) Submit(username, difficulty string, seconds int) (bool, error) {
	current, err := b.Best(username, difficulty)
	if err != nil {
		return false, err
	}
	if current != nil && current.Seconds <= seconds {
		return false, nil
	}
	rec := Record{
		Username:   username,
		Difficulty: difficulty,
		Seconds:    seconds,
		SetAt:      time.Now().UTC(),
	}
	if err := b.store.Put(key(username, difficulty), rec); err != nil {
		return false, err
	}
	return true, nil
}

// All lists every record in a scope, anonymous scope included when
// username is empty.
func (b *BestTimes) All(username string) ([]Record, error) {
	keys, err := b.store.Keys()
	if err != nil {
		return nil, err
	}

	scoped := lo.Filter(keys, func(k string, _ int) bool {
		i := strings.LastIndex(k, ":")
		if username == "" {
			return i < 0
		}
		return i >= 0 && k[:i] == username
	})

	records := make([]Record, 0, len(scoped))
	for _, k := range scoped {
		rec, err := b.store.Get(k)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}
