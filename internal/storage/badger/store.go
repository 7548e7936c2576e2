// Package badger provides the BadgerHold-backed canonical store for
// instruments and time-series points.
package badger

import (
	"errors"
	"fmt"
	"os"

	"github.com/timshannon/badgerhold/v4"

	"github.com/openquant/tidemark/internal/common"
	"github.com/openquant/tidemark/internal/interfaces"
)

// ErrDuplicatePoint is returned when an insert collides with an existing
// (kind, instrument, date) key. This indicates a logic fault upstream of the
// store and is never retried.
var ErrDuplicatePoint = errors.New("duplicate time-series point")

// Store wraps a BadgerHold database holding the instrument registry and the
// append-only time-series points.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// NewStore opens a BadgerHold store at the given directory path.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", path, err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // disable default badger logger

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Str("path", path).Msg("BadgerHold store opened")

	return &Store{
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure Store satisfies the combined storage contract.
var _ interfaces.Store = (*Store)(nil)
