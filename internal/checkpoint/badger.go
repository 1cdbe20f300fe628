// Package checkpoint persists processing state between runs so an
// interrupted corpus build can resume where it stopped.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/loom-graph/loom/pkg/common"
	"github.com/loom-graph/loom/pkg/logger"
	"github.com/loom-graph/loom/pkg/pipeline"
)

const keyPrefix = "checkpoint:"

// BadgerStore is a BadgerDB-backed checkpoint store holding one
// serialized ProcessingState per run id.
type BadgerStore struct {
	db *badger.DB
}

// Open creates or opens the checkpoint database at path.
func Open(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint DB: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func key(runID string) []byte {
	return []byte(keyPrefix + runID)
}

// Save persists the full processing state for its run id, replacing any
// previous checkpoint.
func (s *BadgerStore) Save(ctx context.Context, state *common.ProcessingState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(state.RunID), data)
	})
}

// Load reads the checkpoint for runID. A missing or unparseable
// checkpoint yields pipeline.ErrNoCheckpoint; a corrupt one must read as
// absent so the operator can start a fresh run instead of crashing.
func (s *BadgerStore) Load(ctx context.Context, runID string) (*common.ProcessingState, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(runID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, pipeline.ErrNoCheckpoint
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}

	var state common.ProcessingState
	if err := json.Unmarshal(data, &state); err != nil {
		logger.Warn("discarding corrupt checkpoint", "run", runID, "err", err)
		return nil, pipeline.ErrNoCheckpoint
	}
	if state.Graph == nil {
		state.Graph = common.NewKnowledgeGraph()
	}
	if state.Graph.Entities == nil {
		state.Graph.Entities = map[string]*common.Entity{}
	}
	if state.Graph.Concepts == nil {
		state.Graph.Concepts = map[string]*common.Concept{}
	}
	return &state, nil
}

// Delete removes the checkpoint for runID. Deleting a checkpoint that
// does not exist is not an error.
func (s *BadgerStore) Delete(ctx context.Context, runID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key(runID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}
