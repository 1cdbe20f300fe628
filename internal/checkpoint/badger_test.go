package checkpoint

import (
	"context"
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"github.com/loom-graph/loom/pkg/common"
	"github.com/loom-graph/loom/pkg/pipeline"
)

func openStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	state := common.NewProcessingState("run-1", []common.Document{
		{ID: "d1", Title: "Doc1", Date: "2019-01-02", Content: "text"},
	})
	state.Status = common.StatusPaused
	state.CurrentDocumentIndex = 1
	state.Graph.Entities["grimes"] = &common.Entity{
		ID: "grimes", Name: "Grimes", Type: common.EntityTypePerson,
		Occurrences:  []common.Occurrence{{DocumentTitle: "Doc1"}},
		Significance: common.SignificanceMinor,
	}

	if err := s.Save(ctx, state); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != common.StatusPaused || got.CurrentDocumentIndex != 1 {
		t.Errorf("state = %s at %d", got.Status, got.CurrentDocumentIndex)
	}
	e, ok := got.Graph.Entities["grimes"]
	if !ok {
		t.Fatal("entity map not reconstructed")
	}
	if e.Name != "Grimes" || len(e.Occurrences) != 1 {
		t.Errorf("entity = %+v", e)
	}
}

func TestLoadMissing(t *testing.T) {
	s := openStore(t)
	_, err := s.Load(context.Background(), "absent")
	if !errors.Is(err, pipeline.ErrNoCheckpoint) {
		t.Fatalf("err = %v, want ErrNoCheckpoint", err)
	}
}

func TestLoadCorruptPayload(t *testing.T) {
	s := openStore(t)

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key("run-1"), []byte("{not json"))
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Load(context.Background(), "run-1"); !errors.Is(err, pipeline.ErrNoCheckpoint) {
		t.Fatalf("corrupt payload must read as absent, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	state := common.NewProcessingState("run-1", nil)
	if err := s.Save(ctx, state); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "run-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "run-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, "run-1"); !errors.Is(err, pipeline.ErrNoCheckpoint) {
		t.Fatalf("err = %v, want ErrNoCheckpoint after delete", err)
	}
}
