package usersink

import (
	"context"
	"testing"

	"github.com/goliatone/go-observer/pkg/audit"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookMapsEventToActivityRecord(t *testing.T) {
	sink := &recordingSink{}
	hook := Hook{Sink: sink}

	actorID := uuid.NewString()
	err := hook.Notify(context.Background(), audit.Event{
		Verb:       audit.VerbPropertyChanged,
		ActorID:    actorID,
		ObjectType: "account",
		ObjectID:   "acc-1",
		Property:   "Name",
		Metadata:   map[string]any{"new_value": "savings"},
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.Verb != audit.VerbPropertyChanged || record.ObjectType != "account" || record.ObjectID != "acc-1" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.ActorID.String() != actorID {
		t.Fatalf("expected parsed actor id, got %s", record.ActorID)
	}
	if record.Data["property"] != "Name" || record.Data["new_value"] != "savings" {
		t.Fatalf("unexpected data: %+v", record.Data)
	}
	if record.OccurredAt.IsZero() {
		t.Fatalf("expected timestamp")
	}
}

func TestHookIgnoresInvalidUUIDs(t *testing.T) {
	sink := &recordingSink{}
	hook := Hook{Sink: sink}

	err := hook.Notify(context.Background(), audit.Event{
		Verb:       audit.VerbChangesAccepted,
		ActorID:    "not-a-uuid",
		ObjectType: "account",
		ObjectID:   "acc-1",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sink.records[0].ActorID != uuid.Nil {
		t.Fatalf("expected nil uuid for unparseable actor, got %s", sink.records[0].ActorID)
	}
}

func TestHookSkipsIncompleteEvents(t *testing.T) {
	sink := &recordingSink{}
	hook := Hook{Sink: sink}

	if err := hook.Notify(context.Background(), audit.Event{Verb: "x"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 0 {
		t.Fatalf("expected no records, got %d", len(sink.records))
	}
}

func TestHookWithoutSinkIsNoOp(t *testing.T) {
	hook := Hook{}
	if err := hook.Notify(context.Background(), audit.Event{Verb: "x", ObjectType: "y", ObjectID: "z"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
}
