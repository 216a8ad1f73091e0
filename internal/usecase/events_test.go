package usecase_test

import (
	"context"
	"errors"
	"testing"

	"vendtrustd/internal/domain"
)

func TestRecordAssignsSeverityFromTable(t *testing.T) {
	f := newFixture(t)
	event, err := f.registry.Events.Record(context.Background(), domain.EventBadSignature, testMachine, "boom")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if event.Severity != domain.SeverityHigh {
		t.Fatalf("severity = %s, want high", event.Severity)
	}
	if event.EventID == "" || event.CreatedAt.IsZero() {
		t.Fatal("event must get an id and timestamp")
	}

	if _, err := f.registry.Events.Record(context.Background(), "made_up", testMachine, "boom"); !errors.Is(err, domain.ErrUnknownEventType) {
		t.Fatalf("err = %v, want ErrUnknownEventType", err)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	f := newFixture(t)
	recorder := f.registry.Events
	event, err := recorder.Record(context.Background(), domain.EventUnknownMachine, "", "probe")
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := recorder.Resolve(context.Background(), event.EventID, "ops"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := recorder.Resolve(context.Background(), event.EventID, "ops"); err != nil {
		t.Fatalf("second resolve must be a no-op success: %v", err)
	}
	if err := recorder.Resolve(context.Background(), "nope", "ops"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown event: err = %v, want ErrNotFound", err)
	}

	unresolved, err := recorder.List(context.Background(), true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(unresolved) != 0 {
		t.Fatalf("unresolved = %d, want 0", len(unresolved))
	}

	stored, err := f.events.Get(context.Background(), event.EventID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !stored.IsResolved || stored.ResolvedAt == nil || stored.ResolvedBy == nil || *stored.ResolvedBy != "ops" {
		t.Fatal("resolution must record actor and time")
	}
}
