package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"billingengine/internal/billing"
	"billingengine/internal/events"
)

type fakeWriter struct {
	stored map[string]billing.ActivityRecord
	err    error
	calls  int
}

func (w *fakeWriter) Insert(_ context.Context, rec billing.ActivityRecord) (bool, error) {
	w.calls++
	if w.err != nil {
		return false, w.err
	}
	if _, ok := w.stored[rec.EventID]; ok {
		return false, nil
	}
	w.stored[rec.EventID] = rec
	return true, nil
}

type fakeDedup struct {
	seen     map[string]bool
	released []string
}

func (d *fakeDedup) AcquireOnce(_ context.Context, handler, key string) bool {
	k := handler + ":" + key
	if d.seen[k] {
		return false
	}
	d.seen[k] = true
	return true
}

func (d *fakeDedup) Release(_ context.Context, handler, key string) {
	delete(d.seen, handler+":"+key)
	d.released = append(d.released, key)
}

func payload(t *testing.T, eventID string) json.RawMessage {
	t.Helper()
	p := events.DocumentTransitionedPayload{
		ActivityRecord: billing.ActivityRecord{
			EventID:      eventID,
			ActorID:      "user-1",
			Action:       "quote.accept",
			DocumentKind: billing.KindQuote,
			DocumentID:   42,
			FromStatus:   "SENT",
			ToStatus:     "ACCEPTED",
			Timestamp:    time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC),
		},
		TraceID: "t1",
	}
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestActivityHandlerStoresOnce(t *testing.T) {
	w := &fakeWriter{stored: map[string]billing.ActivityRecord{}}
	d := &fakeDedup{seen: map[string]bool{}}
	h := NewActivityHandler(w, d, zap.NewNop())

	for i := 0; i < 2; i++ {
		if err := h.HandleDocumentTransitioned(context.Background(), payload(t, "ev-1")); err != nil {
			t.Fatal(err)
		}
	}
	if w.calls != 1 {
		t.Fatalf("insert calls = %d, want 1", w.calls)
	}
	rec := w.stored["ev-1"]
	if rec.Action != "quote.accept" || rec.DocumentID != 42 || rec.ToStatus != "ACCEPTED" {
		t.Fatalf("rec = %+v", rec)
	}
}

func TestActivityHandlerReleasesOnFailure(t *testing.T) {
	w := &fakeWriter{stored: map[string]billing.ActivityRecord{}, err: errors.New("db down")}
	d := &fakeDedup{seen: map[string]bool{}}
	h := NewActivityHandler(w, d, zap.NewNop())

	if err := h.HandleDocumentTransitioned(context.Background(), payload(t, "ev-2")); err == nil {
		t.Fatal("expected error so the message is requeued")
	}
	if len(d.released) != 1 || d.released[0] != "ev-2" {
		t.Fatalf("released = %v", d.released)
	}

	w.err = nil
	if err := h.HandleDocumentTransitioned(context.Background(), payload(t, "ev-2")); err != nil {
		t.Fatal(err)
	}
	if _, ok := w.stored["ev-2"]; !ok {
		t.Fatal("retry should store the record")
	}
}

func TestActivityHandlerWithoutDeduperReliesOnTable(t *testing.T) {
	w := &fakeWriter{stored: map[string]billing.ActivityRecord{}}
	h := NewActivityHandler(w, nil, zap.NewNop())

	for i := 0; i < 2; i++ {
		if err := h.HandleDocumentTransitioned(context.Background(), payload(t, "ev-3")); err != nil {
			t.Fatal(err)
		}
	}
	if w.calls != 2 || len(w.stored) != 1 {
		t.Fatalf("calls = %d stored = %d", w.calls, len(w.stored))
	}
}

func TestActivityHandlerDropsMalformed(t *testing.T) {
	w := &fakeWriter{stored: map[string]billing.ActivityRecord{}}
	h := NewActivityHandler(w, nil, zap.NewNop())

	if err := h.HandleDocumentTransitioned(context.Background(), json.RawMessage(`{"event_id":`)); err != nil {
		t.Fatalf("malformed payload should be acked, got %v", err)
	}
	if err := h.HandleDocumentTransitioned(context.Background(), json.RawMessage(`{"document_id":1}`)); err != nil {
		t.Fatalf("missing event id should be acked, got %v", err)
	}
	if w.calls != 0 {
		t.Fatalf("calls = %d", w.calls)
	}
}
