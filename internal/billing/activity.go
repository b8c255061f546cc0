package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SystemActor is the actor id used by scheduled transitions.
const SystemActor = "system"

// ActivityRecord is the audit entry for an applied transition. The engine builds it; the
// activity log owns storage.
type ActivityRecord struct {
	EventID      string       `json:"event_id"`
	ActorID      string       `json:"actor_id"`
	Action       string       `json:"action"`
	DocumentKind DocumentKind `json:"document_kind"`
	DocumentID   int64        `json:"document_id"`
	FromStatus   string       `json:"from_status"`
	ToStatus     string       `json:"to_status"`
	Timestamp    time.Time    `json:"timestamp"`
}

// NewActivityRecord names the action after the target, e.g. "quote.mark_sent".
func NewActivityRecord(d Decision, actorID string, now time.Time) ActivityRecord {
	return ActivityRecord{
		EventID:      uuid.NewString(),
		ActorID:      actorID,
		Action:       ActionName(d),
		DocumentKind: d.Kind,
		DocumentID:   d.DocumentID,
		FromStatus:   d.From,
		ToStatus:     d.To,
		Timestamp:    now.UTC(),
	}
}

func ActionName(d Decision) string {
	verb := "mark_" + strings.ToLower(d.To)
	switch d.To {
	case string(QuoteAccepted):
		verb = "accept"
	case string(QuoteRejected):
		verb = "reject"
	case string(QuoteInvoiced):
		verb = "convert"
	}
	return string(d.Kind) + "." + verb
}

// NotifiesRecipient reports whether the transition should trigger the email sender.
func NotifiesRecipient(d Decision) bool {
	return d.To == string(QuoteSent) && d.From == string(QuoteDraft)
}
