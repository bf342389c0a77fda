package editor

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/trialdraft/internal/client/models"
	"github.com/dmitrijs2005/trialdraft/internal/client/schema"
	"github.com/oklog/ulid/v2"
)

// Recorder builds change log entries. Entry ids are ULIDs, so they sort
// in creation order even within one millisecond.
type Recorder struct {
	actor string
	now   func() time.Time

	mu      sync.Mutex
	entropy io.Reader
}

func NewRecorder(actor string, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	if actor == "" {
		actor = "unknown"
	}
	return &Recorder{
		actor:   actor,
		now:     now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (r *Recorder) Actor() string { return r.actor }

// Entry records one change. old and new may be any value; they are stored
// as display strings.
func (r *Recorder) Entry(key models.SectionKey, field string, action models.ChangeAction, old, new any) models.ChangeLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := r.now().UTC()
	return models.ChangeLogEntry{
		ID:         ulid.MustNew(ulid.Timestamp(ts), r.entropy).String(),
		Timestamp:  ts,
		Actor:      r.actor,
		Action:     action,
		SectionKey: key,
		Field:      field,
		OldValue:   schema.Stringify(old),
		NewValue:   schema.Stringify(new),
	}
}

// ItemPath names a field of a sub-item: "collection[id].field". An empty
// field names the sub-item itself.
func ItemPath(collection, id, field string) string {
	p := collection + "[" + id + "]"
	if field == "" {
		return p
	}
	return p + "." + field
}
