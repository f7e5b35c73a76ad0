package alarm

import (
	"time"

	"github.com/google/uuid"
)

// Registry is the insertion-ordered alarm collection. Firing never disables
// an alarm: an enabled alarm rings once every day at its minute, and the
// trigger key keeps it from ringing twice within that minute.
type Registry struct {
	entries []Entry
	newID   func() string
}

// NewRegistry returns an empty registry that issues UUIDs.
func NewRegistry() *Registry {
	return &Registry{newID: uuid.NewString}
}

// Restore replaces the collection, keeping order. Invalid entries and
// repeated ids are dropped.
func (r *Registry) Restore(entries []Entry) {
	kept := make([]Entry, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.ID == "" || seen[e.ID] || ValidateTime(e.Hour, e.Minute) != nil {
			continue
		}
		seen[e.ID] = true
		kept = append(kept, e)
	}
	r.entries = kept
}

// Entries returns a copy of the alarms in insertion order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of alarms.
func (r *Registry) Len() int { return len(r.entries) }

// Add appends an enabled alarm. Out-of-range input returns ErrInvalidTime
// and leaves the registry unchanged.
func (r *Registry) Add(hour, minute int) (Entry, error) {
	if err := ValidateTime(hour, minute); err != nil {
		return Entry{}, err
	}
	e := Entry{ID: r.newID(), Hour: hour, Minute: minute, Enabled: true}
	r.entries = append(r.entries, e)
	return e, nil
}

// AddText parses "HH:MM" and adds the alarm.
func (r *Registry) AddText(s string) (Entry, error) {
	hour, minute, err := ParseTimeOfDay(s)
	if err != nil {
		return Entry{}, err
	}
	return r.Add(hour, minute)
}

// Get returns the alarm with id.
func (r *Registry) Get(id string) (Entry, error) {
	i := r.index(id)
	if i < 0 {
		return Entry{}, ErrNotFound
	}
	return r.entries[i], nil
}

// Toggle flips the enabled flag and returns the updated alarm.
func (r *Registry) Toggle(id string) (Entry, error) {
	i := r.index(id)
	if i < 0 {
		return Entry{}, ErrNotFound
	}
	r.entries[i].Enabled = !r.entries[i].Enabled
	return r.entries[i], nil
}

// Remove deletes the alarm with id, preserving the order of the rest.
func (r *Registry) Remove(id string) error {
	i := r.index(id)
	if i < 0 {
		return ErrNotFound
	}
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	return nil
}

// Evaluate returns the enabled alarms matching now's hour and minute, plus
// the trigger key to persist. Nothing fires when now's key equals
// lastKey, so repeated calls within one minute fire at most once; in that
// case, and when nothing matches, lastKey is returned unchanged.
func (r *Registry) Evaluate(now time.Time, lastKey string) ([]Entry, string) {
	key := TriggerKey(now)
	if key == lastKey {
		return nil, lastKey
	}

	var fired []Entry
	for _, e := range r.entries {
		if e.Enabled && e.Matches(now) {
			fired = append(fired, e)
		}
	}
	if len(fired) == 0 {
		return nil, lastKey
	}
	return fired, key
}

func (r *Registry) index(id string) int {
	for i, e := range r.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
