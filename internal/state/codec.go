package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/runnerr0/nclock/internal/alarm"
	"github.com/runnerr0/nclock/internal/display"
	"github.com/runnerr0/nclock/internal/stopwatch"
	"github.com/runnerr0/nclock/internal/storage"
)

// Key names, stored under the configured prefix.
const (
	KeyMode           = "mode"
	KeyOffset         = "offsetMin"
	KeyElapsed        = "sw_elapsed"
	KeyLaps           = "sw_laps"
	KeyAlarms         = "alarms"
	KeyLastTriggered  = "last_triggered"
	KeyDarkForced     = "dark_forced"
	KeyLanguage       = "lang"
	KeyCustomHours    = "custom_hours"
	KeyShowSeconds    = "show_seconds"
	KeyClockTransform = "clock_transform"
)

// alarmRecord is the stored shape of an alarm.
type alarmRecord struct {
	ID      string `json:"id"`
	Hour    int    `json:"hour"`
	Minute  int    `json:"minute"`
	Enabled bool   `json:"enabled"`
}

// Codec reads and writes a Snapshot as individual string keys. It remembers
// what it last wrote so unchanged keys are not rewritten.
type Codec struct {
	store    storage.Store
	prefix   string
	defaults Defaults
	written  map[string]string
}

// NewCodec returns a Codec over store with keys under prefix.
func NewCodec(store storage.Store, prefix string, defaults Defaults) *Codec {
	return &Codec{
		store:    store,
		prefix:   prefix,
		defaults: defaults,
		written:  make(map[string]string),
	}
}

// Key returns the full store key for name.
func (c *Codec) Key(name string) string {
	return c.prefix + name
}

// Store returns the underlying store.
func (c *Codec) Store() storage.Store {
	return c.store
}

// Defaults returns the values used for missing keys.
func (c *Codec) Defaults() Defaults {
	return c.defaults
}

// Load reads a Snapshot. Missing or corrupt values fall back to defaults;
// corrupt list entries are dropped individually. Only store failures are
// returned as errors, together with the best-effort snapshot.
func (c *Codec) Load(ctx context.Context) (Snapshot, error) {
	snap := c.defaults.Empty()
	var errs []error

	get := func(name string) (string, bool) {
		v, ok, err := c.store.Get(ctx, c.Key(name))
		if err != nil {
			errs = append(errs, err)
			return "", false
		}
		if ok {
			c.written[c.Key(name)] = v
		}
		return v, ok
	}

	if v, ok := get(KeyMode); ok {
		if m, err := ParseMode(v); err == nil {
			snap.Mode = m
		}
	}
	if v, ok := get(KeyClockTransform); ok {
		if k, err := display.ParseKind(v); err == nil {
			snap.Transform.Kind = k
		}
	}
	if v, ok := get(KeyOffset); ok {
		if n, err := strconv.Atoi(v); err == nil {
			snap.Transform.OffsetMinutes = n
		}
	}
	if v, ok := get(KeyCustomHours); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			snap.Transform.HoursPerDay = display.ClampHours(n)
		}
	}
	if v, ok := get(KeyShowSeconds); ok {
		snap.Transform.ShowSeconds = v == "true"
	}
	if v, ok := get(KeyElapsed); ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms >= 0 {
			snap.StopwatchElapsed = time.Duration(ms) * time.Millisecond
		}
	}
	if v, ok := get(KeyLaps); ok {
		snap.Laps = decodeLaps(v)
	}
	if v, ok := get(KeyAlarms); ok {
		snap.Alarms = decodeAlarms(v)
	}
	if v, ok := get(KeyLastTriggered); ok {
		snap.LastTriggered = v
	}
	if v, ok := get(KeyDarkForced); ok {
		snap.DarkModeForced = v == "true"
	}
	if v, ok := get(KeyLanguage); ok {
		if tag, err := CanonicalLanguage(v); err == nil {
			snap.Language = tag
		}
	}

	return snap, errors.Join(errs...)
}

// Encode renders a Snapshot as key/value pairs (keys without prefix).
func Encode(snap Snapshot) (map[string]string, error) {
	laps := snap.Laps
	if laps == nil {
		laps = []string{}
	}
	lapsJSON, err := json.Marshal(laps)
	if err != nil {
		return nil, fmt.Errorf("encode laps: %w", err)
	}

	records := make([]alarmRecord, 0, len(snap.Alarms))
	for _, a := range snap.Alarms {
		records = append(records, alarmRecord{ID: a.ID, Hour: a.Hour, Minute: a.Minute, Enabled: a.Enabled})
	}
	alarmsJSON, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode alarms: %w", err)
	}

	return map[string]string{
		KeyMode:           string(snap.Mode),
		KeyClockTransform: string(snap.Transform.Kind),
		KeyOffset:         strconv.Itoa(snap.Transform.OffsetMinutes),
		KeyCustomHours:    strconv.Itoa(snap.Transform.HoursPerDay),
		KeyShowSeconds:    strconv.FormatBool(snap.Transform.ShowSeconds),
		KeyElapsed:        strconv.FormatInt(snap.StopwatchElapsed.Milliseconds(), 10),
		KeyLaps:           string(lapsJSON),
		KeyAlarms:         string(alarmsJSON),
		KeyLastTriggered:  snap.LastTriggered,
		KeyDarkForced:     strconv.FormatBool(snap.DarkModeForced),
		KeyLanguage:       snap.Language,
	}, nil
}

// Save writes every key whose value differs from what was last loaded or
// written. It returns the number of keys written.
func (c *Codec) Save(ctx context.Context, snap Snapshot) (int, error) {
	values, err := Encode(snap)
	if err != nil {
		return 0, err
	}

	written := 0
	var errs []error
	for name, v := range values {
		changed, err := c.set(ctx, name, v)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if changed {
			written++
		}
	}
	return written, errors.Join(errs...)
}

// SaveTriggerKey persists the trigger key on its own, so a firing survives
// a restart that happens before the next full save.
func (c *Codec) SaveTriggerKey(ctx context.Context, key string) error {
	_, err := c.set(ctx, KeyLastTriggered, key)
	return err
}

// set writes value unless it matches the last value seen for name.
func (c *Codec) set(ctx context.Context, name, value string) (bool, error) {
	key := c.Key(name)
	if prev, ok := c.written[key]; ok && prev == value {
		return false, nil
	}
	if err := c.store.Set(ctx, key, value); err != nil {
		return false, err
	}
	c.written[key] = value
	return true, nil
}

// Forget drops the write cache, forcing the next Save to write every key.
func (c *Codec) Forget() {
	c.written = make(map[string]string)
}

func decodeLaps(raw string) []string {
	laps := []string{}
	if !gjson.Valid(raw) {
		return laps
	}
	parsed := gjson.Parse(raw)
	if !parsed.IsArray() {
		return laps
	}
	parsed.ForEach(func(_, value gjson.Result) bool {
		if value.Type == gjson.String {
			laps = append(laps, value.Str)
		}
		return len(laps) < stopwatch.MaxLaps
	})
	return laps
}

func decodeAlarms(raw string) []alarm.Entry {
	entries := []alarm.Entry{}
	if !gjson.Valid(raw) {
		return entries
	}
	parsed := gjson.Parse(raw)
	if !parsed.IsArray() {
		return entries
	}
	seen := make(map[string]bool)
	parsed.ForEach(func(_, value gjson.Result) bool {
		e, ok := decodeAlarm(value)
		if ok && !seen[e.ID] {
			seen[e.ID] = true
			entries = append(entries, e)
		}
		return true
	})
	return entries
}

// decodeAlarm accepts {id, hour, minute, enabled}; older records spell
// minute as "min" and may omit enabled.
func decodeAlarm(value gjson.Result) (alarm.Entry, bool) {
	if !value.IsObject() {
		return alarm.Entry{}, false
	}

	id := value.Get("id")
	if id.Type != gjson.String || id.Str == "" {
		return alarm.Entry{}, false
	}

	hour, ok := wholeNumber(value.Get("hour"))
	if !ok {
		return alarm.Entry{}, false
	}
	minuteField := value.Get("minute")
	if !minuteField.Exists() {
		minuteField = value.Get("min")
	}
	minute, ok := wholeNumber(minuteField)
	if !ok {
		return alarm.Entry{}, false
	}
	if alarm.ValidateTime(hour, minute) != nil {
		return alarm.Entry{}, false
	}

	enabled := true
	switch en := value.Get("enabled"); en.Type {
	case gjson.True, gjson.False:
		enabled = en.Bool()
	case gjson.Null:
		if en.Exists() {
			return alarm.Entry{}, false
		}
	default:
		return alarm.Entry{}, false
	}

	return alarm.Entry{ID: id.Str, Hour: hour, Minute: minute, Enabled: enabled}, true
}

func wholeNumber(r gjson.Result) (int, bool) {
	if r.Type != gjson.Number || r.Num != math.Trunc(r.Num) {
		return 0, false
	}
	return int(r.Num), true
}
