package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/nclock/internal/alarm"
	"github.com/runnerr0/nclock/internal/display"
	"github.com/runnerr0/nclock/internal/storage"
)

const prefix = "nclock_"

var testDefaults = Defaults{
	Transform: display.Transform{Kind: display.KindOffset, HoursPerDay: 24, ShowSeconds: true},
	Language:  "ja",
}

// countingStore counts Set calls and can be told to fail.
type countingStore struct {
	*storage.MemoryStore
	sets    int
	failSet error
	failGet error
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: storage.NewMemoryStore()}
}

func (s *countingStore) Set(ctx context.Context, key, value string) error {
	if s.failSet != nil {
		return s.failSet
	}
	s.sets++
	return s.MemoryStore.Set(ctx, key, value)
}

func (s *countingStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.failGet != nil {
		return "", false, s.failGet
	}
	return s.MemoryStore.Get(ctx, key)
}

func fullSnapshot() Snapshot {
	return Snapshot{
		Mode: ModeAlarm,
		Transform: display.Transform{
			Kind:          display.KindDilation,
			OffsetMinutes: -90,
			HoursPerDay:   20,
			ShowSeconds:   false,
		},
		StopwatchElapsed: 61234 * time.Millisecond,
		Laps:             []string{"01:01.23", "00:30.00"},
		Alarms: []alarm.Entry{
			{ID: "b-second", Hour: 7, Minute: 30, Enabled: true},
			{ID: "a-first", Hour: 22, Minute: 5, Enabled: false},
			{ID: "c-third", Hour: 0, Minute: 0, Enabled: true},
		},
		LastTriggered:  "202610180730",
		DarkModeForced: true,
		Language:       "en-US",
	}
}

func TestLoad_EmptyStoreReturnsDefaults(t *testing.T) {
	c := NewCodec(storage.NewMemoryStore(), prefix, testDefaults)
	snap, err := c.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ModeClock, snap.Mode)
	assert.Equal(t, display.KindOffset, snap.Transform.Kind)
	assert.Equal(t, 24, snap.Transform.HoursPerDay)
	assert.True(t, snap.Transform.ShowSeconds)
	assert.Zero(t, snap.StopwatchElapsed)
	assert.Empty(t, snap.Laps)
	assert.Empty(t, snap.Alarms)
	assert.Empty(t, snap.LastTriggered)
	assert.False(t, snap.DarkModeForced)
	assert.Equal(t, "ja", snap.Language)
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	want := fullSnapshot()

	_, err := NewCodec(store, prefix, testDefaults).Save(ctx, want)
	require.NoError(t, err)

	got, err := NewCodec(store, prefix, testDefaults).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSave_UsesDocumentedKeys(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	_, err := NewCodec(store, prefix, testDefaults).Save(ctx, fullSnapshot())
	require.NoError(t, err)

	expect := map[string]string{
		"nclock_mode":            "alarm",
		"nclock_offsetMin":       "-90",
		"nclock_sw_elapsed":      "61234",
		"nclock_sw_laps":         `["01:01.23","00:30.00"]`,
		"nclock_last_triggered":  "202610180730",
		"nclock_dark_forced":     "true",
		"nclock_lang":            "en-US",
		"nclock_custom_hours":    "20",
		"nclock_show_seconds":    "false",
		"nclock_clock_transform": "dilation",
	}
	for key, want := range expect {
		got, ok, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}

	alarms, _, err := store.Get(ctx, "nclock_alarms")
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"id":"b-second","hour":7,"minute":30,"enabled":true},
		{"id":"a-first","hour":22,"minute":5,"enabled":false},
		{"id":"c-third","hour":0,"minute":0,"enabled":true}
	]`, alarms)
}

func TestSave_SkipsUnchangedKeys(t *testing.T) {
	store := newCountingStore()
	ctx := context.Background()
	c := NewCodec(store, prefix, testDefaults)
	snap := fullSnapshot()

	n, err := c.Save(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, 11, store.sets)

	n, err = c.Save(ctx, snap)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 11, store.sets, "identical snapshot writes nothing")

	snap.Mode = ModeClock
	n, err = c.Save(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	c.Forget()
	n, err = c.Save(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, 11, n)
}

func TestLoad_PrimesWriteCache(t *testing.T) {
	store := newCountingStore()
	ctx := context.Background()
	_, err := NewCodec(store, prefix, testDefaults).Save(ctx, fullSnapshot())
	require.NoError(t, err)
	before := store.sets

	c := NewCodec(store, prefix, testDefaults)
	snap, err := c.Load(ctx)
	require.NoError(t, err)
	n, err := c.Save(ctx, snap)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, before, store.sets)
}

func TestSaveTriggerKey(t *testing.T) {
	store := newCountingStore()
	ctx := context.Background()
	c := NewCodec(store, prefix, testDefaults)

	require.NoError(t, c.SaveTriggerKey(ctx, "202610180730"))
	require.NoError(t, c.SaveTriggerKey(ctx, "202610180730"))
	assert.Equal(t, 1, store.sets)

	v, _, err := store.Get(ctx, "nclock_last_triggered")
	require.NoError(t, err)
	assert.Equal(t, "202610180730", v)
}

func TestSave_ReportsStoreFailure(t *testing.T) {
	store := newCountingStore()
	store.failSet = errors.New("quota exceeded")
	c := NewCodec(store, prefix, testDefaults)

	_, err := c.Save(context.Background(), fullSnapshot())
	assert.ErrorContains(t, err, "quota exceeded")

	// A failed write is retried on the next save.
	store.failSet = nil
	n, err := c.Save(context.Background(), fullSnapshot())
	require.NoError(t, err)
	assert.Equal(t, 11, n)
}

func TestLoad_StoreFailureReturnsDefaultsAndError(t *testing.T) {
	store := newCountingStore()
	store.failGet = errors.New("disk gone")
	snap, err := NewCodec(store, prefix, testDefaults).Load(context.Background())
	assert.ErrorContains(t, err, "disk gone")
	assert.Equal(t, ModeClock, snap.Mode)
}

func TestLoad_CorruptScalarsFallBack(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	corrupt := map[string]string{
		"nclock_mode":            "calendar",
		"nclock_offsetMin":       "ninety",
		"nclock_sw_elapsed":      "-50",
		"nclock_custom_hours":    "0",
		"nclock_clock_transform": "sundial",
		"nclock_lang":            "not a tag!!",
		"nclock_sw_laps":         `{"not":"an array"}`,
		"nclock_alarms":          `[{"id":"x","hour":7`,
	}
	for k, v := range corrupt {
		require.NoError(t, store.Set(ctx, k, v))
	}

	snap, err := NewCodec(store, prefix, testDefaults).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeClock, snap.Mode)
	assert.Zero(t, snap.Transform.OffsetMinutes)
	assert.Zero(t, snap.StopwatchElapsed)
	assert.Equal(t, 24, snap.Transform.HoursPerDay)
	assert.Equal(t, display.KindOffset, snap.Transform.Kind)
	assert.Equal(t, "ja", snap.Language)
	assert.Empty(t, snap.Laps)
	assert.Empty(t, snap.Alarms)
}

func TestLoad_DropsCorruptAlarmEntries(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	raw := `[
		{"id":"ok","hour":7,"minute":30,"enabled":true},
		{"id":"legacy","hour":6,"min":15,"enabled":false},
		{"id":"no-enabled","hour":5,"minute":0},
		{"id":"","hour":7,"minute":30,"enabled":true},
		{"hour":7,"minute":30,"enabled":true},
		{"id":"bad-hour","hour":25,"minute":0,"enabled":true},
		{"id":"frac","hour":7.5,"minute":0,"enabled":true},
		{"id":"str-hour","hour":"7","minute":0,"enabled":true},
		{"id":"bad-enabled","hour":7,"minute":0,"enabled":"yes"},
		{"id":"ok","hour":8,"minute":0,"enabled":true},
		"garbage",
		42
	]`
	require.NoError(t, store.Set(ctx, "nclock_alarms", raw))

	snap, err := NewCodec(store, prefix, testDefaults).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []alarm.Entry{
		{ID: "ok", Hour: 7, Minute: 30, Enabled: true},
		{ID: "legacy", Hour: 6, Minute: 15, Enabled: false},
		{ID: "no-enabled", Hour: 5, Minute: 0, Enabled: true},
	}, snap.Alarms)
}

func TestLoad_DropsNonStringLaps(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "nclock_sw_laps", `["00:01.00", 5, null, "00:00.50"]`))

	snap, err := NewCodec(store, prefix, testDefaults).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"00:01.00", "00:00.50"}, snap.Laps)
}

func TestLoad_ClampsStoredHours(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "nclock_custom_hours", "500"))

	snap, err := NewCodec(store, prefix, testDefaults).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, display.MaxHoursPerDay, snap.Transform.HoursPerDay)
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, err := ParseMode(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("calendar")
	assert.ErrorIs(t, err, ErrInvalidSetting)
}

func TestCanonicalLanguage(t *testing.T) {
	tag, err := CanonicalLanguage("en-us")
	require.NoError(t, err)
	assert.Equal(t, "en-US", tag)

	_, err = CanonicalLanguage("not a tag!!")
	assert.ErrorIs(t, err, ErrInvalidSetting)
}
