package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hylla/statusdesk/internal/domain"
)

var day0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func entry(id string, level int, offset time.Duration) domain.JournalEntry {
	return domain.JournalEntry{
		ID:         id,
		Date:       day0.Add(offset),
		Headline:   "headline " + id,
		AlertLevel: level,
		AuthorID:   "dev1",
	}
}

func ids(entries []domain.JournalEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestBucketDescendingOrder(t *testing.T) {
	entries := []domain.JournalEntry{
		entry("a", 2, 0),
		entry("b", 0, time.Hour),
		entry("c", 2, 2*time.Hour),
		entry("d", 1, 3*time.Hour),
	}
	buckets, err := Bucket(entries, domain.DefaultAlertLevels())
	require.NoError(t, err)

	assert.Equal(t, 4, buckets.Len())
	assert.Equal(t, 3, buckets.Levels())
	assert.Equal(t, []string{"a", "c", "d", "b"}, ids(buckets.Entries()))

	var order []int
	for level := range buckets.Descending() {
		order = append(order, level)
	}
	assert.Equal(t, []int{2, 1, 0}, order)
}

func TestBucketConservation(t *testing.T) {
	cases := []struct {
		name   string
		levels []int
	}{
		{name: "empty"},
		{name: "single level", levels: []int{1, 1, 1}},
		{name: "mixed", levels: []int{0, 2, 1, 0, 2, 2, 1}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			entries := make([]domain.JournalEntry, 0, len(tt.levels))
			for i, level := range tt.levels {
				entries = append(entries, entry(string(rune('a'+i)), level, time.Duration(i)*time.Minute))
			}
			buckets, err := Bucket(entries, domain.DefaultAlertLevels())
			require.NoError(t, err)
			sum := 0
			for _, bucket := range buckets.Descending() {
				sum += len(bucket)
			}
			assert.Equal(t, len(entries), sum)
			assert.Equal(t, len(entries), buckets.Len())
			assert.ElementsMatch(t, ids(entries), ids(buckets.Entries()))
		})
	}
}

func TestBucketSortsByDateWithStableTies(t *testing.T) {
	entries := []domain.JournalEntry{
		entry("late", 1, 2*time.Hour),
		entry("tie-first", 1, time.Hour),
		entry("tie-second", 1, time.Hour),
		entry("early", 1, 0),
	}
	buckets, err := Bucket(entries, domain.DefaultAlertLevels())
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "tie-first", "tie-second", "late"}, ids(buckets.Level(1)))
}

func TestBucketRejectsOutOfRangeLevel(t *testing.T) {
	_, err := Bucket([]domain.JournalEntry{entry("x", 3, 0)}, domain.DefaultAlertLevels())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidAlertLevel))
}

func TestBucketDescendingStopsEarly(t *testing.T) {
	buckets, err := Bucket([]domain.JournalEntry{entry("a", 0, 0), entry("b", 2, 0)}, domain.DefaultAlertLevels())
	require.NoError(t, err)
	visited := 0
	for range buckets.Descending() {
		visited++
		break
	}
	assert.Equal(t, 1, visited)
}

type failingStore struct{ err error }

func (s failingStore) EntriesByResource(context.Context, string, time.Time, time.Time) ([]domain.JournalEntry, error) {
	return nil, s.err
}

func (s failingStore) CurrentEntries(context.Context, time.Time, string, int, time.Time) ([]domain.JournalEntry, error) {
	return nil, s.err
}

func TestAggregatorCollect(t *testing.T) {
	other := entry("other", 2, 0)
	other.AuthorID = "dev2"
	store := NewMemoryStore(nil,
		entry("before", 2, -time.Hour),
		entry("in-a", 0, 0),
		entry("in-b", 2, time.Hour),
		other,
		entry("at-end", 1, 24*time.Hour),
	)
	agg, err := NewAggregator(store, domain.DefaultAlertLevels())
	require.NoError(t, err)

	buckets, err := agg.Collect(context.Background(), "dev1", day0, day0.Add(24*time.Hour), true)
	require.NoError(t, err)
	assert.True(t, buckets.LongVersion())
	assert.Equal(t, []string{"in-b", "in-a"}, ids(buckets.Entries()))
}

func TestAggregatorCollectWrapsStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	agg, err := NewAggregator(failingStore{err: boom}, domain.DefaultAlertLevels())
	require.NoError(t, err)
	_, err = agg.Collect(context.Background(), "dev1", day0, day0.Add(time.Hour), false)
	assert.ErrorIs(t, err, boom)
}

func TestNewAggregatorRequiresStore(t *testing.T) {
	_, err := NewAggregator(nil, domain.DefaultAlertLevels())
	assert.ErrorIs(t, err, ErrStoreRequired)
}

func TestMemoryStoreCurrentEntries(t *testing.T) {
	subtree := func(id string) []string {
		if id == "build" {
			return []string{"build", "compile"}
		}
		return nil
	}
	mk := func(id, subject string, level int, offset time.Duration) domain.JournalEntry {
		e := entry(id, level, offset)
		e.SubjectID = subject
		return e
	}
	store := NewMemoryStore(subtree,
		mk("b1", "build", 1, 0),
		mk("b2", "build", 0, time.Hour),
		mk("c1", "compile", 2, 30*time.Minute),
		mk("old", "build", 2, -48*time.Hour),
		mk("x1", "deploy", 2, 0),
	)
	ctx := context.Background()
	end := day0.Add(24 * time.Hour)

	got, err := store.CurrentEntries(ctx, end, "build", 0, day0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b2", "c1"}, ids(got))

	got, err = store.CurrentEntries(ctx, end, "build", 1, day0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "c1"}, ids(got))

	got, err = store.CurrentEntries(ctx, end, "lint", 0, day0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
