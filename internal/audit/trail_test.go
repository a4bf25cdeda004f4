package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Append(context.Context, Record) (int64, error) {
	return 0, errors.New("disk full")
}

func (failingStore) Query(context.Context, Filter) ([]Record, error) {
	return nil, errors.New("disk full")
}

func (failingStore) Close() error { return nil }

func newTestTrail(store Store) *Trail {
	return NewTrail(TrailConfig{
		Store:  store,
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
}

func TestTrailRecord_RedactsDeclaredAndBuiltinFields(t *testing.T) {
	store := NewMemStore()
	trail := newTestTrail(store)

	_, err := trail.Record(context.Background(), Record{
		Principal: "analyst-...",
		Role:      "analyst",
		Tool:      "web_search",
		Input: map[string]any{
			"search_query": "quarterly revenue",
			"contact":      "someone@example.com",
			"api_key":      "sk-secret",
		},
		Outcome: OutcomeGrantedSuccess,
	}, []string{"contact"})
	require.NoError(t, err)

	records, err := store.Query(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "quarterly revenue", records[0].Input["search_query"])
	require.Equal(t, RedactPlaceholder, records[0].Input["contact"])
	require.Equal(t, RedactPlaceholder, records[0].Input["api_key"])
}

func TestSummarizeResult_RedactsDeclaredFields(t *testing.T) {
	trail := newTestTrail(NewMemStore())

	summary := trail.SummarizeResult(map[string]any{
		"rows": []any{map[string]any{
			"company":            "Acme Corp",
			"internal_reference": "raw-secret-42",
		}},
		"row_count": 1,
	}, []string{"internal_reference"})

	require.NotContains(t, summary, "raw-secret-42")
	require.Contains(t, summary, RedactPlaceholder)
	require.Contains(t, summary, "Acme Corp")
}

func TestSummarizeResult_RedactsBuiltinSecretKeys(t *testing.T) {
	trail := newTestTrail(NewMemStore())

	summary := trail.SummarizeResult(map[string]any{
		"api_key": "sk-leaky",
		"query":   "golang",
	}, nil)

	require.NotContains(t, summary, "sk-leaky")
	require.Contains(t, summary, RedactPlaceholder)
}

func TestTrailRecord_TruncatesResultSummary(t *testing.T) {
	store := NewMemStore()
	trail := newTestTrail(store)

	_, err := trail.Record(context.Background(), Record{
		Principal:     "analyst-...",
		Role:          "analyst",
		Tool:          "sql_query",
		Outcome:       OutcomeGrantedSuccess,
		ResultSummary: strings.Repeat("x", maxResultSummaryLen+500),
	}, nil)
	require.NoError(t, err)

	records, err := store.Query(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, records[0].ResultSummary, maxResultSummaryLen)
}

func TestTruncateSummary_KeepsRuneBoundary(t *testing.T) {
	// The limit lands on the continuation byte of the first two-byte rune.
	long := strings.Repeat("a", maxResultSummaryLen-1) + "éé"
	got := truncateSummary(long)
	require.LessOrEqual(t, len(got), maxResultSummaryLen)
	require.True(t, utf8.ValidString(got))
	require.Equal(t, strings.Repeat("a", maxResultSummaryLen-1), got)
}

func TestTrailRecord_SetsTimestampWhenZero(t *testing.T) {
	store := NewMemStore()
	trail := newTestTrail(store)

	_, err := trail.Record(context.Background(), Record{
		Principal: "analyst-...",
		Role:      "analyst",
		Tool:      "sql_query",
		Outcome:   OutcomeGrantedSuccess,
	}, nil)
	require.NoError(t, err)

	records, err := store.Query(context.Background(), Filter{})
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), records[0].Timestamp)
}

func TestTrailRecord_PropagatesStoreFailure(t *testing.T) {
	trail := newTestTrail(failingStore{})

	_, err := trail.Record(context.Background(), Record{
		Principal: "analyst-...",
		Role:      "analyst",
		Tool:      "sql_query",
		Outcome:   OutcomeGrantedSuccess,
	}, nil)
	require.Error(t, err)
}

func TestMemStoreQuery_NewestFirstTiesBrokenByID(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := store.Append(ctx, Record{Timestamp: ts, Principal: "p", Role: "analyst", Tool: "sql_query", Outcome: OutcomeGrantedSuccess})
		require.NoError(t, err)
	}

	records, err := store.Query(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, int64(3), records[0].ID)
	require.Equal(t, int64(1), records[2].ID)
}

func TestMemStoreQuery_LimitApplied(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := store.Append(ctx, Record{Timestamp: base.Add(time.Duration(i) * time.Second), Principal: "p", Role: "analyst", Tool: "sql_query", Outcome: OutcomeGrantedSuccess})
		require.NoError(t, err)
	}

	records, err := store.Query(ctx, Filter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, int64(5), records[0].ID)
}
