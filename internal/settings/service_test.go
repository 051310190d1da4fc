package settings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nexa-dashboard/internal/catalogue"
	"nexa-dashboard/internal/storage"
	"nexa-dashboard/internal/storage/sqlite"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

var testEpoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, storage.Store, *fakeClock) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	require.NoError(t, store.Migrate(context.Background()))

	clock := &fakeClock{now: testEpoch}
	svc := NewService(store, catalogue.NewPremium([]string{"ai_moderation"}, []string{"translate"}))
	svc.WithClock(clock)
	return svc, store, clock
}

func rawDocument(t *testing.T, store storage.Store, collection string, filter storage.Filter) map[string]any {
	t.Helper()
	doc, err := store.Collection(collection).FindOne(context.Background(), filter)
	require.NoError(t, err)
	body, err := storage.DecodeMap(doc)
	require.NoError(t, err)
	return body
}

func rawCount(t *testing.T, store storage.Store, collection string, filter storage.Filter) int {
	t.Helper()
	docs, err := store.Collection(collection).Find(context.Background(), filter)
	require.NoError(t, err)
	return len(docs)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for key := range m {
		out = append(out, key)
	}
	return out
}
