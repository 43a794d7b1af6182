package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rofanlabs/sitewatch/internal/extract"
	"github.com/rofanlabs/sitewatch/internal/hash/sha256"
	"github.com/rofanlabs/sitewatch/internal/watch"
)

type fakeFetcher struct {
	mu     sync.Mutex
	result *watch.FetchResult
	err    error
}

func (f *fakeFetcher) set(res *watch.FetchResult, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.result, f.err = res, err
}

func (f *fakeFetcher) Fetch(context.Context, watch.Site) (*watch.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.err
}

type fakeBackend struct {
	mu sync.Mutex

	latest      map[int64]watch.Snapshot
	latestErr   error
	hasPrevious bool
	first       []watch.ScheduleRecord

	nextSnapshotID int64
	latestCalls    int
	snapshots      []watch.SnapshotUpload
	changes        []watch.ChangeUpload
	schedules      [][]watch.ScheduleRecord
	available      [][]watch.ScheduleRecord
	phones         [][]watch.PhoneEntry
	checkTimes     []int64
}

func (b *fakeBackend) Sites(context.Context) ([]watch.Site, error) { return nil, nil }

func (b *fakeBackend) LatestSnapshots(_ context.Context, siteIDs []int64) (map[int64]watch.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latestCalls++
	if b.latestErr != nil {
		return nil, b.latestErr
	}
	out := make(map[int64]watch.Snapshot)
	for _, id := range siteIDs {
		if snap, ok := b.latest[id]; ok {
			out[id] = snap
		}
	}
	return out, nil
}

func (b *fakeBackend) SaveSnapshot(_ context.Context, up watch.SnapshotUpload) (watch.SnapshotReceipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSnapshotID++
	b.snapshots = append(b.snapshots, up)
	return watch.SnapshotReceipt{SnapshotID: b.nextSnapshotID, HasPrevious: b.hasPrevious || len(b.snapshots) > 1}, nil
}

func (b *fakeBackend) SaveChange(_ context.Context, up watch.ChangeUpload) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changes = append(b.changes, up)
	return nil
}

func (b *fakeBackend) SaveSchedule(_ context.Context, _ int64, _ string, records []watch.ScheduleRecord, _ int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.schedules = append(b.schedules, records)
	return nil
}

func (b *fakeBackend) SaveAvailableStaff(_ context.Context, _ int64, _ string, records []watch.ScheduleRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.available = append(b.available, records)
	return nil
}

func (b *fakeBackend) SavePhones(_ context.Context, _ int64, entries []watch.PhoneEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.phones = append(b.phones, entries)
	return nil
}

func (b *fakeBackend) UpdateCheckTime(_ context.Context, siteID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkTimes = append(b.checkTimes, siteID)
	return nil
}

func (b *fakeBackend) FirstSchedule(context.Context, int64, string) ([]watch.ScheduleRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.first, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testSite = watch.Site{
	ID:             1,
	Name:           "강남",
	URL:            "https://example.com/board/1",
	Type:           watch.SiteTypeNormal,
	ExtractionMode: watch.ExtractBoth,
}

func newTestTracker(fetcher *fakeFetcher, be *fakeBackend) *Tracker {
	clock := fixedClock{t: time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)}
	return New(zap.NewNop(), fetcher, be, sha256.New(), clock, extract.DefaultRules())
}

func result(content string) *watch.FetchResult {
	return &watch.FetchResult{Content: content, HTML: "<html><body>" + content + "</body></html>"}
}

func TestCheckSiteFirstObservation(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	fetcher.set(result("[제목] 출근부 [본문] 지은 12 13"), nil)
	be := &fakeBackend{}

	require.NoError(t, newTestTracker(fetcher, be).CheckSite(context.Background(), testSite))

	require.Len(t, be.snapshots, 1)
	require.Len(t, be.changes, 1)
	change := be.changes[0]
	require.Equal(t, watch.ChangeInitial, change.Type)
	require.Nil(t, change.OldSnapshotID)
	require.Equal(t, int64(1), change.NewSnapshotID)
	require.Contains(t, change.DiffHTML, "지은 12 13")
	require.Contains(t, change.DiffHTML, "8월31일 출근부")

	require.Len(t, be.schedules, 1)
	require.Equal(t, []watch.ScheduleRecord{{Name: "지은", Times: "12,13", Raw: "지은 12 13"}}, be.schedules[0])
	require.Equal(t, []int64{1}, be.checkTimes)
}

func TestCheckSiteUnchangedIsQuiet(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	fetcher.set(result("[제목] 출근부 [본문] 지은 12 13"), nil)
	be := &fakeBackend{}
	tr := newTestTracker(fetcher, be)

	ctx := context.Background()
	require.NoError(t, tr.CheckSite(ctx, testSite))
	require.NoError(t, tr.CheckSite(ctx, testSite))

	require.Len(t, be.snapshots, 2)
	require.Len(t, be.changes, 1)
	require.Len(t, be.checkTimes, 2)
}

func TestCheckSiteUnchangedStillRefreshesDerivedData(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	fetcher.set(&watch.FetchResult{
		Content: "[제목] 출근부 [본문] 지은 12 13",
		HTML:    `<html><body><article>지은 010-1234-5678</article></body></html>`,
	}, nil)
	be := &fakeBackend{}
	tr := newTestTracker(fetcher, be)

	ctx := context.Background()
	require.NoError(t, tr.CheckSite(ctx, testSite))
	require.NoError(t, tr.CheckSite(ctx, testSite))

	// Only the first poll is a change event, but attendance, available
	// staff and phones follow the page on every poll.
	require.Len(t, be.changes, 1)
	require.Len(t, be.schedules, 2)
	require.Len(t, be.available, 2)
	require.Len(t, be.phones, 2)
	require.Equal(t, be.schedules[0], be.schedules[1])
	require.Equal(t, []watch.PhoneEntry{{StaffName: "지은", Number: "010-1234-5678"}}, be.phones[1])
}

func TestCheckSiteModified(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	fetcher.set(result("[제목] 출근부 [본문] 지은 12 13"), nil)
	be := &fakeBackend{}
	tr := newTestTracker(fetcher, be)

	ctx := context.Background()
	require.NoError(t, tr.CheckSite(ctx, testSite))

	fetcher.set(result("[제목] 출근부 [본문] 지은 12 13 14"), nil)
	require.NoError(t, tr.CheckSite(ctx, testSite))

	require.Len(t, be.changes, 2)
	change := be.changes[1]
	require.Equal(t, watch.ChangeModified, change.Type)
	require.NotNil(t, change.OldSnapshotID)
	require.Equal(t, int64(1), *change.OldSnapshotID)
	require.Equal(t, int64(2), change.NewSnapshotID)
	require.Contains(t, change.DiffHTML, "diff-added")
}

func TestCheckSiteRestartAgainstBackendHistory(t *testing.T) {
	t.Parallel()

	content := "[제목] 출근부 [본문] 지은 12 13"
	hash, err := sha256.New().Hash([]byte(content))
	require.NoError(t, err)

	t.Run("backend matches, no event", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{}
		fetcher.set(result(content), nil)
		be := &fakeBackend{
			hasPrevious: true,
			latest:      map[int64]watch.Snapshot{1: {Hash: hash, Content: content, ID: 41}},
		}
		require.NoError(t, newTestTracker(fetcher, be).CheckSite(context.Background(), testSite))
		require.Empty(t, be.changes)
	})

	t.Run("backend differs, modified against stored snapshot", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{}
		fetcher.set(result(content), nil)
		be := &fakeBackend{
			hasPrevious: true,
			latest:      map[int64]watch.Snapshot{1: {Hash: "stale", Content: "[제목] 출근부 [본문] 지은 10", ID: 41}},
		}
		require.NoError(t, newTestTracker(fetcher, be).CheckSite(context.Background(), testSite))
		require.Len(t, be.changes, 1)
		require.Equal(t, watch.ChangeModified, be.changes[0].Type)
		require.Equal(t, int64(41), *be.changes[0].OldSnapshotID)
	})

	t.Run("history claimed but missing, falls back to initial", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{}
		fetcher.set(result(content), nil)
		be := &fakeBackend{hasPrevious: true}
		require.NoError(t, newTestTracker(fetcher, be).CheckSite(context.Background(), testSite))
		require.Len(t, be.changes, 1)
		require.Equal(t, watch.ChangeInitial, be.changes[0].Type)
	})

	t.Run("lookup error, falls back to initial", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{}
		fetcher.set(result(content), nil)
		be := &fakeBackend{hasPrevious: true, latestErr: errors.New("api down")}
		require.NoError(t, newTestTracker(fetcher, be).CheckSite(context.Background(), testSite))
		require.Len(t, be.changes, 1)
		require.Equal(t, watch.ChangeInitial, be.changes[0].Type)
	})
}

func TestCheckSiteFetchFailureIsNoOp(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	fetcher.set(nil, errors.New("timeout"))
	be := &fakeBackend{}

	require.NoError(t, newTestTracker(fetcher, be).CheckSite(context.Background(), testSite))
	require.Empty(t, be.snapshots)
	require.Empty(t, be.changes)
	require.Empty(t, be.checkTimes)
}

func TestCheckSitePrefersTitleSchedule(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	fetcher.set(&watch.FetchResult{
		Content:       "[제목] ❤️수아( 12 13 ) [본문] 본문 없음",
		HTML:          "<html></html>",
		TitleSchedule: []watch.ScheduleRecord{{Name: "수아", Times: "12,13"}},
	}, nil)
	be := &fakeBackend{}

	require.NoError(t, newTestTracker(fetcher, be).CheckSite(context.Background(), testSite))
	require.Len(t, be.schedules, 1)
	require.Equal(t, "수아", be.schedules[0][0].Name)
}

func TestPreloadSuppressesFalseInitial(t *testing.T) {
	t.Parallel()

	content := "[제목] 출근부 [본문] 지은 12 13"
	hash, err := sha256.New().Hash([]byte(content))
	require.NoError(t, err)

	fetcher := &fakeFetcher{}
	fetcher.set(result(content), nil)
	be := &fakeBackend{
		hasPrevious: true,
		latest:      map[int64]watch.Snapshot{1: {Hash: hash, Content: content, ID: 41}},
	}
	tr := newTestTracker(fetcher, be)

	ctx := context.Background()
	require.NoError(t, tr.Preload(ctx, []watch.Site{testSite}))
	require.NoError(t, tr.CheckSite(ctx, testSite))

	require.Empty(t, be.changes)
	// Preload already loaded the state; no second lookup during the check.
	require.Equal(t, 1, be.latestCalls)
}
