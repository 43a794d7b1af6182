package watch

import (
	"context"
	"time"
)

// Fetcher retrieves a site's content using the strategy matching its type.
// Implementations return an error for any network or HTTP failure; callers
// treat a failed fetch as "no content this cycle".
type Fetcher interface {
	Fetch(ctx context.Context, site Site) (*FetchResult, error)
}

// Backend is the remote persistence and reporting API. All save/query
// methods fail closed: an error means "this action did not happen" and
// never aborts the broader per-site flow.
type Backend interface {
	Sites(ctx context.Context) ([]Site, error)
	LatestSnapshots(ctx context.Context, siteIDs []int64) (map[int64]Snapshot, error)
	SaveSnapshot(ctx context.Context, up SnapshotUpload) (SnapshotReceipt, error)
	SaveChange(ctx context.Context, up ChangeUpload) error
	SaveSchedule(ctx context.Context, siteID int64, date string, records []ScheduleRecord, snapshotID int64) error
	SaveAvailableStaff(ctx context.Context, siteID int64, date string, records []ScheduleRecord) error
	SavePhones(ctx context.Context, siteID int64, entries []PhoneEntry) error
	UpdateCheckTime(ctx context.Context, siteID int64) error
	FirstSchedule(ctx context.Context, siteID int64, date string) ([]ScheduleRecord, error)
}

// Hasher computes content digests for change detection.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// TextRecognizer turns image bytes into text. The zero-capability variant
// reports ok=false for every image.
type TextRecognizer interface {
	Recognize(ctx context.Context, image []byte) (text string, ok bool)
}
