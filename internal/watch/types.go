// Package watch defines core types shared across subsystems.
package watch

// SiteType selects the fetch strategy for a monitored site.
type SiteType string

// Site type values delivered by the backend.
const (
	// SiteTypeNormal extracts text from a configured CSS selector.
	SiteTypeNormal SiteType = "normal"
	// SiteTypeMeta extracts title/body from og: meta tags with an
	// optional session-authenticated body pass.
	SiteTypeMeta SiteType = "meta"
	// SiteTypeScoped extracts from the document container carrying a
	// data-docsrl attribute.
	SiteTypeScoped SiteType = "scoped"
)

// ExtractionMode selects which text regions the schedule extractor scans.
type ExtractionMode string

// Extraction mode values delivered by the backend.
const (
	ExtractBoth  ExtractionMode = "both"
	ExtractTitle ExtractionMode = "title"
	ExtractBody  ExtractionMode = "body"
)

// Site is the per-site monitoring configuration owned by the backend.
type Site struct {
	ID             int64          `json:"site_id"`
	Name           string         `json:"site_name"`
	URL            string         `json:"site_url"`
	Type           SiteType       `json:"site_type"`
	TargetSelector string         `json:"target_selector"`
	ExtractionMode ExtractionMode `json:"attendance_extraction_mode"`
}

// FetchResult is one successful retrieval of a site's content.
type FetchResult struct {
	// Content is the normalized extracted text, possibly carrying
	// [제목]/[본문] region markers consumed by the schedule extractor.
	Content  string
	HTML     string
	FinalURL string
	// TitleSchedule is set when the page title already embeds schedule
	// notation and the fetch adapter parsed it directly, bypassing the
	// free-text heuristic.
	TitleSchedule []ScheduleRecord
}

// Snapshot is the last known observation of a site, cached in memory and
// mirrored by the backend.
type Snapshot struct {
	Hash    string `json:"content_hash"`
	Content string `json:"content_text"`
	ID      int64  `json:"snapshot_id"`
}

// ChangeType classifies a detected content transition.
type ChangeType string

// Change type values persisted with change events.
const (
	ChangeInitial  ChangeType = "initial"
	ChangeModified ChangeType = "modified"
)

// ScheduleRecord is a normalized (staff name, set-of-hours) pair extracted
// from availability text. Times is the sorted comma-joined hour set.
type ScheduleRecord struct {
	Name  string `json:"name"`
	Times string `json:"times"`
	Raw   string `json:"raw,omitempty"`
}

// PhoneEntry associates an extracted contact number with a staff name.
type PhoneEntry struct {
	StaffName string `json:"staff_name"`
	Number    string `json:"phone_number"`
}

// SnapshotUpload is the payload for persisting a new snapshot.
type SnapshotUpload struct {
	SiteID   int64
	Hash     string
	Content  string
	HTML     string
	FinalURL string
}

// SnapshotReceipt is the backend's response to a snapshot save.
type SnapshotReceipt struct {
	SnapshotID  int64
	HasPrevious bool
}

// ChangeUpload is the payload for persisting a change event.
type ChangeUpload struct {
	SiteID        int64
	OldSnapshotID *int64
	NewSnapshotID int64
	Type          ChangeType
	OldContent    string
	NewContent    string
	DiffHTML      string
}
