// Package backend implements the client for the remote reporting API.
// Snapshots, change events, schedules and phone numbers are all persisted
// through a single action-dispatched HTTP endpoint.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rofanlabs/sitewatch/internal/watch"
)

const (
	defaultTimeout = 10 * time.Second
	// Snapshot saves carry large bodies and get a longer budget.
	snapshotTimeout = 30 * time.Second

	// Caps are in characters, applied before upload.
	maxSnapshotChars = 500_000
	maxChangeChars   = 50_000
)

// Client talks to the reporting API. It implements watch.Backend.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	log     *zap.Logger
}

// New creates a backend client authenticating with the given bearer token.
func New(baseURL, token string, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{},
		log:     log,
	}
}

// envelope is the uniform response wrapper of every API action.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) call(ctx context.Context, action string, timeout time.Duration, query url.Values, payload, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if query == nil {
		query = url.Values{}
	}
	query.Set("action", action)
	endpoint := c.baseURL + "?" + query.Encode()

	method := http.MethodGet
	var body *bytes.Reader
	if payload != nil {
		method = http.MethodPost
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: encode payload: %w", action, err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", action, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", action, resp.StatusCode)
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s: decode response: %w", action, err)
	}
	if !env.Success {
		return fmt.Errorf("%s: api rejected: %s", action, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s: decode data: %w", action, err)
		}
	}
	return nil
}

// Sites fetches the list of sites to monitor.
func (c *Client) Sites(ctx context.Context) ([]watch.Site, error) {
	var sites []watch.Site
	if err := c.call(ctx, "get_sites", defaultTimeout, nil, nil, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

type latestSnapshot struct {
	SiteID int64 `json:"site_id"`
	watch.Snapshot
}

// LatestSnapshots fetches the most recent stored snapshot per site. Sites
// without any snapshot are absent from the result.
func (c *Client) LatestSnapshots(ctx context.Context, siteIDs []int64) (map[int64]watch.Snapshot, error) {
	query := url.Values{}
	if len(siteIDs) > 0 {
		ids := make([]string, len(siteIDs))
		for i, id := range siteIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		query.Set("site_ids", strings.Join(ids, ","))
	}
	var rows []latestSnapshot
	if err := c.call(ctx, "get_latest_snapshots", defaultTimeout, query, nil, &rows); err != nil {
		return nil, err
	}
	out := make(map[int64]watch.Snapshot, len(rows))
	for _, row := range rows {
		out[row.SiteID] = row.Snapshot
	}
	return out, nil
}

// SaveSnapshot persists a new snapshot. Oversized content and raw HTML are
// truncated before upload.
func (c *Client) SaveSnapshot(ctx context.Context, up watch.SnapshotUpload) (watch.SnapshotReceipt, error) {
	payload := map[string]any{
		"site_id":      up.SiteID,
		"content_hash": up.Hash,
		"content_text": truncateChars(up.Content, maxSnapshotChars),
		"full_html":    truncateChars(up.HTML, maxSnapshotChars),
		"final_url":    up.FinalURL,
	}
	var receipt struct {
		SnapshotID  int64 `json:"snapshot_id"`
		HasPrevious bool  `json:"has_previous_snapshot"`
	}
	if err := c.call(ctx, "save_snapshot", snapshotTimeout, nil, payload, &receipt); err != nil {
		return watch.SnapshotReceipt{}, err
	}
	return watch.SnapshotReceipt{SnapshotID: receipt.SnapshotID, HasPrevious: receipt.HasPrevious}, nil
}

// SaveChange persists a change event with its rendered diff.
func (c *Client) SaveChange(ctx context.Context, up watch.ChangeUpload) error {
	payload := map[string]any{
		"site_id":         up.SiteID,
		"old_snapshot_id": up.OldSnapshotID,
		"new_snapshot_id": up.NewSnapshotID,
		"change_type":     up.Type,
		"old_content":     truncateChars(up.OldContent, maxChangeChars),
		"new_content":     truncateChars(up.NewContent, maxChangeChars),
		"diff_html":       up.DiffHTML,
	}
	return c.call(ctx, "save_change", defaultTimeout, nil, payload, nil)
}

// SaveSchedule persists the attendance extracted from a snapshot.
func (c *Client) SaveSchedule(ctx context.Context, siteID int64, date string, records []watch.ScheduleRecord, snapshotID int64) error {
	payload := map[string]any{
		"site_id":            siteID,
		"attendance_date":    date,
		"snapshot_id":        snapshotID,
		"attendance_records": records,
	}
	return c.call(ctx, "save_attendance", defaultTimeout, nil, payload, nil)
}

// SaveAvailableStaff persists the staff currently marked as available.
func (c *Client) SaveAvailableStaff(ctx context.Context, siteID int64, date string, records []watch.ScheduleRecord) error {
	payload := map[string]any{
		"site_id":            siteID,
		"attendance_date":    date,
		"attendance_records": records,
	}
	return c.call(ctx, "save_available_staff", defaultTimeout, nil, payload, nil)
}

// SavePhones persists contact numbers found on a changed page.
func (c *Client) SavePhones(ctx context.Context, siteID int64, entries []watch.PhoneEntry) error {
	payload := map[string]any{
		"site_id":    siteID,
		"phone_data": entries,
	}
	return c.call(ctx, "save_phones", defaultTimeout, nil, payload, nil)
}

// UpdateCheckTime records that a site was polled, regardless of outcome.
func (c *Client) UpdateCheckTime(ctx context.Context, siteID int64) error {
	payload := map[string]any{"site_id": siteID}
	return c.call(ctx, "update_check_time", defaultTimeout, nil, payload, nil)
}

// FirstSchedule fetches the first attendance recorded for a site on a
// given date, used as the baseline when summarizing later changes.
func (c *Client) FirstSchedule(ctx context.Context, siteID int64, date string) ([]watch.ScheduleRecord, error) {
	query := url.Values{}
	query.Set("site_id", strconv.FormatInt(siteID, 10))
	query.Set("attendance_date", date)
	var records []watch.ScheduleRecord
	if err := c.call(ctx, "get_first_attendance", defaultTimeout, query, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// truncateChars caps a string at max characters, not bytes, so multibyte
// Korean text is never cut mid rune.
func truncateChars(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
