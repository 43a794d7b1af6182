// Package tracker runs the per-site check pipeline: fetch, snapshot,
// change detection and reporting.
package tracker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rofanlabs/sitewatch/internal/diff"
	"github.com/rofanlabs/sitewatch/internal/extract"
	"github.com/rofanlabs/sitewatch/internal/watch"
)

// siteState is the in-memory record of the last observation of one site.
type siteState struct {
	hash       string
	content    string
	snapshotID int64
}

// Tracker detects and reports content changes. A per-site mutex serializes
// checks of the same site; checks of different sites run concurrently.
type Tracker struct {
	log     *zap.Logger
	fetcher watch.Fetcher
	backend watch.Backend
	hasher  watch.Hasher
	clock   watch.Clock
	rules   *extract.Rules

	mu     sync.Mutex
	states map[int64]*siteState
	locks  map[int64]*sync.Mutex
}

// New creates a tracker with empty in-memory state.
func New(log *zap.Logger, fetcher watch.Fetcher, backend watch.Backend, hasher watch.Hasher, clock watch.Clock, rules *extract.Rules) *Tracker {
	return &Tracker{
		log:     log,
		fetcher: fetcher,
		backend: backend,
		hasher:  hasher,
		clock:   clock,
		rules:   rules,
		states:  make(map[int64]*siteState),
		locks:   make(map[int64]*sync.Mutex),
	}
}

// Preload seeds in-memory state from the backend's latest snapshots for
// sites the tracker has not observed yet. Called at startup and whenever
// new sites appear, so a restart does not misreport every site as new.
func (t *Tracker) Preload(ctx context.Context, sites []watch.Site) error {
	var missing []int64
	t.mu.Lock()
	for _, s := range sites {
		if _, ok := t.states[s.ID]; !ok {
			missing = append(missing, s.ID)
		}
	}
	t.mu.Unlock()
	if len(missing) == 0 {
		return nil
	}

	latest, err := t.backend.LatestSnapshots(ctx, missing)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, snap := range latest {
		if _, ok := t.states[id]; ok {
			continue
		}
		t.states[id] = &siteState{hash: snap.Hash, content: snap.Content, snapshotID: snap.ID}
	}
	return nil
}

// CheckSite runs one poll of a site. A failed fetch is a no-op; everything
// after a successful snapshot save is best effort and logged rather than
// propagated, so a flaky backend action cannot stall the poll loop.
func (t *Tracker) CheckSite(ctx context.Context, site watch.Site) error {
	lock := t.siteLock(site.ID)
	lock.Lock()
	defer lock.Unlock()

	log := t.log.With(zap.Int64("site_id", site.ID), zap.String("site", site.Name))

	res, err := t.fetcher.Fetch(ctx, site)
	if err != nil {
		log.Warn("fetch failed, skipping cycle", zap.Error(err))
		return nil
	}

	hash, err := t.hasher.Hash([]byte(res.Content))
	if err != nil {
		return err
	}

	receipt, err := t.backend.SaveSnapshot(ctx, watch.SnapshotUpload{
		SiteID:   site.ID,
		Hash:     hash,
		Content:  res.Content,
		HTML:     res.HTML,
		FinalURL: res.FinalURL,
	})
	if err != nil {
		log.Error("snapshot save failed", zap.Error(err))
		t.updateCheckTime(ctx, log, site.ID)
		return nil
	}

	records := res.TitleSchedule
	if len(records) == 0 {
		records = extract.Schedule(res.Content, site.ExtractionMode, t.rules)
	}
	now := t.clock.Now()
	date := now.Format("2006-01-02")

	if change := t.classify(ctx, log, site, hash, res.Content, receipt); change != nil {
		t.reportChange(ctx, log, site, receipt, change, records, now, date)
	}

	// Attendance, available staff and contact numbers track the page as it
	// is now, so they are refreshed on every poll, changed or not.
	if len(records) > 0 {
		if err := t.backend.SaveSchedule(ctx, site.ID, date, records, receipt.SnapshotID); err != nil {
			log.Warn("attendance save failed", zap.Error(err))
		}
		if err := t.backend.SaveAvailableStaff(ctx, site.ID, date, records); err != nil {
			log.Warn("available staff save failed", zap.Error(err))
		}
	}
	if phones := extract.Phones(res.HTML, t.rules); len(phones) > 0 {
		for i := range phones {
			if phones[i].StaffName == "" {
				phones[i].StaffName = site.Name
			}
		}
		if err := t.backend.SavePhones(ctx, site.ID, phones); err != nil {
			log.Warn("phone save failed", zap.Error(err))
		}
	}

	t.setState(site.ID, &siteState{hash: hash, content: res.Content, snapshotID: receipt.SnapshotID})
	t.updateCheckTime(ctx, log, site.ID)
	return nil
}

// classify decides whether this observation is a change and of which kind.
// Returns nil when the content is unchanged.
func (t *Tracker) classify(ctx context.Context, log *zap.Logger, site watch.Site, hash, content string, receipt watch.SnapshotReceipt) *watch.ChangeUpload {
	if state, ok := t.getState(site.ID); ok {
		if state.hash == hash {
			return nil
		}
		old := state.snapshotID
		return &watch.ChangeUpload{
			SiteID:        site.ID,
			OldSnapshotID: &old,
			NewSnapshotID: receipt.SnapshotID,
			Type:          watch.ChangeModified,
			OldContent:    state.content,
			NewContent:    content,
			DiffHTML:      diff.Render(state.content, content),
		}
	}

	// Never seen in this process. The backend knows whether the site has
	// history; without history this is the first observation ever.
	if receipt.HasPrevious {
		latest, err := t.backend.LatestSnapshots(ctx, []int64{site.ID})
		if err != nil {
			log.Warn("latest snapshot lookup failed, treating as initial", zap.Error(err))
		} else if snap, ok := latest[site.ID]; ok {
			if snap.Hash == hash {
				return nil
			}
			old := snap.ID
			return &watch.ChangeUpload{
				SiteID:        site.ID,
				OldSnapshotID: &old,
				NewSnapshotID: receipt.SnapshotID,
				Type:          watch.ChangeModified,
				OldContent:    snap.Content,
				NewContent:    content,
				DiffHTML:      diff.Render(snap.Content, content),
			}
		}
	}
	return &watch.ChangeUpload{
		SiteID:        site.ID,
		NewSnapshotID: receipt.SnapshotID,
		Type:          watch.ChangeInitial,
		NewContent:    content,
		DiffHTML:      initialBlock(content),
	}
}

// reportChange persists the change event, prefixed with an attendance
// summary when the page yielded one.
func (t *Tracker) reportChange(ctx context.Context, log *zap.Logger, site watch.Site, receipt watch.SnapshotReceipt, change *watch.ChangeUpload, records []watch.ScheduleRecord, now time.Time, date string) {
	if len(records) > 0 {
		baseline, err := t.backend.FirstSchedule(ctx, site.ID, date)
		if err != nil {
			log.Warn("first attendance lookup failed", zap.Error(err))
		}
		change.DiffHTML = summaryBlock(now, records, baseline) + change.DiffHTML
	}

	if err := t.backend.SaveChange(ctx, *change); err != nil {
		log.Error("change save failed", zap.Error(err))
	} else {
		log.Info("change recorded",
			zap.String("type", string(change.Type)),
			zap.Int64("snapshot_id", receipt.SnapshotID))
	}
}

func (t *Tracker) updateCheckTime(ctx context.Context, log *zap.Logger, siteID int64) {
	if err := t.backend.UpdateCheckTime(ctx, siteID); err != nil {
		log.Warn("check time update failed", zap.Error(err))
	}
}

func (t *Tracker) siteLock(id int64) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock, ok := t.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[id] = lock
	}
	return lock
}

func (t *Tracker) getState(id int64) (*siteState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.states[id]
	return state, ok
}

func (t *Tracker) setState(id int64, state *siteState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[id] = state
}
