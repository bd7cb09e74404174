package matching

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/playdatehub/playdate-backend/internal/profile"
)

// In-memory fakes shared by the package tests.

type fakeRepo struct {
	mu sync.Mutex

	slots           map[int64][]AvailabilitySlot
	prefs           map[int64]*MatchPreference
	scheduleMatches map[int64][]ScheduleMatch
	profileMatches  []*ProfileMatch
	profileEligible []int64

	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		slots:           make(map[int64][]AvailabilitySlot),
		prefs:           make(map[int64]*MatchPreference),
		scheduleMatches: make(map[int64][]ScheduleMatch),
	}
}

func (f *fakeRepo) setSlots(ownerID int64, pairs ...[2]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var slots []AvailabilitySlot
	for _, p := range pairs {
		slots = append(slots, AvailabilitySlot{
			OwnerID:   ownerID,
			DayOfWeek: p[0].(int),
			TimeBand:  p[1].(string),
			IsActive:  true,
		})
	}
	f.slots[ownerID] = slots
}

func (f *fakeRepo) GetActiveSlots(ctx context.Context, ownerID int64) ([]AvailabilitySlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var active []AvailabilitySlot
	for _, s := range f.slots[ownerID] {
		if s.IsActive {
			active = append(active, s)
		}
	}
	return active, nil
}

func (f *fakeRepo) ReplaceSlots(ctx context.Context, ownerID int64, slots []SlotDTO) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	replaced := make([]AvailabilitySlot, 0, len(slots))
	for _, s := range slots {
		replaced = append(replaced, AvailabilitySlot{
			OwnerID:   ownerID,
			DayOfWeek: s.DayOfWeek,
			TimeBand:  s.TimeBand,
			IsActive:  true,
		})
	}
	f.slots[ownerID] = replaced
	return nil
}

func (f *fakeRepo) ToggleSlot(ctx context.Context, ownerID int64, dayOfWeek int, timeBand string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.slots[ownerID] {
		if s.DayOfWeek == dayOfWeek && s.TimeBand == timeBand {
			f.slots[ownerID][i].IsActive = active
			return nil
		}
	}
	f.slots[ownerID] = append(f.slots[ownerID], AvailabilitySlot{
		OwnerID:   ownerID,
		DayOfWeek: dayOfWeek,
		TimeBand:  timeBand,
		IsActive:  active,
	})
	return nil
}

func (f *fakeRepo) GetOrCreatePreference(ctx context.Context, ownerID int64, defaults MatchPreference) (*MatchPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.prefs[ownerID]; ok {
		copied := *p
		return &copied, nil
	}
	created := defaults
	created.OwnerID = ownerID
	f.prefs[ownerID] = &created
	copied := created
	return &copied, nil
}

func (f *fakeRepo) UpdatePreference(ctx context.Context, pref *MatchPreference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *pref
	f.prefs[pref.OwnerID] = &copied
	return nil
}

func (f *fakeRepo) TouchLastRun(ctx context.Context, ownerID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.prefs[ownerID]; ok {
		now := time.Now()
		p.LastRunAt = &now
	}
	return nil
}

func (f *fakeRepo) GetSchedulePeerIDs(ctx context.Context, ownerID int64) (map[int64]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	peers := make(map[int64]bool)
	for _, m := range f.scheduleMatches[ownerID] {
		peers[m.PeerID] = true
	}
	return peers, nil
}

func (f *fakeRepo) ReplaceScheduleMatches(ctx context.Context, ownerID int64, matches []ScheduleMatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduleMatches[ownerID] = append([]ScheduleMatch(nil), matches...)
	return nil
}

func (f *fakeRepo) GetScheduleMatches(ctx context.Context, ownerID int64) ([]ScheduleMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ScheduleMatch(nil), f.scheduleMatches[ownerID]...), nil
}

func (f *fakeRepo) GetActiveProfilePeerIDs(ctx context.Context, ownerID int64) (map[int64]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	peers := make(map[int64]bool)
	for _, m := range f.profileMatches {
		if !m.ExpiresAt.After(time.Now()) {
			continue
		}
		if m.User1ID == ownerID {
			peers[m.User2ID] = true
		} else if m.User2ID == ownerID {
			peers[m.User1ID] = true
		}
	}
	return peers, nil
}

func (f *fakeRepo) CreateProfileMatch(ctx context.Context, match *ProfileMatch) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if match.User1ID > match.User2ID {
		match.User1ID, match.User2ID = match.User2ID, match.User1ID
	}
	for _, m := range f.profileMatches {
		if m.User1ID == match.User1ID && m.User2ID == match.User2ID && m.ExpiresAt.After(time.Now()) {
			return false, nil
		}
	}
	f.nextID++
	match.ID = f.nextID
	match.CreatedAt = time.Now()
	copied := *match
	f.profileMatches = append(f.profileMatches, &copied)
	return true, nil
}

func (f *fakeRepo) GetProfileMatch(ctx context.Context, id int64) (*ProfileMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.profileMatches {
		if m.ID == id {
			copied := *m
			return &copied, nil
		}
	}
	return nil, ErrMatchNotFound
}

func (f *fakeRepo) GetActiveProfileMatches(ctx context.Context, ownerID int64) ([]ProfileMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matches []ProfileMatch
	for _, m := range f.profileMatches {
		if m.User1ID != ownerID && m.User2ID != ownerID {
			continue
		}
		if !m.ExpiresAt.After(time.Now()) || m.Status == StatusDeclined {
			continue
		}
		matches = append(matches, *m)
	}
	return matches, nil
}

func (f *fakeRepo) UpdateProfileMatchStatus(ctx context.Context, id int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.profileMatches {
		if m.ID == id {
			m.Status = status
			return nil
		}
	}
	return ErrMatchNotFound
}

func (f *fakeRepo) MarkProfileMatchNotified(ctx context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.profileMatches {
		if m.ID == id && m.NotifiedAt == nil {
			stamped := at
			m.NotifiedAt = &stamped
		}
	}
	return nil
}

func (f *fakeRepo) GetSharedSlots(ctx context.Context, ownerID int64) ([]SharedSlotRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []SharedSlotRow
	for peerID, peerSlots := range f.slots {
		if peerID == ownerID {
			continue
		}
		for _, mine := range f.slots[ownerID] {
			if !mine.IsActive {
				continue
			}
			for _, theirs := range peerSlots {
				if theirs.IsActive && theirs.DayOfWeek == mine.DayOfWeek && theirs.TimeBand == mine.TimeBand {
					rows = append(rows, SharedSlotRow{
						PeerID:    peerID,
						DayOfWeek: mine.DayOfWeek,
						TimeBand:  mine.TimeBand,
					})
				}
			}
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].PeerID != rows[j].PeerID {
			return rows[i].PeerID < rows[j].PeerID
		}
		if rows[i].DayOfWeek != rows[j].DayOfWeek {
			return rows[i].DayOfWeek < rows[j].DayOfWeek
		}
		return rows[i].TimeBand < rows[j].TimeBand
	})
	return rows, nil
}

func (f *fakeRepo) FindUsersWithOverlappingSlots(ctx context.Context, ownerID int64, limit int) ([]int64, error) {
	rows, err := f.GetSharedSlots(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]bool)
	var ids []int64
	for _, row := range rows {
		if seen[row.PeerID] {
			continue
		}
		seen[row.PeerID] = true
		ids = append(ids, row.PeerID)
		if len(ids) >= limit {
			break
		}
	}
	return ids, nil
}

func (f *fakeRepo) ListScheduleEligibleUserIDs(ctx context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for ownerID, slots := range f.slots {
		for _, s := range slots {
			if s.IsActive {
				ids = append(ids, ownerID)
				break
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeRepo) ListProfileEligibleUserIDs(ctx context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.profileEligible...), nil
}

type fakeProfileRepo struct {
	profiles map[int64]*profile.Profile
}

func newFakeProfileRepo(profiles ...*profile.Profile) *fakeProfileRepo {
	byID := make(map[int64]*profile.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}
	return &fakeProfileRepo{profiles: byID}
}

func (f *fakeProfileRepo) GetProfile(ctx context.Context, userID int64) (*profile.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeProfileRepo) GetProfiles(ctx context.Context, userIDs []int64) (map[int64]*profile.Profile, error) {
	result := make(map[int64]*profile.Profile)
	for _, id := range userIDs {
		if p, ok := f.profiles[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func (f *fakeProfileRepo) ListEnabledWithDependents(ctx context.Context) ([]*profile.Profile, error) {
	var out []*profile.Profile
	for _, p := range f.profiles {
		if p.IsEnabled && len(p.Dependents) > 0 {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type sentNotification struct {
	OwnerID int64
	PeerID  int64
	Summary MatchSummary
}

type fakeGateway struct {
	mu        sync.Mutex
	emailOK   bool
	sent      []sentNotification
	pushes    []int64
	digests   map[int64][]DigestEntry
	reminders map[int64][]DigestEntry
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		emailOK:   true,
		digests:   make(map[int64][]DigestEntry),
		reminders: make(map[int64][]DigestEntry),
	}
}

func (g *fakeGateway) NotifyNewMatch(ctx context.Context, ownerID, peerID int64, summary MatchSummary) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.emailOK {
		return false
	}
	g.sent = append(g.sent, sentNotification{OwnerID: ownerID, PeerID: peerID, Summary: summary})
	return true
}

func (g *fakeGateway) PushNotify(ctx context.Context, ownerID int64, payload map[string]interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pushes = append(g.pushes, ownerID)
}

func (g *fakeGateway) SendWeeklyDigest(ctx context.Context, ownerID int64, entries []DigestEntry) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.digests[ownerID] = entries
	return true
}

func (g *fakeGateway) SendDayBeforeReminder(ctx context.Context, ownerID int64, entries []DigestEntry) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reminders[ownerID] = entries
	return true
}

func (g *fakeGateway) sentCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}

func testProfile(id int64, name, city string, ages ...int) *profile.Profile {
	p := &profile.Profile{
		ID:          id,
		DisplayName: name,
		Email:       name + "@example.com",
		City:        city,
		IsEnabled:   true,
	}
	for i, age := range ages {
		p.Dependents = append(p.Dependents, profile.Dependent{
			ID:        int64(i + 1),
			ProfileID: id,
			Name:      "kid",
			Age:       age,
		})
	}
	return p
}
