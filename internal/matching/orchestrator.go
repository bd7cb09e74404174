package matching

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playdatehub/playdate-backend/internal/profile"
)

// Orchestrator drives the full recompute pipeline for one user and one axis:
// find candidates, reconcile the stored set, then notify about the new
// introductions. Notification runs strictly after persistence and its
// failures never propagate back to the caller.
type Orchestrator struct {
	repo     Repository
	profiles profile.Repository

	scheduleFinder     CandidateFinder
	profileFinder      CandidateFinder
	scheduleReconciler Reconciler
	profileReconciler  Reconciler

	gateway  NotificationGateway
	throttle *NotificationThrottle

	sweepPause time.Duration
	now        func() time.Time

	// Per-user serialization so two triggers for the same user cannot
	// interleave their delete+insert cycles. Different users proceed in
	// parallel.
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewOrchestrator(
	repo Repository,
	profiles profile.Repository,
	scheduleFinder, profileFinder CandidateFinder,
	scheduleReconciler, profileReconciler Reconciler,
	gateway NotificationGateway,
	throttle *NotificationThrottle,
	sweepPause time.Duration,
) *Orchestrator {
	return &Orchestrator{
		repo:               repo,
		profiles:           profiles,
		scheduleFinder:     scheduleFinder,
		profileFinder:      profileFinder,
		scheduleReconciler: scheduleReconciler,
		profileReconciler:  profileReconciler,
		gateway:            gateway,
		throttle:           throttle,
		sweepPause:         sweepPause,
		now:                time.Now,
		locks:              make(map[int64]*sync.Mutex),
	}
}

func (o *Orchestrator) userLock(userID int64) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		o.locks[userID] = l
	}
	return l
}

// RecalculateSchedule runs the schedule-axis pipeline for one user and
// returns how many matches the user now has on that axis.
func (o *Orchestrator) RecalculateSchedule(ctx context.Context, userID int64, trigger string) (int, error) {
	l := o.userLock(userID)
	l.Lock()
	defer l.Unlock()

	recordRecompute(AxisSchedule, trigger)

	candidates, err := o.scheduleFinder.Find(ctx, userID)
	if err != nil {
		recordRecomputeFailure(AxisSchedule)
		return 0, err
	}

	result, err := o.scheduleReconciler.Reconcile(ctx, userID, candidates)
	if err != nil {
		recordRecomputeFailure(AxisSchedule)
		return 0, err
	}
	recordMatchesStored(AxisSchedule, result.Created)
	for _, c := range candidates {
		recordScore(AxisSchedule, c.Score)
	}

	if err := o.repo.TouchLastRun(ctx, userID); err != nil {
		log.Printf("matching: last-run stamp failed for user %d: %v", userID, err)
	}

	o.notifyScheduleIntroductions(ctx, userID, result.NewlyIntroduced)
	return result.Created, nil
}

// RecalculateProfile runs the profile-axis pipeline for one user and returns
// how many new ProfileMatch rows were created.
func (o *Orchestrator) RecalculateProfile(ctx context.Context, userID int64, trigger string) (int, error) {
	l := o.userLock(userID)
	l.Lock()
	defer l.Unlock()

	recordRecompute(AxisProfile, trigger)

	candidates, err := o.profileFinder.Find(ctx, userID)
	if err != nil {
		recordRecomputeFailure(AxisProfile)
		return 0, err
	}

	result, err := o.profileReconciler.Reconcile(ctx, userID, candidates)
	if err != nil {
		recordRecomputeFailure(AxisProfile)
		return 0, err
	}
	recordMatchesStored(AxisProfile, result.Created)
	for _, c := range result.NewlyIntroduced {
		recordScore(AxisProfile, c.Score)
	}

	o.notifyProfileIntroductions(ctx, userID, result)
	return result.Created, nil
}

// OnAvailabilityChanged recomputes the editing user's schedule matches
// synchronously, then cascades to a bounded set of affected peers in the
// background. The caller sees only the owner's recompute outcome.
func (o *Orchestrator) OnAvailabilityChanged(ctx context.Context, userID int64) error {
	if _, err := o.RecalculateSchedule(ctx, userID, "availability_change"); err != nil {
		return err
	}

	peerIDs, err := o.repo.FindUsersWithOverlappingSlots(ctx, userID, CascadeLimit)
	if err != nil {
		log.Printf("matching: cascade lookup failed for user %d: %v", userID, err)
		return nil
	}

	go o.cascade(context.Background(), peerIDs)
	return nil
}

// OnPreferencesChanged recomputes both axes for the user synchronously, then
// cascades schedule recomputes to affected peers in the background.
func (o *Orchestrator) OnPreferencesChanged(ctx context.Context, userID int64) error {
	if _, err := o.RecalculateSchedule(ctx, userID, "preference_change"); err != nil {
		return err
	}
	if _, err := o.RecalculateProfile(ctx, userID, "preference_change"); err != nil {
		return err
	}

	peerIDs, err := o.repo.FindUsersWithOverlappingSlots(ctx, userID, CascadeLimit)
	if err != nil {
		log.Printf("matching: cascade lookup failed for user %d: %v", userID, err)
		return nil
	}

	go o.cascade(context.Background(), peerIDs)
	return nil
}

// cascade recomputes peers one at a time. Sequential on purpose: the cascade
// is a freshness nicety and must not stampede the database.
func (o *Orchestrator) cascade(ctx context.Context, peerIDs []int64) {
	for _, peerID := range peerIDs {
		if _, err := o.RecalculateSchedule(ctx, peerID, "cascade"); err != nil {
			log.Printf("matching: cascade recompute failed for user %d: %v", peerID, err)
		}
	}
}

// RunScheduleSweep recomputes schedule matches for every eligible user. One
// user failing skips that user only.
func (o *Orchestrator) RunScheduleSweep(ctx context.Context) {
	runID := uuid.New().String()
	start := o.now()
	log.Printf("matching: schedule sweep %s starting", runID)

	userIDs, err := o.repo.ListScheduleEligibleUserIDs(ctx)
	if err != nil {
		log.Printf("matching: schedule sweep %s aborted: %v", runID, err)
		return
	}

	var failures int
	for i, userID := range userIDs {
		if _, err := o.RecalculateSchedule(ctx, userID, "sweep"); err != nil {
			failures++
			log.Printf("matching: schedule sweep %s: user %d failed: %v", runID, userID, err)
		}
		if (i+1)%SweepBatchSize == 0 {
			time.Sleep(o.sweepPause)
		}
	}

	elapsed := o.now().Sub(start)
	observeSweepDuration(AxisSchedule, elapsed.Seconds())
	log.Printf("matching: schedule sweep %s done: %d users, %d failures, %s", runID, len(userIDs), failures, elapsed)
}

// RunProfileSweep proposes profile matches for every enabled user with
// dependents. Eligibility comes from the profile repository, which owns
// that data.
func (o *Orchestrator) RunProfileSweep(ctx context.Context) {
	runID := uuid.New().String()
	start := o.now()
	log.Printf("matching: profile sweep %s starting", runID)

	eligible, err := o.profiles.ListEnabledWithDependents(ctx)
	if err != nil {
		log.Printf("matching: profile sweep %s aborted: %v", runID, err)
		return
	}

	var failures int
	for i, p := range eligible {
		if _, err := o.RecalculateProfile(ctx, p.ID, "sweep"); err != nil {
			failures++
			log.Printf("matching: profile sweep %s: user %d failed: %v", runID, p.ID, err)
		}
		if (i+1)%SweepBatchSize == 0 {
			time.Sleep(o.sweepPause)
		}
	}

	elapsed := o.now().Sub(start)
	observeSweepDuration(AxisProfile, elapsed.Seconds())
	log.Printf("matching: profile sweep %s done: %d users, %d failures, %s", runID, len(eligible), failures, elapsed)
}

// RunWeeklyDigest emails every user with current schedule matches a summary
// of the week ahead.
func (o *Orchestrator) RunWeeklyDigest(ctx context.Context) {
	userIDs, err := o.repo.ListScheduleEligibleUserIDs(ctx)
	if err != nil {
		log.Printf("matching: weekly digest aborted: %v", err)
		return
	}

	var sent int
	for _, userID := range userIDs {
		entries, err := o.digestEntries(ctx, userID, nil)
		if err != nil {
			log.Printf("matching: weekly digest: user %d skipped: %v", userID, err)
			continue
		}
		if len(entries) == 0 {
			continue
		}
		if o.gateway.SendWeeklyDigest(ctx, userID, entries) {
			recordNotification("digest")
			sent++
		}
	}
	log.Printf("matching: weekly digest done: %d sent", sent)
}

// RunDayBeforeReminders emails users whose matches share a slot on tomorrow's
// weekday.
func (o *Orchestrator) RunDayBeforeReminders(ctx context.Context) {
	tomorrow := int(o.now().AddDate(0, 0, 1).Weekday())

	userIDs, err := o.repo.ListScheduleEligibleUserIDs(ctx)
	if err != nil {
		log.Printf("matching: day-before reminders aborted: %v", err)
		return
	}

	var sent int
	for _, userID := range userIDs {
		entries, err := o.digestEntries(ctx, userID, func(s SharedSlot) bool {
			return s.DayOfWeek == tomorrow
		})
		if err != nil {
			log.Printf("matching: day-before reminders: user %d skipped: %v", userID, err)
			continue
		}
		if len(entries) == 0 {
			continue
		}
		if o.gateway.SendDayBeforeReminder(ctx, userID, entries) {
			recordNotification("reminder")
			sent++
		}
	}
	log.Printf("matching: day-before reminders done: %d sent", sent)
}

// digestEntries builds digest lines from the user's stored schedule matches,
// optionally keeping only shared slots that pass the filter.
func (o *Orchestrator) digestEntries(ctx context.Context, userID int64, keep func(SharedSlot) bool) ([]DigestEntry, error) {
	matches, err := o.repo.GetScheduleMatches(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	peerIDs := make([]int64, 0, len(matches))
	for _, m := range matches {
		peerIDs = append(peerIDs, m.PeerID)
	}
	peerProfiles, err := o.profiles.GetProfiles(ctx, peerIDs)
	if err != nil {
		return nil, err
	}

	entries := make([]DigestEntry, 0, len(matches))
	for _, m := range matches {
		peer, ok := peerProfiles[m.PeerID]
		if !ok {
			continue
		}

		slots := m.SharedSlots
		if keep != nil {
			filtered := make(SharedSlotList, 0, len(slots))
			for _, s := range slots {
				if keep(s) {
					filtered = append(filtered, s)
				}
			}
			slots = filtered
		}
		if len(slots) == 0 {
			continue
		}

		entries = append(entries, DigestEntry{
			PeerName:    peer.DisplayName,
			Score:       m.Score,
			SharedSlots: slots,
		})
	}
	return entries, nil
}

func (o *Orchestrator) notifyScheduleIntroductions(ctx context.Context, userID int64, newly []ScoredCandidate) {
	for _, c := range newly {
		if !o.throttle.Allow(ctx, userID, c.PeerID) {
			continue
		}

		summary := MatchSummary{
			Axis:        AxisSchedule,
			PeerName:    c.Profile.DisplayName,
			Score:       c.Score,
			DistanceKm:  c.DistanceKm,
			SharedSlots: c.SharedSlots,
		}
		if o.gateway.NotifyNewMatch(ctx, userID, c.PeerID, summary) {
			recordNotification("email")
		}
		o.gateway.PushNotify(ctx, userID, map[string]interface{}{
			"type":      "schedule_match",
			"peer_id":   c.PeerID,
			"peer_name": c.Profile.DisplayName,
			"score":     c.Score,
		})
		recordNotification("push")
	}
}

func (o *Orchestrator) notifyProfileIntroductions(ctx context.Context, userID int64, result *ReconcileResult) {
	for _, c := range result.NewlyIntroduced {
		if !o.throttle.Allow(ctx, userID, c.PeerID) {
			continue
		}

		summary := MatchSummary{
			Axis:       AxisProfile,
			PeerName:   c.Profile.DisplayName,
			Score:      c.Score,
			DistanceKm: c.DistanceKm,
		}
		sent := o.gateway.NotifyNewMatch(ctx, userID, c.PeerID, summary)
		if sent {
			recordNotification("email")
			if m, ok := result.CreatedMatches[c.PeerID]; ok && m.ID != 0 {
				if err := o.repo.MarkProfileMatchNotified(ctx, m.ID, o.now()); err != nil {
					log.Printf("matching: notified stamp failed for match %d: %v", m.ID, err)
				}
			}
		}
		o.gateway.PushNotify(ctx, userID, map[string]interface{}{
			"type":      "profile_match",
			"peer_id":   c.PeerID,
			"peer_name": c.Profile.DisplayName,
			"score":     c.Score,
		})
		recordNotification("push")
	}
}
