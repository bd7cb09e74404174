package matching

import (
	"context"
	"time"
)

// Reconciler replaces a user's stored match set with a freshly computed
// candidate list and reports which matches are new relative to the previous
// set. Re-running with an unchanged candidate list yields no newly-introduced
// matches, which is what keeps repeated recomputes from re-notifying.
type Reconciler interface {
	Reconcile(ctx context.Context, ownerID int64, candidates []ScoredCandidate) (*ReconcileResult, error)
}

// ScheduleReconciler stores per-side rows: all surviving candidates are
// persisted, but only the top NotifyCap new ones are handed downstream for
// notification.
type ScheduleReconciler struct {
	repo Repository
	now  func() time.Time
}

func NewScheduleReconciler(repo Repository) *ScheduleReconciler {
	return &ScheduleReconciler{repo: repo, now: time.Now}
}

func (r *ScheduleReconciler) Reconcile(ctx context.Context, ownerID int64, candidates []ScoredCandidate) (*ReconcileResult, error) {
	previous, err := r.repo.GetSchedulePeerIDs(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	computedAt := r.now()
	matches := make([]ScheduleMatch, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, ScheduleMatch{
			OwnerID:     ownerID,
			PeerID:      c.PeerID,
			SharedSlots: c.SharedSlots,
			Score:       c.Score,
			DistanceKm:  c.DistanceKm,
			ComputedAt:  computedAt,
		})
	}

	if err := r.repo.ReplaceScheduleMatches(ctx, ownerID, matches); err != nil {
		return nil, err
	}

	// Candidates arrive sorted descending, so taking in order honors the
	// "top scores first" rule for the notification cap.
	var newly []ScoredCandidate
	for _, c := range candidates {
		if previous[c.PeerID] {
			continue
		}
		if len(newly) >= NotifyCap {
			break
		}
		newly = append(newly, c)
	}

	return &ReconcileResult{
		Created:         len(candidates),
		NewlyIntroduced: newly,
	}, nil
}

// ProfileReconciler creates durable ProfileMatch rows. Unlike the schedule
// axis this is a hard creation cap, not just a notification cap: these rows
// carry accept/decline workflow state and must not balloon.
type ProfileReconciler struct {
	repo Repository
	now  func() time.Time
}

func NewProfileReconciler(repo Repository) *ProfileReconciler {
	return &ProfileReconciler{repo: repo, now: time.Now}
}

func (r *ProfileReconciler) Reconcile(ctx context.Context, ownerID int64, candidates []ScoredCandidate) (*ReconcileResult, error) {
	result := &ReconcileResult{CreatedMatches: make(map[int64]*ProfileMatch)}

	for _, c := range candidates {
		if result.Created >= ProfileCreateCap {
			break
		}

		now := r.now()
		match := &ProfileMatch{
			User1ID:         ownerID,
			User2ID:         c.PeerID,
			Score:           c.Score,
			DistanceKm:      c.DistanceKm,
			CommonAgeRanges: c.AgePairs,
			Status:          StatusPending,
			ExpiresAt:       now.Add(ProfileMatchTTL),
		}

		created, err := r.repo.CreateProfileMatch(ctx, match)
		if err != nil {
			return nil, err
		}
		if !created {
			// another run got there first; not a new introduction
			continue
		}

		result.Created++
		result.NewlyIntroduced = append(result.NewlyIntroduced, c)
		result.CreatedMatches[c.PeerID] = match
	}

	return result, nil
}
