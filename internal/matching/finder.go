package matching

import (
	"context"
	"errors"
	"log"
	"sort"

	"github.com/playdatehub/playdate-backend/internal/geo"
	"github.com/playdatehub/playdate-backend/internal/profile"
)

// CandidateFinder finds and scores eligible peers for one user, already
// filtered by that user's preference thresholds and sorted descending by
// score. An empty result is a normal negative outcome, not an error.
type CandidateFinder interface {
	Find(ctx context.Context, ownerID int64) ([]ScoredCandidate, error)
}

// ScheduleCandidateFinder matches on overlapping availability slots.
//
// Eligibility is per-side: each side's candidate list is computed against its
// own thresholds, so A can qualify for B without the reverse holding.
type ScheduleCandidateFinder struct {
	repo     Repository
	profiles profile.Repository
	resolver geo.Resolver
	defaults MatchPreference
}

func NewScheduleCandidateFinder(repo Repository, profiles profile.Repository, resolver geo.Resolver, defaults MatchPreference) *ScheduleCandidateFinder {
	return &ScheduleCandidateFinder{
		repo:     repo,
		profiles: profiles,
		resolver: resolver,
		defaults: defaults,
	}
}

func (f *ScheduleCandidateFinder) Find(ctx context.Context, ownerID int64) ([]ScoredCandidate, error) {
	slots, err := f.repo.GetActiveSlots(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, nil
	}

	owner, err := f.profiles.GetProfile(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	ownerCoord, err := f.resolver.Resolve(owner.City)
	if errors.Is(err, geo.ErrLocationNotFound) {
		// cannot be geographically matched
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	pref, err := f.repo.GetOrCreatePreference(ctx, ownerID, f.defaults)
	if err != nil {
		return nil, err
	}
	if !pref.Enabled {
		return nil, nil
	}

	sharedRows, err := f.repo.GetSharedSlots(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(sharedRows) == 0 {
		return nil, nil
	}

	// Group the overlap rows into the exact shared-slot list per peer.
	// The full list is needed for display and re-notification diffing,
	// not just the fact of overlap.
	sharedByPeer := make(map[int64]SharedSlotList)
	peerIDs := make([]int64, 0)
	for _, row := range sharedRows {
		if _, seen := sharedByPeer[row.PeerID]; !seen {
			peerIDs = append(peerIDs, row.PeerID)
		}
		sharedByPeer[row.PeerID] = append(sharedByPeer[row.PeerID], SharedSlot{
			DayOfWeek: row.DayOfWeek,
			TimeBand:  row.TimeBand,
		})
	}

	peerProfiles, err := f.profiles.GetProfiles(ctx, peerIDs)
	if err != nil {
		return nil, err
	}

	ownerAges := owner.DependentAges()
	candidates := make([]ScoredCandidate, 0, len(peerIDs))

	for _, peerID := range peerIDs {
		peer, ok := peerProfiles[peerID]
		if !ok || !peer.IsEnabled {
			continue
		}

		peerCoord, err := f.resolver.Resolve(peer.City)
		if err != nil {
			// bad location on one candidate excludes only that candidate
			continue
		}

		distance := geo.DistanceKm(ownerCoord, peerCoord)
		if distance > pref.MaxDistanceKm {
			continue
		}

		shared := sharedByPeer[peerID]
		if len(shared) == 0 {
			continue
		}

		childCompat := ChildCompatibility(ownerAges, peer.DependentAges(), pref.AgeFlexibilityYears)

		candidates = append(candidates, ScoredCandidate{
			PeerID:      peerID,
			Profile:     peer,
			Score:       ScheduleScore(len(shared), distance, pref.MaxDistanceKm, childCompat),
			DistanceKm:  distance,
			SharedSlots: shared,
		})
	}

	sortByScore(candidates)
	return candidates, nil
}

// ProfileCandidateFinder matches on location proximity and children's age
// compatibility.
//
// Eligibility is combined: both sides' thresholds must pass, which is why the
// resulting ProfileMatch can be stored once per pair.
type ProfileCandidateFinder struct {
	repo     Repository
	profiles profile.Repository
	resolver geo.Resolver
	defaults MatchPreference
}

func NewProfileCandidateFinder(repo Repository, profiles profile.Repository, resolver geo.Resolver, defaults MatchPreference) *ProfileCandidateFinder {
	return &ProfileCandidateFinder{
		repo:     repo,
		profiles: profiles,
		resolver: resolver,
		defaults: defaults,
	}
}

func (f *ProfileCandidateFinder) Find(ctx context.Context, ownerID int64) ([]ScoredCandidate, error) {
	owner, err := f.profiles.GetProfile(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(owner.Dependents) == 0 {
		return nil, nil
	}

	ownerCoord, err := f.resolver.Resolve(owner.City)
	if errors.Is(err, geo.ErrLocationNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	pref, err := f.repo.GetOrCreatePreference(ctx, ownerID, f.defaults)
	if err != nil {
		return nil, err
	}
	if !pref.Enabled {
		return nil, nil
	}

	// One pre-fetched set, checked per candidate. Excluding pairs with a
	// live ProfileMatch is what prevents re-proposing the same pair every cycle.
	existing, err := f.repo.GetActiveProfilePeerIDs(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	eligibleIDs, err := f.repo.ListProfileEligibleUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	candidateIDs := make([]int64, 0, len(eligibleIDs))
	for _, id := range eligibleIDs {
		if id == ownerID || existing[id] {
			continue
		}
		candidateIDs = append(candidateIDs, id)
	}
	if len(candidateIDs) == 0 {
		return nil, nil
	}

	peerProfiles, err := f.profiles.GetProfiles(ctx, candidateIDs)
	if err != nil {
		return nil, err
	}

	ownerAges := owner.DependentAges()
	candidates := make([]ScoredCandidate, 0)

	for _, peerID := range candidateIDs {
		peer, ok := peerProfiles[peerID]
		if !ok || !peer.IsEnabled || len(peer.Dependents) == 0 {
			continue
		}

		peerCoord, err := f.resolver.Resolve(peer.City)
		if err != nil {
			continue
		}

		distance := geo.DistanceKm(ownerCoord, peerCoord)
		if distance > pref.MaxDistanceKm {
			continue
		}

		// Combined check: the candidate's own threshold must pass too.
		peerPref, err := f.repo.GetOrCreatePreference(ctx, peerID, f.defaults)
		if err != nil {
			log.Printf("matching: preference load failed for candidate %d: %v", peerID, err)
			continue
		}
		if !peerPref.Enabled || distance > peerPref.MaxDistanceKm {
			continue
		}

		// Distance and enabled are combined checks; age flexibility is the
		// proposing side's alone. It parameterizes this proposal's age gate
		// and score, and the peer keeps its say through accept/decline.
		agePairs := AgeCompatiblePairs(ownerAges, peer.DependentAges(), pref.AgeFlexibilityYears)
		if len(agePairs) == 0 {
			continue
		}

		candidates = append(candidates, ScoredCandidate{
			PeerID:     peerID,
			Profile:    peer,
			Score:      ProfileScore(distance, agePairs, pref.AgeFlexibilityYears),
			DistanceKm: distance,
			AgePairs:   agePairs,
		})
	}

	sortByScore(candidates)
	return candidates, nil
}

func sortByScore(candidates []ScoredCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].PeerID < candidates[j].PeerID
	})
}
