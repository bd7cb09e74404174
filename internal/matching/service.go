package matching

import (
	"context"
	"errors"
	"fmt"

	"github.com/playdatehub/playdate-backend/internal/profile"
)

var (
	ErrInvalidSlot      = errors.New("invalid availability slot")
	ErrNotParticipant   = errors.New("user is not part of this match")
	ErrAlreadyResponded = errors.New("match already responded to")
	ErrMatchExpired     = errors.New("match has expired")
)

// Service is the application boundary for the matching feature.
type Service interface {
	SubmitSchedule(ctx context.Context, userID int64, dto *SubmitScheduleDTO) ([]AvailabilitySlot, error)
	ToggleSlot(ctx context.Context, userID int64, dto *ToggleSlotDTO) ([]AvailabilitySlot, error)
	GetSchedule(ctx context.Context, userID int64) ([]AvailabilitySlot, error)

	GetPreferences(ctx context.Context, userID int64) (*MatchPreference, error)
	UpdatePreferences(ctx context.Context, userID int64, dto *UpdatePreferencesDTO) (*MatchPreference, error)

	GetMatches(ctx context.Context, userID int64) ([]MatchView, error)
	GetMatchesForSlot(ctx context.Context, userID int64, dayOfWeek int, timeBand string) ([]MatchView, error)
	GetSlotStatistics(ctx context.Context, userID int64) ([]SlotStats, error)

	RespondProfileMatch(ctx context.Context, userID, matchID int64, dto *RespondProfileMatchDTO) (*ProfileMatch, error)
	Recalculate(ctx context.Context, userID int64) (*RecalculateResponse, error)
}

type service struct {
	repo         Repository
	profiles     profile.Repository
	orchestrator *Orchestrator
	defaults     MatchPreference
}

func NewService(repo Repository, profiles profile.Repository, orchestrator *Orchestrator, defaults MatchPreference) Service {
	return &service{
		repo:         repo,
		profiles:     profiles,
		orchestrator: orchestrator,
		defaults:     defaults,
	}
}

// SubmitSchedule replaces the user's weekly availability wholesale and
// recomputes their schedule matches before returning. The stored slots come
// back so the client can render the accepted state.
func (s *service) SubmitSchedule(ctx context.Context, userID int64, dto *SubmitScheduleDTO) ([]AvailabilitySlot, error) {
	for _, slot := range dto.Slots {
		if slot.DayOfWeek < 0 || slot.DayOfWeek > 6 || !ValidTimeBand(slot.TimeBand) {
			return nil, fmt.Errorf("%w: day=%d band=%q", ErrInvalidSlot, slot.DayOfWeek, slot.TimeBand)
		}
	}

	if err := s.repo.ReplaceSlots(ctx, userID, dto.Slots); err != nil {
		return nil, fmt.Errorf("replace slots: %w", err)
	}

	if err := s.orchestrator.OnAvailabilityChanged(ctx, userID); err != nil {
		return nil, fmt.Errorf("recompute after schedule change: %w", err)
	}

	return s.repo.GetActiveSlots(ctx, userID)
}

func (s *service) ToggleSlot(ctx context.Context, userID int64, dto *ToggleSlotDTO) ([]AvailabilitySlot, error) {
	if dto.DayOfWeek < 0 || dto.DayOfWeek > 6 || !ValidTimeBand(dto.TimeBand) {
		return nil, fmt.Errorf("%w: day=%d band=%q", ErrInvalidSlot, dto.DayOfWeek, dto.TimeBand)
	}

	if err := s.repo.ToggleSlot(ctx, userID, dto.DayOfWeek, dto.TimeBand, dto.Active); err != nil {
		return nil, fmt.Errorf("toggle slot: %w", err)
	}

	if err := s.orchestrator.OnAvailabilityChanged(ctx, userID); err != nil {
		return nil, fmt.Errorf("recompute after slot toggle: %w", err)
	}

	return s.repo.GetActiveSlots(ctx, userID)
}

func (s *service) GetSchedule(ctx context.Context, userID int64) ([]AvailabilitySlot, error) {
	return s.repo.GetActiveSlots(ctx, userID)
}

func (s *service) GetPreferences(ctx context.Context, userID int64) (*MatchPreference, error) {
	return s.repo.GetOrCreatePreference(ctx, userID, s.defaults)
}

func (s *service) UpdatePreferences(ctx context.Context, userID int64, dto *UpdatePreferencesDTO) (*MatchPreference, error) {
	pref, err := s.repo.GetOrCreatePreference(ctx, userID, s.defaults)
	if err != nil {
		return nil, err
	}

	pref.MaxDistanceKm = dto.MaxDistanceKm
	pref.AgeFlexibilityYears = dto.AgeFlexibilityYears
	if dto.Enabled != nil {
		pref.Enabled = *dto.Enabled
	}

	if err := s.repo.UpdatePreference(ctx, pref); err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}

	if err := s.orchestrator.OnPreferencesChanged(ctx, userID); err != nil {
		return nil, fmt.Errorf("recompute after preference change: %w", err)
	}

	return pref, nil
}

// GetMatches merges both axes into one view, schedule matches first (they
// come back score-ordered from storage), then active profile matches.
func (s *service) GetMatches(ctx context.Context, userID int64) ([]MatchView, error) {
	scheduleMatches, err := s.repo.GetScheduleMatches(ctx, userID)
	if err != nil {
		return nil, err
	}
	profileMatches, err := s.repo.GetActiveProfileMatches(ctx, userID)
	if err != nil {
		return nil, err
	}

	peerIDs := make([]int64, 0, len(scheduleMatches)+len(profileMatches))
	for _, m := range scheduleMatches {
		peerIDs = append(peerIDs, m.PeerID)
	}
	for _, m := range profileMatches {
		peerIDs = append(peerIDs, profilePeerID(&m, userID))
	}

	names, err := s.displayNames(ctx, peerIDs)
	if err != nil {
		return nil, err
	}

	views := make([]MatchView, 0, len(peerIDs))
	for _, m := range scheduleMatches {
		views = append(views, MatchView{
			PeerID:      m.PeerID,
			DisplayName: names[m.PeerID],
			Axis:        AxisSchedule,
			Score:       m.Score,
			DistanceKm:  m.DistanceKm,
			SharedSlots: m.SharedSlots,
			ComputedAt:  m.ComputedAt,
		})
	}
	for i := range profileMatches {
		m := &profileMatches[i]
		peerID := profilePeerID(m, userID)
		expiresAt := m.ExpiresAt
		views = append(views, MatchView{
			PeerID:      peerID,
			DisplayName: names[peerID],
			Axis:        AxisProfile,
			Score:       m.Score,
			DistanceKm:  m.DistanceKm,
			AgePairs:    m.CommonAgeRanges,
			Status:      m.Status,
			ExpiresAt:   &expiresAt,
			ComputedAt:  m.CreatedAt,
		})
	}

	return views, nil
}

// GetMatchesForSlot narrows schedule matches to those sharing one specific
// (day, band) slot. Filtering happens here rather than in SQL because the
// shared slot list lives in a JSON column.
func (s *service) GetMatchesForSlot(ctx context.Context, userID int64, dayOfWeek int, timeBand string) ([]MatchView, error) {
	if dayOfWeek < 0 || dayOfWeek > 6 || !ValidTimeBand(timeBand) {
		return nil, fmt.Errorf("%w: day=%d band=%q", ErrInvalidSlot, dayOfWeek, timeBand)
	}

	matches, err := s.repo.GetScheduleMatches(ctx, userID)
	if err != nil {
		return nil, err
	}

	filtered := make([]ScheduleMatch, 0)
	peerIDs := make([]int64, 0)
	for _, m := range matches {
		for _, slot := range m.SharedSlots {
			if slot.DayOfWeek == dayOfWeek && slot.TimeBand == timeBand {
				filtered = append(filtered, m)
				peerIDs = append(peerIDs, m.PeerID)
				break
			}
		}
	}

	names, err := s.displayNames(ctx, peerIDs)
	if err != nil {
		return nil, err
	}

	views := make([]MatchView, 0, len(filtered))
	for _, m := range filtered {
		views = append(views, MatchView{
			PeerID:      m.PeerID,
			DisplayName: names[m.PeerID],
			Axis:        AxisSchedule,
			Score:       m.Score,
			DistanceKm:  m.DistanceKm,
			SharedSlots: m.SharedSlots,
			ComputedAt:  m.ComputedAt,
		})
	}
	return views, nil
}

// GetSlotStatistics aggregates the user's schedule matches per (day, band).
func (s *service) GetSlotStatistics(ctx context.Context, userID int64) ([]SlotStats, error) {
	matches, err := s.repo.GetScheduleMatches(ctx, userID)
	if err != nil {
		return nil, err
	}

	type key struct {
		day  int
		band string
	}
	type agg struct {
		count int
		top   int
		sum   int
	}

	byslot := make(map[key]*agg)
	order := make([]key, 0)
	for _, m := range matches {
		for _, slot := range m.SharedSlots {
			k := key{day: slot.DayOfWeek, band: slot.TimeBand}
			a, ok := byslot[k]
			if !ok {
				a = &agg{}
				byslot[k] = a
				order = append(order, k)
			}
			a.count++
			a.sum += m.Score
			if m.Score > a.top {
				a.top = m.Score
			}
		}
	}

	stats := make([]SlotStats, 0, len(order))
	for _, k := range order {
		a := byslot[k]
		stats = append(stats, SlotStats{
			DayOfWeek:  k.day,
			TimeBand:   k.band,
			MatchCount: a.count,
			TopScore:   a.top,
			AvgScore:   float64(a.sum) / float64(a.count),
		})
	}
	return stats, nil
}

// RespondProfileMatch records an accept or decline. Only a participant may
// respond, only once, and not after expiry.
func (s *service) RespondProfileMatch(ctx context.Context, userID, matchID int64, dto *RespondProfileMatchDTO) (*ProfileMatch, error) {
	match, err := s.repo.GetProfileMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if match.User1ID != userID && match.User2ID != userID {
		return nil, ErrNotParticipant
	}
	if match.Status != StatusPending {
		return nil, ErrAlreadyResponded
	}
	if !match.ExpiresAt.After(s.orchestrator.now()) {
		return nil, ErrMatchExpired
	}

	if err := s.repo.UpdateProfileMatchStatus(ctx, matchID, dto.Status); err != nil {
		return nil, err
	}

	match.Status = dto.Status
	return match, nil
}

// Recalculate runs both axes on demand and reports the user's resulting
// schedule match count plus newly created profile matches.
func (s *service) Recalculate(ctx context.Context, userID int64) (*RecalculateResponse, error) {
	scheduleCount, err := s.orchestrator.RecalculateSchedule(ctx, userID, "manual")
	if err != nil {
		return nil, err
	}
	profileCount, err := s.orchestrator.RecalculateProfile(ctx, userID, "manual")
	if err != nil {
		return nil, err
	}

	return &RecalculateResponse{MatchesFound: scheduleCount + profileCount}, nil
}

func (s *service) displayNames(ctx context.Context, peerIDs []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(peerIDs))
	if len(peerIDs) == 0 {
		return names, nil
	}

	profiles, err := s.profiles.GetProfiles(ctx, peerIDs)
	if err != nil {
		return nil, err
	}
	for id, p := range profiles {
		names[id] = p.DisplayName
	}
	return names, nil
}

func profilePeerID(m *ProfileMatch, userID int64) int64 {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}
