package matching

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(repo *fakeRepo, gateway *fakeGateway) Service {
	profiles := newFakeProfileRepo(
		testProfile(1, "anna", "amsterdam", 4),
		testProfile(2, "bram", "haarlem", 5),
		testProfile(3, "cleo", "haarlem", 4),
	)
	resolver := testResolver()
	orchestrator := NewOrchestrator(
		repo,
		profiles,
		NewScheduleCandidateFinder(repo, profiles, resolver, testDefaults),
		NewProfileCandidateFinder(repo, profiles, resolver, testDefaults),
		NewScheduleReconciler(repo),
		NewProfileReconciler(repo),
		gateway,
		nil,
		0,
	)
	return NewService(repo, profiles, orchestrator, testDefaults)
}

func TestSubmitSchedule(t *testing.T) {
	ctx := context.Background()

	t.Run("stores slots and recomputes matches", func(t *testing.T) {
		repo := newFakeRepo()
		repo.setSlots(2, [2]interface{}{3, BandMorning})
		gateway := newFakeGateway()
		svc := newTestService(repo, gateway)

		slots, err := svc.SubmitSchedule(ctx, 1, &SubmitScheduleDTO{
			Slots: []SlotDTO{{DayOfWeek: 3, TimeBand: BandMorning}},
		})
		require.NoError(t, err)
		require.Len(t, slots, 1)

		stored, err := repo.GetScheduleMatches(ctx, 1)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, int64(2), stored[0].PeerID)
	})

	t.Run("rejects malformed slots", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo, newFakeGateway())

		_, err := svc.SubmitSchedule(ctx, 1, &SubmitScheduleDTO{
			Slots: []SlotDTO{{DayOfWeek: 9, TimeBand: BandMorning}},
		})
		assert.ErrorIs(t, err, ErrInvalidSlot)

		_, err = svc.SubmitSchedule(ctx, 1, &SubmitScheduleDTO{
			Slots: []SlotDTO{{DayOfWeek: 3, TimeBand: "midnight"}},
		})
		assert.ErrorIs(t, err, ErrInvalidSlot)
	})
}

func TestToggleSlot(t *testing.T) {
	ctx := context.Background()

	t.Run("deactivating a slot removes its matches", func(t *testing.T) {
		repo := newFakeRepo()
		repo.setSlots(1, [2]interface{}{3, BandMorning})
		repo.setSlots(2, [2]interface{}{3, BandMorning})
		gateway := newFakeGateway()
		svc := newTestService(repo, gateway)

		_, err := svc.ToggleSlot(ctx, 1, &ToggleSlotDTO{DayOfWeek: 3, TimeBand: BandMorning, Active: true})
		require.NoError(t, err)
		stored, _ := repo.GetScheduleMatches(ctx, 1)
		require.Len(t, stored, 1)

		slots, err := svc.ToggleSlot(ctx, 1, &ToggleSlotDTO{DayOfWeek: 3, TimeBand: BandMorning, Active: false})
		require.NoError(t, err)
		assert.Empty(t, slots)

		stored, _ = repo.GetScheduleMatches(ctx, 1)
		assert.Empty(t, stored)
	})
}

func TestUpdatePreferences(t *testing.T) {
	ctx := context.Background()

	t.Run("tightening distance drops far matches", func(t *testing.T) {
		repo := newFakeRepo()
		repo.setSlots(1, [2]interface{}{3, BandMorning})
		repo.setSlots(2, [2]interface{}{3, BandMorning})
		gateway := newFakeGateway()
		svc := newTestService(repo, gateway)

		// bram in haarlem is ~20 km out; a wide preference finds him
		_, err := svc.UpdatePreferences(ctx, 1, &UpdatePreferencesDTO{
			MaxDistanceKm:       50,
			AgeFlexibilityYears: 2,
		})
		require.NoError(t, err)
		stored, _ := repo.GetScheduleMatches(ctx, 1)
		require.Len(t, stored, 1)

		_, err = svc.UpdatePreferences(ctx, 1, &UpdatePreferencesDTO{
			MaxDistanceKm:       5,
			AgeFlexibilityYears: 2,
		})
		require.NoError(t, err)
		stored, _ = repo.GetScheduleMatches(ctx, 1)
		assert.Empty(t, stored)
	})

	t.Run("disabling stops matching", func(t *testing.T) {
		repo := newFakeRepo()
		repo.setSlots(1, [2]interface{}{3, BandMorning})
		repo.setSlots(2, [2]interface{}{3, BandMorning})
		gateway := newFakeGateway()
		svc := newTestService(repo, gateway)

		disabled := false
		pref, err := svc.UpdatePreferences(ctx, 1, &UpdatePreferencesDTO{
			MaxDistanceKm:       50,
			AgeFlexibilityYears: 2,
			Enabled:             &disabled,
		})
		require.NoError(t, err)
		assert.False(t, pref.Enabled)

		stored, _ := repo.GetScheduleMatches(ctx, 1)
		assert.Empty(t, stored)
	})
}

func TestGetMatches(t *testing.T) {
	ctx := context.Background()

	t.Run("merges both axes with display names", func(t *testing.T) {
		repo := newFakeRepo()
		repo.scheduleMatches[1] = []ScheduleMatch{{
			OwnerID:     1,
			PeerID:      2,
			Score:       70,
			SharedSlots: SharedSlotList{{DayOfWeek: 3, TimeBand: BandMorning}},
		}}
		_, err := repo.CreateProfileMatch(ctx, &ProfileMatch{
			User1ID:   1,
			User2ID:   3,
			Score:     60,
			Status:    StatusPending,
			ExpiresAt: time.Now().Add(24 * time.Hour),
		})
		require.NoError(t, err)

		svc := newTestService(repo, newFakeGateway())
		views, err := svc.GetMatches(ctx, 1)
		require.NoError(t, err)
		require.Len(t, views, 2)

		assert.Equal(t, AxisSchedule, views[0].Axis)
		assert.Equal(t, "bram", views[0].DisplayName)
		assert.Equal(t, AxisProfile, views[1].Axis)
		assert.Equal(t, "cleo", views[1].DisplayName)
		assert.Equal(t, StatusPending, views[1].Status)
	})

	t.Run("profile match appears in both participants' views", func(t *testing.T) {
		repo := newFakeRepo()
		_, err := repo.CreateProfileMatch(ctx, &ProfileMatch{
			User1ID:   1,
			User2ID:   3,
			Score:     60,
			Status:    StatusPending,
			ExpiresAt: time.Now().Add(24 * time.Hour),
		})
		require.NoError(t, err)

		svc := newTestService(repo, newFakeGateway())

		annaSees, err := svc.GetMatches(ctx, 1)
		require.NoError(t, err)
		require.Len(t, annaSees, 1)
		assert.Equal(t, int64(3), annaSees[0].PeerID)
		assert.Equal(t, "cleo", annaSees[0].DisplayName)

		cleoSees, err := svc.GetMatches(ctx, 3)
		require.NoError(t, err)
		require.Len(t, cleoSees, 1)
		assert.Equal(t, int64(1), cleoSees[0].PeerID)
		assert.Equal(t, "anna", cleoSees[0].DisplayName)
		assert.Equal(t, annaSees[0].Score, cleoSees[0].Score)
	})

	t.Run("declined and expired profile matches are hidden", func(t *testing.T) {
		repo := newFakeRepo()
		repo.profileMatches = append(repo.profileMatches,
			&ProfileMatch{ID: 1, User1ID: 1, User2ID: 2, Status: StatusDeclined, ExpiresAt: time.Now().Add(time.Hour)},
			&ProfileMatch{ID: 2, User1ID: 1, User2ID: 3, Status: StatusPending, ExpiresAt: time.Now().Add(-time.Hour)},
		)

		svc := newTestService(repo, newFakeGateway())
		views, err := svc.GetMatches(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, views)
	})
}

func TestGetMatchesForSlot(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	repo.scheduleMatches[1] = []ScheduleMatch{
		{OwnerID: 1, PeerID: 2, Score: 70, SharedSlots: SharedSlotList{{DayOfWeek: 3, TimeBand: BandMorning}}},
		{OwnerID: 1, PeerID: 3, Score: 60, SharedSlots: SharedSlotList{{DayOfWeek: 5, TimeBand: BandEvening}}},
	}
	svc := newTestService(repo, newFakeGateway())

	views, err := svc.GetMatchesForSlot(ctx, 1, 3, BandMorning)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, int64(2), views[0].PeerID)

	_, err = svc.GetMatchesForSlot(ctx, 1, 7, BandMorning)
	assert.ErrorIs(t, err, ErrInvalidSlot)
}

func TestGetSlotStatistics(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	repo.scheduleMatches[1] = []ScheduleMatch{
		{OwnerID: 1, PeerID: 2, Score: 80, SharedSlots: SharedSlotList{{DayOfWeek: 3, TimeBand: BandMorning}}},
		{OwnerID: 1, PeerID: 3, Score: 60, SharedSlots: SharedSlotList{{DayOfWeek: 3, TimeBand: BandMorning}, {DayOfWeek: 5, TimeBand: BandEvening}}},
	}
	svc := newTestService(repo, newFakeGateway())

	stats, err := svc.GetSlotStatistics(ctx, 1)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	wed := stats[0]
	assert.Equal(t, 3, wed.DayOfWeek)
	assert.Equal(t, 2, wed.MatchCount)
	assert.Equal(t, 80, wed.TopScore)
	assert.InDelta(t, 70, wed.AvgScore, 1e-9)
}

func TestRespondProfileMatch(t *testing.T) {
	ctx := context.Background()

	newMatch := func(repo *fakeRepo, expiresAt time.Time) int64 {
		created, err := repo.CreateProfileMatch(ctx, &ProfileMatch{
			User1ID:   1,
			User2ID:   2,
			Status:    StatusPending,
			ExpiresAt: expiresAt,
		})
		if err != nil || !created {
			panic("fixture match not created")
		}
		return repo.profileMatches[len(repo.profileMatches)-1].ID
	}

	t.Run("participant can accept", func(t *testing.T) {
		repo := newFakeRepo()
		id := newMatch(repo, time.Now().Add(time.Hour))
		svc := newTestService(repo, newFakeGateway())

		match, err := svc.RespondProfileMatch(ctx, 2, id, &RespondProfileMatchDTO{Status: StatusAccepted})
		require.NoError(t, err)
		assert.Equal(t, StatusAccepted, match.Status)
	})

	t.Run("outsider is rejected", func(t *testing.T) {
		repo := newFakeRepo()
		id := newMatch(repo, time.Now().Add(time.Hour))
		svc := newTestService(repo, newFakeGateway())

		_, err := svc.RespondProfileMatch(ctx, 99, id, &RespondProfileMatchDTO{Status: StatusAccepted})
		assert.ErrorIs(t, err, ErrNotParticipant)
	})

	t.Run("second response is rejected", func(t *testing.T) {
		repo := newFakeRepo()
		id := newMatch(repo, time.Now().Add(time.Hour))
		svc := newTestService(repo, newFakeGateway())

		_, err := svc.RespondProfileMatch(ctx, 1, id, &RespondProfileMatchDTO{Status: StatusDeclined})
		require.NoError(t, err)

		_, err = svc.RespondProfileMatch(ctx, 1, id, &RespondProfileMatchDTO{Status: StatusAccepted})
		assert.ErrorIs(t, err, ErrAlreadyResponded)
	})

	t.Run("expired match cannot be answered", func(t *testing.T) {
		repo := newFakeRepo()
		repo.profileMatches = append(repo.profileMatches, &ProfileMatch{
			ID:        42,
			User1ID:   1,
			User2ID:   2,
			Status:    StatusPending,
			ExpiresAt: time.Now().Add(-time.Hour),
		})
		svc := newTestService(repo, newFakeGateway())

		_, err := svc.RespondProfileMatch(ctx, 1, 42, &RespondProfileMatchDTO{Status: StatusAccepted})
		assert.ErrorIs(t, err, ErrMatchExpired)
	})

	t.Run("unknown match id", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo, newFakeGateway())

		_, err := svc.RespondProfileMatch(ctx, 1, 12345, &RespondProfileMatchDTO{Status: StatusAccepted})
		assert.ErrorIs(t, err, ErrMatchNotFound)
	})
}

func TestRecalculate(t *testing.T) {
	ctx := context.Background()

	repo := newFakeRepo()
	repo.setSlots(1, [2]interface{}{3, BandMorning})
	repo.setSlots(2, [2]interface{}{3, BandMorning})
	repo.profileEligible = []int64{1, 2, 3}

	svc := newTestService(repo, newFakeGateway())

	result, err := svc.Recalculate(ctx, 1)
	require.NoError(t, err)
	// one schedule match (bram) plus profile matches with bram and cleo
	assert.Equal(t, 3, result.MatchesFound)
}
