package matching

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrMatchNotFound = errors.New("match not found")

// SharedSlotRow is one overlapping (peer, day, band) triple from the
// slot-overlap join.
type SharedSlotRow struct {
	PeerID    int64  `db:"peer_id"`
	DayOfWeek int    `db:"day_of_week"`
	TimeBand  string `db:"time_band"`
}

// Repository is the persistence boundary for the matching core.
type Repository interface {
	// Availability slots
	GetActiveSlots(ctx context.Context, ownerID int64) ([]AvailabilitySlot, error)
	ReplaceSlots(ctx context.Context, ownerID int64, slots []SlotDTO) error
	ToggleSlot(ctx context.Context, ownerID int64, dayOfWeek int, timeBand string, active bool) error

	// Preferences (default-on-first-read)
	GetOrCreatePreference(ctx context.Context, ownerID int64, defaults MatchPreference) (*MatchPreference, error)
	UpdatePreference(ctx context.Context, pref *MatchPreference) error
	TouchLastRun(ctx context.Context, ownerID int64) error

	// Schedule matches (per-side rows, bulk replace per owner)
	GetSchedulePeerIDs(ctx context.Context, ownerID int64) (map[int64]bool, error)
	ReplaceScheduleMatches(ctx context.Context, ownerID int64, matches []ScheduleMatch) error
	GetScheduleMatches(ctx context.Context, ownerID int64) ([]ScheduleMatch, error)

	// Profile matches (canonical pair rows)
	GetActiveProfilePeerIDs(ctx context.Context, ownerID int64) (map[int64]bool, error)
	CreateProfileMatch(ctx context.Context, match *ProfileMatch) (bool, error)
	GetProfileMatch(ctx context.Context, id int64) (*ProfileMatch, error)
	GetActiveProfileMatches(ctx context.Context, ownerID int64) ([]ProfileMatch, error)
	UpdateProfileMatchStatus(ctx context.Context, id int64, status string) error
	MarkProfileMatchNotified(ctx context.Context, id int64, at time.Time) error

	// Candidate enumeration
	GetSharedSlots(ctx context.Context, ownerID int64) ([]SharedSlotRow, error)
	FindUsersWithOverlappingSlots(ctx context.Context, ownerID int64, limit int) ([]int64, error)
	ListScheduleEligibleUserIDs(ctx context.Context) ([]int64, error)
	ListProfileEligibleUserIDs(ctx context.Context) ([]int64, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// Availability slot methods

func (r *postgresRepository) GetActiveSlots(ctx context.Context, ownerID int64) ([]AvailabilitySlot, error) {
	var slots []AvailabilitySlot
	query := `
        SELECT id, owner_id, day_of_week, time_band, is_active, created_at, updated_at
        FROM availability_slots
        WHERE owner_id = $1 AND is_active = TRUE
        ORDER BY day_of_week, time_band
    `

	err := r.db.SelectContext(ctx, &slots, query, ownerID)
	return slots, err
}

// ReplaceSlots performs the bulk resubmission: delete-all-then-insert inside
// one transaction. Slots carry no identity meaningful across resubmissions.
func (r *postgresRepository) ReplaceSlots(ctx context.Context, ownerID int64, slots []SlotDTO) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin slot replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM availability_slots WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("delete slots: %w", err)
	}

	insert := `
        INSERT INTO availability_slots (owner_id, day_of_week, time_band, is_active)
        VALUES ($1, $2, $3, TRUE)
        ON CONFLICT (owner_id, day_of_week, time_band) DO NOTHING
    `
	for _, slot := range slots {
		if _, err := tx.ExecContext(ctx, insert, ownerID, slot.DayOfWeek, slot.TimeBand); err != nil {
			return fmt.Errorf("insert slot: %w", err)
		}
	}

	return tx.Commit()
}

func (r *postgresRepository) ToggleSlot(ctx context.Context, ownerID int64, dayOfWeek int, timeBand string, active bool) error {
	// Soft-disable on toggle off; the row stays for history.
	query := `
        INSERT INTO availability_slots (owner_id, day_of_week, time_band, is_active)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (owner_id, day_of_week, time_band)
        DO UPDATE SET is_active = $4, updated_at = CURRENT_TIMESTAMP
    `

	_, err := r.db.ExecContext(ctx, query, ownerID, dayOfWeek, timeBand, active)
	return err
}

// Preference methods

func (r *postgresRepository) GetOrCreatePreference(ctx context.Context, ownerID int64, defaults MatchPreference) (*MatchPreference, error) {
	var pref MatchPreference
	query := `
        SELECT owner_id, max_distance_km, age_flexibility_years, enabled, last_run_at, created_at, updated_at
        FROM match_preferences
        WHERE owner_id = $1
    `

	err := r.db.GetContext(ctx, &pref, query, ownerID)
	if err == nil {
		return &pref, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	insert := `
        INSERT INTO match_preferences (owner_id, max_distance_km, age_flexibility_years, enabled)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (owner_id) DO UPDATE SET updated_at = CURRENT_TIMESTAMP
        RETURNING owner_id, max_distance_km, age_flexibility_years, enabled, last_run_at, created_at, updated_at
    `

	err = r.db.QueryRowxContext(
		ctx, insert,
		ownerID, defaults.MaxDistanceKm, defaults.AgeFlexibilityYears, defaults.Enabled,
	).StructScan(&pref)

	return &pref, err
}

func (r *postgresRepository) UpdatePreference(ctx context.Context, pref *MatchPreference) error {
	query := `
        UPDATE match_preferences
        SET max_distance_km = $2, age_flexibility_years = $3, enabled = $4,
            updated_at = CURRENT_TIMESTAMP
        WHERE owner_id = $1
    `

	_, err := r.db.ExecContext(
		ctx, query,
		pref.OwnerID, pref.MaxDistanceKm, pref.AgeFlexibilityYears, pref.Enabled,
	)
	return err
}

func (r *postgresRepository) TouchLastRun(ctx context.Context, ownerID int64) error {
	query := `
        UPDATE match_preferences
        SET last_run_at = CURRENT_TIMESTAMP
        WHERE owner_id = $1
    `

	_, err := r.db.ExecContext(ctx, query, ownerID)
	return err
}

// Schedule match methods

func (r *postgresRepository) GetSchedulePeerIDs(ctx context.Context, ownerID int64) (map[int64]bool, error) {
	var ids []int64
	query := `SELECT peer_id FROM schedule_matches WHERE owner_id = $1`

	if err := r.db.SelectContext(ctx, &ids, query, ownerID); err != nil {
		return nil, err
	}

	peers := make(map[int64]bool, len(ids))
	for _, id := range ids {
		peers[id] = true
	}
	return peers, nil
}

// ReplaceScheduleMatches swaps the owner's entire match set atomically.
// The delete and inserts share one transaction so a concurrent reader never
// observes a half-replaced set.
func (r *postgresRepository) ReplaceScheduleMatches(ctx context.Context, ownerID int64, matches []ScheduleMatch) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin match replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_matches WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("delete matches: %w", err)
	}

	insert := `
        INSERT INTO schedule_matches (owner_id, peer_id, shared_slots, score, distance_km, computed_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	for _, m := range matches {
		if _, err := tx.ExecContext(
			ctx, insert,
			ownerID, m.PeerID, m.SharedSlots, m.Score, m.DistanceKm, m.ComputedAt,
		); err != nil {
			return fmt.Errorf("insert match for peer %d: %w", m.PeerID, err)
		}
	}

	return tx.Commit()
}

func (r *postgresRepository) GetScheduleMatches(ctx context.Context, ownerID int64) ([]ScheduleMatch, error) {
	var matches []ScheduleMatch
	query := `
        SELECT id, owner_id, peer_id, shared_slots, score, distance_km, computed_at
        FROM schedule_matches
        WHERE owner_id = $1
        ORDER BY score DESC, peer_id
    `

	err := r.db.SelectContext(ctx, &matches, query, ownerID)
	return matches, err
}

// Profile match methods

func (r *postgresRepository) GetActiveProfilePeerIDs(ctx context.Context, ownerID int64) (map[int64]bool, error) {
	var ids []int64
	query := `
        SELECT CASE WHEN user1_id = $1 THEN user2_id ELSE user1_id END
        FROM profile_matches
        WHERE (user1_id = $1 OR user2_id = $1) AND expires_at > NOW()
    `

	if err := r.db.SelectContext(ctx, &ids, query, ownerID); err != nil {
		return nil, err
	}

	peers := make(map[int64]bool, len(ids))
	for _, id := range ids {
		peers[id] = true
	}
	return peers, nil
}

// CreateProfileMatch inserts the canonical pair row, re-checking inside the
// transaction that no non-expired row exists for the pair. Returns false when
// the pair was already matched.
func (r *postgresRepository) CreateProfileMatch(ctx context.Context, match *ProfileMatch) (bool, error) {
	// Canonical ordering: smaller id first
	if match.User1ID > match.User2ID {
		match.User1ID, match.User2ID = match.User2ID, match.User1ID
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin profile match insert: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	check := `
        SELECT EXISTS(
            SELECT 1 FROM profile_matches
            WHERE user1_id = $1 AND user2_id = $2 AND expires_at > NOW()
        )
    `
	if err := tx.GetContext(ctx, &exists, check, match.User1ID, match.User2ID); err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	insert := `
        INSERT INTO profile_matches (
            user1_id, user2_id, score, distance_km, common_age_ranges, status, expires_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at
    `
	if err := tx.QueryRowxContext(
		ctx, insert,
		match.User1ID, match.User2ID, match.Score, match.DistanceKm,
		match.CommonAgeRanges, match.Status, match.ExpiresAt,
	).Scan(&match.ID, &match.CreatedAt); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

func (r *postgresRepository) GetProfileMatch(ctx context.Context, id int64) (*ProfileMatch, error) {
	var match ProfileMatch
	query := `
        SELECT id, user1_id, user2_id, score, distance_km, common_age_ranges,
               status, notified_at, created_at, expires_at
        FROM profile_matches
        WHERE id = $1
    `

	err := r.db.GetContext(ctx, &match, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrMatchNotFound
	}
	return &match, err
}

func (r *postgresRepository) GetActiveProfileMatches(ctx context.Context, ownerID int64) ([]ProfileMatch, error) {
	var matches []ProfileMatch
	query := `
        SELECT id, user1_id, user2_id, score, distance_km, common_age_ranges,
               status, notified_at, created_at, expires_at
        FROM profile_matches
        WHERE (user1_id = $1 OR user2_id = $1)
              AND expires_at > NOW()
              AND status != 'declined'
        ORDER BY score DESC, created_at DESC
    `

	err := r.db.SelectContext(ctx, &matches, query, ownerID)
	return matches, err
}

func (r *postgresRepository) UpdateProfileMatchStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE profile_matches SET status = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMatchNotFound
	}
	return nil
}

func (r *postgresRepository) MarkProfileMatchNotified(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE profile_matches SET notified_at = $2 WHERE id = $1 AND notified_at IS NULL`

	_, err := r.db.ExecContext(ctx, query, id, at)
	return err
}

// Candidate enumeration

// GetSharedSlots returns every (peer, day, band) triple where another user's
// active slot coincides with one of the owner's active slots.
func (r *postgresRepository) GetSharedSlots(ctx context.Context, ownerID int64) ([]SharedSlotRow, error) {
	var rows []SharedSlotRow
	query := `
        SELECT theirs.owner_id AS peer_id, theirs.day_of_week, theirs.time_band
        FROM availability_slots mine
        JOIN availability_slots theirs
          ON theirs.day_of_week = mine.day_of_week
         AND theirs.time_band = mine.time_band
         AND theirs.owner_id != mine.owner_id
        WHERE mine.owner_id = $1
          AND mine.is_active = TRUE
          AND theirs.is_active = TRUE
        ORDER BY theirs.owner_id, theirs.day_of_week, theirs.time_band
    `

	err := r.db.SelectContext(ctx, &rows, query, ownerID)
	return rows, err
}

func (r *postgresRepository) FindUsersWithOverlappingSlots(ctx context.Context, ownerID int64, limit int) ([]int64, error) {
	var ids []int64
	query := `
        SELECT DISTINCT theirs.owner_id
        FROM availability_slots mine
        JOIN availability_slots theirs
          ON theirs.day_of_week = mine.day_of_week
         AND theirs.time_band = mine.time_band
         AND theirs.owner_id != mine.owner_id
        WHERE mine.owner_id = $1
          AND mine.is_active = TRUE
          AND theirs.is_active = TRUE
        ORDER BY theirs.owner_id
        LIMIT $2
    `

	err := r.db.SelectContext(ctx, &ids, query, ownerID, limit)
	return ids, err
}

func (r *postgresRepository) ListScheduleEligibleUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	query := `
        SELECT DISTINCT owner_id
        FROM availability_slots
        WHERE is_active = TRUE
        ORDER BY owner_id
    `

	err := r.db.SelectContext(ctx, &ids, query)
	return ids, err
}

func (r *postgresRepository) ListProfileEligibleUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	query := `
        SELECT DISTINCT p.id
        FROM profiles p
        JOIN dependents d ON d.profile_id = p.id
        WHERE p.is_enabled = TRUE
        ORDER BY p.id
    `

	err := r.db.SelectContext(ctx, &ids, query)
	return ids, err
}
