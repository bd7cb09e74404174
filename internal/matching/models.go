package matching

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/playdatehub/playdate-backend/internal/profile"
)

// Axis identifies which matching strategy produced a record.
type Axis string

const (
	AxisSchedule Axis = "schedule"
	AxisProfile  Axis = "profile"
)

// Time bands for availability slots.
const (
	BandMorning   = "morning"
	BandAfternoon = "afternoon"
	BandEvening   = "evening"
	BandAllDay    = "allday"
)

const (
	// NotifyCap bounds "new match" notifications per recompute. Without it a
	// first-ever schedule submission matching dozens of peers would storm the inbox.
	NotifyCap = 3

	// ProfileCreateCap is a hard creation cap for profile matches per run.
	// ProfileMatch rows carry accept/decline workflow state and must not balloon.
	ProfileCreateCap = 3

	// CascadeLimit bounds how many overlapping peers get recomputed after one
	// user's mutation.
	CascadeLimit = 10

	// SweepBatchSize is how many users a sweep processes between pauses.
	SweepBatchSize = 10

	// ProfileMatchTTL is the fixed expiry horizon for profile matches.
	ProfileMatchTTL = 30 * 24 * time.Hour
)

// AvailabilitySlot is one recurring weekly availability window.
// Unique on (owner_id, day_of_week, time_band). Toggled off slots are kept
// inactive rather than deleted, to preserve history.
type AvailabilitySlot struct {
	ID        int64     `json:"id" db:"id"`
	OwnerID   int64     `json:"owner_id" db:"owner_id"`
	DayOfWeek int       `json:"day_of_week" db:"day_of_week"` // 0=Sunday .. 6=Saturday
	TimeBand  string    `json:"time_band" db:"time_band"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// MatchPreference governs both matching axes for one user.
// Created lazily with defaults on first read.
type MatchPreference struct {
	OwnerID             int64      `json:"owner_id" db:"owner_id"`
	MaxDistanceKm       float64    `json:"max_distance_km" db:"max_distance_km"`
	AgeFlexibilityYears int        `json:"age_flexibility_years" db:"age_flexibility_years"`
	Enabled             bool       `json:"enabled" db:"enabled"`
	LastRunAt           *time.Time `json:"last_run_at,omitempty" db:"last_run_at"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// SharedSlot is one overlapping availability window between two users.
type SharedSlot struct {
	DayOfWeek int    `json:"day_of_week"`
	TimeBand  string `json:"time_band"`
}

// SharedSlotList stores the shared slot list as JSON in a single column.
type SharedSlotList []SharedSlot

func (s SharedSlotList) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *SharedSlotList) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	case nil:
		*s = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into SharedSlotList", src)
	}
}

// AgePair is one age-compatible cross-pair of dependents (owner side, peer side).
type AgePair struct {
	OwnerAge int `json:"owner_age"`
	PeerAge  int `json:"peer_age"`
}

// AgePairList stores qualifying age pairs as JSON in a single column.
type AgePairList []AgePair

func (a AgePairList) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *AgePairList) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	case nil:
		*a = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into AgePairList", src)
	}
}

// ScheduleMatch is one side of a schedule-axis pairing.
//
// Deliberately NOT symmetric in storage: A→B and B→A are separate rows, each
// computed against that side's own preference thresholds, so A may hold a row
// for B while B holds none for A. At most one row per (owner_id, peer_id);
// a recompute fully replaces the owner's row set.
type ScheduleMatch struct {
	ID          int64          `json:"id" db:"id"`
	OwnerID     int64          `json:"owner_id" db:"owner_id"`
	PeerID      int64          `json:"peer_id" db:"peer_id"`
	SharedSlots SharedSlotList `json:"shared_slots" db:"shared_slots"`
	Score       int            `json:"score" db:"score"`
	DistanceKm  float64        `json:"distance_km" db:"distance_km"`
	ComputedAt  time.Time      `json:"computed_at" db:"computed_at"`
}

// Axis implements MatchRecord.
func (m *ScheduleMatch) Axis() Axis { return AxisSchedule }

// ProfileMatch statuses.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusDeclined = "declined"
)

// ProfileMatch is a profile-axis pairing, stored as a single canonical row
// keyed by the ordered pair (user1_id < user2_id). Symmetric: eligibility is
// computed once using both sides' combined preference check. Expires after a
// fixed horizon whether or not acted upon; expired rows are kept, just
// excluded from active views.
type ProfileMatch struct {
	ID              int64       `json:"id" db:"id"`
	User1ID         int64       `json:"user1_id" db:"user1_id"`
	User2ID         int64       `json:"user2_id" db:"user2_id"`
	Score           int         `json:"score" db:"score"`
	DistanceKm      float64     `json:"distance_km" db:"distance_km"`
	CommonAgeRanges AgePairList `json:"common_age_ranges" db:"common_age_ranges"`
	Status          string      `json:"status" db:"status"`
	NotifiedAt      *time.Time  `json:"notified_at,omitempty" db:"notified_at"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	ExpiresAt       time.Time   `json:"expires_at" db:"expires_at"`
}

// Axis implements MatchRecord.
func (m *ProfileMatch) Axis() Axis { return AxisProfile }

// MatchRecord is the common shape of the two stored match variants. The two
// implementations intentionally differ in storage symmetry (per-side rows vs.
// one canonical pair row); see the type docs. Unifying the schemas would
// silently change eligibility semantics, so they stay separate.
type MatchRecord interface {
	Axis() Axis
}

// ScoredCandidate is a peer that survived an axis's eligibility gates,
// scored and ready for reconciliation.
type ScoredCandidate struct {
	PeerID      int64            `json:"peer_id"`
	Profile     *profile.Profile `json:"profile,omitempty"`
	Score       int              `json:"score"`
	DistanceKm  float64          `json:"distance_km"`
	SharedSlots SharedSlotList   `json:"shared_slots,omitempty"` // schedule axis
	AgePairs    AgePairList      `json:"age_pairs,omitempty"`    // profile axis
}

// ReconcileResult reports what a reconcile pass changed.
type ReconcileResult struct {
	Created         int               `json:"created"`
	NewlyIntroduced []ScoredCandidate `json:"newly_introduced"`

	// Profile-axis rows created by this pass, keyed by peer id, so the
	// caller can stamp notified_at once the intro goes out. Carried on the
	// result rather than the reconciler: reconcilers are shared across
	// users and must stay stateless.
	CreatedMatches map[int64]*ProfileMatch `json:"-"`
}

// MatchView is the query-boundary projection of a match, either axis.
type MatchView struct {
	PeerID      int64          `json:"peer_id"`
	DisplayName string         `json:"display_name"`
	Axis        Axis           `json:"axis"`
	Score       int            `json:"score"`
	DistanceKm  float64        `json:"distance_km"`
	SharedSlots SharedSlotList `json:"shared_slots,omitempty"`
	AgePairs    AgePairList    `json:"age_pairs,omitempty"`
	Status      string         `json:"status,omitempty"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
	ComputedAt  time.Time      `json:"computed_at"`
}

// SlotStats summarizes match coverage for one (day, band) slot.
type SlotStats struct {
	DayOfWeek  int     `json:"day_of_week"`
	TimeBand   string  `json:"time_band"`
	MatchCount int     `json:"match_count"`
	TopScore   int     `json:"top_score"`
	AvgScore   float64 `json:"avg_score"`
}

// ValidTimeBand reports whether a band label is one of the four known bands.
func ValidTimeBand(band string) bool {
	switch band {
	case BandMorning, BandAfternoon, BandEvening, BandAllDay:
		return true
	}
	return false
}
