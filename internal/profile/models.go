package profile

import "time"

// Profile is the account subsystem's view of a user. The matching core
// reads these rows and never mutates them.
type Profile struct {
	ID          int64     `json:"id" db:"id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Email       string    `json:"email" db:"email"`
	City        string    `json:"city" db:"city"` // coarse place label, resolved via geo.Resolver
	IsEnabled   bool      `json:"is_enabled" db:"is_enabled"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	// Loaded separately
	Dependents []Dependent `json:"dependents,omitempty"`
}

// Dependent is a child registered under a profile. Only the age matters
// to the matching core.
type Dependent struct {
	ID        int64  `json:"id" db:"id"`
	ProfileID int64  `json:"profile_id" db:"profile_id"`
	Name      string `json:"name" db:"name"`
	Age       int    `json:"age" db:"age"`
}

// DependentAges extracts the age list used by the scorer.
func (p *Profile) DependentAges() []int {
	ages := make([]int, 0, len(p.Dependents))
	for _, d := range p.Dependents {
		ages = append(ages, d.Age)
	}
	return ages
}
