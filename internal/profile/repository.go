package profile

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrProfileNotFound = errors.New("profile not found")

// Repository is the read-only persistence boundary for profiles.
// The account subsystem owns writes.
type Repository interface {
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	GetProfiles(ctx context.Context, userIDs []int64) (map[int64]*Profile, error)
	ListEnabledWithDependents(ctx context.Context) ([]*Profile, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	var p Profile
	query := `
        SELECT id, display_name, email, city, is_enabled, created_at
        FROM profiles
        WHERE id = $1
    `

	err := r.db.GetContext(ctx, &p, query, userID)
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadDependents(ctx, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *postgresRepository) GetProfiles(ctx context.Context, userIDs []int64) (map[int64]*Profile, error) {
	result := make(map[int64]*Profile, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`
        SELECT id, display_name, email, city, is_enabled, created_at
        FROM profiles
        WHERE id IN (?)
    `, userIDs)
	if err != nil {
		return nil, err
	}

	var profiles []*Profile
	if err := r.db.SelectContext(ctx, &profiles, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	for _, p := range profiles {
		result[p.ID] = p
	}

	depQuery, depArgs, err := sqlx.In(`
        SELECT id, profile_id, name, age
        FROM dependents
        WHERE profile_id IN (?)
        ORDER BY age
    `, userIDs)
	if err != nil {
		return nil, err
	}

	var dependents []Dependent
	if err := r.db.SelectContext(ctx, &dependents, r.db.Rebind(depQuery), depArgs...); err != nil {
		return nil, err
	}

	for _, d := range dependents {
		if p, ok := result[d.ProfileID]; ok {
			p.Dependents = append(p.Dependents, d)
		}
	}

	return result, nil
}

func (r *postgresRepository) ListEnabledWithDependents(ctx context.Context) ([]*Profile, error) {
	var profiles []*Profile
	query := `
        SELECT DISTINCT p.id, p.display_name, p.email, p.city, p.is_enabled, p.created_at
        FROM profiles p
        JOIN dependents d ON d.profile_id = p.id
        WHERE p.is_enabled = TRUE
        ORDER BY p.id
    `

	if err := r.db.SelectContext(ctx, &profiles, query); err != nil {
		return nil, err
	}

	for _, p := range profiles {
		if err := r.loadDependents(ctx, p); err != nil {
			return nil, err
		}
	}

	return profiles, nil
}

func (r *postgresRepository) loadDependents(ctx context.Context, p *Profile) error {
	query := `
        SELECT id, profile_id, name, age
        FROM dependents
        WHERE profile_id = $1
        ORDER BY age
    `
	return r.db.SelectContext(ctx, &p.Dependents, query, p.ID)
}
