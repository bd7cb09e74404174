// internal/notification/models.go

package notification

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// EmailMessage is one outbound email.
type EmailMessage struct {
	To      string
	Subject string
	Body    string // plain text
	HTML    string
}

// PushMessage is one outbound push notification fanned out to all of a
// user's registered devices.
type PushMessage struct {
	Tokens []string
	Title  string
	Body   string
	Data   map[string]string
}

// DeviceToken is one registered push target for a user.
type DeviceToken struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Token     string    `db:"token"`
	Platform  string    `db:"platform"` // "ios", "android", "web"
	CreatedAt time.Time `db:"created_at"`
}

// TokenRepository stores push device tokens.
type TokenRepository interface {
	GetTokens(ctx context.Context, userID int64) ([]string, error)
	SaveToken(ctx context.Context, userID int64, token, platform string) error
	DeleteToken(ctx context.Context, token string) error
}

type postgresTokenRepository struct {
	db *sqlx.DB
}

func NewPostgresTokenRepository(db *sqlx.DB) TokenRepository {
	return &postgresTokenRepository{db: db}
}

func (r *postgresTokenRepository) GetTokens(ctx context.Context, userID int64) ([]string, error) {
	var tokens []string
	query := `SELECT token FROM device_tokens WHERE user_id = $1`

	err := r.db.SelectContext(ctx, &tokens, query, userID)
	return tokens, err
}

func (r *postgresTokenRepository) SaveToken(ctx context.Context, userID int64, token, platform string) error {
	query := `
        INSERT INTO device_tokens (user_id, token, platform)
        VALUES ($1, $2, $3)
        ON CONFLICT (token) DO UPDATE SET user_id = $1, platform = $3
    `

	_, err := r.db.ExecContext(ctx, query, userID, token, platform)
	return err
}

func (r *postgresTokenRepository) DeleteToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM device_tokens WHERE token = $1`, token)
	return err
}
