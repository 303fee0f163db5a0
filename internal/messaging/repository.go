package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/database"
)

// Repository handles channels and messages.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a messaging repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListChannels returns all channels of an event, event-wide ones first.
func (r *Repository) ListChannels(ctx context.Context, eventID uuid.UUID) ([]models.Channel, error) {
	const q = `SELECT id, event_id, type, name, team_id, created_at FROM channels
		WHERE event_id = $1 ORDER BY (team_id IS NOT NULL), created_at, name`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Channel{}
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.ID, &ch.EventID, &ch.Type, &ch.Name, &ch.TeamID, &ch.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, ch)
	}
	return list, rows.Err()
}

// GetChannel returns a channel by ID.
func (r *Repository) GetChannel(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	var ch models.Channel
	err := r.pool.QueryRow(ctx, `SELECT id, event_id, type, name, team_id, created_at FROM channels WHERE id = $1`, id).
		Scan(&ch.ID, &ch.EventID, &ch.Type, &ch.Name, &ch.TeamID, &ch.CreatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &ch, nil
}

// ListMessages returns up to limit messages older than before (all when nil), oldest first.
func (r *Repository) ListMessages(ctx context.Context, channelID uuid.UUID, before *time.Time, limit int) ([]models.Message, error) {
	const q = `SELECT id, channel_id, event_id, sender_id, sender_name, body, created_at FROM messages
		WHERE channel_id = $1 AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC, id DESC LIMIT $3`
	rows, err := r.pool.Query(ctx, q, channelID, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.EventID, &m.SenderID, &m.SenderName, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}

// InsertMessage appends a message.
func (r *Repository) InsertMessage(ctx context.Context, m *models.Message) error {
	const q = `INSERT INTO messages (channel_id, event_id, sender_id, sender_name, body)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, m.ChannelID, m.EventID, m.SenderID, m.SenderName, m.Body).Scan(&m.ID, &m.CreatedAt)
}
