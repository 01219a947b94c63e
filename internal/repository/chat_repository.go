package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/MaxCaruta/purelove-sub002/internal/models"
	"github.com/MaxCaruta/purelove-sub002/internal/reconcile"
	"github.com/MaxCaruta/purelove-sub002/internal/source"
)

// ChatRepository implements the bulk conversation load and mark-read
// persistence against the platform's Postgres store.
type ChatRepository struct {
	db *gorm.DB
}

var _ source.ChatStore = (*ChatRepository)(nil)

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// chatRow is one denormalized conversation summary straight from the store.
// Deliberately not the full models.User shape: the dashboard list only needs
// the projection, and the query stays a single round trip.
type chatRow struct {
	UserID          uint       `gorm:"column:user_id"`
	UserDisplayName string     `gorm:"column:user_display_name"`
	UserEmail       string     `gorm:"column:user_email"`
	UserPhoto       string     `gorm:"column:user_photo"`
	CounterpartID   uint       `gorm:"column:counterpart_id"`
	Status          string     `gorm:"column:status"`
	LastContent     string     `gorm:"column:last_content"`
	LastType        string     `gorm:"column:last_type"`
	LastCreatedAt   *time.Time `gorm:"column:last_created_at"`
	UnreadCount     int64      `gorm:"column:unread_count"`
}

// FetchUserChats seeds the registry: every conversation pair with its last
// message and unread count, grouped per user.
//
// Notes:
// - single query, no N+1
// - window functions pick the latest message per pair and count unread
//   user->counterpart messages per pair
// - pairs with no messages yet still come back (LEFT JOIN), with rn = 1
func (r *ChatRepository) FetchUserChats(ctx context.Context) ([]source.UserChats, error) {
	query := strings.TrimSpace(`
WITH ranked AS (
	SELECT
		c.user_id,
		c.counterpart_id,
		c.status,
		m.content AS last_content,
		m.type AS last_type,
		m.created_at AS last_created_at,
		ROW_NUMBER() OVER (
			PARTITION BY c.user_id, c.counterpart_id
			ORDER BY m.created_at DESC NULLS LAST, m.id DESC
		) AS rn,
		SUM(CASE WHEN m.sender_id = c.user_id AND m.is_read = false THEN 1 ELSE 0 END) OVER (
			PARTITION BY c.user_id, c.counterpart_id
		) AS unread_count
	FROM conversations c
	LEFT JOIN messages m
		ON (m.sender_id = c.user_id AND m.receiver_id = c.counterpart_id)
		OR (m.sender_id = c.counterpart_id AND m.receiver_id = c.user_id)
)
SELECT
	u.id AS user_id,
	u.display_name AS user_display_name,
	u.email AS user_email,
	u.photo AS user_photo,
	t.counterpart_id,
	t.status,
	COALESCE(t.last_content, '') AS last_content,
	COALESCE(t.last_type, 'text') AS last_type,
	t.last_created_at,
	COALESCE(t.unread_count, 0) AS unread_count
FROM ranked t
JOIN users u ON u.id = t.user_id
WHERE t.rn = 1
ORDER BY u.id, t.last_created_at DESC NULLS LAST
`)

	var rows []chatRow
	if err := r.db.WithContext(ctx).Raw(query).Scan(&rows).Error; err != nil {
		return nil, err
	}

	return groupChatRows(rows), nil
}

func groupChatRows(rows []chatRow) []source.UserChats {
	var out []source.UserChats
	index := make(map[uint]int)

	for _, row := range rows {
		i, ok := index[row.UserID]
		if !ok {
			out = append(out, source.UserChats{
				User: models.User{
					ID:          row.UserID,
					DisplayName: row.UserDisplayName,
					Email:       row.UserEmail,
					Photo:       row.UserPhoto,
				},
			})
			i = len(out) - 1
			index[row.UserID] = i
		}

		conv := models.Conversation{
			UserID:        row.UserID,
			CounterpartID: row.CounterpartID,
			UnreadCount:   int(row.UnreadCount),
			Status:        models.ConversationStatus(row.Status),
		}
		if !conv.Status.Valid() {
			conv.Status = models.StatusActive
		}
		if row.LastCreatedAt != nil {
			conv.LastMessageAt = *row.LastCreatedAt
			conv.LastMessageText = reconcile.Preview(models.MessageEvent{
				Content: row.LastContent,
				Type:    models.MessageType(row.LastType),
			})
		}
		out[i].Conversations = append(out[i].Conversations, conv)
	}

	return out
}

// MarkRead flips the stored user->counterpart messages to read. Best effort:
// the caller's local state is already cleared and is never rolled back.
func (r *ChatRepository) MarkRead(ctx context.Context, userID, counterpartID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.StoredMessage{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", userID, counterpartID, false).
		Update("is_read", true).Error
}
