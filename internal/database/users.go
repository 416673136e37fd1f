package database

import (
	"context"
	"fmt"

	"github.com/bluedeer/waterbill/internal/model"
)

// UpsertTelegramUser registers a chat user or refreshes their names.
// An existing admin flag is never cleared; notifications keep their setting.
func (s *SQLStore) UpsertTelegramUser(ctx context.Context, u *model.TelegramUser) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}

	adminExpr := "telegram_users.is_admin OR excluded.is_admin"
	_, err := s.exec(ctx, `
	INSERT INTO telegram_users (telegram_id, username, first_name, is_admin, notifications_enabled, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (telegram_id) DO UPDATE SET
		username = excluded.username,
		first_name = excluded.first_name,
		is_admin = `+adminExpr,
		u.TelegramID, u.Username, u.FirstName, u.IsAdmin, true, formatTimestamp(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert telegram user: %w", err)
	}
	return nil
}

// AdminChatIDs returns the admins that want notifications.
func (s *SQLStore) AdminChatIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.query(ctx, `
	SELECT telegram_id FROM telegram_users
	WHERE is_admin AND notifications_enabled
	ORDER BY telegram_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan admin: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
