package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"goodCredAPI/internal/notification"
)

// Notifier is what the ledgers call after a state change worth telling
// the user about. Delivery failures never abort ledger operations.
type Notifier interface {
	Notify(ctx context.Context, req *notification.CreateNotificationRequest)
}

// PushProvider delivers a notification to registered devices.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

type NotificationService struct {
	db   *pgxpool.Pool
	push PushProvider
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	return &NotificationService{db: db}
}

// SetPushProvider injects the push provider once it is available.
func (s *NotificationService) SetPushProvider(p PushProvider) {
	s.push = p
}

func (s *NotificationService) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS notifications (
			id         UUID PRIMARY KEY,
			address    TEXT NOT NULL,
			type       TEXT NOT NULL,
			title      TEXT NOT NULL,
			message    TEXT NOT NULL,
			is_read    BOOLEAN NOT NULL DEFAULT FALSE,
			data       JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_notifications_address ON notifications (address, created_at DESC);
		CREATE TABLE IF NOT EXISTS device_tokens (
			address  TEXT NOT NULL,
			token    TEXT NOT NULL,
			platform TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (address, token)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create notification tables: %w", err)
	}
	return nil
}

// Notify stores the notification and pushes it to the user's devices.
// Errors are logged, not returned: the triggering ledger operation has
// already committed.
func (s *NotificationService) Notify(ctx context.Context, req *notification.CreateNotificationRequest) {
	if _, err := s.CreateNotification(ctx, req); err != nil {
		log.Printf("Notification: failed to create %s for %s: %v", req.Type, req.Address, err)
	}
}

func (s *NotificationService) CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error) {
	dataJSON, _ := json.Marshal(req.Data)

	notif := &notification.Notification{
		ID:      uuid.New(),
		Address: req.Address,
		Type:    req.Type,
		Title:   req.Title,
		Message: req.Message,
		Data:    req.Data,
	}

	query := `
		INSERT INTO notifications (id, address, type, title, message, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := s.db.QueryRow(ctx, query,
		notif.ID, notif.Address, string(notif.Type), notif.Title, notif.Message, dataJSON,
	).Scan(&notif.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert notification: %w", err)
	}

	if s.push != nil {
		tokens, err := s.deviceTokens(ctx, req.Address)
		if err != nil {
			log.Printf("Notification: failed to load device tokens for %s: %v", req.Address, err)
		} else if err := s.push.SendPush(ctx, tokens, req.Title, req.Message, req.Data); err != nil {
			log.Printf("Notification: push failed for %s: %v", req.Address, err)
		}
	}

	return notif, nil
}

func (s *NotificationService) GetNotifications(ctx context.Context, address string, page, pageSize int, unreadOnly bool) (*notification.NotificationListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := `
		SELECT id, address, type, title, message, is_read, data, created_at
		FROM notifications
		WHERE address = $1 AND ($2 = FALSE OR is_read = FALSE)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := s.db.Query(ctx, query, address, unreadOnly, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	resp := &notification.NotificationListResponse{Notifications: []*notification.Notification{}}
	for rows.Next() {
		var n notification.Notification
		var typ string
		var dataJSON []byte
		if err := rows.Scan(&n.ID, &n.Address, &typ, &n.Title, &n.Message, &n.IsRead, &dataJSON, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Type = notification.NotificationType(typ)
		if len(dataJSON) > 0 {
			_ = json.Unmarshal(dataJSON, &n.Data)
		}
		resp.Notifications = append(resp.Notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	countQuery := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_read = FALSE)
		FROM notifications WHERE address = $1
	`
	if err := s.db.QueryRow(ctx, countQuery, address).Scan(&resp.Total, &resp.UnreadCount); err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	return resp, nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, address string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE address = $1 AND is_read = FALSE`
	if err := s.db.QueryRow(ctx, query, address).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, address string, notificationID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND address = $2`,
		notificationID, address,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, address string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE address = $1 AND is_read = FALSE`,
		address,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return nil
}

func (s *NotificationService) RegisterDevice(ctx context.Context, address string, req notification.RegisterDeviceRequest) error {
	if req.Token == "" {
		return fmt.Errorf("device token is required")
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO device_tokens (address, token, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (address, token) DO UPDATE SET platform = EXCLUDED.platform
	`, address, req.Token, req.Platform)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *NotificationService) deviceTokens(ctx context.Context, address string) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx,
		`SELECT token, platform FROM device_tokens WHERE address = $1`, address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
