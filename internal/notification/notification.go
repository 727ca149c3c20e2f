package notification

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	TypeVerificationConfirmed NotificationType = "verification_confirmed"
	TypeQuestCompleted        NotificationType = "quest_completed"
	TypeLoanCreated           NotificationType = "loan_created"
	TypeLoanRepaid            NotificationType = "loan_repaid"
	TypeLoanDueSoon           NotificationType = "loan_due_soon"
)

type Notification struct {
	ID        uuid.UUID        `json:"id"`
	Address   string           `json:"address"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"isRead"`
	Data      map[string]any   `json:"data"`
	CreatedAt time.Time        `json:"createdAt"`
}

type CreateNotificationRequest struct {
	Address string           `json:"address"`
	Type    NotificationType `json:"type"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Data    map[string]any   `json:"data,omitempty"`
}

type NotificationListResponse struct {
	Notifications []*Notification `json:"notifications"`
	Total         int             `json:"total"`
	UnreadCount   int             `json:"unreadCount"`
}

type RegisterDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type DeviceToken struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}
