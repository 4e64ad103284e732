package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dealerbridge/dealerdesk-backend/pkg/enums"
)

// Notification stores best-effort order event payloads scoped to dealers.
type Notification struct {
	ID        uuid.UUID               `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	DealerID  uuid.UUID               `gorm:"type:uuid;not null"`
	OrderID   uuid.UUID               `gorm:"type:uuid;not null"`
	Event     enums.NotificationEvent `gorm:"type:notification_event;not null"`
	Title     string                  `gorm:"type:text;not null"`
	Message   string                  `gorm:"type:text;not null"`
	ReadAt    *time.Time              `gorm:"type:timestamptz"`
	CreatedAt time.Time               `gorm:"type:timestamptz;default:now()"`
}
