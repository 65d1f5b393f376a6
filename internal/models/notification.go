// internal/models/notification.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	BaseModel
	UserID         uuid.UUID        `json:"user_id" gorm:"type:uuid;not null;index"`
	Type           NotificationType `json:"type" gorm:"type:varchar(30);not null;index"`
	Title          string           `json:"title" gorm:"size:255;not null"`
	Message        string           `json:"message" gorm:"type:text"`
	RelatedAssetID *uuid.UUID       `json:"related_asset_id,omitempty" gorm:"type:uuid"`
	IsRead         bool             `json:"is_read" gorm:"default:false;index"`
	ReadAt         *time.Time       `json:"read_at,omitempty"`

	// Relationships
	User         User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
	RelatedAsset *Asset `json:"related_asset,omitempty" gorm:"foreignKey:RelatedAssetID"`
}
