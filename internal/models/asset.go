// internal/models/asset.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Asset struct {
	BaseModel
	CreatorID   uuid.UUID      `json:"creator_id" gorm:"type:uuid;not null;index"`
	Title       string         `json:"title" gorm:"size:255;not null"`
	Description string         `json:"description" gorm:"type:text"`
	Category    string         `json:"category" gorm:"size:100;index"`
	ContentType string         `json:"content_type" gorm:"size:50"`
	FileURLs    pq.StringArray `json:"file_urls" gorm:"type:text[]"`
	Metadata    JSONB          `json:"metadata" gorm:"type:jsonb"`
	Tags        pq.StringArray `json:"tags" gorm:"type:text[]"`
	Status      AssetStatus    `json:"status" gorm:"type:varchar(20);default:'active';index"`
	FlagReason  string         `json:"flag_reason,omitempty" gorm:"type:text"`
	FlaggedAt   *time.Time     `json:"flagged_at,omitempty"`

	// RemixOfID marks the asset as a declared derivative of another asset.
	RemixOfID *uuid.UUID `json:"remix_of_id,omitempty" gorm:"type:uuid;index"`

	// Auction lifecycle
	BiddingEnabled  bool          `json:"bidding_enabled" gorm:"default:false;index"`
	BiddingStatus   BiddingStatus `json:"bidding_status" gorm:"type:varchar(20);default:'pending';index"`
	BiddingStartsAt *time.Time    `json:"bidding_starts_at"`
	BiddingEndsAt   *time.Time    `json:"bidding_ends_at" gorm:"index"`
	BiddingWinnerID *uuid.UUID    `json:"bidding_winner_id,omitempty" gorm:"type:uuid"`

	// On-chain settlement bookkeeping
	SettlementStatus   SettlementStatus `json:"settlement_status" gorm:"type:varchar(20);default:'none';index"`
	SettlementHash     string           `json:"settlement_hash,omitempty" gorm:"size:66"`
	SettlementAttempts int              `json:"settlement_attempts" gorm:"default:0"`
	SettledAt          *time.Time       `json:"settled_at,omitempty"`

	ViewCount int64 `json:"view_count" gorm:"default:0"`
	LikeCount int64 `json:"like_count" gorm:"default:0"`

	// Relationships
	Creator   User      `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`
	RemixOf   *Asset    `json:"remix_of,omitempty" gorm:"foreignKey:RemixOfID"`
	Bids      []Bid     `json:"bids,omitempty" gorm:"foreignKey:AssetID"`
	Licenses  []License `json:"licenses,omitempty" gorm:"foreignKey:AssetID"`
}

type License struct {
	BaseModel
	AssetID                uuid.UUID   `json:"asset_id" gorm:"type:uuid;not null;index"`
	LicenseType            LicenseType `json:"license_type" gorm:"type:varchar(20);not null"`
	Fee                    float64     `json:"fee" gorm:"type:decimal(10,2);default:0"`
	RevenueSharePercentage float64     `json:"revenue_share_percentage" gorm:"type:decimal(5,2);default:0"`
	Territory              string      `json:"territory" gorm:"size:100;default:'global'"`
	Duration               string      `json:"duration" gorm:"size:50;default:'perpetual'"`
	IsActive               bool        `json:"is_active" gorm:"default:true"`

	// Relationships
	Asset Asset `json:"asset,omitempty" gorm:"foreignKey:AssetID"`
}
