// internal/models/bid.go
package models

import (
	"github.com/google/uuid"
)

type Bid struct {
	BaseModel
	AssetID  uuid.UUID `json:"asset_id" gorm:"type:uuid;not null;index"`
	BidderID uuid.UUID `json:"bidder_id" gorm:"type:uuid;not null;index"`
	Amount   float64   `json:"amount" gorm:"type:decimal(10,2);not null"`
	Status   BidStatus `json:"status" gorm:"type:varchar(20);default:'active';index"`
	TxHash   string    `json:"tx_hash,omitempty" gorm:"size:66"`

	// Relationships
	Asset  Asset `json:"asset,omitempty" gorm:"foreignKey:AssetID"`
	Bidder User  `json:"bidder,omitempty" gorm:"foreignKey:BidderID"`
}
