// internal/models/transaction.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is an immutable ledger row. Rows are inserted once at
// settlement time and never updated afterward.
type Transaction struct {
	BaseModel
	TransactionType  TransactionType   `json:"transaction_type" gorm:"type:varchar(20);not null;index"`
	BuyerID          uuid.UUID         `json:"buyer_id" gorm:"type:uuid;not null;index"`
	SellerID         uuid.UUID         `json:"seller_id" gorm:"type:uuid;not null;index"`
	AssetID          *uuid.UUID        `json:"asset_id" gorm:"type:uuid;index"`
	Amount           float64           `json:"amount" gorm:"type:decimal(10,2);not null"`
	PlatformFee      float64           `json:"platform_fee" gorm:"type:decimal(10,2);default:0"`
	PaymentMethod    string            `json:"payment_method" gorm:"size:50"`
	PaymentReference string            `json:"payment_reference" gorm:"size:255"`
	TxHash           string            `json:"tx_hash,omitempty" gorm:"size:66"`
	Status           TransactionStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	ProcessedAt      *time.Time        `json:"processed_at"`

	// Relationships
	Buyer  User   `json:"buyer,omitempty" gorm:"foreignKey:BuyerID"`
	Seller User   `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
	Asset  *Asset `json:"asset,omitempty" gorm:"foreignKey:AssetID"`
}
