// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserType string

const (
	UserTypeCreator   UserType = "creator"
	UserTypeCollector UserType = "collector"
	UserTypeAdmin     UserType = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

type AssetStatus string

const (
	AssetStatusActive      AssetStatus = "active"
	AssetStatusFlagged     AssetStatus = "flagged"
	AssetStatusUnderReview AssetStatus = "under_review"
)

// BiddingStatus advances forward only: pending -> active -> finalizing ->
// {ended, completed}. The finalizing state is the finalizer's claim and is
// short-lived; it never regresses to active.
type BiddingStatus string

const (
	BiddingStatusPending    BiddingStatus = "pending"
	BiddingStatusActive     BiddingStatus = "active"
	BiddingStatusFinalizing BiddingStatus = "finalizing"
	BiddingStatusEnded      BiddingStatus = "ended"
	BiddingStatusCompleted  BiddingStatus = "completed"
)

type BidStatus string

const (
	BidStatusActive    BidStatus = "active"
	BidStatusOutbid    BidStatus = "outbid"
	BidStatusWon       BidStatus = "won"
	BidStatusCancelled BidStatus = "cancelled"
)

type SettlementStatus string

const (
	SettlementStatusNone      SettlementStatus = "none"
	SettlementStatusPending   SettlementStatus = "pending"
	SettlementStatusConfirmed SettlementStatus = "confirmed"
	SettlementStatusFailed    SettlementStatus = "failed"
)

type ScanStatus string

const (
	ScanStatusPending   ScanStatus = "pending"
	ScanStatusScanning  ScanStatus = "scanning"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFlagged   ScanStatus = "flagged"
)

type TransactionType string

const (
	TransactionTypeBought     TransactionType = "bought"
	TransactionTypeLicenseFee TransactionType = "license_fee"
	TransactionTypeRoyalty    TransactionType = "royalty"
)

type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusSuccess  TransactionStatus = "success"
	TransactionStatusFailed   TransactionStatus = "failed"
	TransactionStatusRefunded TransactionStatus = "refunded"
)

type LicenseType string

const (
	LicenseTypeStandard   LicenseType = "standard"
	LicenseTypeCommercial LicenseType = "commercial"
	LicenseTypeExclusive  LicenseType = "exclusive"
)

type NotificationType string

const (
	NotificationTypeContentFlagged NotificationType = "content_flagged"
	NotificationTypeAuctionWon     NotificationType = "auction_won"
	NotificationTypeAuctionEnded   NotificationType = "auction_ended"
	NotificationTypeSystem         NotificationType = "system"
)
