// internal/models/scan.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// AssetFingerprint is the authoritative content hash for an asset's primary
// file. At most one row per asset; the scanner never recomputes an existing
// fingerprint.
type AssetFingerprint struct {
	BaseModel
	AssetID     uuid.UUID `json:"asset_id" gorm:"type:uuid;not null;uniqueIndex"`
	ContentHash string    `json:"content_hash" gorm:"size:64;not null;index"`
	Algorithm   string    `json:"algorithm" gorm:"size:20;not null;default:'sha256'"`
	FileSize    int64     `json:"file_size" gorm:"default:0"`
	MimeType    string    `json:"mime_type" gorm:"size:100"`

	// Relationships
	Asset Asset `json:"asset,omitempty" gorm:"foreignKey:AssetID"`
}

// AgentScan is the append-only audit trail of scan attempts. One row per
// execution, success or failure; completion status and timestamp are set
// together at insert and the row is never touched again.
type AgentScan struct {
	BaseModel
	AssetID         uuid.UUID  `json:"asset_id" gorm:"type:uuid;not null;index"`
	ScanType        string     `json:"scan_type" gorm:"size:50;not null;default:'duplicate_content'"`
	Status          ScanStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	MatchedAssetID  *uuid.UUID `json:"matched_asset_id,omitempty" gorm:"type:uuid"`
	SimilarityScore float64    `json:"similarity_score" gorm:"type:decimal(5,2);default:0"`
	Reason          string     `json:"reason,omitempty" gorm:"type:text"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`

	// Relationships
	Asset        Asset  `json:"asset,omitempty" gorm:"foreignKey:AssetID"`
	MatchedAsset *Asset `json:"matched_asset,omitempty" gorm:"foreignKey:MatchedAssetID"`
}
