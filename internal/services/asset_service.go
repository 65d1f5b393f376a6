// internal/services/asset_service.go
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fusionhq/fusion-backend/internal/models"
	"github.com/fusionhq/fusion-backend/internal/utils"
)

type AssetService struct {
	db             *gorm.DB
	storageService *StorageService
}

type CreateAssetRequest struct {
	Title       string                 `json:"title" validate:"required,min=3,max=255"`
	Description string                 `json:"description" validate:"required,min=10"`
	Category    string                 `json:"category" validate:"required"`
	ContentType string                 `json:"content_type" validate:"required"`
	Tags        []string               `json:"tags,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	RemixOfID   *uuid.UUID             `json:"remix_of_id,omitempty"`
}

type UpdateAssetRequest struct {
	Title       string                 `json:"title,omitempty" validate:"omitempty,min=3,max=255"`
	Description string                 `json:"description,omitempty" validate:"omitempty,min=10"`
	Category    string                 `json:"category,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

type EnableBiddingRequest struct {
	StartsAt time.Time `json:"starts_at" validate:"required"`
	EndsAt   time.Time `json:"ends_at" validate:"required"`
}

type AssetSearchParams struct {
	utils.PaginationParams
	CreatorID      *uuid.UUID          `json:"creator_id,omitempty"`
	Status         *models.AssetStatus `json:"status,omitempty"`
	BiddingEnabled *bool               `json:"bidding_enabled,omitempty"`
	Tags           []string            `json:"tags,omitempty"`
}

func NewAssetService(db *gorm.DB, storageService *StorageService) *AssetService {
	return &AssetService{
		db:             db,
		storageService: storageService,
	}
}

func (s *AssetService) CreateAsset(creatorID uuid.UUID, req *CreateAssetRequest, fileURLs []string) (*models.Asset, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Verify creator exists and is active
	var creator models.User
	if err := s.db.First(&creator, "id = ?", creatorID).Error; err != nil {
		return nil, fmt.Errorf("creator not found: %w", err)
	}

	if creator.Status != models.UserStatusActive {
		return nil, errors.New("creator account is not active")
	}

	// A declared remix must point at a real asset
	if req.RemixOfID != nil {
		var parent models.Asset
		if err := s.db.First(&parent, "id = ?", *req.RemixOfID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errors.New("remix parent asset not found")
			}
			return nil, fmt.Errorf("database error: %w", err)
		}
	}

	asset := &models.Asset{
		CreatorID:     creatorID,
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		ContentType:   req.ContentType,
		FileURLs:      fileURLs,
		Tags:          req.Tags,
		Metadata:      models.JSONB(req.Metadata),
		RemixOfID:     req.RemixOfID,
		Status:        models.AssetStatusActive,
		BiddingStatus: models.BiddingStatusPending,
	}

	if err := s.db.Create(asset).Error; err != nil {
		return nil, fmt.Errorf("failed to create asset: %w", err)
	}

	// Load creator relationship
	s.db.Preload("Creator").First(asset, "id = ?", asset.ID)

	return asset, nil
}

func (s *AssetService) GetAsset(id uuid.UUID, userID *uuid.UUID) (*models.Asset, error) {
	var asset models.Asset
	query := s.db.Preload("Creator").Preload("Licenses")

	if err := query.First(&asset, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("asset not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	// Increment view count if not the creator viewing
	if userID == nil || *userID != asset.CreatorID {
		go s.incrementViewCount(id)
	}

	return &asset, nil
}

func (s *AssetService) UpdateAsset(id uuid.UUID, creatorID uuid.UUID, req *UpdateAssetRequest) (*models.Asset, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Find and verify ownership
	var asset models.Asset
	if err := s.db.First(&asset, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("asset not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if asset.CreatorID != creatorID {
		return nil, errors.New("unauthorized to update this asset")
	}

	// Update fields
	updates := make(map[string]interface{})
	if req.Title != "" {
		updates["title"] = req.Title
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.Category != "" {
		updates["category"] = req.Category
	}
	if req.Tags != nil {
		updates["tags"] = req.Tags
	}
	if req.Metadata != nil {
		updates["metadata"] = models.JSONB(req.Metadata)
	}

	if err := s.db.Model(&asset).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update asset: %w", err)
	}

	// Reload with relationships
	s.db.Preload("Creator").Preload("Licenses").First(&asset, "id = ?", id)

	return &asset, nil
}

func (s *AssetService) DeleteAsset(id uuid.UUID, creatorID uuid.UUID) error {
	// Find and verify ownership
	var asset models.Asset
	if err := s.db.First(&asset, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("asset not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	if asset.CreatorID != creatorID {
		return errors.New("unauthorized to delete this asset")
	}

	// A live or settled auction pins the asset
	if asset.BiddingEnabled && asset.BiddingStatus != models.BiddingStatusPending {
		return errors.New("cannot delete asset with auction history")
	}

	// Soft delete
	if err := s.db.Delete(&asset).Error; err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	return nil
}

// EnableBidding opens an auction window on an asset. The bidding status
// moves pending -> active here; all later transitions belong to the
// finalizer.
func (s *AssetService) EnableBidding(id uuid.UUID, creatorID uuid.UUID, req *EnableBiddingRequest) (*models.Asset, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if !req.EndsAt.After(req.StartsAt) {
		return nil, errors.New("bidding end must be after bidding start")
	}
	if req.EndsAt.Before(time.Now()) {
		return nil, errors.New("bidding end must be in the future")
	}

	var asset models.Asset
	if err := s.db.First(&asset, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("asset not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if asset.CreatorID != creatorID {
		return nil, errors.New("unauthorized to open bidding on this asset")
	}

	if asset.Status != models.AssetStatusActive {
		return nil, errors.New("flagged assets cannot be auctioned")
	}

	if asset.BiddingEnabled || asset.BiddingStatus != models.BiddingStatusPending {
		return nil, errors.New("bidding already opened for this asset")
	}

	updates := map[string]interface{}{
		"bidding_enabled":   true,
		"bidding_status":    models.BiddingStatusActive,
		"bidding_starts_at": req.StartsAt,
		"bidding_ends_at":   req.EndsAt,
	}

	if err := s.db.Model(&asset).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to enable bidding: %w", err)
	}

	s.db.First(&asset, "id = ?", id)
	return &asset, nil
}

func (s *AssetService) SearchAssets(params AssetSearchParams) ([]models.Asset, int64, error) {
	query := s.db.Model(&models.Asset{}).Preload("Creator")

	// Apply filters
	if params.CreatorID != nil {
		query = query.Where("creator_id = ?", *params.CreatorID)
	}

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	} else {
		// Default to unflagged assets only
		query = query.Where("status = ?", models.AssetStatusActive)
	}

	if params.BiddingEnabled != nil {
		query = query.Where("bidding_enabled = ?", *params.BiddingEnabled)
	}

	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}

	if params.Search != "" {
		searchTerm := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", searchTerm, searchTerm)
	}

	if len(params.Tags) > 0 {
		query = query.Where("tags && ?", params.Tags)
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count assets: %w", err)
	}

	// Apply sorting
	allowedSortFields := []string{"created_at", "updated_at", "title", "view_count", "like_count", "bidding_ends_at"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)

	// Apply pagination
	query = utils.ApplyPagination(query, params.PaginationParams)

	// Execute query
	var assets []models.Asset
	if err := query.Find(&assets).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch assets: %w", err)
	}

	return assets, total, nil
}

func (s *AssetService) GetAssetScans(assetID uuid.UUID) ([]models.AgentScan, error) {
	var scans []models.AgentScan
	if err := s.db.Where("asset_id = ?", assetID).
		Order("created_at DESC").
		Find(&scans).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch scans: %w", err)
	}

	return scans, nil
}

func (s *AssetService) GetFlaggedAssets(params utils.PaginationParams) ([]models.Asset, int64, error) {
	query := s.db.Model(&models.Asset{}).
		Where("status IN ?", []models.AssetStatus{models.AssetStatusFlagged, models.AssetStatusUnderReview})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count flagged assets: %w", err)
	}

	allowedSortFields := []string{"created_at", "flagged_at", "title"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var assets []models.Asset
	if err := query.Preload("Creator").Find(&assets).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch flagged assets: %w", err)
	}

	return assets, total, nil
}

// ReviewFlaggedAsset resolves a moderation flag: clear it or keep the asset
// under review.
func (s *AssetService) ReviewFlaggedAsset(id uuid.UUID, newStatus models.AssetStatus, reason string) (*models.Asset, error) {
	if newStatus != models.AssetStatusActive && newStatus != models.AssetStatusUnderReview {
		return nil, errors.New("invalid review status")
	}

	var asset models.Asset
	if err := s.db.First(&asset, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("asset not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if asset.Status == models.AssetStatusActive {
		return nil, errors.New("asset is not flagged")
	}

	updates := map[string]interface{}{"status": newStatus}
	if newStatus == models.AssetStatusActive {
		updates["flag_reason"] = ""
		updates["flagged_at"] = nil
	} else if reason != "" {
		updates["flag_reason"] = reason
	}

	if err := s.db.Model(&asset).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update review status: %w", err)
	}

	s.db.First(&asset, "id = ?", id)
	return &asset, nil
}

func (s *AssetService) incrementViewCount(assetID uuid.UUID) {
	s.db.Model(&models.Asset{}).Where("id = ?", assetID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
}
