// internal/services/bid_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fusionhq/fusion-backend/internal/models"
	"github.com/fusionhq/fusion-backend/internal/utils"
)

type BidService struct {
	db *gorm.DB
}

type PlaceBidRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	TxHash string  `json:"tx_hash,omitempty"`
}

func NewBidService(db *gorm.DB) *BidService {
	return &BidService{db: db}
}

// PlaceBid records a new bid on a live auction. The previous top bid of the
// same bidder is marked outbid here, at placement time; the finalizer does
// not touch losing bids.
func (s *BidService) PlaceBid(assetID, bidderID uuid.UUID, req *PlaceBidRequest) (*models.Bid, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var asset models.Asset
	if err := s.db.First(&asset, "id = ?", assetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("asset not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !asset.BiddingEnabled || asset.BiddingStatus != models.BiddingStatusActive {
		return nil, errors.New("asset is not open for bidding")
	}

	now := time.Now()
	if asset.BiddingStartsAt != nil && now.Before(*asset.BiddingStartsAt) {
		return nil, errors.New("bidding has not started yet")
	}
	if asset.BiddingEndsAt != nil && now.After(*asset.BiddingEndsAt) {
		return nil, errors.New("bidding has ended")
	}

	if asset.CreatorID == bidderID {
		return nil, errors.New("cannot bid on your own asset")
	}

	// Must beat the current top bid
	var topBid models.Bid
	err := s.db.Where("asset_id = ? AND status = ?", assetID, models.BidStatusActive).
		Order("amount DESC, created_at ASC").
		First(&topBid).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check current top bid: %w", err)
	}
	if err == nil && req.Amount <= topBid.Amount {
		return nil, fmt.Errorf("bid must exceed current top bid of %.2f", topBid.Amount)
	}

	bid := &models.Bid{
		AssetID:  assetID,
		BidderID: bidderID,
		Amount:   req.Amount,
		Status:   models.BidStatusActive,
		TxHash:   req.TxHash,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(bid).Error; err != nil {
			return fmt.Errorf("failed to create bid: %w", err)
		}

		// Retire the bidder's own previous active bids on this asset
		if err := tx.Model(&models.Bid{}).
			Where("asset_id = ? AND bidder_id = ? AND status = ? AND id <> ?",
				assetID, bidderID, models.BidStatusActive, bid.ID).
			Update("status", models.BidStatusOutbid).Error; err != nil {
			return fmt.Errorf("failed to retire previous bids: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.db.Preload("Bidder").First(bid, "id = ?", bid.ID)
	return bid, nil
}

func (s *BidService) GetAssetBids(assetID uuid.UUID, params utils.PaginationParams) ([]models.Bid, int64, error) {
	query := s.db.Model(&models.Bid{}).Where("asset_id = ?", assetID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bids: %w", err)
	}

	allowedSortFields := []string{"created_at", "amount"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var bids []models.Bid
	if err := query.Preload("Bidder").Find(&bids).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch bids: %w", err)
	}

	return bids, total, nil
}

func (s *BidService) CancelBid(bidID, bidderID uuid.UUID) error {
	var bid models.Bid
	if err := s.db.First(&bid, "id = ?", bidID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("bid not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	if bid.BidderID != bidderID {
		return errors.New("unauthorized to cancel this bid")
	}

	if bid.Status != models.BidStatusActive {
		return errors.New("only active bids can be cancelled")
	}

	// Refuse after the auction window closes; the finalizer owns the bid
	// set from that point.
	var asset models.Asset
	if err := s.db.First(&asset, "id = ?", bid.AssetID).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if asset.BiddingEndsAt != nil && time.Now().After(*asset.BiddingEndsAt) {
		return errors.New("cannot cancel a bid after the auction has ended")
	}

	if err := s.db.Model(&bid).Update("status", models.BidStatusCancelled).Error; err != nil {
		return fmt.Errorf("failed to cancel bid: %w", err)
	}

	return nil
}
