// internal/services/auction_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/fusionhq/fusion-backend/internal/models"
)

// ErrAuctionNotClaimable signals that an auction selected for finalization
// changed state before this run could claim it (already finalized, deadline
// moved, or claimed by a concurrent run). The item is skipped.
var ErrAuctionNotClaimable = errors.New("auction no longer eligible for finalization")

// AuctionService closes expired auctions, determines winners, settles the
// local ledger, and mirrors outcomes on-chain via the settlement service.
type AuctionService struct {
	db                    *gorm.DB
	settlement            *SettlementService
	maxSettlementAttempts int
}

func NewAuctionService(db *gorm.DB, settlement *SettlementService, maxSettlementAttempts int) *AuctionService {
	if maxSettlementAttempts < 1 {
		maxSettlementAttempts = 10
	}

	return &AuctionService{
		db:                    db,
		settlement:            settlement,
		maxSettlementAttempts: maxSettlementAttempts,
	}
}

// FinalizeExpiredAuctions is the finalizer job body. Each expired auction is
// processed independently; one failure never aborts the rest of the run.
func (s *AuctionService) FinalizeExpiredAuctions(ctx context.Context) error {
	var assets []models.Asset
	if err := s.db.
		Where("bidding_enabled = ? AND bidding_status = ? AND bidding_ends_at < ?",
			true, models.BiddingStatusActive, time.Now()).
		Find(&assets).Error; err != nil {
		return fmt.Errorf("failed to select expired auctions: %w", err)
	}

	if len(assets) == 0 {
		return nil
	}

	logrus.WithField("count", len(assets)).Info("Finalizing expired auctions")

	for i := range assets {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.FinalizeAuction(ctx, assets[i].ID); err != nil {
			if errors.Is(err, ErrAuctionNotClaimable) {
				logrus.WithField("asset_id", assets[i].ID).Info("Skipped auction: claimed or changed since selection")
				continue
			}
			logrus.WithField("asset_id", assets[i].ID).WithError(err).Error("Failed to finalize auction")
		}
	}

	return nil
}

// FinalizeAuction finalizes a single expired auction.
//
// The conditional claim (active -> finalizing) re-checks every selection
// precondition, so two overlapping runs cannot both settle the same auction:
// exactly one claim update affects a row.
func (s *AuctionService) FinalizeAuction(ctx context.Context, assetID uuid.UUID) error {
	claim := s.db.Model(&models.Asset{}).
		Where("id = ? AND bidding_enabled = ? AND bidding_status = ? AND bidding_ends_at < ?",
			assetID, true, models.BiddingStatusActive, time.Now()).
		Update("bidding_status", models.BiddingStatusFinalizing)
	if claim.Error != nil {
		return fmt.Errorf("failed to claim auction: %w", claim.Error)
	}
	if claim.RowsAffected == 0 {
		return ErrAuctionNotClaimable
	}

	var asset models.Asset
	if err := s.db.First(&asset, "id = ?", assetID).Error; err != nil {
		s.releaseClaim(assetID)
		return fmt.Errorf("failed to load claimed auction: %w", err)
	}

	winner, err := s.findWinningBid(assetID)
	if err != nil {
		s.releaseClaim(assetID)
		return err
	}

	if winner == nil {
		// Terminal no-winner state; no transaction, no settlement.
		if err := s.db.Model(&models.Asset{}).
			Where("id = ? AND bidding_status = ?", assetID, models.BiddingStatusFinalizing).
			Update("bidding_status", models.BiddingStatusEnded).Error; err != nil {
			return fmt.Errorf("failed to end auction without bids: %w", err)
		}

		logrus.WithField("asset_id", assetID).Info("Auction ended with no bids")
		return nil
	}

	// Winner path: all local bookkeeping in one storage transaction.
	// Losing bids deliberately stay active; downgrading them is handled by
	// bid placement, not finalization.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Asset{}).
			Where("id = ? AND bidding_status = ?", assetID, models.BiddingStatusFinalizing).
			Updates(map[string]interface{}{
				"bidding_status":    models.BiddingStatusCompleted,
				"bidding_winner_id": winner.BidderID,
				"settlement_status": models.SettlementStatusPending,
			}).Error; err != nil {
			return fmt.Errorf("failed to complete auction: %w", err)
		}

		if err := tx.Model(&models.Bid{}).
			Where("id = ?", winner.ID).
			Update("status", models.BidStatusWon).Error; err != nil {
			return fmt.Errorf("failed to mark winning bid: %w", err)
		}

		now := time.Now()
		ledger := &models.Transaction{
			TransactionType: models.TransactionTypeBought,
			BuyerID:         winner.BidderID,
			SellerID:        asset.CreatorID,
			AssetID:         &asset.ID,
			Amount:          winner.Amount,
			PaymentMethod:   "on_chain",
			TxHash:          winner.TxHash,
			Status:          models.TransactionStatusSuccess,
			ProcessedAt:     &now,
		}
		if err := tx.Create(ledger).Error; err != nil {
			return fmt.Errorf("failed to record sale transaction: %w", err)
		}

		return nil
	})
	if err != nil {
		s.releaseClaim(assetID)
		return err
	}

	logrus.WithFields(logrus.Fields{
		"asset_id":  assetID,
		"winner_id": winner.BidderID,
		"amount":    winner.Amount,
	}).Info("Auction completed")

	// Best-effort after commit. Local state never waits on the chain; the
	// reconciliation sweep retries whatever does not confirm here.
	s.attemptSettlement(ctx, assetID)

	return nil
}

// findWinningBid returns the highest active bid, or nil when none exist.
// Equal amounts are broken by earliest placement.
func (s *AuctionService) findWinningBid(assetID uuid.UUID) (*models.Bid, error) {
	var winner models.Bid
	err := s.db.
		Where("asset_id = ? AND status = ?", assetID, models.BidStatusActive).
		Order("amount DESC, created_at ASC").
		First(&winner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find winning bid: %w", err)
	}

	return &winner, nil
}

// releaseClaim puts a claimed auction back to active after an in-process
// failure so the next tick can retry it. The finalizing state is this run's
// claim, not a lifecycle stage, so undoing it does not regress the lifecycle.
func (s *AuctionService) releaseClaim(assetID uuid.UUID) {
	if err := s.db.Model(&models.Asset{}).
		Where("id = ? AND bidding_status = ?", assetID, models.BiddingStatusFinalizing).
		Update("bidding_status", models.BiddingStatusActive).Error; err != nil {
		logrus.WithField("asset_id", assetID).WithError(err).Error("Failed to release auction claim")
	}
}

// ReconcilePendingSettlements is the sweep job body. It retries settlements
// that never confirmed, up to the attempt cap.
func (s *AuctionService) ReconcilePendingSettlements(ctx context.Context) error {
	if !s.settlement.SignerConfigured() {
		logrus.Warn("Skipping settlement reconciliation: signer not configured")
		return nil
	}

	var assets []models.Asset
	if err := s.db.
		Where("bidding_status = ? AND settlement_status IN ? AND settlement_attempts < ?",
			models.BiddingStatusCompleted,
			[]models.SettlementStatus{models.SettlementStatusPending, models.SettlementStatusFailed},
			s.maxSettlementAttempts).
		Find(&assets).Error; err != nil {
		return fmt.Errorf("failed to select unsettled auctions: %w", err)
	}

	if len(assets) == 0 {
		return nil
	}

	logrus.WithField("count", len(assets)).Info("Reconciling unconfirmed settlements")

	for i := range assets {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.attemptSettlement(ctx, assets[i].ID)
	}

	return nil
}

func (s *AuctionService) attemptSettlement(ctx context.Context, assetID uuid.UUID) {
	txHash, err := s.settlement.FinalizeAuction(ctx, assetID)

	if errors.Is(err, ErrSignerUnavailable) {
		// Distinct condition: nothing to retry until a signer is configured,
		// so the attempt counter is left alone.
		logrus.WithField("asset_id", assetID).Warn("Settlement skipped: signer not configured")
		return
	}

	if err != nil {
		logrus.WithField("asset_id", assetID).WithError(err).Error("Settlement call failed")
		if dbErr := s.db.Model(&models.Asset{}).
			Where("id = ?", assetID).
			Updates(map[string]interface{}{
				"settlement_status":   models.SettlementStatusFailed,
				"settlement_attempts": gorm.Expr("settlement_attempts + 1"),
			}).Error; dbErr != nil {
			logrus.WithField("asset_id", assetID).WithError(dbErr).Error("Failed to record settlement failure")
		}
		return
	}

	now := time.Now()
	if dbErr := s.db.Model(&models.Asset{}).
		Where("id = ?", assetID).
		Updates(map[string]interface{}{
			"settlement_status":   models.SettlementStatusConfirmed,
			"settlement_hash":     txHash,
			"settlement_attempts": gorm.Expr("settlement_attempts + 1"),
			"settled_at":          now,
		}).Error; dbErr != nil {
		logrus.WithField("asset_id", assetID).WithError(dbErr).Error("Failed to record settlement confirmation")
	}
}
