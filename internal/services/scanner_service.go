// internal/services/scanner_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/fusionhq/fusion-backend/internal/models"
	"github.com/fusionhq/fusion-backend/internal/utils"
)

const (
	scanTypeDuplicateContent = "duplicate_content"
	fingerprintAlgorithm     = "sha256"

	// Fetched files are read through a hard cap so one oversized upload
	// cannot exhaust the scanner.
	maxFetchBytes = 512 << 20
)

// ScannerService fingerprints newly uploaded assets and flags exact
// duplicates. Matching is exact-hash content identity, not similarity.
type ScannerService struct {
	db            *gorm.DB
	notifications *NotificationService
	httpClient    *http.Client
	batchSize     int
}

func NewScannerService(db *gorm.DB, notifications *NotificationService, batchSize int, fetchTimeout time.Duration) *ScannerService {
	if batchSize < 1 {
		batchSize = 10
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}

	return &ScannerService{
		db:            db,
		notifications: notifications,
		httpClient:    &http.Client{Timeout: fetchTimeout},
		batchSize:     batchSize,
	}
}

// ScanPendingAssets is the scanner job body. It selects assets that have a
// file but have never been scanned, capped per run, and processes them
// sequentially. Per-asset failures are recorded as scan outcomes, never
// propagated.
func (s *ScannerService) ScanPendingAssets(ctx context.Context) error {
	assets, err := s.selectUnscannedAssets()
	if err != nil {
		return err
	}

	if len(assets) == 0 {
		return nil
	}

	logrus.WithField("count", len(assets)).Info("Scanning assets for duplicate content")

	for i := range assets {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.scanAsset(ctx, &assets[i])
	}

	return nil
}

// Selection is keyed on scan history, not fingerprint presence: a failed
// scan still records an AgentScan row, so an asset can never be silently
// excluded from all future scans without a recorded outcome.
func (s *ScannerService) selectUnscannedAssets() ([]models.Asset, error) {
	var assets []models.Asset
	err := s.db.
		Where("cardinality(file_urls) > 0").
		Where("id NOT IN (?)", s.db.Model(&models.AgentScan{}).Select("asset_id")).
		Order("created_at ASC").
		Limit(s.batchSize).
		Find(&assets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select unscanned assets: %w", err)
	}

	return assets, nil
}

func (s *ScannerService) scanAsset(ctx context.Context, asset *models.Asset) {
	startedAt := time.Now()

	outcome, err := s.computeScan(ctx, asset)
	if err != nil {
		logrus.WithField("asset_id", asset.ID).WithError(err).Error("Asset scan failed")
		s.recordFailedScan(asset.ID, startedAt, err)
		return
	}

	if err := s.persistScan(asset, startedAt, outcome); err != nil {
		logrus.WithField("asset_id", asset.ID).WithError(err).Error("Failed to persist scan outcome")
		s.recordFailedScan(asset.ID, startedAt, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"asset_id":   asset.ID,
		"status":     outcome.status,
		"similarity": outcome.similarity,
	}).Info("Asset scan completed")
}

type scanOutcome struct {
	contentHash    string
	fileSize       int64
	mimeType       string
	status         models.ScanStatus
	matchedAssetID *uuid.UUID
	similarity     float64
	reason         string
	flagAsset      bool
}

// computeScan fetches the asset's primary file, fingerprints it, and decides
// the scan outcome. It performs no writes.
func (s *ScannerService) computeScan(ctx context.Context, asset *models.Asset) (*scanOutcome, error) {
	if len(asset.FileURLs) == 0 {
		return nil, errors.New("asset has no file to scan")
	}

	data, mimeType, err := s.fetchFile(ctx, asset.FileURLs[0])
	if err != nil {
		return nil, err
	}

	outcome := &scanOutcome{
		contentHash: utils.HashBytes(data),
		fileSize:    int64(len(data)),
		mimeType:    mimeType,
	}

	matchedID, err := s.findDuplicate(asset.ID, outcome.contentHash)
	if err != nil {
		return nil, err
	}

	outcome.applyMatch(matchedID, asset.RemixOfID != nil)
	return outcome, nil
}

// applyMatch encodes the duplicate-detection decision table.
func (o *scanOutcome) applyMatch(matchedID *uuid.UUID, isDerivative bool) {
	if matchedID == nil {
		o.status = models.ScanStatusCompleted
		o.similarity = 0
		o.reason = "no matching content found"
		return
	}

	o.matchedAssetID = matchedID
	o.similarity = 100

	if isDerivative {
		// Exact matches are expected for declared derivatives; no flag.
		o.status = models.ScanStatusCompleted
		o.reason = "identical content to declared remix source; derivative content is permitted"
		return
	}

	o.status = models.ScanStatusFlagged
	o.flagAsset = true
	o.reason = fmt.Sprintf("content is byte-identical to existing asset %s", matchedID)
}

func (s *ScannerService) fetchFile(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build fetch request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch asset file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to fetch asset file: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read asset file: %w", err)
	}

	return data, resp.Header.Get("Content-Type"), nil
}

func (s *ScannerService) findDuplicate(assetID uuid.UUID, contentHash string) (*uuid.UUID, error) {
	var match models.AssetFingerprint
	err := s.db.
		Where("content_hash = ? AND asset_id <> ?", contentHash, assetID).
		Order("created_at ASC").
		First(&match).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up matching fingerprints: %w", err)
	}

	return &match.AssetID, nil
}

// persistScan writes the fingerprint, the scan row, and any flag in one
// transaction so a crash cannot leave a fingerprinted asset without a
// recorded scan outcome.
func (s *ScannerService) persistScan(asset *models.Asset, startedAt time.Time, outcome *scanOutcome) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		// The fingerprint is computed once per asset; re-running a scan on an
		// asset that somehow already owns one keeps the original row.
		var existing models.AssetFingerprint
		err := tx.Where("asset_id = ?", asset.ID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fingerprint := &models.AssetFingerprint{
				AssetID:     asset.ID,
				ContentHash: outcome.contentHash,
				Algorithm:   fingerprintAlgorithm,
				FileSize:    outcome.fileSize,
				MimeType:    outcome.mimeType,
			}
			if err := tx.Create(fingerprint).Error; err != nil {
				return fmt.Errorf("failed to store fingerprint: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("failed to check existing fingerprint: %w", err)
		}

		if outcome.flagAsset {
			now := time.Now()
			if err := tx.Model(&models.Asset{}).
				Where("id = ?", asset.ID).
				Updates(map[string]interface{}{
					"status":      models.AssetStatusFlagged,
					"flag_reason": outcome.reason,
					"flagged_at":  now,
				}).Error; err != nil {
				return fmt.Errorf("failed to flag asset: %w", err)
			}

			if err := s.notifications.NotifyContentFlagged(tx, asset, outcome.reason); err != nil {
				return err
			}
		}

		completedAt := time.Now()
		scan := &models.AgentScan{
			AssetID:         asset.ID,
			ScanType:        scanTypeDuplicateContent,
			Status:          outcome.status,
			MatchedAssetID:  outcome.matchedAssetID,
			SimilarityScore: outcome.similarity,
			Reason:          outcome.reason,
			StartedAt:       startedAt,
			CompletedAt:     &completedAt,
		}
		if err := tx.Create(scan).Error; err != nil {
			return fmt.Errorf("failed to record agent scan: %w", err)
		}

		return nil
	})
}

// recordFailedScan converts a scan failure into a completed audit row so the
// state is never left unresolved. Failed scans are not retried.
func (s *ScannerService) recordFailedScan(assetID uuid.UUID, startedAt time.Time, cause error) {
	completedAt := time.Now()
	scan := &models.AgentScan{
		AssetID:     assetID,
		ScanType:    scanTypeDuplicateContent,
		Status:      models.ScanStatusCompleted,
		Reason:      "scan failed: " + cause.Error(),
		StartedAt:   startedAt,
		CompletedAt: &completedAt,
	}

	if err := s.db.Create(scan).Error; err != nil {
		logrus.WithField("asset_id", assetID).WithError(err).Error("Failed to record failed scan")
	}
}
