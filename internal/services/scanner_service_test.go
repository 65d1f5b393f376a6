// internal/services/scanner_service_test.go
package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fusionhq/fusion-backend/internal/config"
	"github.com/fusionhq/fusion-backend/internal/models"
	"github.com/fusionhq/fusion-backend/internal/utils"
)

func newScannerService(db *gorm.DB) *ScannerService {
	notifications := NewNotificationService(db, &config.Config{})
	return NewScannerService(db, notifications, 10, 5*time.Second)
}

func TestApplyMatchDecisionTable(t *testing.T) {
	matched := uuid.New()

	t.Run("no match", func(t *testing.T) {
		outcome := &scanOutcome{}
		outcome.applyMatch(nil, false)

		assert.Equal(t, models.ScanStatusCompleted, outcome.status)
		assert.Nil(t, outcome.matchedAssetID)
		assert.Zero(t, outcome.similarity)
		assert.False(t, outcome.flagAsset)
	})

	t.Run("match on declared derivative", func(t *testing.T) {
		outcome := &scanOutcome{}
		outcome.applyMatch(&matched, true)

		assert.Equal(t, models.ScanStatusCompleted, outcome.status)
		assert.Equal(t, &matched, outcome.matchedAssetID)
		assert.Equal(t, float64(100), outcome.similarity)
		assert.False(t, outcome.flagAsset)
	})

	t.Run("match on unrelated asset", func(t *testing.T) {
		outcome := &scanOutcome{}
		outcome.applyMatch(&matched, false)

		assert.Equal(t, models.ScanStatusFlagged, outcome.status)
		assert.Equal(t, float64(100), outcome.similarity)
		assert.True(t, outcome.flagAsset)
		assert.Contains(t, outcome.reason, matched.String())
	})
}

func TestComputeScanFingerprintsFile(t *testing.T) {
	content := []byte("original artwork bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(content)
	}))
	defer server.Close()

	db, mock := newMockDB(t)
	svc := newScannerService(db)

	asset := &models.Asset{
		FileURLs: pq.StringArray{server.URL + "/file.png"},
	}
	asset.ID = uuid.New()

	// No existing fingerprint carries this hash.
	mock.ExpectQuery(`SELECT \* FROM "asset_fingerprints" WHERE content_hash =`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	outcome, err := svc.computeScan(context.Background(), asset)
	require.NoError(t, err)

	assert.Equal(t, utils.HashBytes(content), outcome.contentHash)
	assert.Equal(t, int64(len(content)), outcome.fileSize)
	assert.Equal(t, "image/png", outcome.mimeType)
	assert.Equal(t, models.ScanStatusCompleted, outcome.status)
	assert.False(t, outcome.flagAsset)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComputeScanRejectsUnfetchableFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	db, _ := newMockDB(t)
	svc := newScannerService(db)

	asset := &models.Asset{
		FileURLs: pq.StringArray{server.URL + "/gone.png"},
	}
	asset.ID = uuid.New()

	_, err := svc.computeScan(context.Background(), asset)
	assert.ErrorContains(t, err, "unexpected status 500")
}

func TestScanPendingAssetsFlagsDuplicate(t *testing.T) {
	content := []byte("copied artwork bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer server.Close()

	db, mock := newMockDB(t)
	svc := newScannerService(db)

	assetID := uuid.New()
	creatorID := uuid.New()
	originalID := uuid.New()

	// One unscanned asset with no declared remix source.
	mock.ExpectQuery(`SELECT \* FROM "assets" WHERE cardinality\(file_urls\) > 0`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "creator_id", "title", "file_urls"}).
			AddRow(assetID.String(), creatorID.String(), "Copied Piece", "{"+server.URL+"/file.png}"))

	// The fingerprint of an earlier asset matches.
	mock.ExpectQuery(`SELECT \* FROM "asset_fingerprints" WHERE content_hash =`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "asset_id", "content_hash"}).
			AddRow(uuid.New().String(), originalID.String(), utils.HashBytes(content)))

	// Fingerprint, flag, notification, and scan row in one transaction.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "asset_fingerprints" WHERE asset_id =`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "asset_fingerprints"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectExec(`UPDATE "assets" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "notifications"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectQuery(`INSERT INTO "agent_scans"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	err := svc.ScanPendingAssets(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanPendingAssetsPermitsDerivativeMatch(t *testing.T) {
	content := []byte("remixed artwork bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer server.Close()

	db, mock := newMockDB(t)
	svc := newScannerService(db)

	assetID := uuid.New()
	parentID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "assets" WHERE cardinality\(file_urls\) > 0`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "creator_id", "title", "file_urls", "remix_of_id"}).
			AddRow(assetID.String(), uuid.New().String(), "Remix Piece", "{"+server.URL+"/file.png}", parentID.String()))

	mock.ExpectQuery(`SELECT \* FROM "asset_fingerprints" WHERE content_hash =`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "asset_id", "content_hash"}).
			AddRow(uuid.New().String(), parentID.String(), utils.HashBytes(content)))

	// Derivative: fingerprint and scan row only, no flag, no notification.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "asset_fingerprints" WHERE asset_id =`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "asset_fingerprints"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectQuery(`INSERT INTO "agent_scans"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	err := svc.ScanPendingAssets(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanPendingAssetsRecordsFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	db, mock := newMockDB(t)
	svc := newScannerService(db)

	assetID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "assets" WHERE cardinality\(file_urls\) > 0`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "creator_id", "file_urls"}).
			AddRow(assetID.String(), uuid.New().String(), "{"+server.URL+"/missing.png}"))

	// The failure is persisted as a completed scan row; the asset will not be
	// selected again.
	mock.ExpectQuery(`INSERT INTO "agent_scans"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))

	err := svc.ScanPendingAssets(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanPendingAssetsEmptyRun(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newScannerService(db)

	mock.ExpectQuery(`SELECT \* FROM "assets" WHERE cardinality\(file_urls\) > 0`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := svc.ScanPendingAssets(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHashBytesIsDeterministic(t *testing.T) {
	a := utils.HashBytes([]byte("same bytes"))
	b := utils.HashBytes([]byte("same bytes"))
	c := utils.HashBytes([]byte("different bytes"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
