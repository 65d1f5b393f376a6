// internal/services/auction_service_test.go
package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fusionhq/fusion-backend/internal/config"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

func newAuctionService(db *gorm.DB, signerKey string) *AuctionService {
	cfg := &config.Config{}
	cfg.Blockchain.PrivateKey = signerKey
	cfg.Blockchain.Network = "polygon"

	return NewAuctionService(db, NewSettlementService(cfg), 10)
}

func TestFinalizeAuctionClaimRejected(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAuctionService(db, "")

	// A concurrent run already moved the auction out of active; the
	// conditional claim matches no rows and the item is skipped.
	mock.ExpectExec(`UPDATE "assets" SET "bidding_status"=`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.FinalizeAuction(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrAuctionNotClaimable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeAuctionNoBidsEndsAuction(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAuctionService(db, "")

	assetID := uuid.New()
	creatorID := uuid.New()

	mock.ExpectExec(`UPDATE "assets" SET "bidding_status"=`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "assets" WHERE id =`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "creator_id", "bidding_status"}).
			AddRow(assetID.String(), creatorID.String(), "finalizing"))
	mock.ExpectQuery(`SELECT \* FROM "bids" .*ORDER BY amount DESC, created_at ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`UPDATE "assets" SET "bidding_status"=`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.FinalizeAuction(context.Background(), assetID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeAuctionSettlesHighestBid(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAuctionService(db, "")

	assetID := uuid.New()
	creatorID := uuid.New()
	bidderID := uuid.New()
	bidID := uuid.New()

	mock.ExpectExec(`UPDATE "assets" SET "bidding_status"=`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "assets" WHERE id =`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "creator_id", "bidding_status"}).
			AddRow(assetID.String(), creatorID.String(), "finalizing"))

	// Two bids exist (5.0 and 3.0); the ordered query surfaces the 5.0 bid.
	mock.ExpectQuery(`SELECT \* FROM "bids" .*ORDER BY amount DESC, created_at ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "asset_id", "bidder_id", "amount", "status", "tx_hash"}).
			AddRow(bidID.String(), assetID.String(), bidderID.String(), 5.0, "active", "0xabc"))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "assets" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "bids" SET "status"=`).
		WithArgs("won", sqlmock.AnyArg(), bidID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	// No signer configured: settlement stays pending, no further writes.
	err := svc.FinalizeAuction(context.Background(), assetID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeAuctionConfirmsSettlementWhenSignerConfigured(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAuctionService(db, "0xdeadbeef")

	assetID := uuid.New()
	bidID := uuid.New()

	mock.ExpectExec(`UPDATE "assets" SET "bidding_status"=`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "assets" WHERE id =`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "creator_id"}).
			AddRow(assetID.String(), uuid.New().String()))
	mock.ExpectQuery(`SELECT \* FROM "bids"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "asset_id", "bidder_id", "amount", "status"}).
			AddRow(bidID.String(), assetID.String(), uuid.New().String(), 12.5, "active"))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "assets" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "bids" SET "status"=`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	// Post-commit settlement succeeds and is recorded as confirmed.
	mock.ExpectExec(`UPDATE "assets" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.FinalizeAuction(context.Background(), assetID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeExpiredAuctionsSkipsUnclaimableItems(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAuctionService(db, "")

	assetID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "assets" WHERE bidding_enabled =`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(assetID.String()))

	// The item was claimed between selection and claim; the run still
	// succeeds.
	mock.ExpectExec(`UPDATE "assets" SET "bidding_status"=`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.FinalizeExpiredAuctions(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeExpiredAuctionsEmptyRun(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAuctionService(db, "")

	mock.ExpectQuery(`SELECT \* FROM "assets" WHERE bidding_enabled =`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := svc.FinalizeExpiredAuctions(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeExpiredAuctionsStopsOnCancelledContext(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAuctionService(db, "")

	mock.ExpectQuery(`SELECT \* FROM "assets" WHERE bidding_enabled =`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.FinalizeExpiredAuctions(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcilePendingSettlementsSkipsWithoutSigner(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAuctionService(db, "")

	// No signer: the sweep is a no-op, without touching the database.
	err := svc.ReconcilePendingSettlements(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcilePendingSettlementsRetriesFailedItems(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAuctionService(db, "0xdeadbeef")

	assetID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "assets" WHERE bidding_status =`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "settlement_status", "settlement_attempts"}).
			AddRow(assetID.String(), "failed", 2))
	mock.ExpectExec(`UPDATE "assets" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.ReconcilePendingSettlements(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettlementServiceFinalizeAuction(t *testing.T) {
	cfg := &config.Config{}
	cfg.Blockchain.Network = "polygon"

	unsigned := NewSettlementService(cfg)
	_, err := unsigned.FinalizeAuction(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSignerUnavailable)

	cfg.Blockchain.PrivateKey = "0xdeadbeef"
	signed := NewSettlementService(cfg)
	require.True(t, signed.SignerConfigured())

	hash, err := signed.FinalizeAuction(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Regexp(t, `^0x[0-9a-f]{64}$`, hash)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	_, err = signed.FinalizeAuction(ctx, uuid.New())
	assert.Error(t, err)
}
