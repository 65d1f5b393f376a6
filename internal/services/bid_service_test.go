// internal/services/bid_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceBidRejectsClosedAuction(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewBidService(db)

	assetID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "assets" WHERE id =`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "creator_id", "bidding_enabled", "bidding_status"}).
			AddRow(assetID.String(), uuid.New().String(), true, "ended"))

	_, err := svc.PlaceBid(assetID, uuid.New(), &PlaceBidRequest{Amount: 5})
	assert.ErrorContains(t, err, "not open for bidding")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceBidRejectsSelfBid(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewBidService(db)

	assetID := uuid.New()
	creatorID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "assets" WHERE id =`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "creator_id", "bidding_enabled", "bidding_status"}).
			AddRow(assetID.String(), creatorID.String(), true, "active"))

	_, err := svc.PlaceBid(assetID, creatorID, &PlaceBidRequest{Amount: 5})
	assert.ErrorContains(t, err, "own asset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceBidMustExceedTopBid(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewBidService(db)

	assetID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "assets" WHERE id =`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "creator_id", "bidding_enabled", "bidding_status"}).
			AddRow(assetID.String(), uuid.New().String(), true, "active"))
	mock.ExpectQuery(`SELECT \* FROM "bids" .*ORDER BY amount DESC, created_at ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount", "status"}).
			AddRow(uuid.New().String(), 5.0, "active"))

	_, err := svc.PlaceBid(assetID, uuid.New(), &PlaceBidRequest{Amount: 3})
	assert.ErrorContains(t, err, "must exceed current top bid")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceBidRetiresPreviousBids(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewBidService(db)

	assetID := uuid.New()
	bidderID := uuid.New()
	newBidID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "assets" WHERE id =`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "creator_id", "bidding_enabled", "bidding_status"}).
			AddRow(assetID.String(), uuid.New().String(), true, "active"))

	// Current top bid is this bidder's own earlier 3.0 bid.
	mock.ExpectQuery(`SELECT \* FROM "bids" .*ORDER BY amount DESC, created_at ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "bidder_id", "amount", "status"}).
			AddRow(uuid.New().String(), bidderID.String(), 3.0, "active"))

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "bids"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(newBidID.String()))
	mock.ExpectExec(`UPDATE "bids" SET "status"=`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Reload with bidder preloaded.
	mock.ExpectQuery(`SELECT \* FROM "bids" WHERE id =`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "asset_id", "bidder_id", "amount", "status"}).
			AddRow(newBidID.String(), assetID.String(), bidderID.String(), 5.0, "active"))
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(bidderID.String()))

	bid, err := svc.PlaceBid(assetID, bidderID, &PlaceBidRequest{Amount: 5})
	require.NoError(t, err)
	assert.Equal(t, 5.0, bid.Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelBidRefusedAfterAuctionEnd(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewBidService(db)

	bidID := uuid.New()
	bidderID := uuid.New()
	assetID := uuid.New()
	ended := time.Now().Add(-time.Hour)

	mock.ExpectQuery(`SELECT \* FROM "bids" WHERE id =`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "asset_id", "bidder_id", "status"}).
			AddRow(bidID.String(), assetID.String(), bidderID.String(), "active"))
	mock.ExpectQuery(`SELECT \* FROM "assets" WHERE id =`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "bidding_ends_at"}).
			AddRow(assetID.String(), ended))

	err := svc.CancelBid(bidID, bidderID)
	assert.ErrorContains(t, err, "after the auction has ended")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelBidOwnerOnly(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewBidService(db)

	bidID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "bids" WHERE id =`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "asset_id", "bidder_id", "status"}).
			AddRow(bidID.String(), uuid.New().String(), uuid.New().String(), "active"))

	err := svc.CancelBid(bidID, uuid.New())
	assert.ErrorContains(t, err, "unauthorized")
	assert.NoError(t, mock.ExpectationsWereMet())
}
