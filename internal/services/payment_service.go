// internal/services/payment_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"
	"gorm.io/gorm"

	"github.com/fusionhq/fusion-backend/internal/config"
	"github.com/fusionhq/fusion-backend/internal/models"
	"github.com/fusionhq/fusion-backend/internal/utils"
)

// PaymentService handles the fiat checkout path: fixed-price license
// purchases settled through Stripe, as opposed to the on-chain auction path.
type PaymentService struct {
	db     *gorm.DB
	config *config.Config
}

type CreatePaymentIntentRequest struct {
	LicenseID uuid.UUID `json:"license_id" validate:"required"`
	Currency  string    `json:"currency,omitempty"`
}

type PaymentIntentResponse struct {
	ClientSecret  string    `json:"client_secret"`
	PaymentID     string    `json:"payment_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Status        string    `json:"status"`
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string    `json:"payment_intent_id" validate:"required"`
	TransactionID   uuid.UUID `json:"transaction_id" validate:"required"`
}

type RefundRequest struct {
	TransactionID uuid.UUID `json:"transaction_id" validate:"required"`
	Reason        string    `json:"reason" validate:"required"`
}

func NewPaymentService(db *gorm.DB, config *config.Config) *PaymentService {
	// Initialize Stripe
	stripe.Key = config.Payment.StripeSecretKey

	return &PaymentService{
		db:     db,
		config: config,
	}
}

func (s *PaymentService) CreatePaymentIntent(buyerID uuid.UUID, req *CreatePaymentIntentRequest) (*PaymentIntentResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var license models.License
	if err := s.db.Preload("Asset").First(&license, "id = ?", req.LicenseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("license not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !license.IsActive {
		return nil, errors.New("license is not available")
	}
	if license.Asset.Status != models.AssetStatusActive {
		return nil, errors.New("asset is not available for licensing")
	}
	if license.Asset.CreatorID == buyerID {
		return nil, errors.New("cannot purchase a license on your own asset")
	}
	if license.Fee <= 0 {
		return nil, errors.New("license has no purchasable fee")
	}

	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	// Convert amount to cents for Stripe
	amountInCents := int64(license.Fee * 100)
	platformFee := license.Fee * s.config.Payment.PlatformFeePercent / 100

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountInCents),
		Currency: stripe.String(currency),
	}
	params.AddMetadata("buyer_id", buyerID.String())
	params.AddMetadata("license_id", license.ID.String())
	params.AddMetadata("asset_id", license.AssetID.String())

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	// Pending ledger row; flipped to success on confirmation
	transaction := &models.Transaction{
		TransactionType:  models.TransactionTypeLicenseFee,
		BuyerID:          buyerID,
		SellerID:         license.Asset.CreatorID,
		AssetID:          &license.AssetID,
		Amount:           license.Fee,
		PlatformFee:      platformFee,
		PaymentMethod:    "stripe",
		PaymentReference: intent.ID,
		Status:           models.TransactionStatusPending,
	}

	if err := s.db.Create(transaction).Error; err != nil {
		return nil, fmt.Errorf("failed to record pending transaction: %w", err)
	}

	return &PaymentIntentResponse{
		ClientSecret:  intent.ClientSecret,
		PaymentID:     intent.ID,
		TransactionID: transaction.ID,
		Status:        string(intent.Status),
	}, nil
}

func (s *PaymentService) ConfirmPayment(buyerID uuid.UUID, req *ConfirmPaymentRequest) (*models.Transaction, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var transaction models.Transaction
	if err := s.db.First(&transaction, "id = ?", req.TransactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("transaction not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if transaction.BuyerID != buyerID {
		return nil, errors.New("unauthorized to confirm this transaction")
	}
	if transaction.Status != models.TransactionStatusPending {
		return nil, errors.New("transaction is not pending")
	}
	if transaction.PaymentReference != req.PaymentIntentID {
		return nil, errors.New("payment reference mismatch")
	}

	intent, err := paymentintent.Get(req.PaymentIntentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve payment intent: %w", err)
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("payment not completed: status %s", intent.Status)
	}

	now := time.Now()
	if err := s.db.Model(&transaction).Updates(map[string]interface{}{
		"status":       models.TransactionStatusSuccess,
		"processed_at": now,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to confirm transaction: %w", err)
	}

	transaction.Status = models.TransactionStatusSuccess
	transaction.ProcessedAt = &now

	return &transaction, nil
}

func (s *PaymentService) ProcessRefund(req *RefundRequest) (*models.Transaction, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var transaction models.Transaction
	if err := s.db.First(&transaction, "id = ?", req.TransactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("transaction not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if transaction.Status != models.TransactionStatusSuccess {
		return nil, errors.New("only successful transactions can be refunded")
	}
	if transaction.PaymentMethod != "stripe" {
		return nil, errors.New("on-chain transactions cannot be refunded here")
	}

	refundParams := &stripe.RefundParams{
		PaymentIntent: stripe.String(transaction.PaymentReference),
	}
	if _, err := refund.New(refundParams); err != nil {
		return nil, fmt.Errorf("failed to process refund: %w", err)
	}

	if err := s.db.Model(&transaction).Update("status", models.TransactionStatusRefunded).Error; err != nil {
		return nil, fmt.Errorf("failed to record refund: %w", err)
	}

	transaction.Status = models.TransactionStatusRefunded
	return &transaction, nil
}

func (s *PaymentService) GetPaymentHistory(userID uuid.UUID, params utils.PaginationParams) ([]models.Transaction, int64, error) {
	query := s.db.Model(&models.Transaction{}).
		Where("buyer_id = ? OR seller_id = ?", userID, userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	allowedSortFields := []string{"created_at", "amount", "processed_at"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var transactions []models.Transaction
	if err := query.Preload("Asset").Find(&transactions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	return transactions, total, nil
}
