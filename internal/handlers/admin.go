// internal/handlers/admin.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fusionhq/fusion-backend/internal/models"
	"github.com/fusionhq/fusion-backend/internal/services"
	"github.com/fusionhq/fusion-backend/internal/utils"
)

type AdminHandler struct {
	assetService   *services.AssetService
	auctionService *services.AuctionService
	scannerService *services.ScannerService
	paymentService *services.PaymentService
}

func NewAdminHandler(
	assetService *services.AssetService,
	auctionService *services.AuctionService,
	scannerService *services.ScannerService,
	paymentService *services.PaymentService,
) *AdminHandler {
	return &AdminHandler{
		assetService:   assetService,
		auctionService: auctionService,
		scannerService: scannerService,
		paymentService: paymentService,
	}
}

// GET /admin/assets/flagged
func (h *AdminHandler) GetFlaggedAssets(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	assets, total, err := h.assetService.GetFlaggedAssets(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(assets, total, params)
	utils.PaginatedResponse(c, result)
}

// PUT /admin/assets/:id/review
func (h *AdminHandler) ReviewFlaggedAsset(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid asset ID", nil)
		return
	}

	var req struct {
		Status string `json:"status" validate:"required,oneof=active under_review"`
		Reason string `json:"reason,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	asset, err := h.assetService.ReviewFlaggedAsset(id, models.AssetStatus(req.Status), req.Reason)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Asset")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Review decision applied",
		"asset":   asset,
	})
}

// POST /admin/refunds
func (h *AdminHandler) ProcessRefund(c *gin.Context) {
	var req services.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	transaction, err := h.paymentService.ProcessRefund(&req)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Transaction")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     "Refund processed successfully",
		"transaction": transaction,
	})
}

// POST /admin/jobs/finalize-auctions
//
// Manual trigger for the auction finalizer, useful when an operator needs to
// settle an auction without waiting for the next scheduled run.
func (h *AdminHandler) RunAuctionFinalizer(c *gin.Context) {
	if err := h.auctionService.FinalizeExpiredAuctions(c.Request.Context()); err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Auction finalizer run completed",
	})
}

// POST /admin/jobs/scan-content
func (h *AdminHandler) RunContentScanner(c *gin.Context) {
	if err := h.scannerService.ScanPendingAssets(c.Request.Context()); err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Content scanner run completed",
	})
}

// POST /admin/jobs/reconcile-settlements
func (h *AdminHandler) RunSettlementReconciler(c *gin.Context) {
	if err := h.auctionService.ReconcilePendingSettlements(c.Request.Context()); err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Settlement reconciliation run completed",
	})
}
