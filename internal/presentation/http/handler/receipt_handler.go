package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/biishnuthapa/easyreceipt/internal/application/service"
	"github.com/biishnuthapa/easyreceipt/internal/domain/entity"
	"github.com/biishnuthapa/easyreceipt/internal/presentation/http/dto/request"
	"github.com/biishnuthapa/easyreceipt/internal/presentation/http/dto/response"
	"github.com/biishnuthapa/easyreceipt/pkg/pagination"
	"github.com/biishnuthapa/easyreceipt/pkg/pdf"
	"github.com/biishnuthapa/easyreceipt/pkg/utils"
	"github.com/gin-gonic/gin"
)

// ReceiptHandler handles receipt-related HTTP requests
type ReceiptHandler struct {
	receiptService *service.ReceiptService
}

// NewReceiptHandler creates a new receipt handler
func NewReceiptHandler(receiptService *service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService}
}

// Send handles issuing and delivering a receipt
// @Summary Send Receipt
// @Description Store a receipt and deliver it by email or WhatsApp
// @Tags receipts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body request.SendReceiptRequest true "Receipt data"
// @Success 201 {object} response.APIResponse
// @Failure 400 {object} response.APIResponse
// @Failure 502 {object} response.APIResponse
// @Router /receipts/send [post]
func (h *ReceiptHandler) Send(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req request.SendReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	items := make([]entity.ReceiptItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, entity.ReceiptItem{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}

	output, err := h.receiptService.SendReceipt(c.Request.Context(), &service.SendReceiptInput{
		UserID:          *userID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		Date:            req.Date,
		Items:           items,
		Currency:        req.Currency,
		Subtotal:        req.Subtotal,
		TaxRate:         req.TaxRate,
		Tax:             req.Tax,
		Total:           req.Total,
		PaymentMethod:   req.PaymentMethod,
		SentVia:         req.SentVia,
		Signature:       req.Signature,
		Title:           req.Title,
		PDFContent:      req.PDFContent,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if output.DeliveryError != nil {
		// The receipt was stored but never reached the customer
		c.JSON(http.StatusBadGateway, response.APIResponse{
			Success: false,
			Message: "Receipt saved but delivery failed",
			Data: gin.H{
				"receipt":        output.Receipt,
				"delivered":      false,
				"delivery_error": output.DeliveryError.Error(),
			},
		})
		return
	}

	response.Created(c, "Receipt sent successfully", gin.H{
		"receipt":   output.Receipt,
		"delivered": output.Delivered,
	})
}

// List handles listing the user's receipts
// @Summary List Receipts
// @Description List the current user's receipts, newest first
// @Tags receipts
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /receipts [get]
func (h *ReceiptHandler) List(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	search := c.Query("search")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "15"))

	params := &pagination.PaginationParams{
		Page:    page,
		PerPage: perPage,
	}

	receipts, total, err := h.receiptService.ListReceipts(c.Request.Context(), *userID, params, search)
	if err != nil {
		response.Error(c, err)
		return
	}

	result := pagination.NewPaginatedResult(receipts, pagination.NewPagination(params.Page, params.PerPage, total))
	response.SuccessWithPagination(c, 200, "Receipts retrieved successfully", result)
}

// Get handles fetching a single receipt
// @Summary Get Receipt
// @Description Get one of the current user's receipts
// @Tags receipts
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /receipts/{id} [get]
func (h *ReceiptHandler) Get(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	id, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid receipt ID")
		return
	}

	receipt, err := h.receiptService.GetReceipt(c.Request.Context(), *userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Receipt retrieved successfully", gin.H{"receipt": receipt})
}

// Download re-renders a stored receipt and returns the PDF bytes
// @Summary Download Receipt
// @Description Download one of the current user's receipts as a PDF
// @Tags receipts
// @Security BearerAuth
// @Produce application/pdf
// @Success 200 {file} binary
// @Failure 404 {object} response.APIResponse
// @Router /receipts/{id}/download [get]
func (h *ReceiptHandler) Download(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	id, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid receipt ID")
		return
	}

	receipt, doc, err := h.receiptService.DownloadReceipt(c.Request.Context(), *userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("receipt-%s.pdf", receipt.ReceiptNo)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, pdf.ContentType, doc.Bytes())
}

// Delete handles deleting a receipt
// @Summary Delete Receipt
// @Description Delete one of the current user's receipts
// @Tags receipts
// @Security BearerAuth
// @Success 204
// @Failure 404 {object} response.APIResponse
// @Router /receipts/{id} [delete]
func (h *ReceiptHandler) Delete(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	id, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid receipt ID")
		return
	}

	if err := h.receiptService.DeleteReceipt(c.Request.Context(), *userID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
