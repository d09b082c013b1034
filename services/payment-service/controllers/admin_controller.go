package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/filipfilip1/instytut-saunowy/services/payment-service/models"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/repository"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AdminOperations interface {
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]models.Order, int64, error)
	GetOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) (*models.Order, error)
	SetTracking(ctx context.Context, id primitive.ObjectID, trackingNumber string) error
	UpdateBookingStatus(ctx context.Context, id primitive.ObjectID, status models.BookingStatus) (*models.TrainingBooking, error)
	SetOptionStock(ctx context.Context, productID, variantID, optionID primitive.ObjectID, stock int) error
}

type AdminController struct {
	Admin AdminOperations
}

func (ac *AdminController) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	status := models.OrderStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
		return
	}

	filter := repository.OrderFilter{Status: status, Page: page, Limit: limit}.Normalized()
	orders, total, err := ac.Admin.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"page":   filter.Page,
		"limit":  filter.Limit,
	})
}

func (ac *AdminController) GetOrder(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	order, err := ac.Admin.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (ac *AdminController) UpdateOrderStatus(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status models.OrderStatus `json:"status" binding:"required,oneof=pending processing shipped delivered cancelled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := ac.Admin.UpdateOrderStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (ac *AdminController) UpdateTracking(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		TrackingNumber string `json:"trackingNumber" binding:"required,max=64"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := ac.Admin.SetTracking(c.Request.Context(), id, req.TrackingNumber); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id.Hex(), "trackingNumber": req.TrackingNumber})
}

func (ac *AdminController) UpdateBookingStatus(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status models.BookingStatus `json:"status" binding:"required,oneof=confirmed cancelled pending_approval"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := ac.Admin.UpdateBookingStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (ac *AdminController) SetOptionStock(c *gin.Context) {
	productID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	variantID, ok := objectIDParam(c, "variantId")
	if !ok {
		return
	}
	optionID, ok := objectIDParam(c, "optionId")
	if !ok {
		return
	}
	var req struct {
		Stock *int `json:"stock" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := ac.Admin.SetOptionStock(c.Request.Context(), productID, variantID, optionID, *req.Stock); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stock": *req.Stock})
}
