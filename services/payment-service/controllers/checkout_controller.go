package controllers

import (
	"context"
	"net/http"

	"github.com/filipfilip1/instytut-saunowy/services/payment-service/middleware"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/services"
	"github.com/gin-gonic/gin"
)

type CheckoutCreator interface {
	CreateMerchandiseCheckout(ctx context.Context, req services.MerchandiseCheckoutRequest) (*services.CheckoutResult, error)
	CreateTrainingCheckout(ctx context.Context, req services.TrainingCheckoutRequest, userID string) (*services.CheckoutResult, error)
}

type CheckoutController struct {
	Checkout CheckoutCreator
}

func (cc *CheckoutController) CreateMerchandiseCheckout(c *gin.Context) {
	var req services.MerchandiseCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := cc.Checkout.CreateMerchandiseCheckout(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (cc *CheckoutController) CreateTrainingCheckout(c *gin.Context) {
	var req services.TrainingCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := cc.Checkout.CreateTrainingCheckout(c.Request.Context(), req, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
