package controllers

import (
	"errors"

	apperrors "github.com/filipfilip1/instytut-saunowy/services/common/errors"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/models"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/repository"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// httpError maps service errors to API errors for the checkout and admin routes.
func httpError(err error) *apperrors.Error {
	var stockErr *services.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return apperrors.New(apperrors.ErrInsufficientStock.Code, stockErr.Error(), err)
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrTrainingNotFound):
		return apperrors.Wrap(apperrors.ErrNotFound, err)
	case errors.Is(err, repository.ErrTrainingFull),
		errors.Is(err, services.ErrTrainingInactive):
		return apperrors.Wrap(apperrors.ErrTrainingFull, err)
	case errors.Is(err, services.ErrInvalidTransition):
		return apperrors.New(apperrors.ErrInvalidTransition.Code, err.Error(), err)
	case errors.Is(err, models.ErrInvalidMetadata),
		errors.Is(err, services.ErrUnknownOption),
		errors.Is(err, services.ErrInvalidStock):
		return apperrors.New(apperrors.ErrValidation.Code, err.Error(), err)
	}
	return apperrors.As(err)
}

func respondError(c *gin.Context, err error) {
	apperrors.Respond(c, httpError(err))
}

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		apperrors.Respond(c, apperrors.New(apperrors.ErrBadRequest.Code, "Invalid "+name, err))
		return primitive.NilObjectID, false
	}
	return id, true
}
