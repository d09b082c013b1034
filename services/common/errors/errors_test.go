package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/filipfilip1/instytut-saunowy/services/common/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsTemplateIntact(t *testing.T) {
	cause := stderrors.New("dial tcp: timeout")
	err := apperrors.Wrap(apperrors.ErrReconcileFailed, cause)

	assert.Equal(t, http.StatusInternalServerError, err.Code)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, apperrors.ErrReconcileFailed.Err)
	assert.Equal(t, "Failed to process checkout session: dial tcp: timeout", err.Error())
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", apperrors.ErrTrainingFull)
	assert.Equal(t, http.StatusConflict, apperrors.As(wrapped).Code)

	plain := apperrors.As(stderrors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, plain.Code)
	assert.Equal(t, "Internal server error", plain.Message)
}

func TestRespond(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	apperrors.Respond(c, apperrors.Wrap(apperrors.ErrInvalidSignature, stderrors.New("no valid signature found")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid webhook signature"}`, w.Body.String())
	assert.True(t, c.IsAborted())
}
