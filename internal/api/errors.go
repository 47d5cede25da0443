package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"lovincraft-store/internal/service"
)

// errorStatus maps service errors to HTTP statuses. The first match wins.
var errorStatus = []struct {
	err    error
	status int
}{
	{service.ErrUnknownProduct, http.StatusNotFound},
	{service.ErrReviewNotFound, http.StatusNotFound},
	{service.ErrTicketNotFound, http.StatusNotFound},
	{service.ErrMessageNotFound, http.StatusNotFound},
	{service.ErrOrderNotFound, http.StatusNotFound},
	{service.ErrRegistryNotFound, http.StatusNotFound},
	{service.ErrItemNotInCart, http.StatusNotFound},
	{service.ErrNotInRegistry, http.StatusNotFound},

	{service.ErrNotRegistryOwner, http.StatusForbidden},

	{service.ErrInvalidTransition, http.StatusConflict},
	{service.ErrCheckoutInProgress, http.StatusConflict},
	{service.ErrFullyPurchased, http.StatusConflict},
	{service.ErrOutOfStock, http.StatusConflict},

	{service.ErrEmptyCart, http.StatusUnprocessableEntity},
	{service.ErrInsufficientPoints, http.StatusUnprocessableEntity},

	{context.DeadlineExceeded, http.StatusGatewayTimeout},
	{context.Canceled, http.StatusRequestTimeout},
}

// badRequest lists validation errors reported as 400.
var badRequest = []error{
	service.ErrMissingUser,
	service.ErrInvalidPoints,
	service.ErrInvalidTransactionType,
	service.ErrInvalidRating,
	service.ErrEmptyComment,
	service.ErrMissingName,
	service.ErrPhotoTooLarge,
	service.ErrTooManyPhotos,
	service.ErrInvalidQuantity,
	service.ErrInvalidEmail,
	service.ErrInvalidPayment,
	service.ErrGiftMessageTooLong,
	service.ErrMissingSubject,
	service.ErrMissingDetails,
	service.ErrEmptyMessage,
	service.ErrInvalidSender,
	service.ErrInvalidStatus,
	service.ErrMissingRegistry,
	service.ErrInvalidDate,
	service.ErrLongRegistryText,
	service.ErrMissingPurchaser,
	service.ErrUnsupportedLanguage,
	service.ErrUnknownTab,
}

func statusFor(err error) int {
	for _, e := range badRequest {
		if errors.Is(err, e) {
			return http.StatusBadRequest
		}
	}
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes err as a JSON error body. Unexpected errors are
// logged and hidden from the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		msg = "Something went wrong, please try again."
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func badJSON(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
}
