// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"lovincraft-store/internal/model"
	"lovincraft-store/internal/service"
)

// handlerTimeout bounds one command, including the simulated checkout.
const handlerTimeout = 30 * time.Second

func handlerContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), handlerTimeout)
}

// sessionFor maps a Telegram user to a storefront session. A chat has one
// cart, so the session id is the user id.
func sessionFor(sender *tele.User) model.Session {
	id := strconv.FormatInt(sender.ID, 10)
	return model.NewSession(id, id)
}

func displayName(sender *tele.User) string {
	if sender.FirstName != "" {
		return sender.FirstName
	}
	return sender.Username
}

// userErrors are service errors whose text is shown to the shopper.
var userErrors = []error{
	service.ErrInvalidPoints,
	service.ErrInsufficientPoints,
	service.ErrInvalidRating,
	service.ErrEmptyComment,
	service.ErrMissingName,
	service.ErrPhotoTooLarge,
	service.ErrTooManyPhotos,
	service.ErrUnknownProduct,
	service.ErrReviewNotFound,
	service.ErrTicketNotFound,
	service.ErrMessageNotFound,
	service.ErrInvalidTransition,
	service.ErrInvalidStatus,
	service.ErrEmptyMessage,
	service.ErrMissingSubject,
	service.ErrMissingDetails,
	service.ErrInvalidQuantity,
	service.ErrItemNotInCart,
	service.ErrOutOfStock,
	service.ErrEmptyCart,
	service.ErrCheckoutInProgress,
	service.ErrInvalidPayment,
	service.ErrGiftMessageTooLong,
	service.ErrOrderNotFound,
	service.ErrInvalidEmail,
	service.ErrUnsupportedLanguage,
}

// replyError answers with the shopper-facing text of err, or a generic
// message for unexpected failures.
func replyError(c tele.Context, err error) error {
	for _, e := range userErrors {
		if errors.Is(err, e) {
			return c.Reply("❌ " + e.Error())
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return c.Reply("⏱️ That took too long, please try again")
	}

	logEvent := log.Error().Err(err)
	if sender := c.Sender(); sender != nil {
		logEvent = logEvent.Int64("user_id", sender.ID)
	}
	logEvent.Str("text", c.Text()).Msg("Command failed")
	return c.Reply("❌ Something went wrong, please try again later")
}
