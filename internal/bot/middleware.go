package bot

import (
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"lovincraft-store/internal/config"
)

// isPrivateChat reports whether a chat is a one-to-one conversation with
// the bot. Carts and accounts are personal, so the storefront only answers
// there.
func isPrivateChat(chat *tele.Chat) bool {
	return chat != nil && chat.Type == tele.ChatPrivate
}

// PrivateChatMiddleware ignores updates from groups and channels.
func PrivateChatMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if c.Sender() == nil || !isPrivateChat(chat) {
				if chat != nil {
					log.Debug().
						Int64("chat_id", chat.ID).
						Str("chat_type", string(chat.Type)).
						Msg("Ignoring update outside private chat")
				}
				return nil
			}
			return next(c)
		}
	}
}

// AdminMiddleware creates a middleware that checks if the user is support
// staff.
func AdminMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			if !cfg.IsAdmin(sender.ID) {
				log.Warn().
					Int64("user_id", sender.ID).
					Str("command", c.Text()).
					Msg("Non-admin attempted admin command")
				return c.Reply("❌ This command is for support staff only")
			}

			return next(c)
		}
	}
}

// LoggingMiddleware creates a middleware that logs every update with its
// command or callback data and how long the handler took.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()
			err := next(c)

			logEvent := log.Debug()
			if err != nil {
				logEvent = log.Warn().Err(err)
			}
			if sender := c.Sender(); sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if cb := c.Callback(); cb != nil {
				logEvent = logEvent.Str("callback", cb.Data)
			} else {
				logEvent = logEvent.Str("text", c.Text())
			}
			logEvent.
				Dur("took", time.Since(start)).
				Msg("Handled update")

			return err
		}
	}
}

// RecoveryMiddleware creates a middleware that recovers from panics so one
// bad update does not stop the poller.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logEvent := log.Error().Interface("panic", r)
					if sender := c.Sender(); sender != nil {
						logEvent = logEvent.Int64("user_id", sender.ID)
					}
					logEvent.Msg("Recovered from panic in handler")
					if c.Callback() != nil {
						err = c.Respond(&tele.CallbackResponse{Text: "❌ Something went wrong", ShowAlert: true})
						return
					}
					err = c.Reply("❌ Something went wrong, please try again later")
				}
			}()
			return next(c)
		}
	}
}
