package handler

import (
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"lovincraft-store/internal/model"
	"lovincraft-store/internal/service"
)

// AdminHandler handles support staff commands.
type AdminHandler struct {
	support         *SupportHandler
	supportService  *service.SupportService
	checkoutService *service.CheckoutService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(support *SupportHandler, supportService *service.SupportService, checkoutService *service.CheckoutService) *AdminHandler {
	return &AdminHandler{
		support:         support,
		supportService:  supportService,
		checkoutService: checkoutService,
	}
}

// HandleTicketStatus handles the /ticket_status command.
// Format: /ticket_status <ticket_id> <open|in-progress|resolved|cancelled>
func (h *AdminHandler) HandleTicketStatus(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 2 {
		return c.Reply("❌ Usage: /ticket_status <ticket_id> <open|in-progress|resolved|cancelled>")
	}
	status := model.TicketStatus(strings.ToLower(args[1]))

	ticket, err := h.supportService.UpdateTicket(ctx, args[0], service.TicketUpdate{Status: &status})
	if err != nil {
		return replyError(c, err)
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Str("ticket_id", ticket.ID).
		Str("status", string(ticket.Status)).
		Str("operation", "ticket_status").
		Msg("Admin operation executed")

	return c.Reply("✅ " + ticket.ID + " is now " + string(ticket.Status))
}

// HandleTicketReply handles the /ticket_reply command, answering as staff.
// Format: /ticket_reply <ticket_id> <text>
func (h *AdminHandler) HandleTicketReply(c tele.Context) error {
	return h.support.addMessage(c, model.SenderBot)
}

// HandleOrderAdvance handles the /order_advance command.
// Format: /order_advance <order_id>
func (h *AdminHandler) HandleOrderAdvance(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Usage: /order_advance <order_id>")
	}
	order, err := h.checkoutService.AdvanceOrder(ctx, args[0])
	if err != nil {
		return replyError(c, err)
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Str("order_id", order.ID).
		Str("status", string(order.Status)).
		Str("operation", "order_advance").
		Msg("Admin operation executed")

	return c.Reply("📦 " + order.ID + " is now " + string(order.Status))
}
