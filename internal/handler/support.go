package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"lovincraft-store/internal/catalog"
	"lovincraft-store/internal/model"
	"lovincraft-store/internal/service"
)

// SupportHandler handles reviews and support tickets.
type SupportHandler struct {
	reviewService  *service.ReviewService
	supportService *service.SupportService
}

// NewSupportHandler creates a new SupportHandler.
func NewSupportHandler(reviewService *service.ReviewService, supportService *service.SupportService) *SupportHandler {
	return &SupportHandler{
		reviewService:  reviewService,
		supportService: supportService,
	}
}

// HandleReview handles the /review command.
// Format: /review <product_id> <rating> <comment>
func (h *SupportHandler) HandleReview(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 2 {
		return c.Reply("❌ Usage: /review <product_id> <rating 1-5> <comment>")
	}
	productID, err := strconv.Atoi(args[0])
	if err != nil {
		return c.Reply("❌ Invalid product id")
	}
	rating, err := strconv.Atoi(args[1])
	if err != nil {
		return c.Reply("❌ " + service.ErrInvalidRating.Error())
	}

	review, err := h.reviewService.SubmitReview(ctx, service.ReviewInput{
		ProductID: productID,
		UserID:    sessionFor(sender).UserID,
		UserName:  displayName(sender),
		Rating:    rating,
		Comment:   strings.Join(args[2:], " "),
	})
	if err != nil {
		return replyError(c, err)
	}

	p, _ := catalog.Get(review.ProductID)
	return c.Reply(fmt.Sprintf("⭐ Thanks for reviewing %s! You earned review points.", p.Name))
}

// parseTicketArgs splits "<email> <subject> | <details>".
func parseTicketArgs(payload string) (service.TicketInput, error) {
	payload = strings.TrimSpace(payload)
	email, rest, _ := strings.Cut(payload, " ")
	subject, details, ok := strings.Cut(rest, "|")
	if email == "" || !ok {
		return service.TicketInput{}, errors.New("❌ Usage: /ticket <email> <subject> | <details>")
	}
	return service.TicketInput{
		Email:       email,
		Subject:     strings.TrimSpace(subject),
		Description: strings.TrimSpace(details),
	}, nil
}

// HandleTicket handles the /ticket command.
// Format: /ticket <email> <subject> | <details>
func (h *SupportHandler) HandleTicket(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()

	in, err := parseTicketArgs(c.Message().Payload)
	if err != nil {
		return c.Reply(err.Error())
	}
	ticket, err := h.supportService.CreateTicket(ctx, in)
	if err != nil {
		return replyError(c, err)
	}
	return c.Reply(fmt.Sprintf(
		"🎫 Ticket created\n\nID: %s\nSubject: %s\nStatus: %s\n\nWe'll reply to %s",
		ticket.ID, ticket.Subject, ticket.Status, ticket.Email,
	))
}

// HandleTickets handles the /tickets command.
// Format: /tickets <email>
func (h *SupportHandler) HandleTickets(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Usage: /tickets <email>")
	}
	tickets, err := h.supportService.ListTickets(ctx, args[0])
	if err != nil {
		return replyError(c, err)
	}
	if len(tickets) == 0 {
		return c.Reply("🎫 No tickets for " + args[0])
	}
	var b strings.Builder
	b.WriteString("🎫 Your tickets\n━━━━━━━━━━━━━━━\n")
	for _, t := range tickets {
		fmt.Fprintf(&b, "%s\n  %s · %s · %d messages\n", t.ID, t.Subject, t.Status, len(t.Messages))
	}
	return c.Reply(b.String())
}

// HandleReply handles the /reply command, adding a shopper message.
// Format: /reply <ticket_id> <text>
func (h *SupportHandler) HandleReply(c tele.Context) error {
	return h.addMessage(c, model.SenderUser)
}

func (h *SupportHandler) addMessage(c tele.Context, sender model.MessageSender) error {
	ctx, cancel := handlerContext()
	defer cancel()

	ticketID, text, _ := strings.Cut(strings.TrimSpace(c.Message().Payload), " ")
	if ticketID == "" {
		return c.Reply("❌ Usage: " + strings.Fields(c.Text())[0] + " <ticket_id> <text>")
	}
	if _, err := h.supportService.AddMessageToTicket(ctx, ticketID, text, sender); err != nil {
		return replyError(c, err)
	}
	return c.Reply("✉️ Message added to " + ticketID)
}

// HandleRateTicket handles the /rate_ticket command.
// Format: /rate_ticket <ticket_id> <rating> [feedback]
func (h *SupportHandler) HandleRateTicket(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()

	args := c.Args()
	if len(args) < 2 {
		return c.Reply("❌ Usage: /rate_ticket <ticket_id> <rating 1-5> [feedback]")
	}
	rating, err := strconv.Atoi(args[1])
	if err != nil {
		return c.Reply("❌ " + service.ErrInvalidRating.Error())
	}
	if _, err := h.supportService.RateTicket(ctx, args[0], rating, strings.Join(args[2:], " ")); err != nil {
		return replyError(c, err)
	}
	return c.Reply("🙏 Thanks for your feedback!")
}
