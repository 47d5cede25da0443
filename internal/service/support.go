package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/idgen"
	"lovincraft-store/internal/pkg/lock"
	"lovincraft-store/internal/repository"
)

// Support errors.
var (
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrMessageNotFound   = errors.New("message not found")
	ErrInvalidTransition = errors.New("invalid ticket status change")
	ErrInvalidStatus     = errors.New("unknown ticket status")
	ErrInvalidSender     = errors.New("unknown message sender")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrMissingSubject    = errors.New("please enter a subject")
	ErrMissingDetails    = errors.New("please describe the issue")
)

const ticketsLockKey = "support-tickets"

// TicketInput is a new support request.
type TicketInput struct {
	Subject     string `validate:"required,max=200"`
	Description string `validate:"required"`
	Email       string `validate:"required,email,max=255"`
}

var ticketFieldErrors = fieldErrors{
	"Subject":     ErrMissingSubject,
	"Description": ErrMissingDetails,
	"Email":       ErrInvalidEmail,
}

// TicketUpdate is a partial ticket update; nil fields are left unchanged.
type TicketUpdate struct {
	Subject     *string             `json:"subject,omitempty"`
	Description *string             `json:"description,omitempty"`
	Status      *model.TicketStatus `json:"status,omitempty"`
}

// ticketTransitions lists the statuses reachable from each status.
// Resolved and cancelled are terminal.
var ticketTransitions = map[model.TicketStatus][]model.TicketStatus{
	model.TicketOpen:       {model.TicketInProgress, model.TicketCancelled},
	model.TicketInProgress: {model.TicketResolved},
}

// CanTransition reports whether a ticket may move from one status to
// another. Staying in the same status is always allowed.
func CanTransition(from, to model.TicketStatus) bool {
	if from == to {
		return true
	}
	for _, s := range ticketTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SupportService manages support tickets and their message threads.
type SupportService struct {
	repo  *repository.SupportRepository
	locks *lock.KeyLock
	now   func() time.Time
}

// NewSupportService creates a new SupportService instance.
func NewSupportService(repo *repository.SupportRepository, locks *lock.KeyLock) *SupportService {
	return &SupportService{repo: repo, locks: locks, now: time.Now}
}

// CreateTicket opens a new ticket, newest first in the list.
func (s *SupportService) CreateTicket(ctx context.Context, in TicketInput) (*model.SupportTicket, error) {
	in.Subject = strings.TrimSpace(in.Subject)
	in.Description = strings.TrimSpace(in.Description)
	in.Email = strings.TrimSpace(in.Email)
	if err := ticketFieldErrors.check(in); err != nil {
		return nil, err
	}

	now := s.now()
	ticket := model.SupportTicket{
		ID:          idgen.New("TICKET"),
		Subject:     in.Subject,
		Description: in.Description,
		Email:       in.Email,
		Status:      model.TicketOpen,
		Messages:    []model.TicketMessage{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.locks.WithLock(ticketsLockKey, func() error {
		tickets, err := s.repo.List(ctx)
		if err != nil {
			return err
		}
		return s.repo.Save(ctx, append([]model.SupportTicket{ticket}, tickets...))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	log.Info().Str("ticket_id", ticket.ID).Str("email", ticket.Email).Msg("Support ticket created")
	return &ticket, nil
}

// GetTicket returns a ticket by id.
func (s *SupportService) GetTicket(ctx context.Context, ticketID string) (*model.SupportTicket, error) {
	tickets, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}
	for i := range tickets {
		if tickets[i].ID == ticketID {
			return &tickets[i], nil
		}
	}
	return nil, ErrTicketNotFound
}

// ListTickets returns tickets filed from email, or every ticket when email
// is empty. Newest first.
func (s *SupportService) ListTickets(ctx context.Context, email string) ([]model.SupportTicket, error) {
	tickets, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}
	if email == "" {
		return tickets, nil
	}
	want := normalizeEmail(email)
	out := make([]model.SupportTicket, 0)
	for _, t := range tickets {
		if normalizeEmail(t.Email) == want {
			out = append(out, t)
		}
	}
	return out, nil
}

// UpdateTicket applies a partial update. A status change must follow the
// ticket lifecycle.
func (s *SupportService) UpdateTicket(ctx context.Context, ticketID string, upd TicketUpdate) (*model.SupportTicket, error) {
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	var from model.TicketStatus
	ticket, err := s.mutate(ctx, ticketID, func(t *model.SupportTicket) error {
		from = t.Status
		if upd.Status != nil {
			if !CanTransition(t.Status, *upd.Status) {
				return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, t.Status, *upd.Status)
			}
			t.Status = *upd.Status
		}
		if upd.Subject != nil {
			t.Subject = strings.TrimSpace(*upd.Subject)
		}
		if upd.Description != nil {
			t.Description = strings.TrimSpace(*upd.Description)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if ticket.Status != from {
		log.Info().
			Str("ticket_id", ticketID).
			Str("from", string(from)).
			Str("to", string(ticket.Status)).
			Msg("Ticket status changed")
	}
	return ticket, nil
}

// AddMessageToTicket appends a message to the thread. The ticket status is
// not changed.
func (s *SupportService) AddMessageToTicket(ctx context.Context, ticketID, text string, sender model.MessageSender) (*model.TicketMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if !sender.Valid() {
		return nil, ErrInvalidSender
	}

	msg := model.TicketMessage{
		ID:        idgen.New("msg"),
		Text:      text,
		Sender:    sender,
		Timestamp: s.now(),
	}
	_, err := s.mutate(ctx, ticketID, func(t *model.SupportTicket) error {
		t.Messages = append(t.Messages, msg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// RateTicket records a satisfaction rating on the ticket. Any ticket can be
// rated; callers decide when to offer it.
func (s *SupportService) RateTicket(ctx context.Context, ticketID string, rating int, feedback string) (*model.SupportTicket, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	return s.mutate(ctx, ticketID, func(t *model.SupportTicket) error {
		t.Rating = &rating
		t.RatingFeedback = strings.TrimSpace(feedback)
		return nil
	})
}

// RateMessage records a rating on one message of the thread.
func (s *SupportService) RateMessage(ctx context.Context, ticketID, messageID string, rating int, feedback string) (*model.SupportTicket, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	return s.mutate(ctx, ticketID, func(t *model.SupportTicket) error {
		for i := range t.Messages {
			if t.Messages[i].ID == messageID {
				t.Messages[i].Rating = &rating
				t.Messages[i].RatingFeedback = strings.TrimSpace(feedback)
				return nil
			}
		}
		return ErrMessageNotFound
	})
}

// mutate applies fn to one ticket under the list lock, refreshes
// updatedAt and persists the list.
func (s *SupportService) mutate(ctx context.Context, ticketID string, fn func(*model.SupportTicket) error) (*model.SupportTicket, error) {
	var updated model.SupportTicket
	err := s.locks.WithLock(ticketsLockKey, func() error {
		tickets, err := s.repo.List(ctx)
		if err != nil {
			return err
		}
		for i := range tickets {
			if tickets[i].ID != ticketID {
				continue
			}
			if err := fn(&tickets[i]); err != nil {
				return err
			}
			tickets[i].UpdatedAt = s.now()
			updated = tickets[i]
			return s.repo.Save(ctx, tickets)
		}
		return ErrTicketNotFound
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
