package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lovincraft-store/internal/model"
	"lovincraft-store/internal/service"
)

type ticketRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Email       string `json:"email"`
}

func (s *Server) createTicket(c *gin.Context) {
	var req ticketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	ticket, err := s.deps.Support.CreateTicket(c.Request.Context(), service.TicketInput{
		Subject:     req.Subject,
		Description: req.Description,
		Email:       req.Email,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

func (s *Server) listTickets(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	tickets, err := s.deps.Support.ListTickets(c.Request.Context(), email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

func (s *Server) getTicket(c *gin.Context) {
	ticket, err := s.deps.Support.GetTicket(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (s *Server) updateTicket(c *gin.Context) {
	var upd service.TicketUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		badJSON(c)
		return
	}
	ticket, err := s.deps.Support.UpdateTicket(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

type messageRequest struct {
	Text   string              `json:"text"`
	Sender model.MessageSender `json:"sender"`
}

func (s *Server) addTicketMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	if req.Sender == "" {
		req.Sender = model.SenderUser
	}
	msg, err := s.deps.Support.AddMessageToTicket(c.Request.Context(), c.Param("id"), req.Text, req.Sender)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

type ratingRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

func (s *Server) rateTicket(c *gin.Context) {
	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	ticket, err := s.deps.Support.RateTicket(c.Request.Context(), c.Param("id"), req.Rating, req.Feedback)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (s *Server) rateTicketMessage(c *gin.Context) {
	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	ticket, err := s.deps.Support.RateMessage(c.Request.Context(), c.Param("id"), c.Param("messageId"), req.Rating, req.Feedback)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}
