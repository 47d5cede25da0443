package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) dashboard(c *gin.Context) {
	view, err := s.deps.Dashboard.View(c.Request.Context(), sessionFrom(c).UserID, c.Query("tab"), c.Query("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) loyalty(c *gin.Context) {
	card, err := s.deps.Dashboard.LoyaltyCard(c.Request.Context(), sessionFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

type withdrawRequest struct {
	Points int64 `json:"points"`
}

func (s *Server) withdraw(c *gin.Context) {
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	w, err := s.deps.Loyalty.WithdrawPoints(c.Request.Context(), sessionFrom(c).UserID, req.Points)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

type shareRequest struct {
	Channel string `json:"channel"`
}

func (s *Server) share(c *gin.Context) {
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	acct, tx, err := s.deps.Loyalty.RecordShare(c.Request.Context(), sessionFrom(c).UserID, req.Channel)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": acct, "transaction": tx})
}

func (s *Server) referral(c *gin.Context) {
	ctx := c.Request.Context()
	session := sessionFrom(c)
	card, err := s.deps.Dashboard.ReferralCard(ctx, session.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	applied, err := s.deps.Referral.AppliedCode(ctx, session)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"referral": card, "appliedCode": applied})
}

type applyReferralRequest struct {
	Code string `json:"code" binding:"required"`
}

func (s *Server) applyReferral(c *gin.Context) {
	var req applyReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	applied, err := s.deps.Referral.ApplyReferralCode(c.Request.Context(), sessionFrom(c), req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied})
}

func (s *Server) referralQR(c *gin.Context) {
	png, err := s.deps.Referral.ReferralQR(c.Request.Context(), sessionFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) wishlist(c *gin.Context) {
	items, err := s.deps.Wishlist.Items(c.Request.Context(), sessionFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) toggleWishlist(c *gin.Context) {
	id, ok := intParam(c, "productId")
	if !ok {
		return
	}
	saved, err := s.deps.Wishlist.Toggle(c.Request.Context(), sessionFrom(c).UserID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": saved})
}
