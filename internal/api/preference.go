package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lovincraft-store/internal/service"
)

type newsletterRequest struct {
	Email string `json:"email"`
}

func (s *Server) subscribe(c *gin.Context) {
	var req newsletterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	added, err := s.deps.Newsletter.Subscribe(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscribed": true, "new": added})
}

func (s *Server) listLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"languages": service.Languages()})
}

func (s *Server) getLanguage(c *gin.Context) {
	lang, err := s.deps.Preference.Language(c.Request.Context(), sessionFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lang)
}

type languageRequest struct {
	Code string `json:"code" binding:"required"`
}

func (s *Server) setLanguage(c *gin.Context) {
	var req languageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	lang, err := s.deps.Preference.SetLanguage(c.Request.Context(), sessionFrom(c), req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lang)
}
