package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lovincraft-store/internal/service"
)

type registryRequest struct {
	Name     string `json:"name"`
	Occasion string `json:"occasion"`
	Date     string `json:"date"`
	Message  string `json:"message"`
}

func (s *Server) createRegistry(c *gin.Context) {
	var req registryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	reg, err := s.deps.Registry.CreateRegistry(c.Request.Context(), service.RegistryInput{
		Name:      req.Name,
		Occasion:  req.Occasion,
		Date:      req.Date,
		CreatedBy: sessionFrom(c).UserID,
		Message:   req.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reg)
}

func (s *Server) myRegistries(c *gin.Context) {
	regs, err := s.deps.Registry.GetUserRegistries(c.Request.Context(), sessionFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registries": regs})
}

func (s *Server) getRegistryByCode(c *gin.Context) {
	reg, err := s.deps.Registry.GetRegistryByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reg)
}

type registryItemRequest struct {
	ProductID int `json:"productId" binding:"required"`
	Quantity  int `json:"quantity"`
}

func (s *Server) addRegistryItem(c *gin.Context) {
	var req registryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	reg, err := s.deps.Registry.AddItem(c.Request.Context(), c.Param("id"), sessionFrom(c).UserID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reg)
}

type purchaseRequest struct {
	Name string `json:"name"`
}

func (s *Server) purchaseRegistryItem(c *gin.Context) {
	productID, ok := intParam(c, "productId")
	if !ok {
		return
	}
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	reg, err := s.deps.Registry.MarkItemPurchased(c.Request.Context(), c.Param("id"), productID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reg)
}

func (s *Server) deleteRegistry(c *gin.Context) {
	if err := s.deps.Registry.DeleteRegistry(c.Request.Context(), c.Param("id"), sessionFrom(c).UserID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
