package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lovincraft-store/internal/model"
	"lovincraft-store/internal/service"
)

func (s *Server) getCart(c *gin.Context) {
	totals, err := s.deps.Cart.Totals(c.Request.Context(), sessionFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}

type addToCartRequest struct {
	ProductID     int                  `json:"productId" binding:"required"`
	Quantity      int                  `json:"quantity"`
	Customization *model.Customization `json:"customization"`
}

func (s *Server) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	notice, err := s.deps.Cart.AddProduct(c.Request.Context(), sessionFrom(c), req.ProductID, req.Quantity, req.Customization)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notice)
}

func (s *Server) clearCart(c *gin.Context) {
	if err := s.deps.Cart.ClearCart(c.Request.Context(), sessionFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type updateCartRequest struct {
	Quantity int `json:"quantity"`
}

func (s *Server) updateCartItem(c *gin.Context) {
	id, ok := intParam(c, "productId")
	if !ok {
		return
	}
	var req updateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	ctx := c.Request.Context()
	session := sessionFrom(c)
	if err := s.deps.Cart.UpdateQuantity(ctx, session, id, req.Quantity); err != nil {
		respondError(c, err)
		return
	}
	s.getCart(c)
}

func (s *Server) removeCartItem(c *gin.Context) {
	id, ok := intParam(c, "productId")
	if !ok {
		return
	}
	notice, err := s.deps.Cart.RemoveFromCart(c.Request.Context(), sessionFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if notice == nil {
		respondError(c, service.ErrItemNotInCart)
		return
	}
	c.JSON(http.StatusOK, notice)
}

func (s *Server) quote(c *gin.Context) {
	giftWrap, _ := strconv.ParseBool(c.Query("giftWrap"))
	q, items, err := s.deps.Checkout.Quote(c.Request.Context(), sessionFrom(c), giftWrap)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "quote": q})
}

func (s *Server) placeOrder(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	result, err := s.deps.Checkout.PlaceOrder(c.Request.Context(), sessionFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) trackOrder(c *gin.Context) {
	order, err := s.deps.Checkout.TrackOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
