package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lovincraft-store/internal/catalog"
	"lovincraft-store/internal/service"
)

// intParam parses a numeric path parameter, answering 400 when it is not
// a number.
func intParam(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return n, true
}

func (s *Server) listProducts(c *gin.Context) {
	products := catalog.Search(c.Query("q"))
	if category := c.Query("category"); category != "" {
		filtered := make([]catalog.Product, 0, len(products))
		for _, p := range products {
			if string(p.Category) == category {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

type productResponse struct {
	catalog.Product
	Customizable bool                  `json:"customizable"`
	Rating       service.RatingSummary `json:"rating"`
	Wishlisted   bool                  `json:"wishlisted"`
}

func (s *Server) getProduct(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	p, found := catalog.Get(id)
	if !found {
		respondError(c, service.ErrUnknownProduct)
		return
	}

	ctx := c.Request.Context()
	rating, err := s.deps.Review.ProductRating(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := productResponse{Product: p, Customizable: p.Customizable(), Rating: rating}
	if session := sessionFrom(c); !session.IsGuest() {
		if resp.Wishlisted, err = s.deps.Wishlist.Contains(ctx, session.UserID, id); err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listReviews(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	reviews, err := s.deps.Review.GetProductReviews(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

type reviewRequest struct {
	UserName string   `json:"userName"`
	Rating   int      `json:"rating"`
	Comment  string   `json:"comment"`
	Photos   []string `json:"photos"`
}

func (s *Server) submitReview(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}

	in := service.ReviewInput{
		ProductID: id,
		UserName:  req.UserName,
		Rating:    req.Rating,
		Comment:   req.Comment,
		Photos:    req.Photos,
	}
	if session := sessionFrom(c); !session.IsGuest() {
		in.UserID = session.UserID
	}

	review, err := s.deps.Review.SubmitReview(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (s *Server) markHelpful(c *gin.Context) {
	review, err := s.deps.Review.MarkHelpful(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}
