package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type addToCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type updateCartRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (s *Server) getCart(c *gin.Context) {
	cart, err := s.carts.Get(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (s *Server) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, bindError(err))
		return
	}
	cart, err := s.carts.Add(c.Request.Context(), currentUser(c), req.ProductID, req.Quantity)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (s *Server) updateCart(c *gin.Context) {
	var req updateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, bindError(err))
		return
	}
	cart, err := s.carts.SetQuantity(c.Request.Context(), currentUser(c), c.Param("productId"), *req.Quantity)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (s *Server) removeCartItem(c *gin.Context) {
	cart, err := s.carts.Remove(c.Request.Context(), currentUser(c), c.Param("productId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (s *Server) clearCart(c *gin.Context) {
	if err := s.carts.Clear(c.Request.Context(), currentUser(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
