package api

import (
	"net/http"

	"storefront-backend/internal/models"
	"storefront-backend/internal/service"

	"github.com/gin-gonic/gin"
)

const idempotencyHeader = "Idempotency-Key"

type orderItemRequest struct {
	Product  string `json:"product"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Item prices and images sent by the client are ignored; line items are
// priced from the catalog.
type createOrderRequest struct {
	OrderItems      []orderItemRequest     `json:"orderItems"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	ItemsPrice      float64                `json:"itemsPrice" binding:"gte=0"`
	ShippingPrice   float64                `json:"shippingPrice" binding:"gte=0"`
	TaxPrice        float64                `json:"taxPrice" binding:"gte=0"`
	TotalPrice      float64                `json:"totalPrice" binding:"gte=0"`
}

func (s *Server) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, bindError(err))
		return
	}

	in := service.OrderInput{
		Items:           make([]service.OrderItemInput, len(req.OrderItems)),
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		ItemsPrice:      req.ItemsPrice,
		ShippingPrice:   req.ShippingPrice,
		TaxPrice:        req.TaxPrice,
		TotalPrice:      req.TotalPrice,
		IdempotencyKey:  c.GetHeader(idempotencyHeader),
	}
	for i, item := range req.OrderItems {
		in.Items[i] = service.OrderItemInput{Product: item.Product, Name: item.Name, Quantity: item.Quantity}
	}

	order, created, err := s.orders.Create(c.Request.Context(), currentUser(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, order)
}

func (s *Server) myOrders(c *gin.Context) {
	orders, err := s.orders.ListMine(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (s *Server) listAllOrders(c *gin.Context) {
	orders, err := s.orders.ListAll(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (s *Server) getOrder(c *gin.Context) {
	order, err := s.orders.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) cancelOrder(c *gin.Context) {
	order, err := s.orders.Cancel(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) deliverOrder(c *gin.Context) {
	order, err := s.orders.MarkDelivered(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
