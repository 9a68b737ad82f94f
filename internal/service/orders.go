package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"storefront-backend/internal/apperr"
	"storefront-backend/internal/models"
	"storefront-backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderItemInput struct {
	Product  string
	Name     string
	Quantity int
}

type OrderInput struct {
	Items           []OrderItemInput
	ShippingAddress models.ShippingAddress
	PaymentMethod   string
	ItemsPrice      float64
	ShippingPrice   float64
	TaxPrice        float64
	TotalPrice      float64
	// IdempotencyKey makes a retried submission return the first order.
	IdempotencyKey string
}

// StockShortage is attached to InsufficientStock errors.
type StockShortage struct {
	Product   primitive.ObjectID `json:"product"`
	Title     string             `json:"title"`
	Available int                `json:"available"`
	Requested int                `json:"requested"`
}

type OrderService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	carts    repository.CartRepository
	log      *slog.Logger
	now      func() time.Time
}

func NewOrderService(orders repository.OrderRepository, products repository.ProductRepository, carts repository.CartRepository, log *slog.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		carts:    carts,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type stockChange struct {
	product primitive.ObjectID
	qty     int
}

func insufficient(p *models.Product, available, requested int) error {
	msg := fmt.Sprintf("Insufficient stock for %s. Available: %d, Requested: %d", p.Title, available, requested)
	return apperr.New(apperr.InsufficientStock, msg).WithDetails(StockShortage{
		Product:   p.ID,
		Title:     p.Title,
		Available: available,
		Requested: requested,
	})
}

// Create places an order. Stock for every line is reserved atomically per
// product; if any reservation or the insert fails, the reservations already
// made are given back so the submission leaves stock untouched. The bool
// result is false when an earlier order with the same idempotency key was
// returned instead.
func (s *OrderService) Create(ctx context.Context, caller *models.User, in OrderInput) (*models.Order, bool, error) {
	if caller == nil {
		return nil, false, apperr.New(apperr.Unauthorized, "Not authorized, please log in.")
	}
	if len(in.Items) == 0 {
		return nil, false, apperr.New(apperr.InvalidRequest, "No order items")
	}
	if !in.ShippingAddress.Complete() {
		return nil, false, apperr.New(apperr.InvalidRequest, "Shipping address incomplete")
	}

	ids := make([]primitive.ObjectID, len(in.Items))
	for i, item := range in.Items {
		id, err := parseID(item.Product, "product")
		if err != nil {
			return nil, false, err
		}
		if item.Quantity < 1 {
			return nil, false, apperr.New(apperr.InvalidRequest, "Quantity must be at least 1")
		}
		ids[i] = id
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		existing, err := s.orders.GetByIdempotencyKey(ctx, caller.ID, key)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, false, internalErr(err, "Failed to create order")
		}
	}

	// validate everything before touching stock
	products := map[primitive.ObjectID]*models.Product{}
	needed := map[primitive.ObjectID]int{}
	var seq []primitive.ObjectID
	for i, item := range in.Items {
		id := ids[i]
		p, ok := products[id]
		if !ok {
			var err error
			p, err = s.products.GetByID(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					name := item.Name
					if name == "" {
						name = id.Hex()
					}
					return nil, false, apperr.New(apperr.NotFound, "Product not found: "+name)
				}
				return nil, false, internalErr(err, "Failed to create order")
			}
			products[id] = p
			seq = append(seq, id)
		}
		needed[id] += item.Quantity
		if p.Stock < needed[id] {
			return nil, false, insufficient(p, p.Stock, needed[id])
		}
	}

	applied := make([]stockChange, 0, len(seq))
	for _, id := range seq {
		if _, err := s.products.AdjustStock(ctx, id, -needed[id]); err != nil {
			s.restock(ctx, applied)
			switch {
			case errors.Is(err, repository.ErrNotEnough):
				// lost a race with another order since validation
				available := 0
				if p, gerr := s.products.GetByID(ctx, id); gerr == nil {
					available = p.Stock
				}
				return nil, false, insufficient(products[id], available, needed[id])
			case errors.Is(err, repository.ErrNotFound):
				return nil, false, apperr.New(apperr.NotFound, "Product not found: "+products[id].Title)
			default:
				return nil, false, internalErr(err, "Failed to create order")
			}
		}
		applied = append(applied, stockChange{product: id, qty: needed[id]})
	}

	now := s.now()
	o := &models.Order{
		User:            caller.ID,
		OrderItems:      make([]models.OrderItem, 0, len(in.Items)),
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		ItemsPrice:      in.ItemsPrice,
		ShippingPrice:   in.ShippingPrice,
		TaxPrice:        in.TaxPrice,
		TotalPrice:      in.TotalPrice,
		IsPaid:          true,
		PaidAt:          &now,
		IdempotencyKey:  key,
	}
	for i, item := range in.Items {
		p := products[ids[i]]
		o.OrderItems = append(o.OrderItems, models.OrderItem{
			Product:  p.ID,
			Name:     p.Title,
			Quantity: item.Quantity,
			Price:    p.Price,
			ImageURL: p.ImageURL,
		})
	}

	if err := s.orders.Create(ctx, o); err != nil {
		s.restock(ctx, applied)
		if errors.Is(err, repository.ErrDuplicate) && key != "" {
			existing, gerr := s.orders.GetByIdempotencyKey(ctx, caller.ID, key)
			if gerr == nil {
				return existing, false, nil
			}
		}
		return nil, false, internalErr(err, "Failed to create order")
	}

	if s.carts != nil {
		if err := s.carts.Clear(ctx, caller.ID); err != nil {
			s.log.Warn("failed to clear cart after order", "user", caller.ID.Hex(), "order", o.ID.Hex(), "error", err)
		}
	}

	return o, true, nil
}

// restock gives back reservations made by a failed submission. It keeps
// going after the request context is cancelled.
func (s *OrderService) restock(ctx context.Context, applied []stockChange) {
	ctx = context.WithoutCancel(ctx)
	for _, c := range applied {
		if _, err := s.products.AdjustStock(ctx, c.product, c.qty); err != nil {
			s.log.Error("failed to restore stock after aborted order", "product", c.product.Hex(), "quantity", c.qty, "error", err)
		}
	}
}

func (s *OrderService) load(ctx context.Context, rawID string) (*models.Order, error) {
	id, err := parseID(rawID, "order")
	if err != nil {
		return nil, err
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Order not found")
		}
		return nil, internalErr(err, "Failed to fetch order")
	}
	return o, nil
}

func (s *OrderService) Get(ctx context.Context, caller *models.User, rawID string) (*models.Order, error) {
	if caller == nil {
		return nil, apperr.New(apperr.Unauthorized, "Not authorized, please log in.")
	}
	o, err := s.load(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if !caller.CanManage(o.User) {
		return nil, apperr.New(apperr.Forbidden, "Not authorized to view this order.")
	}
	return o, nil
}

// ListMine returns the caller's orders, newest first.
func (s *OrderService) ListMine(ctx context.Context, caller *models.User) ([]models.Order, error) {
	if caller == nil {
		return nil, apperr.New(apperr.Unauthorized, "Not authorized, please log in.")
	}
	orders, err := s.orders.ListByUser(ctx, caller.ID)
	if err != nil {
		return nil, internalErr(err, "Failed to fetch your orders")
	}
	return orders, nil
}

func (s *OrderService) ListAll(ctx context.Context, caller *models.User) ([]models.Order, error) {
	if !caller.IsAdmin() {
		return nil, apperr.New(apperr.Forbidden, "Not authorized. Admin access required.")
	}
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, internalErr(err, "Failed to fetch all orders")
	}
	return orders, nil
}

var (
	errDelivered = apperr.New(apperr.InvalidState, "Cannot cancel a delivered order.")
	errCancelled = apperr.New(apperr.InvalidState, "Order is already cancelled.")
)

// Cancel marks the order cancelled and returns its items to stock. The flag
// is claimed first so two concurrent cancels cannot both restock.
func (s *OrderService) Cancel(ctx context.Context, caller *models.User, rawID string) (*models.Order, error) {
	if caller == nil {
		return nil, apperr.New(apperr.Unauthorized, "Not authorized, please log in.")
	}
	o, err := s.load(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if !caller.CanManage(o.User) {
		return nil, apperr.New(apperr.Forbidden, "Not authorized to cancel this order.")
	}
	if o.IsDelivered {
		return nil, errDelivered
	}
	if o.IsCancelled {
		return nil, errCancelled
	}

	updated, err := s.orders.MarkCancelled(ctx, o.ID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			if cur, gerr := s.orders.GetByID(ctx, o.ID); gerr == nil && cur.IsDelivered {
				return nil, errDelivered
			}
			return nil, errCancelled
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Order not found")
		}
		return nil, internalErr(err, "Failed to cancel order")
	}

	restoreCtx := context.WithoutCancel(ctx)
	for _, item := range updated.OrderItems {
		_, err := s.products.AdjustStock(restoreCtx, item.Product, item.Quantity)
		switch {
		case err == nil:
		case errors.Is(err, repository.ErrNotFound):
			s.log.Warn("product gone during stock restoration", "product", item.Product.Hex(), "order", updated.ID.Hex())
		default:
			s.log.Error("failed to restore stock", "product", item.Product.Hex(), "order", updated.ID.Hex(), "quantity", item.Quantity, "error", err)
		}
	}

	return updated, nil
}

func (s *OrderService) MarkDelivered(ctx context.Context, caller *models.User, rawID string) (*models.Order, error) {
	if !caller.IsAdmin() {
		return nil, apperr.New(apperr.Forbidden, "Not authorized. Admin access required.")
	}
	o, err := s.load(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if o.IsCancelled {
		return nil, apperr.New(apperr.InvalidState, "Cannot deliver a cancelled order.")
	}
	if o.IsDelivered {
		return o, nil
	}

	updated, err := s.orders.MarkDelivered(ctx, o.ID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.New(apperr.InvalidState, "Cannot deliver a cancelled order.")
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Order not found")
		}
		return nil, internalErr(err, "Failed to update order to delivered")
	}
	return updated, nil
}
