package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"

	"storefront-backend/internal/apperr"
	"storefront-backend/internal/models"
	"storefront-backend/internal/repository"
)

// ProductInput holds the submitted product fields. A nil pointer means the
// field was not supplied; zero is a real value. ImageURL is the url of an
// upload already saved for this request, or empty.
type ProductInput struct {
	Title       *string
	Description *string
	Category    *string
	Price       *float64
	Stock       *int
	Discount    *float64
	ImageURL    string
}

type ProductService struct {
	products repository.ProductRepository
	images   ImageStore
	log      *slog.Logger
}

func NewProductService(products repository.ProductRepository, images ImageStore, log *slog.Logger) *ProductService {
	return &ProductService{products: products, images: images, log: log}
}

func text(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	s := strings.TrimSpace(*p)
	return s, s != ""
}

func (in ProductInput) validateNumbers() error {
	if in.Price != nil && (*in.Price < 0 || math.IsNaN(*in.Price) || math.IsInf(*in.Price, 0)) {
		return apperr.New(apperr.InvalidRequest, "Price must be a non-negative number")
	}
	if in.Stock != nil && *in.Stock < 0 {
		return apperr.New(apperr.InvalidRequest, "Stock must be a non-negative integer")
	}
	if in.Discount != nil && (*in.Discount < 0 || *in.Discount > 100 || math.IsNaN(*in.Discount)) {
		return apperr.New(apperr.InvalidRequest, "Discount must be between 0 and 100")
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, caller *models.User, in ProductInput) (_ *models.Product, err error) {
	defer func() {
		if err != nil {
			discardImage(s.images, s.log, in.ImageURL)
		}
	}()

	if caller == nil {
		return nil, apperr.New(apperr.Unauthorized, "Not authorized, please log in.")
	}
	title, okTitle := text(in.Title)
	description, okDesc := text(in.Description)
	category, okCat := text(in.Category)
	if !okTitle || !okDesc || !okCat || in.Price == nil {
		return nil, apperr.New(apperr.InvalidRequest, "Title, description, price and category are required")
	}
	if err := in.validateNumbers(); err != nil {
		return nil, err
	}

	product := &models.Product{
		User:        caller.ID,
		Title:       title,
		Description: description,
		Category:    category,
		Price:       *in.Price,
		ImageURL:    in.ImageURL,
		CreatedBy:   models.OwnerOf(caller),
	}
	if in.Stock != nil {
		product.Stock = *in.Stock
	}
	if in.Discount != nil {
		product.Discount = *in.Discount
	}
	if product.ImageURL == "" {
		product.ImageURL = models.PlaceholderImage
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, internalErr(err, "Failed to create product")
	}
	return product, nil
}

func (s *ProductService) Get(ctx context.Context, rawID string) (*models.Product, error) {
	id, err := parseID(rawID, "product")
	if err != nil {
		return nil, err
	}
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Product not found")
		}
		return nil, internalErr(err, "Failed to fetch product")
	}
	return product, nil
}

func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	products, err := s.products.List(ctx, repository.ProductFilter{})
	if err != nil {
		return nil, internalErr(err, "Failed to fetch products")
	}
	return products, nil
}

// ListOwned returns the caller's own listings.
func (s *ProductService) ListOwned(ctx context.Context, caller *models.User) ([]models.Product, error) {
	if caller == nil {
		return nil, apperr.New(apperr.Unauthorized, "Not authorized, please log in to view your products.")
	}
	products, err := s.products.List(ctx, repository.ProductFilter{Owner: caller.ID})
	if err != nil {
		return nil, internalErr(err, "Failed to fetch products")
	}
	return products, nil
}

func (s *ProductService) Update(ctx context.Context, caller *models.User, rawID string, in ProductInput) (_ *models.Product, err error) {
	defer func() {
		if err != nil {
			discardImage(s.images, s.log, in.ImageURL)
		}
	}()

	if caller == nil {
		return nil, apperr.New(apperr.Unauthorized, "Not authorized, please log in.")
	}
	product, err := s.Get(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if !caller.CanManage(product.User) {
		return nil, apperr.New(apperr.Forbidden, "Not authorized to update this product.")
	}
	if err := in.validateNumbers(); err != nil {
		return nil, err
	}

	// only supplied fields are written; stock moved by orders meanwhile survives
	owner := models.OwnerOf(caller)
	changes := repository.ProductChanges{
		Price:     in.Price,
		Stock:     in.Stock,
		Discount:  in.Discount,
		CreatedBy: &owner,
	}
	if v, ok := text(in.Title); ok {
		changes.Title = &v
	}
	if v, ok := text(in.Description); ok {
		changes.Description = &v
	}
	if v, ok := text(in.Category); ok {
		changes.Category = &v
	}
	if in.ImageURL != "" {
		changes.ImageURL = &in.ImageURL
	}

	updated, err := s.products.Update(ctx, product.ID, changes)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Product not found")
		}
		return nil, internalErr(err, "Failed to update product")
	}

	if in.ImageURL != "" && product.ImageURL != in.ImageURL {
		discardImage(s.images, s.log, product.ImageURL)
	}
	return updated, nil
}

func (s *ProductService) Delete(ctx context.Context, caller *models.User, rawID string) error {
	if caller == nil {
		return apperr.New(apperr.Unauthorized, "Not authorized, please log in.")
	}
	product, err := s.Get(ctx, rawID)
	if err != nil {
		return err
	}
	if !caller.CanManage(product.User) {
		return apperr.New(apperr.Forbidden, "Not authorized to delete this product.")
	}

	discardImage(s.images, s.log, product.ImageURL)

	if err := s.products.Delete(ctx, product.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.NotFound, "Product not found")
		}
		return internalErr(err, "Failed to delete product")
	}
	return nil
}
