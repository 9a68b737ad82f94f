package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"storefront-backend/internal/apperr"
	"storefront-backend/internal/service"
	"storefront-backend/internal/uploads"

	"github.com/gin-gonic/gin"
)

// formText returns nil when the field is absent from the form.
func formText(c *gin.Context, name string) *string {
	v, ok := c.GetPostForm(name)
	if !ok {
		return nil
	}
	return &v
}

// formFloat treats an absent or blank field as not supplied.
func formFloat(c *gin.Context, name, msg string) (*float64, error) {
	v := strings.TrimSpace(c.PostForm(name))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, apperr.New(apperr.InvalidRequest, msg)
	}
	return &f, nil
}

func formInt(c *gin.Context, name, msg string) (*int, error) {
	v := strings.TrimSpace(c.PostForm(name))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, apperr.New(apperr.InvalidRequest, msg)
	}
	return &n, nil
}

const (
	// room for the text fields and multipart framing around the image
	formSlack  = 1 << 20
	formMemory = 8 << 20
)

// parseProductForm reads the whole form under a body cap derived from the
// upload limit, so an oversized request fails while it is being read.
func (s *Server) parseProductForm(c *gin.Context) error {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.uploads.MaxSize()+formSlack)
	err := c.Request.ParseMultipartForm(formMemory)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return apperr.Wrap(apperr.InvalidRequest, err, "Image exceeds the maximum upload size")
	}
	return apperr.Wrap(apperr.InvalidRequest, err, "Invalid product form")
}

// productInput reads the product form fields and saves the image, if any.
// The image is saved last so a malformed form leaves nothing on disk.
func (s *Server) productInput(c *gin.Context) (service.ProductInput, error) {
	if err := s.parseProductForm(c); err != nil {
		return service.ProductInput{}, err
	}
	in := service.ProductInput{
		Title:       formText(c, "title"),
		Description: formText(c, "description"),
		Category:    formText(c, "category"),
	}
	var err error
	if in.Price, err = formFloat(c, "price", "Price must be a non-negative number"); err != nil {
		return in, err
	}
	if in.Stock, err = formInt(c, "stock", "Stock must be a non-negative integer"); err != nil {
		return in, err
	}
	if in.Discount, err = formFloat(c, "discount", "Discount must be between 0 and 100"); err != nil {
		return in, err
	}

	fh, err := c.FormFile(uploads.FieldName)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return in, nil
	}
	if err != nil {
		return in, apperr.Wrap(apperr.InvalidRequest, err, "Invalid image upload")
	}
	url, err := s.uploads.Save(fh)
	switch {
	case errors.Is(err, uploads.ErrTooLarge):
		return in, apperr.Wrap(apperr.InvalidRequest, err, "Image exceeds the maximum upload size")
	case errors.Is(err, uploads.ErrUnsupported):
		return in, apperr.Wrap(apperr.InvalidRequest, err, "Images only (jpeg, jpg, png, gif)")
	case err != nil:
		return in, apperr.Wrap(apperr.Internal, err, "Failed to save image")
	}
	in.ImageURL = url
	return in, nil
}

func (s *Server) listProducts(c *gin.Context) {
	ctx := c.Request.Context()
	if c.Query("myProducts") == "true" {
		user, err := s.auth.Authenticate(ctx, c.GetHeader("Authorization"))
		if err != nil {
			s.fail(c, err)
			return
		}
		products, err := s.products.ListOwned(ctx, user)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, products)
		return
	}

	products, err := s.products.List(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (s *Server) getProduct(c *gin.Context) {
	product, err := s.products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) createProduct(c *gin.Context) {
	in, err := s.productInput(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	product, err := s.products.Create(c.Request.Context(), currentUser(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (s *Server) updateProduct(c *gin.Context) {
	in, err := s.productInput(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	product, err := s.products.Update(c.Request.Context(), currentUser(c), c.Param("id"), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) deleteProduct(c *gin.Context) {
	if err := s.products.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product removed"})
}
