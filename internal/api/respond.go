package api

import (
	"errors"

	"storefront-backend/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// fail writes err as the JSON error body. Anything that is not an
// *apperr.Error is treated as Internal, and Internal causes are only logged.
func (s *Server) fail(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Wrap(apperr.Internal, err, "Server error")
	}
	if appErr.Kind == apperr.Internal {
		s.log.Error("request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"message", appErr.Message,
			"error", appErr.Err,
		)
	}

	body := gin.H{"error": appErr.Kind.String(), "message": appErr.Message}
	if appErr.Details != nil {
		body["details"] = appErr.Details
	}
	c.AbortWithStatusJSON(appErr.Kind.Status(), body)
}

// bindError turns a gin binding failure into InvalidRequest, listing the
// failed rule per field when the validator rejected the body.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[lowerFirst(fe.Field())] = fe.Tag()
		}
		return apperr.Wrap(apperr.InvalidRequest, err, "Invalid request body").WithDetails(fields)
	}
	return apperr.Wrap(apperr.InvalidRequest, err, "Invalid request body")
}

func lowerFirst(s string) string {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return s
	}
	return string(s[0]+('a'-'A')) + s[1:]
}
