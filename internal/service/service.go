// Package service holds the storefront's business rules. Every error it
// returns is an *apperr.Error.
package service

import (
	"fmt"
	"log/slog"
	"strings"

	"storefront-backend/internal/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ImageStore removes previously saved uploads.
type ImageStore interface {
	Remove(url string) error
}

func parseID(raw, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return primitive.NilObjectID, apperr.New(apperr.InvalidRequest, fmt.Sprintf("Invalid %s ID format", what))
	}
	return id, nil
}

func internalErr(err error, msg string) error {
	return apperr.Wrap(apperr.Internal, err, msg)
}

func discardImage(images ImageStore, log *slog.Logger, url string) {
	if url == "" || images == nil {
		return
	}
	if err := images.Remove(url); err != nil {
		log.Error("failed to delete product image", "url", url, "error", err)
	}
}
