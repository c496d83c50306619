// Package sale exposes the purchase history. Sales are written only by
// settlement; this service is read-only.
package sale

import (
	"context"

	"github.com/google/uuid"

	"github.com/cinebook/seat-reservation/internal/domain"
	"github.com/cinebook/seat-reservation/internal/observability"
)

type Store interface {
	ListSalesByUser(ctx context.Context, userID uuid.UUID) ([]domain.SaleDetail, error)
}

type Service struct {
	store  Store
	logger observability.Logger
}

func NewService(store Store, logger observability.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// FindByUserID returns the user's sales, most recent first. A user with no
// purchases yields an empty slice, never an error.
func (s *Service) FindByUserID(ctx context.Context, userID uuid.UUID) ([]domain.SaleDetail, error) {
	sales, err := s.store.ListSalesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(observability.Fields{
		"user_id": userID,
		"total":   len(sales),
	}).Debug("sale history consulted")
	return sales, nil
}
