package api

import (
	"context"

	"github.com/causalfunnel/cartsurvey/internal/models"
)

// Store is the document persistence boundary. Implementations exist for
// memory (tests, zero-config dev), SQLite and MongoDB.
//
// GetStore and GetCustomer return (nil, nil) when the document is absent.
// ListResponsesByShop returns newest first. No operation is transactional
// with any other: survey saves and response submissions may interleave.
type Store interface {
	GetStore(ctx context.Context, shop string) (*models.StoreRecord, error)
	UpsertStore(ctx context.Context, rec *models.StoreRecord) (*models.StoreRecord, error)
	DeleteStore(ctx context.Context, shop string) error

	AddResponse(ctx context.Context, resp *models.Response) (*models.Response, error)
	ListResponsesByShop(ctx context.Context, shop string) ([]*models.Response, error)
	DeleteResponsesByShop(ctx context.Context, shop string) (int, error)

	UpsertCustomer(ctx context.Context, c *models.Customer) error
	GetCustomer(ctx context.Context, shop, customerID string) (*models.Customer, error)
	DeleteCustomerData(ctx context.Context, shop, customerID string) (int, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

var _ Store = (*MemoryStore)(nil)
