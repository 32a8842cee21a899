// Package store provides the local order ledger.
package store

import (
	"context"
	"time"

	"kis-gateway/internal/models"
)

// OrderLedger records the orders the gateway sent and what became of them.
type OrderLedger interface {
	SaveOrder(ctx context.Context, order *models.LedgerOrder) error
	GetOrder(ctx context.Context, id string) (*models.LedgerOrder, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]models.LedgerOrder, error)
	UpdateOrderStatus(ctx context.Context, id, status, message string) error

	// Lifecycle
	Close() error
}

// OrderFilter represents filters for listing ledger orders.
type OrderFilter struct {
	AssetClass models.AssetClass
	Symbol     string
	Status     string
	Since      time.Time
	Limit      int
}
