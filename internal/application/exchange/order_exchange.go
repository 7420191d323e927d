package exchange

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/erp/exchange/internal/domain/exchange"
	"github.com/erp/exchange/internal/infrastructure/commerceml"
)

// OrderExchange moves orders between the shop and the ERP: pending orders
// go out as a CommerceML document, status changes come back in.
type OrderExchange struct {
	orders exchange.OrderStore
	parser *commerceml.Parser
	logger *zap.Logger
}

// NewOrderExchange creates a new OrderExchange
func NewOrderExchange(orders exchange.OrderStore, parser *commerceml.Parser, logger *zap.Logger) *OrderExchange {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderExchange{
		orders: orders,
		parser: parser,
		logger: logger,
	}
}

// ExportPending renders every order awaiting export. It returns the document
// and the local ids of the orders it contains.
func (e *OrderExchange) ExportPending(ctx context.Context, now time.Time) ([]byte, []string, error) {
	orders, err := e.orders.OrdersPendingExport(ctx)
	if err != nil {
		return nil, nil, err
	}
	data, err := commerceml.GenerateOrdersDocument(orders, now)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.LocalID)
	}
	e.logger.Info("Orders exported", zap.Int("count", len(orders)), zap.Int("bytes", len(data)))
	return data, ids, nil
}

// ConfirmExported marks every order currently pending export as exported.
// The ERP acknowledges a whole query response without naming orders.
func (e *OrderExchange) ConfirmExported(ctx context.Context) (int, error) {
	orders, err := e.orders.OrdersPendingExport(ctx)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.LocalID)
	}
	if err := e.ConfirmExportedIDs(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// ConfirmExportedIDs marks the given orders as exported.
func (e *OrderExchange) ConfirmExportedIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := e.orders.MarkExported(ctx, ids); err != nil {
		return err
	}
	e.logger.Info("Orders marked as exported", zap.Int("count", len(ids)))
	return nil
}

// ApplyUpdates parses an order update document and applies each record.
// A malformed document is returned as an error; per-order problems are
// counted in the stats.
func (e *OrderExchange) ApplyUpdates(ctx context.Context, data []byte) (exchange.Stats, error) {
	var stats exchange.Stats
	updates, err := e.parser.ParseOrderUpdates(data)
	if err != nil {
		return stats, err
	}

	for _, u := range updates {
		if !u.HasChanges() {
			stats.Skipped++
			continue
		}
		err := e.orders.ApplyUpdate(ctx, u)
		switch {
		case errors.Is(err, exchange.ErrOrderNotFound):
			e.logger.Warn("Order update for unknown order",
				zap.String("order_guid", u.ExportGUID), zap.String("number", u.Number))
			stats.NotFound++
			stats.Skipped++
		case err != nil:
			e.logger.Error("Failed to apply order update", zap.String("order_guid", u.ExportGUID), zap.Error(err))
			stats.AddError(u.ExportGUID, err)
		default:
			stats.Updated++
		}
	}

	e.logger.Info("Order updates applied",
		zap.Int("updated", stats.Updated),
		zap.Int("not_found", stats.NotFound),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}
