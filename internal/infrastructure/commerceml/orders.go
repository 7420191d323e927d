package commerceml

import (
	"strings"

	"go.uber.org/zap"

	"github.com/erp/exchange/internal/domain/exchange"
)

// Requisite names carried by inbound order documents.
const (
	requisiteOrderStatus    = "Статус заказа"
	requisiteTrackingNumber = "Номер отправления"
	requisiteDocumentNumber = "Номер документа 1С"
)

// ParseOrderUpdates extracts order changes from an orders document sent by
// the ERP. Status labels outside the known table leave the status empty so
// that the local status is not touched.
func (p *Parser) ParseOrderUpdates(data []byte) ([]exchange.OrderUpdate, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}

	documents := doc.Documents
	for _, c := range doc.Containers {
		documents = append(documents, c.Documents...)
	}

	updates := make([]exchange.OrderUpdate, 0, len(documents))
	for _, d := range documents {
		update := exchange.OrderUpdate{
			ExportGUID: strings.TrimSpace(d.ID),
			Number:     strings.TrimSpace(d.Number),
		}
		if update.ExportGUID == "" {
			continue
		}
		for _, req := range d.Requisites {
			value := strings.TrimSpace(req.Value)
			switch strings.TrimSpace(req.Name) {
			case requisiteOrderStatus:
				if status, ok := exchange.StatusFromLabel(value); ok {
					update.Status = status
				} else if value != "" {
					p.logger.Warn("Unknown order status label",
						zap.String("order_guid", update.ExportGUID),
						zap.String("label", value),
					)
				}
			case requisiteTrackingNumber:
				update.TrackingNumber = value
			case requisiteDocumentNumber:
				update.DocumentNumber = value
			}
		}
		updates = append(updates, update)
	}
	return updates, nil
}
