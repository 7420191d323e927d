// Package exchange contains the Exchange bounded context.
// It models the CommerceML data exchange between the local storefront and an
// external ERP (1C:Enterprise and compatible systems).
//
// Key concepts:
//   - ExchangeSession: short-lived authenticated context for one checkauth→init→file→import cycle
//   - Category, Property, Product: records parsed from a catalog document (import.xml)
//   - Offer, PriceType, Warehouse: records parsed from an offers package (offers.xml)
//   - IDMapping: durable bridge from a foreign GUID to a local entity ID
//   - OrderExportRecord / OrderUpdate: outbound orders and inbound status changes
//
// Design Pattern: Ports & Adapters
//   - Ports (MappingStore, CatalogStore, OrderStore, SessionStore, Spool, MediaStore)
//     are defined here in the domain layer
//   - Adapters (gorm, redis, afero, S3) live in the infrastructure layer
package exchange
