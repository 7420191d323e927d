// Package models contains GORM persistence models for the local catalog,
// orders, GUID mappings and the exchange sync log.
//
// Domain types stay free of GORM tags; models carry the table mapping and
// convert to and from the exchange domain types where a domain type exists.
//
// Structure:
// - base.go: BaseModel
// - catalog.go: categories, products (simple, variable, variation), attributes, images
// - mapping.go: foreign GUID mappings
// - order.go: customers, orders and order items
// - sync_log.go: exchange run history
package models
