// Package commerceml reads and writes CommerceML 2.x documents: the catalog
// (import.xml), the offers package (offers.xml) and order documents
// (orders.xml) exchanged with 1C:Enterprise.
package commerceml
