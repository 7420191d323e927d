package exchange

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntityType is the kind of local entity a foreign GUID is mapped to.
type EntityType string

const (
	EntityCategory  EntityType = "category"
	EntityProduct   EntityType = "product"
	EntityVariation EntityType = "variation"
)

// IsValid returns true if the entity type is known
func (t EntityType) IsValid() bool {
	switch t {
	case EntityCategory, EntityProduct, EntityVariation:
		return true
	}
	return false
}

// IDMapping binds (GUID, Type) to a local entity. The pair is unique and the
// mapping survives across exchange sessions.
type IDMapping struct {
	GUID      string
	Type      EntityType
	LocalID   uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewIDMapping validates and creates a mapping
func NewIDMapping(guid string, entityType EntityType, localID uuid.UUID) (*IDMapping, error) {
	guid = strings.TrimSpace(guid)
	if guid == "" {
		return nil, ErrInvalidGUID
	}
	if !entityType.IsValid() {
		return nil, ErrInvalidEntityType
	}
	now := time.Now()
	return &IDMapping{
		GUID:      guid,
		Type:      entityType,
		LocalID:   localID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
