package commerceml

import (
	"bytes"
	"strings"
)

// SniffLength is how many leading bytes DetectDocumentKind needs.
const SniffLength = 1000

// DocumentKind classifies an uploaded file.
type DocumentKind int

const (
	DocumentUnknown DocumentKind = iota
	DocumentCatalog
	DocumentOffers
	DocumentOrders
)

func (k DocumentKind) String() string {
	switch k {
	case DocumentCatalog:
		return "catalog"
	case DocumentOffers:
		return "offers"
	case DocumentOrders:
		return "orders"
	}
	return "unknown"
}

var (
	markerOffers     = []byte("ПакетПредложений")
	markerCatalog    = []byte("Каталог")
	markerClassifier = []byte("Классификатор")
	markerDocument   = []byte("Документ")
)

// KindFromFilename classifies by the conventional file names. It returns
// DocumentUnknown when the name is not conclusive.
func KindFromFilename(name string) DocumentKind {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "import"):
		return DocumentCatalog
	case strings.Contains(lower, "offers"):
		return DocumentOffers
	case strings.Contains(lower, "orders"):
		return DocumentOrders
	}
	return DocumentUnknown
}

// DetectDocumentKind inspects the head of a document. Non-UTF-8 heads are
// normalized first so that markers can be matched. An offers package names
// its catalog, so the offers marker is checked first.
func DetectDocumentKind(head []byte) DocumentKind {
	if normalized, err := NormalizeEncoding(head); err == nil {
		head = normalized
	}
	switch {
	case bytes.Contains(head, markerOffers):
		return DocumentOffers
	case bytes.Contains(head, markerCatalog), bytes.Contains(head, markerClassifier):
		return DocumentCatalog
	case bytes.Contains(head, markerDocument):
		return DocumentOrders
	}
	return DocumentUnknown
}
