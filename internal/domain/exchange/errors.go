package exchange

import (
	"errors"

	"github.com/erp/exchange/internal/domain/shared"
)

// Protocol errors. Their messages are sent to the ERP client verbatim on the
// second line of a failure response.
var (
	ErrAuthenticationFailed = shared.NewDomainError("AUTHENTICATION_FAILED", "Authentication failed")
	ErrUnknownExchangeType  = shared.NewDomainError("UNKNOWN_EXCHANGE_TYPE", "Unknown exchange type")
	ErrUnknownCatalogMode   = shared.NewDomainError("UNKNOWN_MODE", "Unknown catalog mode")
	ErrUnknownSaleMode      = shared.NewDomainError("UNKNOWN_MODE", "Unknown sale mode")
	ErrFilenameRequired     = shared.NewDomainError("FILENAME_REQUIRED", "Filename is required")
	ErrEmptyPayload         = shared.NewDomainError("EMPTY_PAYLOAD", "No data received")
	ErrNoFilesToImport      = shared.NewDomainError("NO_FILES", "No files to import")
	ErrFileNotFound         = shared.NewDomainError("FILE_NOT_FOUND", "File not found")
	ErrUnsafePath           = shared.NewDomainError("UNSAFE_PATH", "Invalid file path")
	ErrUnknownDocument      = shared.NewDomainError("UNKNOWN_DOCUMENT", "Unknown file type")
	ErrSessionNotFound      = shared.NewDomainError("SESSION_NOT_FOUND", "Session not found")
	ErrSessionExpired       = shared.NewDomainError("SESSION_EXPIRED", "Session expired")
	ErrIllegalTransition    = shared.NewDomainError("INVALID_STATE", "Operation not allowed in current exchange state")
	ErrSessionKindMismatch  = shared.NewDomainError("SESSION_TYPE_MISMATCH", "Session was opened for another exchange type")
)

// Document and reconciliation errors.
var (
	ErrMalformedDocument = errors.New("exchange: malformed document")
	ErrParentNotFound    = errors.New("exchange: parent product not found")
	ErrParentNotVariable = errors.New("exchange: parent is not a variable product")
	ErrMappingNotFound   = errors.New("exchange: mapping not found")
	ErrOrderNotFound     = errors.New("exchange: order not found")
	ErrInvalidGUID       = errors.New("exchange: foreign GUID cannot be empty")
	ErrInvalidEntityType = errors.New("exchange: invalid entity type")
)

// ErrorMessage returns the client-facing text for err. Domain errors carry
// their own message; anything else is reported through err.Error().
func ErrorMessage(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
