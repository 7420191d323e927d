package commerceml

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/erp/exchange/internal/domain/exchange"
)

var (
	utf8BOM = []byte{0xEF, 0xBB, 0xBF}

	// declEncoding matches the encoding pseudo-attribute of the XML declaration.
	declEncoding = regexp.MustCompile(`(?i)(<\?xml[^>]*?encoding\s*=\s*)["']?([^"'\s?>]+)["']?`)
)

// declarationScanLimit bounds the search for the XML declaration.
const declarationScanLimit = 512

// NormalizeEncoding converts data to UTF-8 according to its XML declaration
// and rewrites the declaration accordingly. Documents without a declared
// encoding are assumed to be UTF-8 already.
func NormalizeEncoding(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	head := data
	if len(head) > declarationScanLimit {
		head = head[:declarationScanLimit]
	}
	m := declEncoding.FindSubmatchIndex(head)
	if m == nil {
		return data, nil
	}

	name := string(head[m[4]:m[5]])
	if isUTF8(name) {
		return data, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported encoding %q", exchange.ErrMalformedDocument, name)
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", exchange.ErrMalformedDocument, name, err)
	}

	// The declaration is ASCII in every supported encoding, so its offsets
	// are unchanged after decoding.
	out := make([]byte, 0, len(decoded))
	out = append(out, decoded[:m[2]]...)
	out = append(out, decoded[m[2]:m[3]]...)
	out = append(out, `"UTF-8"`...)
	out = append(out, decoded[m[1]:]...)
	return out, nil
}

func isUTF8(name string) bool {
	n := strings.ToLower(name)
	return n == "utf-8" || n == "utf8"
}

// charsetReader lets the decoder cope with documents that skipped
// normalization.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	if isUTF8(label) {
		return input, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}
