package exchange

import (
	"fmt"
	"strings"

	"github.com/docker/go-units"
)

// File limit band reported to the ERP on init.
const (
	MinFileLimit int64 = 1 << 20
	MaxFileLimit int64 = 100 << 20
)

// Unlimited is the parsed value of a "-1" size.
const Unlimited int64 = -1

// Limits are the request size limits the exchange runs under, in bytes.
// A non-positive value means unlimited.
type Limits struct {
	UploadMax   int64
	PostMax     int64
	MemoryLimit int64
}

// FileLimit returns the largest chunk the ERP may send in one request: the
// smallest of the upload limit, the body limit and a quarter of the memory
// limit, clamped to [MinFileLimit, MaxFileLimit].
func (l Limits) FileLimit() int64 {
	limit := MaxFileLimit
	for _, v := range []int64{l.UploadMax, l.PostMax, quarter(l.MemoryLimit)} {
		if v > 0 && v < limit {
			limit = v
		}
	}
	return max(limit, MinFileLimit)
}

func quarter(v int64) int64 {
	if v <= 0 {
		return v
	}
	return max(v/4, 1)
}

// ParseSize parses a size such as "64M", "1g", "512k" or a plain byte count.
// Suffixes are binary multiples. "-1" means unlimited.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("size is empty")
	}
	if s == "-1" {
		return Unlimited, nil
	}
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return n, nil
}
