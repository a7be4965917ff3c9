// Package catalog defines the identifiers and records exposed by the catalog API.
package catalog

import (
	"bytes"
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// SKUID identifies one stock-keeping unit. The listing endpoint returns
// integers, but the value is kept opaque.
type SKUID string

// ProductID identifies the parent product of one or more SKUs.
type ProductID string

// UnmarshalJSON accepts a JSON number, a JSON string or null.
func (id *SKUID) UnmarshalJSON(b []byte) error {
	s, err := decodeToken(b)
	if err != nil {
		return errors.Wrap(err, "decode sku id")
	}
	*id = SKUID(s)
	return nil
}

// UnmarshalJSON accepts a JSON number, a JSON string or null.
func (id *ProductID) UnmarshalJSON(b []byte) error {
	s, err := decodeToken(b)
	if err != nil {
		return errors.Wrap(err, "decode product id")
	}
	*id = ProductID(s)
	return nil
}

func (id SKUID) String() string     { return string(id) }
func (id ProductID) String() string { return string(id) }

// SKUDetail is the subset of the SKU detail record the audit reads.
type SKUDetail struct {
	ID           SKUID     `json:"Id"`
	ProductID    ProductID `json:"ProductId"`
	ProductRefID *string   `json:"ProductRefId"`
	Name         string    `json:"NameComplete,omitempty"`
}

// HasProductRef reports whether the record carries a non-empty ProductRefId.
// Absent, null and "" all count as missing.
func (d *SKUDetail) HasProductRef() bool {
	return d.ProductRefID != nil && *d.ProductRefID != ""
}

func decodeToken(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return "", nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// CompareIDs orders identifiers deterministically: integer tokens compare
// numerically and sort before anything else, the rest compare lexically.
// Equal numbers with different spellings ("010", "10") fall back to the
// lexical order.
func CompareIDs(a, b string) int {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return strings.Compare(a, b)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}

// SortProductIDs sorts ids in place using CompareIDs.
func SortProductIDs(ids []ProductID) {
	slices.SortFunc(ids, func(a, b ProductID) int {
		return CompareIDs(string(a), string(b))
	})
}
