package audit

import (
	"github.com/Sternrassler/catalog-audit/pkg/catalog"
)

// Reduce returns the product to flag for a detail record: the parent
// ProductID when ProductRefId is absent, null or empty.
func Reduce(detail *catalog.SKUDetail) (catalog.ProductID, bool) {
	if detail == nil || detail.HasProductRef() {
		return "", false
	}
	return detail.ProductID, true
}
