// Package pagination enumerates every SKU identifier of a catalog listing.
//
// The listing endpoint does not report a total page count. Pages are
// requested sequentially from page 1 and an empty page is the only signal
// that the listing is exhausted. Each page request gets its own timeout and
// is retried by the PageFetcher (see client.ListSKUIDs); a page that still
// fails aborts the enumeration with ErrPaginationFailure.
//
// Example usage:
//
//	p := pagination.NewPaginator(catalogClient, pagination.DefaultConfig(), progress.Nop{})
//	ids, err := p.FetchAll(ctx)
package pagination
