package catalog

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("catalog: product not found")

// Product is the read model supplied by the catalog. The fulfillment core
// consumes it for price capture and order-line snapshotting; catalog
// management itself lives elsewhere.
type Product struct {
	ID         string
	Slug       string
	Title      string
	Artist     string
	Format     string
	CoverImage string
	ListPrice  decimal.Decimal
	SalePrice  *decimal.Decimal
}

// EffectivePrice is the sale price when present and strictly lower than the
// list price, otherwise the list price.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice != nil && p.SalePrice.LessThan(p.ListPrice) {
		return *p.SalePrice
	}
	return p.ListPrice
}
