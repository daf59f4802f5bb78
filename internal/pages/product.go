package pages

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/themizzi/storecheck/internal/browser"
)

// Text markers checked on a product detail view.
var (
	FreeShipping = browser.Strategy{
		browser.ExactText("Free Shipping"),
		browser.ExactText("Free delivery"),
		browser.Text("Free Delivery"),
	}
	OutOfStock = browser.Strategy{
		browser.ExactText("Out of stock"),
		browser.ExactText("Sold Out"),
	}
)

// ProductPage is an opened product detail view.
type ProductPage struct {
	session browser.Session
	logger  logrus.FieldLogger
}

// NewProductPage creates a product page over session.
func NewProductPage(session browser.Session, logger logrus.FieldLogger) *ProductPage {
	return &ProductPage{session: session, logger: logger}
}

// HasFreeShipping reports whether a free shipping marker is shown. Lookup
// failures read as false.
func (p *ProductPage) HasFreeShipping(ctx context.Context) bool {
	return p.hasMarker(ctx, "free shipping", FreeShipping)
}

// IsOutOfStock reports whether an out of stock marker is shown. Lookup
// failures read as false.
func (p *ProductPage) IsOutOfStock(ctx context.Context) bool {
	return p.hasMarker(ctx, "out of stock", OutOfStock)
}

func (p *ProductPage) hasMarker(ctx context.Context, name string, strategy browser.Strategy) bool {
	n, err := browser.Find(p.session, strategy).Count(ctx)
	if err != nil {
		p.logger.WithError(err).WithField("marker", name).Warn("Product marker check failed")
		return false
	}
	return n > 0
}
