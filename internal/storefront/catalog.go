package storefront

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Product is a catalog entry. Prices are whole rupees.
type Product struct {
	Slug         string
	Name         string
	Brand        string
	Category     string
	Price        int
	FreeShipping bool
	InStock      bool
}

// Query is a parsed catalog search. Zero Min or Max means unbounded.
type Query struct {
	Keyword string
	Brand   string
	Min     int
	Max     int
}

// ParseQuery reads q, brand, min and max. Unparseable prices are ignored.
func ParseQuery(values url.Values) Query {
	return Query{
		Keyword: strings.TrimSpace(values.Get("q")),
		Brand:   strings.TrimSpace(values.Get("brand")),
		Min:     parsePrice(values.Get("min")),
		Max:     parsePrice(values.Get("max")),
	}
}

func parsePrice(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Values encodes q back into URL parameters, omitting empty fields.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Keyword != "" {
		v.Set("q", q.Keyword)
	}
	if q.Brand != "" {
		v.Set("brand", q.Brand)
	}
	if q.Min > 0 {
		v.Set("min", strconv.Itoa(q.Min))
	}
	if q.Max > 0 {
		v.Set("max", strconv.Itoa(q.Max))
	}
	return v
}

// Catalog is an ordered, read-only product list.
type Catalog struct {
	products []Product
}

// NewCatalog copies products into a catalog.
func NewCatalog(products []Product) *Catalog {
	c := &Catalog{products: make([]Product, len(products))}
	copy(c.products, products)
	return c
}

// DefaultCatalog is the fixture used by the storefront server and the tests.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Product{
		{Slug: "samsung-galaxy-buds-fe", Name: "Samsung Galaxy Buds FE", Brand: "Samsung", Category: "electronics", Price: 4500, FreeShipping: true, InStock: true},
		{Slug: "samsung-25w-travel-adapter", Name: "Samsung 25W Travel Adapter", Brand: "Samsung", Category: "electronics", Price: 1850, InStock: false},
		{Slug: "samsung-galaxy-a15", Name: "Samsung Galaxy A15", Brand: "Samsung", Category: "electronics", Price: 42999, FreeShipping: true, InStock: true},
		{Slug: "anker-powercore-10000", Name: "Anker PowerCore 10000", Brand: "Anker", Category: "electronics", Price: 4999, FreeShipping: true, InStock: true},
		{Slug: "xiaomi-redmi-buds-4-active", Name: "Xiaomi Redmi Buds 4 Active", Brand: "Xiaomi", Category: "electronics", Price: 3799, InStock: true},
		{Slug: "audionic-solo-x5", Name: "Audionic Solo X5 Speaker", Brand: "Audionic", Category: "electronics", Price: 2650, FreeShipping: true, InStock: true},
		{Slug: "lenovo-thinkplus-lp40", Name: "Lenovo ThinkPlus LP40 Earbuds", Brand: "Lenovo", Category: "electronics", Price: 1499, InStock: false},
		{Slug: "philips-steam-iron-gc1905", Name: "Philips Steam Iron GC1905", Brand: "Philips", Category: "home appliances", Price: 6500, InStock: true},
	})
}

// Products returns a copy of every product in catalog order.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Find looks a product up by slug.
func (c *Catalog) Find(slug string) (Product, bool) {
	for _, p := range c.products {
		if p.Slug == slug {
			return p, true
		}
	}
	return Product{}, false
}

// Search returns the products matching every field of q, in catalog order.
func (c *Catalog) Search(q Query) []Product {
	var out []Product
	for _, p := range c.products {
		if !p.matchesKeyword(q.Keyword) {
			continue
		}
		if q.Brand != "" && !strings.EqualFold(p.Brand, q.Brand) {
			continue
		}
		if q.Min > 0 && p.Price < q.Min {
			continue
		}
		if q.Max > 0 && p.Price > q.Max {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Brands lists the distinct brands among keyword matches, sorted. Brand and
// price filters are ignored so the facet list stays stable while filtering.
func (c *Catalog) Brands(keyword string) []string {
	seen := map[string]bool{}
	var brands []string
	for _, p := range c.products {
		if !p.matchesKeyword(keyword) || seen[p.Brand] {
			continue
		}
		seen[p.Brand] = true
		brands = append(brands, p.Brand)
	}
	sort.Strings(brands)
	return brands
}

func (p Product) matchesKeyword(keyword string) bool {
	if keyword == "" {
		return true
	}
	k := strings.ToLower(keyword)
	return strings.EqualFold(p.Category, keyword) ||
		strings.Contains(strings.ToLower(p.Name), k) ||
		strings.EqualFold(p.Brand, keyword)
}

// FormatRupees renders a price the way the storefront displays it.
func FormatRupees(price int) string {
	s := strconv.Itoa(price)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return "Rs. " + b.String()
}
