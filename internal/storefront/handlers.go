// Package storefront serves a small server-rendered shop that exposes the
// same markup contract as the live target: a search box, brand and price
// filters, a product grid and product detail pages.
package storefront

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

// ParseTemplates loads the embedded page templates.
func ParseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"rupees": FormatRupees,
	}
	tmpl, err := template.New("storefront").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// HomeHandler renders the landing page with the search box.
type HomeHandler struct {
	template *template.Template
	catalog  *Catalog
	logger   logrus.FieldLogger
}

// HomeData is the home template model.
type HomeData struct {
	Categories []string
}

func (h *HomeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	seen := map[string]bool{}
	var data HomeData
	for _, p := range h.catalog.Products() {
		if !seen[p.Category] {
			seen[p.Category] = true
			data.Categories = append(data.Categories, p.Category)
		}
	}

	render(w, h.template, "home.html", data, h.logger)
}

// CatalogHandler renders search results with the brand and price facets.
type CatalogHandler struct {
	template *template.Template
	catalog  *Catalog
	logger   logrus.FieldLogger
}

// BrandOption is one entry of the brand facet.
type BrandOption struct {
	Name     string
	Href     string
	Selected bool
}

// CatalogData is the catalog template model.
type CatalogData struct {
	Query    Query
	Brands   []BrandOption
	Products []Product
}

func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := ParseQuery(r.URL.Query())
	data := CatalogData{
		Query:    query,
		Products: h.catalog.Search(query),
	}
	for _, brand := range h.catalog.Brands(query.Keyword) {
		facet := query
		facet.Brand = brand
		data.Brands = append(data.Brands, BrandOption{
			Name:     brand,
			Href:     "/catalog?" + facet.Values().Encode(),
			Selected: brand == query.Brand,
		})
	}

	h.logger.WithFields(logrus.Fields{
		"keyword": query.Keyword,
		"brand":   query.Brand,
		"min":     query.Min,
		"max":     query.Max,
		"results": len(data.Products),
	}).Debug("Catalog search")

	render(w, h.template, "catalog.html", data, h.logger)
}

// ProductHandler renders a product detail page.
type ProductHandler struct {
	template *template.Template
	catalog  *Catalog
	logger   logrus.FieldLogger
}

func (h *ProductHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	product, ok := h.catalog.Find(chi.URLParam(r, "slug"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	render(w, h.template, "product.html", product, h.logger)
}

func render(w http.ResponseWriter, tmpl *template.Template, name string, data any, logger logrus.FieldLogger) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
		logger.WithError(err).WithField("template", name).Error("Error rendering template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// NewRouter wires the storefront routes for catalog.
func NewRouter(catalog *Catalog, logger logrus.FieldLogger) (http.Handler, error) {
	tmpl, err := ParseTemplates()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(requestLogger(logger))
	r.Method(http.MethodGet, "/", &HomeHandler{template: tmpl, catalog: catalog, logger: logger})
	r.Method(http.MethodGet, "/catalog", &CatalogHandler{template: tmpl, catalog: catalog, logger: logger})
	r.Method(http.MethodGet, "/products/{slug}", &ProductHandler{template: tmpl, catalog: catalog, logger: logger})
	return r, nil
}

func requestLogger(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.WithFields(logrus.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
			}).Debug("Request")
			next.ServeHTTP(w, r)
		})
	}
}
