package storefront

import (
	"html/template"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	router, err := NewRouter(DefaultCatalog(), logger)
	if err != nil {
		t.Fatalf("Failed to create router: %v", err)
	}
	return router
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, *goquery.Document) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(w.Body.String()))
	if err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	return w, doc
}

func TestRouter_HomePage(t *testing.T) {
	router := newTestRouter(t)

	w, doc := get(t, router, "/")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if n := doc.Find(`input[type="search"]`).Length(); n != 1 {
		t.Errorf("expected one search input, got %d", n)
	}
	if action := doc.Find("form.search").AttrOr("action", ""); action != "/catalog" {
		t.Errorf("expected search form action /catalog, got %q", action)
	}
	if n := doc.Find("a.category").Length(); n != 2 {
		t.Errorf("expected 2 categories, got %d", n)
	}
}

func TestRouter_CatalogPage(t *testing.T) {
	tests := []struct {
		name          string
		target        string
		expectedCards int
		expectedSlugs []string
	}{
		{
			name:          "keyword only",
			target:        "/catalog?q=electronics",
			expectedCards: 7,
		},
		{
			name:          "brand filter",
			target:        "/catalog?q=electronics&brand=Samsung",
			expectedCards: 3,
		},
		{
			name:          "brand and price filter",
			target:        "/catalog?q=electronics&brand=Samsung&min=500&max=5000",
			expectedCards: 2,
			expectedSlugs: []string{"samsung-galaxy-buds-fe", "samsung-25w-travel-adapter"},
		},
		{
			name:          "no matches",
			target:        "/catalog?q=zzz",
			expectedCards: 0,
		},
	}

	router := newTestRouter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, doc := get(t, router, tt.target)

			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", w.Code)
			}

			cards := doc.Find(`a[href*="/products/"]`)
			if cards.Length() != tt.expectedCards {
				t.Errorf("expected %d product cards, got %d", tt.expectedCards, cards.Length())
			}
			if n := doc.Find(`div[data-qa-locator="product-item"] a`).Length(); n != tt.expectedCards {
				t.Errorf("expected %d product items, got %d", tt.expectedCards, n)
			}

			for i, slug := range tt.expectedSlugs {
				href := cards.Eq(i).AttrOr("href", "")
				if href != "/products/"+slug {
					t.Errorf("card %d: expected /products/%s, got %s", i, slug, href)
				}
			}
		})
	}
}

func TestRouter_CatalogFacets(t *testing.T) {
	router := newTestRouter(t)

	_, doc := get(t, router, "/catalog?q=electronics&min=500")

	brands := doc.Find("div.c3xV1N a")
	if brands.Length() != 5 {
		t.Fatalf("expected 5 brand options, got %d", brands.Length())
	}
	if first := strings.TrimSpace(brands.First().Text()); first != "Anker" {
		t.Errorf("expected first brand Anker, got %q", first)
	}

	samsung := brands.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) == "Samsung"
	})
	href := samsung.AttrOr("href", "")
	for _, want := range []string{"q=electronics", "brand=Samsung", "min=500"} {
		if !strings.Contains(href, want) {
			t.Errorf("expected brand href %q to contain %q", href, want)
		}
	}

	if doc.Find(`input[placeholder="Min"]`).AttrOr("value", "") != "500" {
		t.Error("expected min input to keep the current value")
	}
	if doc.Find(`input[aria-label="Maximum Price"]`).Length() != 1 {
		t.Error("expected a labelled max price input")
	}
}

func TestRouter_ProductPage(t *testing.T) {
	tests := []struct {
		name           string
		slug           string
		expectedStatus int
		checkContent   []string
		absentContent  []string
	}{
		{
			name:           "free shipping in stock",
			slug:           "samsung-galaxy-buds-fe",
			expectedStatus: http.StatusOK,
			checkContent:   []string{"Samsung Galaxy Buds FE", "Free Shipping", "In stock", "Rs. 4,500"},
			absentContent:  []string{"Out of stock"},
		},
		{
			name:           "standard delivery out of stock",
			slug:           "samsung-25w-travel-adapter",
			expectedStatus: http.StatusOK,
			checkContent:   []string{"Standard delivery", "Out of stock"},
			absentContent:  []string{"Free Shipping"},
		},
		{
			name:           "unknown product",
			slug:           "does-not-exist",
			expectedStatus: http.StatusNotFound,
		},
	}

	router := newTestRouter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := get(t, router, "/products/"+tt.slug)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			body := w.Body.String()
			for _, content := range tt.checkContent {
				if !strings.Contains(body, content) {
					t.Errorf("expected response to contain '%s'", content)
				}
			}
			for _, content := range tt.absentContent {
				if strings.Contains(body, content) {
					t.Errorf("expected response not to contain '%s'", content)
				}
			}
		})
	}
}

func TestHandlers_MethodNotAllowed(t *testing.T) {
	tmpl, err := ParseTemplates()
	if err != nil {
		t.Fatalf("Failed to parse templates: %v", err)
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	catalog := DefaultCatalog()

	handlers := map[string]http.Handler{
		"home":    &HomeHandler{template: tmpl, catalog: catalog, logger: logger},
		"catalog": &CatalogHandler{template: tmpl, catalog: catalog, logger: logger},
		"product": &ProductHandler{template: tmpl, catalog: catalog, logger: logger},
	}

	for name, h := range handlers {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			t.Run(name+" "+method, func(t *testing.T) {
				req := httptest.NewRequest(method, "/", nil)
				w := httptest.NewRecorder()
				h.ServeHTTP(w, req)

				if w.Code != http.StatusMethodNotAllowed {
					t.Errorf("expected status 405, got %d", w.Code)
				}
			})
		}
	}
}

func TestHomeHandler_TemplateExecutionError(t *testing.T) {
	tmpl, err := template.New("home.html").Parse("{{.Categories.NonExistent}}")
	if err != nil {
		t.Fatalf("Failed to create test template: %v", err)
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	handler := &HomeHandler{template: tmpl, catalog: DefaultCatalog(), logger: logger}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
}
