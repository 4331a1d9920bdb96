package rag

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/merchantkit/storesync/internal/model"
)

func sampleProduct() model.Product {
	return model.Product{
		ID:          "p-1",
		Title:       "Canvas Tote",
		Description: "A **sturdy** bag for daily use",
		Vendor:      "Acme",
		Status:      "active",
		Price:       "29.99",
		Tags:        []string{"bags", "canvas"},
		Variants: []model.ProductVariant{
			{Title: "Small", SKU: "CT-S", Price: "29.99", Stock: 12},
			{Title: "Large", SKU: "CT-L", Price: "34.99", Stock: 3},
		},
		CreatedAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestBuildDocument_ProductFields(t *testing.T) {
	doc := BuildDocument(sampleProduct(), "t-1")
	require.Equal(t, "t-1:product:p-1", doc.ID)
	require.Equal(t, model.KindProduct, doc.Kind)
	require.Equal(t, "p-1", doc.SourceEntityID)

	require.Contains(t, doc.Text, "Product: Canvas Tote")
	require.Contains(t, doc.Text, "Tags: bags, canvas")
	require.Contains(t, doc.Text, "Small (SKU CT-S) 29.99, stock 12; Large (SKU CT-L) 34.99, stock 3")
	// markdown emphasis stripped during sanitization
	require.NotContains(t, doc.Text, "**")
	require.Contains(t, doc.Text, "sturdy")
}

func TestBuildDocument_OmitsAbsentOptionalFields(t *testing.T) {
	doc := BuildDocument(model.Product{ID: "p-2", Title: "Bare"}, "t-1")
	for _, line := range strings.Split(doc.Text, "\n") {
		require.NotEmpty(t, strings.TrimSpace(line))
		require.False(t, strings.HasSuffix(line, ": "), "line %q has empty value", line)
	}
	require.NotContains(t, doc.Text, "Vendor")
	require.NotContains(t, doc.Text, "Variants")
}

func TestBuildDocument_Deterministic(t *testing.T) {
	p := sampleProduct()
	a := BuildDocument(p, "t-1")
	b := BuildDocument(p, "t-1")
	require.Equal(t, a.ID, b.ID)
	require.Equal(t, a.Text, b.Text)
}

func TestBuildDocument_OrderLineItems(t *testing.T) {
	order := model.Order{
		ID:              "o-1",
		OrderNumber:     "#1001",
		CustomerName:    "Jo Doe",
		FinancialStatus: "paid",
		TotalPrice:      "64.98",
		Currency:        "USD",
		LineItems: []model.LineItem{
			{Title: "Canvas Tote", Quantity: 2, Price: "29.99"},
			{Title: "Sticker", Quantity: 1, Price: "5.00"},
		},
	}
	doc := BuildDocument(order, "t-1")
	require.Contains(t, doc.Text, "Order: #1001")
	require.Contains(t, doc.Text, "Total: 64.98 USD")
	require.Contains(t, doc.Text, "2x Canvas Tote at 29.99; 1x Sticker at 5.00")
}

func TestBuildDocument_CustomerAndStore(t *testing.T) {
	customer := model.Customer{ID: "c-1", FirstName: "Sam", LastName: "Lee", Email: "sam@example.com", OrdersCount: 4, TotalSpent: "120.00"}
	doc := BuildDocument(customer, "t-1")
	require.Contains(t, doc.Text, "Customer: Sam Lee")
	require.Contains(t, doc.Text, "Orders: 4")

	store := model.Store{ID: "s-1", Name: "Acme Shop", Domain: "acme.example.com", Currency: "USD"}
	doc = BuildDocument(store, "t-1")
	require.Contains(t, doc.Text, "Store: Acme Shop")
	require.NotContains(t, doc.Text, "Plan")
}

func TestSanitize_CollapsesWhitespace(t *testing.T) {
	require.Equal(t, "one two three", Sanitize("  one \t two\n\nthree  "))
	require.Equal(t, "", Sanitize("   "))
}

func TestSanitize_StripsMarkup(t *testing.T) {
	out := Sanitize("# Heading\n\nSome *emphasis* and a [link](http://example.com)")
	require.NotContains(t, out, "#")
	require.NotContains(t, out, "*")
	require.NotContains(t, out, "[")
	require.Contains(t, out, "Heading")
	require.Contains(t, out, "emphasis")
	require.Contains(t, out, "link")
}
