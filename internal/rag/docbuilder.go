package rag

import (
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/merchantkit/storesync/internal/model"
)

// BuildDocument flattens one entity snapshot into a newline-joined text block.
// Deterministic: the same snapshot always yields the same document id and text,
// which is what makes re-indexing idempotent.
func BuildDocument(entity model.Entity, tenantID string) model.Document {
	var text string
	switch e := entity.(type) {
	case model.Store:
		text = buildStoreText(e)
	case model.Product:
		text = buildProductText(e)
	case model.Order:
		text = buildOrderText(e)
	case model.Customer:
		text = buildCustomerText(e)
	case model.AnalyticsSnapshot:
		text = buildAnalyticsText(e)
	}
	return model.Document{
		ID:             DocumentID(tenantID, entity.Kind(), entity.EntityID()),
		TenantID:       tenantID,
		Kind:           entity.Kind(),
		SourceEntityID: entity.EntityID(),
		Text:           text,
		CreatedAt:      time.Now(),
	}
}

// DocumentID is stable per (tenant, kind, entity) so chunk ids survive resync.
func DocumentID(tenantID string, kind model.EntityKind, entityID string) string {
	return fmt.Sprintf("%s:%s:%s", tenantID, kind, entityID)
}

type fieldList struct {
	lines []string
}

// add appends "label: value"; absent optional values are omitted rather than
// emitting empty lines.
func (f *fieldList) add(label, value string) {
	value = Sanitize(value)
	if value == "" {
		return
	}
	f.lines = append(f.lines, label+": "+value)
}

func (f *fieldList) join() string {
	return strings.Join(f.lines, "\n")
}

func buildStoreText(s model.Store) string {
	var f fieldList
	f.add("Store", s.Name)
	f.add("Domain", s.Domain)
	f.add("Description", s.Description)
	f.add("Currency", s.Currency)
	f.add("Country", s.Country)
	f.add("Plan", s.Plan)
	return f.join()
}

func buildProductText(p model.Product) string {
	var f fieldList
	f.add("Product", p.Title)
	f.add("Description", p.Description)
	f.add("Vendor", p.Vendor)
	f.add("Type", p.ProductType)
	f.add("Status", p.Status)
	f.add("Price", p.Price)
	f.add("Compare at price", p.CompareAtPrice)
	f.add("Tags", strings.Join(p.Tags, ", "))
	f.add("Categories", strings.Join(p.Categories, ", "))
	if len(p.Variants) > 0 {
		parts := make([]string, 0, len(p.Variants))
		for _, v := range p.Variants {
			part := v.Title
			if v.SKU != "" {
				part += " (SKU " + v.SKU + ")"
			}
			if v.Price != "" {
				part += " " + v.Price
			}
			part += fmt.Sprintf(", stock %d", v.Stock)
			parts = append(parts, part)
		}
		f.add("Variants", strings.Join(parts, "; "))
	}
	if !p.CreatedAt.IsZero() {
		f.add("Created", p.CreatedAt.Format("2006-01-02"))
	}
	if !p.UpdatedAt.IsZero() {
		f.add("Updated", p.UpdatedAt.Format("2006-01-02"))
	}
	return f.join()
}

func buildOrderText(o model.Order) string {
	var f fieldList
	f.add("Order", o.OrderNumber)
	f.add("Customer", o.CustomerName)
	f.add("Email", o.CustomerEmail)
	f.add("Payment status", o.FinancialStatus)
	f.add("Fulfillment status", o.FulfillmentStatus)
	if o.TotalPrice != "" {
		total := o.TotalPrice
		if o.Currency != "" {
			total += " " + o.Currency
		}
		f.add("Total", total)
	}
	if len(o.LineItems) > 0 {
		parts := make([]string, 0, len(o.LineItems))
		for _, item := range o.LineItems {
			part := fmt.Sprintf("%dx %s", item.Quantity, item.Title)
			if item.Price != "" {
				part += " at " + item.Price
			}
			parts = append(parts, part)
		}
		f.add("Items", strings.Join(parts, "; "))
	}
	if !o.CreatedAt.IsZero() {
		f.add("Placed", o.CreatedAt.Format("2006-01-02"))
	}
	return f.join()
}

func buildCustomerText(c model.Customer) string {
	var f fieldList
	f.add("Customer", strings.TrimSpace(c.FirstName+" "+c.LastName))
	f.add("Email", c.Email)
	f.add("City", c.City)
	f.add("Country", c.Country)
	if c.OrdersCount > 0 {
		f.add("Orders", fmt.Sprintf("%d", c.OrdersCount))
	}
	f.add("Total spent", c.TotalSpent)
	if !c.CreatedAt.IsZero() {
		f.add("Customer since", c.CreatedAt.Format("2006-01-02"))
	}
	return f.join()
}

func buildAnalyticsText(a model.AnalyticsSnapshot) string {
	var f fieldList
	if !a.PeriodStart.IsZero() && !a.PeriodEnd.IsZero() {
		f.add("Period", a.PeriodStart.Format("2006-01-02")+" to "+a.PeriodEnd.Format("2006-01-02"))
	}
	if a.TotalOrders > 0 {
		f.add("Total orders", fmt.Sprintf("%d", a.TotalOrders))
	}
	f.add("Total revenue", a.TotalRevenue)
	if a.NewCustomers > 0 {
		f.add("New customers", fmt.Sprintf("%d", a.NewCustomers))
	}
	f.add("Top products", strings.Join(a.TopProducts, ", "))
	return f.join()
}

// Sanitize strips markup and collapses whitespace. Product descriptions often
// arrive as markdown or HTML fragments; only their text content should reach
// the embedding model.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "#*`[<_>!") {
		s = stripMarkup(s)
	}
	return strings.Join(strings.Fields(s), " ")
}

func stripMarkup(s string) string {
	md := goldmark.New()
	source := []byte(s)
	reader := text.NewReader(source)
	doc := md.Parser().Parse(reader)

	var sb strings.Builder
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if node.Type() == ast.TypeBlock {
				sb.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Text:
			sb.Write(n.Segment.Value(source))
			sb.WriteByte(' ')
		case *ast.AutoLink:
			sb.Write(n.URL(source))
			sb.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}
