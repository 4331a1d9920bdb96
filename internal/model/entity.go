package model

import "time"

type EntityKind string

const (
	KindStore     EntityKind = "store"
	KindProduct   EntityKind = "product"
	KindOrder     EntityKind = "order"
	KindCustomer  EntityKind = "customer"
	KindAnalytics EntityKind = "analytics"
)

// Entity is the closed set of raw snapshots fetched from the e-commerce API.
// Only the types in this file implement it.
type Entity interface {
	Kind() EntityKind
	EntityID() string
}

type Store struct {
	ID          string
	Name        string
	Domain      string
	Description string
	Currency    string
	Country     string
	Plan        string
}

func (Store) Kind() EntityKind   { return KindStore }
func (s Store) EntityID() string { return s.ID }

type ProductVariant struct {
	Title string
	SKU   string
	Price string
	Stock int
}

type Product struct {
	ID             string
	Title          string
	Description    string
	Vendor         string
	ProductType    string
	Status         string
	Price          string
	CompareAtPrice string
	Tags           []string
	Categories     []string
	Variants       []ProductVariant
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Product) Kind() EntityKind   { return KindProduct }
func (p Product) EntityID() string { return p.ID }

type LineItem struct {
	Title    string
	Quantity int
	Price    string
}

type Order struct {
	ID                string
	OrderNumber       string
	CustomerName      string
	CustomerEmail     string
	FinancialStatus   string
	FulfillmentStatus string
	TotalPrice        string
	Currency          string
	LineItems         []LineItem
	CreatedAt         time.Time
}

func (Order) Kind() EntityKind   { return KindOrder }
func (o Order) EntityID() string { return o.ID }

type Customer struct {
	ID          string
	FirstName   string
	LastName    string
	Email       string
	City        string
	Country     string
	OrdersCount int
	TotalSpent  string
	CreatedAt   time.Time
}

func (Customer) Kind() EntityKind   { return KindCustomer }
func (c Customer) EntityID() string { return c.ID }

type AnalyticsSnapshot struct {
	ID           string
	PeriodStart  time.Time
	PeriodEnd    time.Time
	TotalOrders  int
	TotalRevenue string
	NewCustomers int
	TopProducts  []string
}

func (AnalyticsSnapshot) Kind() EntityKind   { return KindAnalytics }
func (a AnalyticsSnapshot) EntityID() string { return a.ID }
