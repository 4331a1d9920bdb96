package shop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/merchantkit/storesync/internal/model"
)

// RESTClient talks to the e-commerce platform's JSON API. A shared client-side
// rate limiter keeps the process under the platform's request budget even when
// several tenant syncs run at once.
type RESTClient struct {
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	pageLimit int
}

type RESTClientConfig struct {
	BaseURL        string
	RequestsPerSec float64
	Timeout        time.Duration
	PageLimit      int
}

func NewRESTClient(cfg RESTClientConfig) *RESTClient {
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 250
	}
	return &RESTClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), int(cfg.RequestsPerSec)+1),
		pageLimit: cfg.PageLimit,
	}
}

type storeDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	Description string `json:"description"`
	Currency    string `json:"currency"`
	Country     string `json:"country"`
	Plan        string `json:"plan_name"`
}

type variantDTO struct {
	Title             string `json:"title"`
	SKU               string `json:"sku"`
	Price             string `json:"price"`
	InventoryQuantity int    `json:"inventory_quantity"`
}

type productDTO struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	BodyHTML       string       `json:"body_html"`
	Vendor         string       `json:"vendor"`
	ProductType    string       `json:"product_type"`
	Status         string       `json:"status"`
	Price          string       `json:"price"`
	CompareAtPrice string       `json:"compare_at_price"`
	Tags           string       `json:"tags"`
	Categories     []string     `json:"categories"`
	Variants       []variantDTO `json:"variants"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

type lineItemDTO struct {
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

type orderDTO struct {
	ID                string        `json:"id"`
	OrderNumber       string        `json:"order_number"`
	CustomerName      string        `json:"customer_name"`
	Email             string        `json:"email"`
	FinancialStatus   string        `json:"financial_status"`
	FulfillmentStatus string        `json:"fulfillment_status"`
	TotalPrice        string        `json:"total_price"`
	Currency          string        `json:"currency"`
	LineItems         []lineItemDTO `json:"line_items"`
	CreatedAt         time.Time     `json:"created_at"`
}

type customerDTO struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	City        string    `json:"city"`
	Country     string    `json:"country"`
	OrdersCount int       `json:"orders_count"`
	TotalSpent  string    `json:"total_spent"`
	CreatedAt   time.Time `json:"created_at"`
}

func (c *RESTClient) GetStoreInfo(ctx context.Context, tenantID string, token string) (*model.Store, error) {
	var out struct {
		Store storeDTO `json:"store"`
	}
	if err := c.get(ctx, tenantID, token, "store.json", nil, &out); err != nil {
		return nil, err
	}
	store := model.Store{
		ID:          out.Store.ID,
		Name:        out.Store.Name,
		Domain:      out.Store.Domain,
		Description: out.Store.Description,
		Currency:    out.Store.Currency,
		Country:     out.Store.Country,
		Plan:        out.Store.Plan,
	}
	return &store, nil
}

func (c *RESTClient) GetProducts(ctx context.Context, tenantID string, token string, opts ListOptions) ([]model.Product, error) {
	var out struct {
		Products []productDTO `json:"products"`
	}
	if err := c.get(ctx, tenantID, token, "products.json", c.listQuery(opts), &out); err != nil {
		return nil, err
	}
	products := make([]model.Product, 0, len(out.Products))
	for _, dto := range out.Products {
		variants := make([]model.ProductVariant, 0, len(dto.Variants))
		for _, v := range dto.Variants {
			variants = append(variants, model.ProductVariant{
				Title: v.Title,
				SKU:   v.SKU,
				Price: v.Price,
				Stock: v.InventoryQuantity,
			})
		}
		products = append(products, model.Product{
			ID:             dto.ID,
			Title:          dto.Title,
			Description:    dto.BodyHTML,
			Vendor:         dto.Vendor,
			ProductType:    dto.ProductType,
			Status:         dto.Status,
			Price:          dto.Price,
			CompareAtPrice: dto.CompareAtPrice,
			Tags:           splitTags(dto.Tags),
			Categories:     dto.Categories,
			Variants:       variants,
			CreatedAt:      dto.CreatedAt,
			UpdatedAt:      dto.UpdatedAt,
		})
	}
	return products, nil
}

func (c *RESTClient) GetOrders(ctx context.Context, tenantID string, token string, opts ListOptions) ([]model.Order, error) {
	var out struct {
		Orders []orderDTO `json:"orders"`
	}
	if err := c.get(ctx, tenantID, token, "orders.json", c.listQuery(opts), &out); err != nil {
		return nil, err
	}
	orders := make([]model.Order, 0, len(out.Orders))
	for _, dto := range out.Orders {
		items := make([]model.LineItem, 0, len(dto.LineItems))
		for _, item := range dto.LineItems {
			items = append(items, model.LineItem{Title: item.Title, Quantity: item.Quantity, Price: item.Price})
		}
		orders = append(orders, model.Order{
			ID:                dto.ID,
			OrderNumber:       dto.OrderNumber,
			CustomerName:      dto.CustomerName,
			CustomerEmail:     dto.Email,
			FinancialStatus:   dto.FinancialStatus,
			FulfillmentStatus: dto.FulfillmentStatus,
			TotalPrice:        dto.TotalPrice,
			Currency:          dto.Currency,
			LineItems:         items,
			CreatedAt:         dto.CreatedAt,
		})
	}
	return orders, nil
}

func (c *RESTClient) GetCustomers(ctx context.Context, tenantID string, token string, opts ListOptions) ([]model.Customer, error) {
	var out struct {
		Customers []customerDTO `json:"customers"`
	}
	if err := c.get(ctx, tenantID, token, "customers.json", c.listQuery(opts), &out); err != nil {
		return nil, err
	}
	customers := make([]model.Customer, 0, len(out.Customers))
	for _, dto := range out.Customers {
		customers = append(customers, model.Customer{
			ID:          dto.ID,
			FirstName:   dto.FirstName,
			LastName:    dto.LastName,
			Email:       dto.Email,
			City:        dto.City,
			Country:     dto.Country,
			OrdersCount: dto.OrdersCount,
			TotalSpent:  dto.TotalSpent,
			CreatedAt:   dto.CreatedAt,
		})
	}
	return customers, nil
}

func (c *RESTClient) listQuery(opts ListOptions) url.Values {
	values := url.Values{}
	limit := opts.Limit
	if limit <= 0 || limit > c.pageLimit {
		limit = c.pageLimit
	}
	values.Set("limit", strconv.Itoa(limit))
	if !opts.ModifiedSince.IsZero() {
		values.Set("updated_at_min", opts.ModifiedSince.UTC().Format(time.RFC3339))
	}
	return values
}

func (c *RESTClient) get(ctx context.Context, tenantID, token, path string, query url.Values, dst interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(tenantID), path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrAuthExpired
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("shop api %s: %s: %s", path, resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
