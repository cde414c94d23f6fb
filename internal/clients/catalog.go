package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/catalog"
)

// maxCatalogPages bounds how many pages one listing will follow.
const maxCatalogPages = 50

type ProductClient struct {
	c       *Client
	perPage int
}

func NewProductClient(c *Client, perPage int) *ProductClient {
	if perPage <= 0 {
		perPage = 100
	}
	return &ProductClient{c: c, perPage: perPage}
}

// ListProducts walks every page of GET /products. search is optional.
func (pc *ProductClient) ListProducts(ctx context.Context, search string) ([]catalog.Product, error) {
	var out []catalog.Product
	for pageNo := 1; pageNo <= maxCatalogPages; pageNo++ {
		q := url.Values{}
		q.Set("per_page", strconv.Itoa(pc.perPage))
		q.Set("page", strconv.Itoa(pageNo))
		if search != "" {
			q.Set("search", search)
		}

		var data json.RawMessage
		if err := pc.c.DoJSON(ctx, http.MethodGet, "/products", q.Encode(), nil, &data); err != nil {
			return nil, err
		}

		items, more, err := decodeProductPage(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pc.c.Name, err)
		}
		out = append(out, items...)
		if !more {
			return out, nil
		}
	}
	return out, nil
}

// decodeProductPage accepts either a paginator object or a bare array.
func decodeProductPage(data json.RawMessage) ([]catalog.Product, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []catalog.Product
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, false, fmt.Errorf("decode products: %w", err)
		}
		return items, false, nil
	}

	var p page
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false, fmt.Errorf("decode product page: %w", err)
	}
	var items []catalog.Product
	if len(p.Data) > 0 {
		if err := json.Unmarshal(p.Data, &items); err != nil {
			return nil, false, fmt.Errorf("decode products: %w", err)
		}
	}
	return items, p.CurrentPage < p.LastPage, nil
}

type PaymentMethodClient struct{ c *Client }

func NewPaymentMethodClient(c *Client) *PaymentMethodClient { return &PaymentMethodClient{c: c} }

func (pmc *PaymentMethodClient) ListPaymentMethods(ctx context.Context) ([]catalog.PaymentMethod, error) {
	var methods []catalog.PaymentMethod
	if err := pmc.c.DoJSON(ctx, http.MethodGet, "/payment-methods", "", nil, &methods); err != nil {
		return nil, err
	}
	return methods, nil
}
