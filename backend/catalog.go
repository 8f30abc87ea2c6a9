package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// CategoryFilter maps to the query flags of GET /category
type CategoryFilter struct {
	HideEmpty  bool
	WithCounts bool
	OnlyActive *bool
}

func (f CategoryFilter) query() url.Values {
	q := url.Values{}
	if f.HideEmpty {
		q.Set("hideEmpty", "true")
	}
	if f.WithCounts {
		q.Set("withCounts", "true")
	}
	if f.OnlyActive != nil {
		q.Set("onlyActive", strconv.FormatBool(*f.OnlyActive))
	}
	return q
}

// HomeCategories is the filter the home page uses
func HomeCategories() CategoryFilter {
	onlyActive := false
	return CategoryFilter{HideEmpty: true, WithCounts: true, OnlyActive: &onlyActive}
}

func (c *Client) Categories(ctx context.Context, filter CategoryFilter) ([]Category, error) {
	var out []Category
	if err := c.getJSON(ctx, "/category", filter.query(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCategory uploads a category with its image
func (c *Client) CreateCategory(ctx context.Context, name string, image File) (*Category, error) {
	var out Category
	form := Form{
		Fields: map[string]string{"name": name},
		Files:  map[string][]File{"image": {image}},
	}
	if err := c.sendMultipart(ctx, http.MethodPost, "/category", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/category/%d", id), nil, nil, nil)
}

// Products lists products, optionally limited to one category (0 means all)
func (c *Client) Products(ctx context.Context, categoryID int64) ([]Product, error) {
	q := url.Values{}
	if categoryID > 0 {
		q.Set("categoryId", strconv.FormatInt(categoryID, 10))
	}
	var out []Product
	if err := c.getJSON(ctx, "/product", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Product(ctx context.Context, id int64) (*Product, error) {
	var out Product
	if err := c.getJSON(ctx, fmt.Sprintf("/product/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	return c.saveProduct(ctx, http.MethodPost, "/product", in)
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*Product, error) {
	return c.saveProduct(ctx, http.MethodPut, fmt.Sprintf("/product/%d", id), in)
}

func (c *Client) saveProduct(ctx context.Context, method, path string, in ProductInput) (*Product, error) {
	form, err := in.form()
	if err != nil {
		return nil, fmt.Errorf("product form: %w", err)
	}
	var out Product
	if err := c.sendMultipart(ctx, method, path, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/product/%d", id), nil, nil, nil)
}
