package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// FlexID is an identifier the backend sends either as a number or a string
type FlexID string

func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexID(n.String())
	return nil
}

func (id FlexID) String() string {
	return string(id)
}

type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
	Count    *struct {
		Products int `json:"products"`
	} `json:"_count,omitempty"`
}

// ProductCount is the number of products, or -1 when the backend did not count
func (c Category) ProductCount() int {
	if c.Count == nil {
		return -1
	}
	return c.Count.Products
}

type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ProductImage struct {
	ID  int64  `json:"id,omitempty"`
	URL string `json:"url"`
}

type VariantOption struct {
	ID    int64  `json:"id"`
	Value string `json:"value"`
}

type Variant struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Options []VariantOption `json:"options"`
}

type Product struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       float64        `json:"price"`
	Category    CategoryRef    `json:"category"`
	Images      []ProductImage `json:"images"`
	Variants    []Variant      `json:"variants,omitempty"`
}

// MainImage is the first image URL, or "" when the product has none
func (p Product) MainImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

// VariantInput is a variant as the product form submits it
type VariantInput struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

// ProductInput is the body of product create and update
type ProductInput struct {
	Name        string
	Description string
	Price       float64
	CategoryID  int64
	Variants    []VariantInput
	Images      []File
}

func (in ProductInput) form() (Form, error) {
	// blank variants and options are dropped before sending
	variants := make([]VariantInput, 0, len(in.Variants))
	for _, v := range in.Variants {
		opts := make([]string, 0, len(v.Options))
		for _, o := range v.Options {
			if o = strings.TrimSpace(o); o != "" {
				opts = append(opts, o)
			}
		}
		if name := strings.TrimSpace(v.Name); name != "" && len(opts) > 0 {
			variants = append(variants, VariantInput{Name: name, Options: opts})
		}
	}
	encoded, err := json.Marshal(variants)
	if err != nil {
		return Form{}, err
	}

	return Form{
		Fields: map[string]string{
			"name":        in.Name,
			"description": in.Description,
			"price":       strconv.FormatFloat(in.Price, 'f', -1, 64),
			"categoryId":  strconv.FormatInt(in.CategoryID, 10),
			"variants":    string(encoded),
		},
		Files: map[string][]File{"images": in.Images},
	}, nil
}

type CarouselImage struct {
	ID       FlexID `json:"id"`
	ImageURL string `json:"imageUrl"`
	Order    int    `json:"order"`
	IsActive bool   `json:"isActive"`
}

// CarouselSlot is one entry of a bulk carousel update
type CarouselSlot struct {
	ID       FlexID `json:"id,omitempty"`
	ImageURL string `json:"imageUrl"`
	Order    int    `json:"order"`
}

type SaleProduct struct {
	Product struct {
		ID    int64   `json:"id"`
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	} `json:"product"`
}

// Sale is a sale as the back office lists it
type Sale struct {
	ID              int64         `json:"id"`
	Total           float64       `json:"total"`
	CreatedAt       time.Time     `json:"createdAt"`
	DeliveryMethod  string        `json:"deliveryMethod"`
	ShippingAddress *string       `json:"shippingAddress"`
	PostalCode      *string       `json:"postalCode"`
	ShippingCost    *float64      `json:"shippingCost"`
	User            SaleUser      `json:"user"`
	SaleProducts    []SaleProduct `json:"saleProducts"`
}

type SaleUser struct {
	ID    int64   `json:"id"`
	Email string  `json:"email"`
	Phone *string `json:"phone"`
}

// Order is a sale as its buyer sees it
type Order struct {
	ID           int64         `json:"id"`
	Total        float64       `json:"total"`
	Status       string        `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	SaleProducts []SaleProduct `json:"saleProducts"`
}

const (
	DeliveryShipping = "shipping"
	DeliveryPickup   = "pickup"
)

type CreateSaleRequest struct {
	UserID          int64   `json:"userId"`
	ProductIDs      []int64 `json:"productIds"`
	DeliveryMethod  string  `json:"deliveryMethod"`
	ShippingAddress string  `json:"shippingAddress,omitempty"`
	PostalCode      string  `json:"postalCode,omitempty"`
}

type CreateSaleResponse struct {
	ID           int64    `json:"id,omitempty"`
	Total        float64  `json:"total"`
	ShippingCost *float64 `json:"shippingCost,omitempty"`
}

type ShippingEstimateRequest struct {
	Address    string `json:"address"`
	PostalCode string `json:"postalCode,omitempty"`
}

type PreferenceItem struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type PreferenceRequest struct {
	Email string           `json:"email"`
	Cart  []PreferenceItem `json:"cart"`
	Total float64          `json:"total"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse accepts both camelCase and snake_case token fields
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (r *LoginResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		AccessToken       string `json:"accessToken"`
		RefreshToken      string `json:"refreshToken"`
		AccessTokenSnake  string `json:"access_token"`
		RefreshTokenSnake string `json:"refresh_token"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.AccessToken = firstNonEmpty(raw.AccessToken, raw.AccessTokenSnake)
	r.RefreshToken = firstNonEmpty(raw.RefreshToken, raw.RefreshTokenSnake)
	return nil
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Recaptcha string `json:"recaptcha,omitempty"`
}

type CreateAdminRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Role           string `json:"role"`
	RecaptchaToken string `json:"recaptchaToken,omitempty"`
}

type SearchProduct struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	ImageURL     string  `json:"imageUrl"`
	CategoryName string  `json:"categoryName"`
}

type SearchCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type SearchResult struct {
	Products   []SearchProduct  `json:"products"`
	Categories []SearchCategory `json:"categories"`
}

func (r SearchResult) Empty() bool {
	return len(r.Products) == 0 && len(r.Categories) == 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
