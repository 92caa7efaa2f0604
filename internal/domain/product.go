package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Product is one catalog item as exchanged with the catalog service.
type Product struct {
	ID                 int      `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Price              float64  `json:"price"`
	DiscountPercentage float64  `json:"discountPercentage"`
	Rating             float64  `json:"rating"`
	Stock              int      `json:"stock"`
	Brand              string   `json:"brand"`
	Category           string   `json:"category"`
	Thumbnail          string   `json:"thumbnail"`
	Images             []string `json:"images"`

	// Extra holds attributes returned by the service that have no field above,
	// so a decoded product re-encodes without losing them.
	Extra map[string]json.RawMessage `json:"-"`
}

// productFields has the same layout as Product without its JSON methods.
type productFields Product

var productKeys = []string{
	"id", "title", "description", "price", "discountPercentage", "rating",
	"stock", "brand", "category", "thumbnail", "images",
}

var (
	ErrNullProduct = errors.New("produto nulo")
	ErrMissingID   = errors.New("campo id ausente no produto")
)

func (p *Product) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return ErrNullProduct
	}

	var fields productFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if _, ok := raw["id"]; !ok {
		return ErrMissingID
	}
	for _, key := range productKeys {
		delete(raw, key)
	}

	fields.Extra = nil
	if len(raw) > 0 {
		fields.Extra = raw
	}

	*p = Product(fields)
	return nil
}

func (p Product) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(productFields(p))
	if err != nil || len(p.Extra) == 0 {
		return body, err
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(body, &merged); err != nil {
		return nil, err
	}
	for key, value := range p.Extra {
		if _, known := merged[key]; known {
			continue
		}
		merged[key] = value
	}

	return json.Marshal(merged)
}

func (p Product) DisplayPrice() string {
	return fmt.Sprintf("$%.2f", p.Price)
}

// ErrMissingProducts is returned when a page body has no products array.
var ErrMissingProducts = errors.New("campo products ausente na resposta")

// ProductPage is the list/search response envelope.
type ProductPage struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Skip     int       `json:"skip"`
	Limit    int       `json:"limit"`
}

type productPageFields struct {
	Products *[]Product `json:"products"`
	Total    int        `json:"total"`
	Skip     int        `json:"skip"`
	Limit    int        `json:"limit"`
}

func (pp *ProductPage) UnmarshalJSON(data []byte) error {
	var fields productPageFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields.Products == nil {
		return ErrMissingProducts
	}

	*pp = ProductPage{
		Products: *fields.Products,
		Total:    fields.Total,
		Skip:     fields.Skip,
		Limit:    fields.Limit,
	}
	return nil
}

// OrderType is a takeaway order option decoded from a bundled JSON list.
type OrderType struct {
	Title string `json:"title"`
	Image string `json:"image"`
}

type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ProductChange describes a mutation the catalog service accepted.
type ProductChange struct {
	EventID    string     `json:"event_id"`
	Kind       ChangeKind `json:"kind"`
	ProductID  int        `json:"product_id"`
	Product    *Product   `json:"product,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}
