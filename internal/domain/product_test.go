package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		product Product
	}{
		{
			name: "produto completo",
			product: Product{
				ID:                 1,
				Title:              "iPhone 9",
				Description:        "An apple mobile which is nothing like apple",
				Price:              549,
				DiscountPercentage: 12.96,
				Rating:             4.69,
				Stock:              94,
				Brand:              "Apple",
				Category:           "smartphones",
				Thumbnail:          "https://cdn.dummyjson.com/product-images/1/thumbnail.jpg",
				Images:             []string{"https://cdn.dummyjson.com/product-images/1/1.jpg"},
			},
		},
		{
			name:    "produto sem id",
			product: Product{Title: "BMW Pencil", Price: 1.5, Category: "stationery"},
		},
		{
			name: "campos vazios enviados pelo serviço",
			product: Product{
				ID:        8,
				Title:     "Tree Oil",
				Brand:     "",
				Thumbnail: "",
				Images:    []string{},
			},
		},
		{
			name: "atributos extras preservados",
			product: Product{
				ID:    7,
				Title: "Samsung Galaxy Book",
				Extra: map[string]json.RawMessage{
					"sku":  json.RawMessage(`"SGB-7"`),
					"tags": json.RawMessage(`["laptops","samsung"]`),
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(tt.product)
			require.NoError(t, err)

			var got Product
			require.NoError(t, json.Unmarshal(body, &got))
			assert.Equal(t, tt.product, got)
		})
	}
}

func TestProductExtraDoesNotShadowKnownFields(t *testing.T) {
	p := Product{
		ID:    3,
		Title: "real",
		Extra: map[string]json.RawMessage{"title": json.RawMessage(`"shadow"`)},
	}

	body, err := json.Marshal(p)
	require.NoError(t, err)

	var got Product
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "real", got.Title)
	assert.Nil(t, got.Extra)
}

func TestProductDecodeKeepsUnknownAttributes(t *testing.T) {
	body := `{"id":2,"title":"iPhone X","price":899,"category":"smartphones","meta":{"barcode":"123"}}`

	var p Product
	require.NoError(t, json.Unmarshal([]byte(body), &p))

	assert.Equal(t, 2, p.ID)
	assert.Equal(t, 899.0, p.Price)
	require.Contains(t, p.Extra, "meta")
	assert.JSONEq(t, `{"barcode":"123"}`, string(p.Extra["meta"]))

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":2,"title":"iPhone X","description":"","price":899,"discountPercentage":0,"rating":0,"stock":0,"brand":"","category":"smartphones","thumbnail":"","images":null,"meta":{"barcode":"123"}}`, string(out))
}

func TestProductReencodesEmptyValuedKeys(t *testing.T) {
	body := `{"id":1,"title":"a","description":"","price":0,"discountPercentage":0,"rating":0,"stock":0,"brand":"","category":"","thumbnail":"","images":[]}`

	var p Product
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	assert.Equal(t, []string{}, p.Images)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, body, string(out))
}

func TestProductDecodeRequiresID(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{name: "nulo", body: `null`, want: ErrNullProduct},
		{name: "objeto vazio", body: `{}`, want: ErrMissingID},
		{name: "sem id", body: `{"title":"x"}`, want: ErrMissingID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Product
			err := json.Unmarshal([]byte(tt.body), &p)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestProductDecodeRejectsWrongTypes(t *testing.T) {
	var p Product
	err := json.Unmarshal([]byte(`{"id":"um","title":"x"}`), &p)
	assert.Error(t, err)
}

func TestProductPageDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{name: "duas entradas", body: `{"products":[{"id":1},{"id":2}],"total":2,"skip":0,"limit":30}`, want: 2},
		{name: "lista vazia", body: `{"products":[],"total":0}`, want: 0},
		{name: "sem products", body: `{"total":0}`, wantErr: true},
		{name: "products nulo", body: `{"products":null}`, wantErr: true},
		{name: "products com tipo errado", body: `{"products":"nada"}`, wantErr: true},
		{name: "produto nulo", body: `{"products":[null]}`, wantErr: true},
		{name: "produto vazio", body: `{"products":[{}]}`, wantErr: true},
		{name: "produto sem id", body: `{"products":[{"title":"x"}]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var page ProductPage
			err := json.Unmarshal([]byte(tt.body), &page)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, page.Products, tt.want)
		})
	}
}

func TestProductDisplayPrice(t *testing.T) {
	assert.Equal(t, "$549.00", Product{Price: 549}.DisplayPrice())
	assert.Equal(t, "$12.50", Product{Price: 12.5}.DisplayPrice())
}
