package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/service"
)

func TestInvoiceRendererWritesWorkbook(t *testing.T) {
	inv := service.Invoice{
		OrderID:      "0190a1b2-0000-7000-8000-000000000001",
		OrderedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		CustomerName: "Sara Ali",
		Address:      domain.Address{Street: "King Fahd Rd", City: "Riyadh", Country: "SA"},
		Lines: []service.InvoiceLine{
			{ProductID: "1", Name: "Earbuds", Quantity: 2, UnitPrice: decimal.NewFromInt(10), Amount: decimal.NewFromInt(20)},
		},
		Subtotal: decimal.NewFromInt(20),
		Shipping: decimal.NewFromInt(25),
		Tax:      decimal.RequireFromString("6.75"),
		Total:    decimal.RequireFromString("51.75"),
		Currency: "SAR",
	}

	var buf bytes.Buffer
	r := InvoiceRenderer{}
	require.NoError(t, r.Render(&buf, inv))
	assert.Equal(t, ContentTypeXLSX, r.ContentType())
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("PK")), "xlsx output is a zip archive")
}

func TestCatalogWorkbookRoundTrip(t *testing.T) {
	old := decimal.RequireFromString("449.00")
	products := []domain.Product{
		{ID: "1", Name: "Wireless Earbuds Pro", Price: decimal.RequireFromString("349.00"), OldPrice: &old, Category: "Electronics", Brand: "Sonic", Rating: 4.6, Inventory: 40},
		{ID: "2", Name: "Dates Box", Price: decimal.RequireFromString("95.50"), Category: "Food", Inventory: 0},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCatalog(&buf, products))

	got, skipped, err := ReadCatalog(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, got, 2)

	assert.Equal(t, "Wireless Earbuds Pro", got[0].Name)
	assert.True(t, got[0].Price.Equal(products[0].Price))
	require.NotNil(t, got[0].OldPrice)
	assert.True(t, got[0].OldPrice.Equal(old))
	assert.Equal(t, 40, got[0].Inventory)
	assert.True(t, got[0].InStock)

	assert.Nil(t, got[1].OldPrice)
	assert.False(t, got[1].InStock)
	assert.Equal(t, "Food", got[1].Category)
}

func TestReadCatalogRejectsGarbage(t *testing.T) {
	data := []byte("not a workbook")
	_, _, err := ReadCatalog(bytes.NewReader(data), int64(len(data)))
	assert.Error(t, err)
}
