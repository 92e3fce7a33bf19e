// Package export renders storefront documents as Excel workbooks.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/service"
)

// ContentTypeXLSX is the media type of an Excel workbook.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var catalogHeaders = []string{
	"ID", "Name", "Description", "Price", "OldPrice", "Image", "Category",
	"Brand", "SellerID", "Rating", "Inventory", "CreatedAt",
}

// InvoiceRenderer writes invoices as a single-sheet workbook.
type InvoiceRenderer struct {
	// Text labels the invoice in the active language. Optional.
	Text service.Translator
}

var _ service.InvoiceRenderer = InvoiceRenderer{}

func (InvoiceRenderer) ContentType() string {
	return ContentTypeXLSX
}

func (r InvoiceRenderer) Render(w io.Writer, inv service.Invoice) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(r.label("invoice.title", "Invoice"))
	if err != nil {
		return fmt.Errorf("add invoice sheet: %w", err)
	}

	addRow(sheet, r.label("invoice.title", "Invoice"), inv.OrderID)
	addRow(sheet, "Date", inv.OrderedAt.Format("2006-01-02"))
	addRow(sheet, "Customer", inv.CustomerName)
	addRow(sheet, "Phone", inv.Phone)
	addRow(sheet, "Address", formatAddress(inv.Address))
	sheet.AddRow()

	header := sheet.AddRow()
	for _, h := range []string{"SKU", "Item", "Qty", "Unit price", "Amount"} {
		header.AddCell().SetValue(h)
	}
	for _, line := range inv.Lines {
		row := sheet.AddRow()
		row.AddCell().SetValue(line.ProductID)
		row.AddCell().SetValue(line.Name)
		row.AddCell().SetValue(line.Quantity)
		row.AddCell().SetValue(line.UnitPrice.StringFixed(2))
		row.AddCell().SetValue(line.Amount.StringFixed(2))
	}
	sheet.AddRow()

	addTotal(sheet, r.label("invoice.subtotal", "Subtotal"), inv.Subtotal, inv)
	addTotal(sheet, r.label("invoice.shipping", "Shipping"), inv.Shipping, inv)
	addTotal(sheet, r.label("invoice.tax", "VAT"), inv.Tax, inv)
	addTotal(sheet, r.label("invoice.total", "Total"), inv.Total, inv)

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write invoice workbook: %w", err)
	}
	return nil
}

func (r InvoiceRenderer) label(key, fallback string) string {
	if r.Text == nil {
		return fallback
	}
	return r.Text.T(key)
}

func addRow(sheet *xlsx.Sheet, label, value string) {
	row := sheet.AddRow()
	row.AddCell().SetValue(label)
	row.AddCell().SetValue(value)
}

func addTotal(sheet *xlsx.Sheet, label string, amount decimal.Decimal, inv service.Invoice) {
	row := sheet.AddRow()
	for i := 0; i < 3; i++ {
		row.AddCell()
	}
	row.AddCell().SetValue(label)
	row.AddCell().SetValue(amount.StringFixed(2) + " " + inv.Currency)
}

func formatAddress(a domain.Address) string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Street, a.City, a.Region, a.PostalCode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// WriteCatalog writes products as a workbook with a header row.
func WriteCatalog(w io.Writer, products []domain.Product) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return fmt.Errorf("add products sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range catalogHeaders {
		headerRow.AddCell().SetValue(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetValue(p.ID)
		row.AddCell().SetValue(p.Name)
		row.AddCell().SetValue(p.Description)
		row.AddCell().SetValue(p.Price.StringFixed(2))
		if p.OldPrice != nil {
			row.AddCell().SetValue(p.OldPrice.StringFixed(2))
		} else {
			row.AddCell().SetValue("")
		}
		row.AddCell().SetValue(p.Image)
		row.AddCell().SetValue(p.Category)
		row.AddCell().SetValue(p.Brand)
		row.AddCell().SetValue(p.SellerID)
		row.AddCell().SetValue(strconv.FormatFloat(p.Rating, 'f', 1, 64))
		row.AddCell().SetValue(strconv.Itoa(p.Inventory))
		row.AddCell().SetValue(p.CreatedAt.UTC().Format(time.RFC3339))
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write catalog workbook: %w", err)
	}
	return nil
}

// ReadCatalog parses a workbook produced by WriteCatalog. Rows without a name
// or a parseable price are skipped and counted.
func ReadCatalog(r io.ReaderAt, size int64) ([]domain.Product, int, error) {
	file, err := xlsx.OpenReaderAt(r, size)
	if err != nil {
		return nil, 0, fmt.Errorf("open catalog workbook: %w", err)
	}
	if len(file.Sheets) == 0 || file.Sheets[0].MaxRow < 1 {
		return nil, 0, fmt.Errorf("catalog workbook is empty")
	}

	sheet := file.Sheets[0]
	var products []domain.Product
	skipped := 0
	for i := 1; i < len(sheet.Rows); i++ {
		row := sheet.Rows[i]
		get := func(index int) string {
			if index < len(row.Cells) {
				return strings.TrimSpace(row.Cells[index].String())
			}
			return ""
		}

		name := get(1)
		price, err := decimal.NewFromString(get(3))
		if name == "" || err != nil {
			skipped++
			continue
		}

		p := domain.Product{
			ID:          get(0),
			Name:        name,
			Description: get(2),
			Price:       price,
			Image:       get(5),
			Category:    get(6),
			Brand:       get(7),
			SellerID:    get(8),
		}
		if old, err := decimal.NewFromString(get(4)); err == nil {
			p.OldPrice = &old
		}
		p.Rating, _ = strconv.ParseFloat(get(9), 64)
		p.Inventory, _ = strconv.Atoi(get(10))
		p.InStock = p.Inventory > 0
		if created, err := time.Parse(time.RFC3339, get(11)); err == nil {
			p.CreatedAt = created
		}
		products = append(products, p)
	}
	return products, skipped, nil
}
