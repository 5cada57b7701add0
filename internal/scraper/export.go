package scraper

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"sjsage522/cafe24worker/pkg/errors"
)

// ShopifyVariant is one purchasable line under a product handle
type ShopifyVariant struct {
	SKU                string
	Price              float64
	CompareAtPrice     *float64
	RequiresShipping   bool
	Grams              int
	InventoryQuantity  int
	InventoryPolicy    string
	FulfillmentService string
	Option1Name        string
	Option1Value       string
}

// ShopifyImage is one product image with its 1-based position
type ShopifyImage struct {
	Src      string
	Position int
	AltText  string
}

// ShopifyRecord is one exported product; it expands to one CSV row per
// variant (or a single placeholder row when no variants exist)
type ShopifyRecord struct {
	Handle      string
	Title       string
	BodyHTML    string
	Vendor      string
	ProductType string
	Tags        []string
	Published   bool
	Variants    []ShopifyVariant
	Images      []ShopifyImage
}

// exportColumns is the fixed column superset of the Shopify bulk import
// format, in output order
var exportColumns = []string{
	"Handle",
	"Title",
	"Body (HTML)",
	"Vendor",
	"Product Category",
	"Type",
	"Tags",
	"Published",
	"Option1 Name",
	"Option1 Value",
	"Variant SKU",
	"Variant Price",
	"Variant Compare At Price",
	"Variant Inventory Qty",
	"Variant Inventory Policy",
	"Variant Fulfillment Service",
	"Variant Requires Shipping",
	"Variant Grams",
	"Image Src",
	"Image Position",
	"Image Alt Text",
}

// ToRows expands the record into export rows keyed by column name
func (r *ShopifyRecord) ToRows() []map[string]string {
	base := map[string]string{
		"Handle":           r.Handle,
		"Title":            r.Title,
		"Body (HTML)":      r.BodyHTML,
		"Vendor":           r.Vendor,
		"Product Category": "",
		"Type":             r.ProductType,
		"Tags":             strings.Join(r.Tags, ","),
		"Published":        formatBool(r.Published),
	}

	if len(r.Variants) == 0 {
		row := cloneRow(base)
		mergeRow(row, emptyVariantRow())
		mergeRow(row, emptyImageRow())
		return []map[string]string{row}
	}

	rows := make([]map[string]string, 0, len(r.Variants))
	for idx, variant := range r.Variants {
		row := cloneRow(base)
		mergeRow(row, map[string]string{
			"Option1 Name":                variant.Option1Name,
			"Option1 Value":               variant.Option1Value,
			"Variant SKU":                 variant.SKU,
			"Variant Price":               fmt.Sprintf("%.2f", variant.Price),
			"Variant Compare At Price":    formatCompareAt(variant.CompareAtPrice),
			"Variant Inventory Qty":       strconv.Itoa(variant.InventoryQuantity),
			"Variant Inventory Policy":    variant.InventoryPolicy,
			"Variant Fulfillment Service": variant.FulfillmentService,
			"Variant Requires Shipping":   formatBool(variant.RequiresShipping),
			"Variant Grams":               strconv.Itoa(variant.Grams),
		})
		mergeRow(row, imageRow(r.Images, idx))
		rows = append(rows, row)
	}
	return rows
}

// imageRow pairs row i with image min(i, len-1); rows beyond the image
// count repeat the last image
func imageRow(images []ShopifyImage, variantIndex int) map[string]string {
	if len(images) == 0 {
		return emptyImageRow()
	}
	idx := variantIndex
	if idx > len(images)-1 {
		idx = len(images) - 1
	}
	image := images[idx]
	return map[string]string{
		"Image Src":      image.Src,
		"Image Position": strconv.Itoa(image.Position),
		"Image Alt Text": image.AltText,
	}
}

func emptyVariantRow() map[string]string {
	return map[string]string{
		"Option1 Name":                "Title",
		"Option1 Value":               "Default",
		"Variant SKU":                 "",
		"Variant Price":               "",
		"Variant Compare At Price":    "",
		"Variant Inventory Qty":       "0",
		"Variant Inventory Policy":    "continue",
		"Variant Fulfillment Service": "manual",
		"Variant Requires Shipping":   "TRUE",
		"Variant Grams":               "0",
	}
}

func emptyImageRow() map[string]string {
	return map[string]string{
		"Image Src":      "",
		"Image Position": "",
		"Image Alt Text": "",
	}
}

// formatCompareAt renders a compare-at price; absent or zero prices
// render empty
func formatCompareAt(price *float64) string {
	if price == nil || *price == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", *price)
}

func formatBool(value bool) string {
	if value {
		return "TRUE"
	}
	return "FALSE"
}

func cloneRow(row map[string]string) map[string]string {
	clone := make(map[string]string, len(exportColumns))
	for k, v := range row {
		clone[k] = v
	}
	return clone
}

func mergeRow(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}

// ExportCSV writes all records as a flat table with the fixed column
// superset. An empty record set still writes a header-only file with
// Handle and Title columns.
func ExportCSV(records []*ShopifyRecord, destination string) error {
	file, err := os.Create(destination)
	if err != nil {
		return errors.NewStorage("failed to create export file", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	var rows []map[string]string
	for _, record := range records {
		rows = append(rows, record.ToRows()...)
	}

	if len(rows) == 0 {
		if err := writer.Write([]string{"Handle", "Title"}); err != nil {
			return errors.NewStorage("failed to write export header", err)
		}
		return nil
	}

	if err := writer.Write(exportColumns); err != nil {
		return errors.NewStorage("failed to write export header", err)
	}
	for _, row := range rows {
		line := make([]string, len(exportColumns))
		for i, column := range exportColumns {
			line[i] = row[column]
		}
		if err := writer.Write(line); err != nil {
			return errors.NewStorage("failed to write export row", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
