package scraper

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *ShopifyRecord {
	return &ShopifyRecord{
		Handle:      "linen-dress",
		Title:       "Linen Dress",
		BodyHTML:    "<div>copy</div>",
		Vendor:      "Acme Apparel",
		ProductType: "Dresses",
		Tags:        []string{"summer", "linen"},
		Published:   true,
		Variants: []ShopifyVariant{{
			SKU:                "SKU-1",
			Price:              19900,
			CompareAtPrice:     floatPtr(25000),
			RequiresShipping:   true,
			InventoryPolicy:    "continue",
			FulfillmentService: "manual",
			Option1Name:        "Title",
			Option1Value:       "Default",
		}},
		Images: []ShopifyImage{
			{Src: "images/main.jpg", Position: 1, AltText: "Linen Dress"},
			{Src: "images/g1.jpg", Position: 2, AltText: "Linen Dress"},
		},
	}
}

func TestToRowsSingleVariant(t *testing.T) {
	rows := sampleRecord().ToRows()
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "linen-dress", row["Handle"])
	assert.Equal(t, "Linen Dress", row["Title"])
	assert.Equal(t, "summer,linen", row["Tags"])
	assert.Equal(t, "TRUE", row["Published"])
	assert.Equal(t, "19900.00", row["Variant Price"])
	assert.Equal(t, "25000.00", row["Variant Compare At Price"])
	assert.Equal(t, "TRUE", row["Variant Requires Shipping"])
	assert.Equal(t, "images/main.jpg", row["Image Src"])
	assert.Equal(t, "1", row["Image Position"])
}

func TestToRowsRepeatsLastImage(t *testing.T) {
	record := sampleRecord()
	record.Variants = append(record.Variants,
		ShopifyVariant{SKU: "SKU-2", Price: 100},
		ShopifyVariant{SKU: "SKU-3", Price: 200},
	)

	rows := record.ToRows()
	require.Len(t, rows, 3)

	assert.Equal(t, "images/main.jpg", rows[0]["Image Src"])
	assert.Equal(t, "images/g1.jpg", rows[1]["Image Src"])
	assert.Equal(t, "images/g1.jpg", rows[2]["Image Src"],
		"variant rows beyond the image count repeat the last image")
}

func TestToRowsNoVariants(t *testing.T) {
	record := sampleRecord()
	record.Variants = nil
	record.Images = nil

	rows := record.ToRows()
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "linen-dress", row["Handle"])
	assert.Equal(t, "Title", row["Option1 Name"])
	assert.Equal(t, "Default", row["Option1 Value"])
	assert.Equal(t, "", row["Variant Price"])
	assert.Equal(t, "TRUE", row["Variant Requires Shipping"])
	assert.Equal(t, "", row["Image Src"])
}

func TestFormatCompareAt(t *testing.T) {
	assert.Equal(t, "", formatCompareAt(nil))
	assert.Equal(t, "", formatCompareAt(floatPtr(0)), "a zero compare-at price renders empty")
	assert.Equal(t, "25000.00", formatCompareAt(floatPtr(25000)))
}

func TestExportCSV(t *testing.T) {
	destination := filepath.Join(t.TempDir(), "shopify_import.csv")
	require.NoError(t, ExportCSV([]*ShopifyRecord{sampleRecord()}, destination))

	file, err := os.Open(destination)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, exportColumns, rows[0])
	assert.Len(t, rows[1], len(exportColumns))
	assert.Equal(t, "linen-dress", rows[1][0])
}

func TestExportCSVEmpty(t *testing.T) {
	destination := filepath.Join(t.TempDir(), "shopify_import.csv")
	require.NoError(t, ExportCSV(nil, destination))

	data, err := os.ReadFile(destination)
	require.NoError(t, err)
	assert.Equal(t, "Handle,Title\n", string(data),
		"an empty run still writes a header-only export")
}
