package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawToShopifyPricing(t *testing.T) {
	tests := []struct {
		name            string
		price           *float64
		salePrice       *float64
		expectedPrice   float64
		expectedCompare *float64
	}{
		{
			name:            "sale price active",
			price:           floatPtr(25000),
			salePrice:       floatPtr(19900),
			expectedPrice:   19900,
			expectedCompare: floatPtr(25000),
		},
		{
			name:            "regular price only",
			price:           floatPtr(25000),
			salePrice:       nil,
			expectedPrice:   25000,
			expectedCompare: nil,
		},
		{
			name:            "sale price only",
			price:           nil,
			salePrice:       floatPtr(9900),
			expectedPrice:   9900,
			expectedCompare: nil,
		},
		{
			name:            "no prices",
			price:           nil,
			salePrice:       nil,
			expectedPrice:   0,
			expectedCompare: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			record := RawToShopify(&RawProductData{
				SourceURL: "https://shop.example.com/product/1",
				Title:     "Linen Dress",
				Price:     tc.price,
				SalePrice: tc.salePrice,
			})

			require.Len(t, record.Variants, 1)
			variant := record.Variants[0]
			assert.Equal(t, tc.expectedPrice, variant.Price)
			if tc.expectedCompare == nil {
				assert.Nil(t, variant.CompareAtPrice)
			} else {
				require.NotNil(t, variant.CompareAtPrice)
				assert.Equal(t, *tc.expectedCompare, *variant.CompareAtPrice)
			}
		})
	}
}

func TestRawToShopifyDefaults(t *testing.T) {
	record := RawToShopify(&RawProductData{
		SourceURL: "https://shop.example.com/product/42",
	})

	assert.Equal(t, "https-shop-example-com-product-42", record.Handle,
		"handle falls back to the slugified source URL")
	assert.Equal(t, "Untitled Product", record.Title)
	assert.Equal(t, "Unknown", record.Vendor)
	assert.Equal(t, "General", record.ProductType)
	assert.True(t, record.Published)

	require.Len(t, record.Variants, 1)
	variant := record.Variants[0]
	assert.Equal(t, record.Handle, variant.SKU, "SKU falls back to the handle")
	assert.True(t, variant.RequiresShipping)
	assert.Equal(t, "continue", variant.InventoryPolicy)
	assert.Equal(t, "manual", variant.FulfillmentService)
	assert.Equal(t, "Title", variant.Option1Name)
	assert.Equal(t, "Default", variant.Option1Value)
}

func TestRawToShopifyImagePositions(t *testing.T) {
	record := RawToShopify(&RawProductData{
		SourceURL:     "https://shop.example.com/product/1",
		Title:         "Linen Dress",
		MainImage:     "images/main.jpg",
		GalleryImages: []string{"images/g1.jpg", "images/g2.jpg"},
	})

	require.Len(t, record.Images, 3)
	assert.Equal(t, ShopifyImage{Src: "images/main.jpg", Position: 1, AltText: "Linen Dress"}, record.Images[0])
	assert.Equal(t, ShopifyImage{Src: "images/g1.jpg", Position: 2, AltText: "Linen Dress"}, record.Images[1])
	assert.Equal(t, ShopifyImage{Src: "images/g2.jpg", Position: 3, AltText: "Linen Dress"}, record.Images[2])
}

func TestRawToShopifyAppendsDetailImages(t *testing.T) {
	record := RawToShopify(&RawProductData{
		SourceURL:       "https://shop.example.com/product/1",
		Title:           "Linen Dress",
		DescriptionHTML: "<div>copy</div>",
		DetailImages:    []string{"images/d1.jpg", "images/d2.jpg"},
	})

	assert.Contains(t, record.BodyHTML, "<div>copy</div>")
	assert.Contains(t, record.BodyHTML, `<p><img src="images/d1.jpg" alt="Linen Dress" /></p>`)
	assert.Contains(t, record.BodyHTML, `<p><img src="images/d2.jpg" alt="Linen Dress" /></p>`)
}

func TestRawToShopifyDetailImageAltFallsBackToHandle(t *testing.T) {
	record := RawToShopify(&RawProductData{
		SourceURL:    "https://shop.example.com/product/1",
		SKU:          "SKU-9",
		DetailImages: []string{"images/d1.jpg"},
	})

	assert.Equal(t, "sku-9", record.Handle)
	assert.Contains(t, record.BodyHTML, `alt="sku-9"`)
}
