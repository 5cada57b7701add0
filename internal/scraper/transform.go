package scraper

import (
	"fmt"

	"sjsage522/cafe24worker/helpers"
)

// Defaults applied when a page yields no value for a field
const (
	defaultTitle       = "Untitled Product"
	defaultVendor      = "Unknown"
	defaultProductType = "General"
)

// RawToShopify maps extracted product data onto a Shopify import record.
// Pure function; raw is not modified.
func RawToShopify(raw *RawProductData) *ShopifyRecord {
	handle := helpers.Slugify(firstNonEmpty(raw.Title, raw.SKU, raw.SourceURL))

	// Effective price is the sale price when one exists, else the regular
	// price, else zero. Compare-at is the regular price only when a sale
	// price exists; otherwise it mirrors the (absent) sale price. This
	// matches was/now pricing and is intentionally asymmetric.
	effectivePrice := 0.0
	if raw.SalePrice != nil {
		effectivePrice = *raw.SalePrice
	} else if raw.Price != nil {
		effectivePrice = *raw.Price
	}
	var compareAt *float64
	if raw.SalePrice != nil {
		compareAt = raw.Price
	} else {
		compareAt = raw.SalePrice
	}

	sku := raw.SKU
	if sku == "" {
		sku = handle
	}
	variant := ShopifyVariant{
		SKU:                sku,
		Price:              effectivePrice,
		CompareAtPrice:     compareAt,
		RequiresShipping:   true,
		Grams:              0,
		InventoryQuantity:  0,
		InventoryPolicy:    "continue",
		FulfillmentService: "manual",
		Option1Name:        "Title",
		Option1Value:       "Default",
	}

	title := raw.Title
	if title == "" {
		title = defaultTitle
	}

	var images []ShopifyImage
	if raw.MainImage != "" {
		images = append(images, ShopifyImage{Src: raw.MainImage, Position: 1, AltText: title})
	}
	for idx, src := range raw.GalleryImages {
		images = append(images, ShopifyImage{Src: src, Position: idx + 2, AltText: title})
	}

	bodyHTML := raw.DescriptionHTML
	for _, src := range raw.DetailImages {
		alt := raw.Title
		if alt == "" {
			alt = handle
		}
		bodyHTML += fmt.Sprintf(`<p><img src="%s" alt="%s" /></p>`, src, alt)
	}

	vendor := raw.Vendor
	if vendor == "" {
		vendor = defaultVendor
	}
	productType := raw.ProductType
	if productType == "" {
		productType = defaultProductType
	}

	return &ShopifyRecord{
		Handle:      handle,
		Title:       title,
		BodyHTML:    bodyHTML,
		Vendor:      vendor,
		ProductType: productType,
		Tags:        raw.Tags,
		Published:   true,
		Variants:    []ShopifyVariant{variant},
		Images:      images,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
