package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const metaRichPage = `<!DOCTYPE html>
<html>
<head>
<meta property="og:title" content="Summer Linen Dress" />
<meta property="og:site_name" content="My Cafe24 Shop" />
<meta property="product:category" content="Dresses" />
<meta property="product:price:amount" content="25,000" />
<meta property="product:price:currency" content="KRW" />
<meta property="product:sale_price:amount" content="19,900" />
<meta property="og:image" content="/web/upload/main.jpg" />
<meta name="keywords" content="summer, linen,  dress" />
</head>
<body>
<table><tr><th>Brand</th><td>Acme Apparel</td></tr></table>
<div class="product_thumbs">
  <img data-src="/web/upload/thumb1.jpg" src="/web/upload/low1.jpg" />
  <img src="https://cdn.example.com/thumb2.jpg" />
</div>
<div class="price"><span class="sell">19,900</span><span class="strike">25,000</span></div>
<div id="prdDetail">
  <p>Detail copy</p>
  <img src="/web/upload/detail1.jpg" />
  <img data-src="/web/upload/detail2.jpg" src="spacer.gif" />
</div>
<div class="product-detail-ko"><p>여름 린넨 원피스</p><p>시원한 소재</p></div>
</body>
</html>`

const selectorOnlyPage = `<!DOCTYPE html>
<html>
<body>
<div class="path"><ul><li><a>Home</a></li><li><a>Outer</a></li><li><a>Coats</a></li></ul></div>
<div class="infoArea"><h3>Fallback Coat</h3></div>
<div class="product_sku">SKU-7788</div>
<div class="product_vendor">BrandCo</div>
<div class="product_tags"><a>winter</a><a> wool </a><a> </a></div>
<div class="price"><span class="sell">&#8361;12,000</span><span class="strike">15,000</span></div>
<div class="cont_detail"><p>long copy</p></div>
</body>
</html>`

func parsePage(t *testing.T, pageURL, markup string) *RawProductData {
	t.Helper()
	raw, err := NewParser().Parse(pageURL, markup)
	require.NoError(t, err)
	return raw
}

func TestParseMetaRichPage(t *testing.T) {
	raw := parsePage(t, "https://shop.example.com/product/detail.html?product_no=42", metaRichPage)

	assert.Equal(t, "Summer Linen Dress", raw.Title)
	assert.Equal(t, "Acme Apparel", raw.Vendor, "brand table row should win over og:site_name")
	assert.Equal(t, "Dresses", raw.ProductType)
	assert.Equal(t, []string{"summer", "linen", "dress"}, raw.Tags)

	require.NotNil(t, raw.Price)
	require.NotNil(t, raw.SalePrice)
	assert.Equal(t, 25000.0, *raw.Price)
	assert.Equal(t, 19900.0, *raw.SalePrice)
	assert.Equal(t, "KRW", raw.Currency)

	assert.Equal(t, "https://shop.example.com/web/upload/main.jpg", raw.MainImage)
	assert.Equal(t, []string{
		"https://shop.example.com/web/upload/thumb1.jpg",
		"https://cdn.example.com/thumb2.jpg",
	}, raw.GalleryImages, "lazy-load data-src should win over src")

	assert.Equal(t, []string{
		"https://shop.example.com/web/upload/detail1.jpg",
		"https://shop.example.com/web/upload/detail2.jpg",
	}, raw.DetailImages)

	assert.Contains(t, raw.DescriptionHTML, `id="prdDetail"`)
	assert.Contains(t, raw.DescriptionHTML, "Detail copy")
	assert.Equal(t, "여름 린넨 원피스\n시원한 소재", raw.DescriptionKO)
	assert.Empty(t, raw.DescriptionEN)
}

func TestParseSelectorFallbacks(t *testing.T) {
	raw := parsePage(t, "https://shop.example.com/product/1", selectorOnlyPage)

	assert.Equal(t, "Fallback Coat", raw.Title)
	assert.Equal(t, "SKU-7788", raw.SKU)
	assert.Equal(t, "BrandCo", raw.Vendor)
	assert.Equal(t, "Coats", raw.ProductType, "last breadcrumb link wins")
	assert.Equal(t, []string{"winter", "wool"}, raw.Tags)

	// without price metadata the sell/strike selectors apply
	require.NotNil(t, raw.Price)
	require.NotNil(t, raw.SalePrice)
	assert.Equal(t, 12000.0, *raw.Price)
	assert.Equal(t, 15000.0, *raw.SalePrice)
	assert.Empty(t, raw.Currency)

	assert.Contains(t, raw.DescriptionHTML, "cont_detail")
}

func TestParsePriceMetaSuppressesSelectors(t *testing.T) {
	markup := `<html><head>
<meta property="product:price:amount" content="30000" />
</head><body>
<div class="price"><span class="sell">20,000</span><span class="strike">30,000</span></div>
</body></html>`
	raw := parsePage(t, "https://shop.example.com/product/2", markup)

	require.NotNil(t, raw.Price)
	assert.Equal(t, 30000.0, *raw.Price)
	assert.Nil(t, raw.SalePrice, "selector strike price must not apply when price metadata exists")
}

func TestParseEmptyPage(t *testing.T) {
	raw := parsePage(t, "https://shop.example.com/product/3", "<html><body></body></html>")

	assert.Empty(t, raw.Title)
	assert.Empty(t, raw.SKU)
	assert.Empty(t, raw.Vendor)
	assert.Empty(t, raw.ProductType)
	assert.Equal(t, []string{}, raw.Tags)
	assert.Nil(t, raw.Price)
	assert.Nil(t, raw.SalePrice)
	assert.Empty(t, raw.MainImage)
	assert.Empty(t, raw.GalleryImages)
	assert.Empty(t, raw.DetailImages)
	assert.Equal(t, "https://shop.example.com/product/3", raw.SourceURL)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *float64
	}{
		{"plain number", "25000", floatPtr(25000)},
		{"thousands separators", "1,234,500", floatPtr(1234500)},
		{"won glyph", "₩12,000", floatPtr(12000)},
		{"surrounding whitespace", "  9900  ", floatPtr(9900)},
		{"decimal", "19900.50", floatPtr(19900.5)},
		{"empty", "", nil},
		{"not a number", "SOLD OUT", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := parseAmount(tc.input)
			if tc.expected == nil {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, *tc.expected, *result)
		})
	}
}

func TestAbsoluteURL(t *testing.T) {
	pageURL := "https://shop.example.com/product/detail.html"

	tests := []struct {
		name     string
		src      string
		expected string
	}{
		{"absolute https", "https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"absolute http", "http://cdn.example.com/a.jpg", "http://cdn.example.com/a.jpg"},
		{"root relative", "/web/upload/a.jpg", "https://shop.example.com/web/upload/a.jpg"},
		{"document relative", "a.jpg", "https://shop.example.com/product/a.jpg"},
		{"protocol relative", "//cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, absoluteURL(tc.src, pageURL))
		})
	}
}

func floatPtr(v float64) *float64 {
	return &v
}
