package scraper

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"sjsage522/cafe24worker/helpers"
	"sjsage522/cafe24worker/pkg/errors"
)

// Selectors for the product detail container. Cafe24 shops disagree on
// the container id, so every detail lookup goes through this list.
const detailContainerSelector = "#prdDetail, .cont_detail, .productDetail"

// Parser extracts a RawProductData from Cafe24 product page markup.
// Every field is resolved through an ordered list of extraction
// strategies; the first strategy that yields a value wins, so the order
// of each table is part of the contract.
type Parser struct {
	titleStrategies       []TextStrategy
	skuStrategies         []TextStrategy
	vendorStrategies      []TextStrategy
	productTypeStrategies []TextStrategy
	tagStrategies         []ListStrategy
	descriptionStrategies []TextStrategy
}

// NewParser creates a parser with the built-in Cafe24 strategy tables
func NewParser() *Parser {
	return &Parser{
		titleStrategies: []TextStrategy{
			metaContent(`meta[property="og:title"]`),
			selectorText(".product_tit, #prdDetail h2, .infoArea h3"),
		},
		skuStrategies: []TextStrategy{
			selectorText(".product_sku, #product_detail_info [data-sku], .infoArea .info li span.sku"),
			metaContent(`meta[property="product:retailer_item_id"]`),
		},
		vendorStrategies: []TextStrategy{
			brandTableRow,
			metaContent(`meta[property="og:site_name"]`),
			selectorText(".product_vendor, .infoArea .info li span.supplier"),
		},
		productTypeStrategies: []TextStrategy{
			metaContent(`meta[property="product:category"]`),
			lastBreadcrumb(".path li a, .xans-product-menupackage a, nav.breadcrumb a"),
		},
		tagStrategies: []ListStrategy{
			tagLinks(".product_tags a"),
			keywordsMeta(`meta[name="keywords"]`),
		},
		descriptionStrategies: []TextStrategy{
			selectorHTML(detailContainerSelector),
		},
	}
}

// Parse extracts product data from markup. Missing fields stay unset;
// only unreadable markup fails.
func (p *Parser) Parse(pageURL, markup string) (*RawProductData, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, errors.NewParsing(pageURL, "failed to parse HTML", err)
	}

	raw := &RawProductData{SourceURL: pageURL}

	raw.Title = firstText(doc, p.titleStrategies)
	raw.SKU = firstText(doc, p.skuStrategies)
	raw.Vendor = firstText(doc, p.vendorStrategies)
	raw.ProductType = firstText(doc, p.productTypeStrategies)
	raw.Tags = firstList(doc, p.tagStrategies)
	raw.DescriptionHTML = firstText(doc, p.descriptionStrategies)
	raw.DescriptionKO = joinedText(doc, ".product-detail-ko, [lang=ko]")
	raw.DescriptionEN = joinedText(doc, ".product-detail-en, [lang=en]")
	raw.Price, raw.SalePrice, raw.Currency = parsePrices(doc)
	raw.MainImage, raw.GalleryImages = parseImages(doc, pageURL)
	raw.DetailImages = parseDetailImages(doc, pageURL)

	return raw, nil
}

// firstText evaluates text strategies in order until one yields a value
func firstText(doc *goquery.Document, strategies []TextStrategy) string {
	for _, strategy := range strategies {
		if value := strategy(doc); value != "" {
			return value
		}
	}
	return ""
}

// firstList evaluates list strategies in order until one yields entries
func firstList(doc *goquery.Document, strategies []ListStrategy) []string {
	for _, strategy := range strategies {
		if values := strategy(doc); len(values) > 0 {
			return values
		}
	}
	return []string{}
}

// metaContent extracts the content attribute of a meta tag
func metaContent(selector string) TextStrategy {
	return func(doc *goquery.Document) string {
		content, _ := doc.Find(selector).First().Attr("content")
		return strings.TrimSpace(content)
	}
}

// selectorText extracts trimmed text of the first matching element
func selectorText(selector string) TextStrategy {
	return func(doc *goquery.Document) string {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			return ""
		}
		return strings.TrimSpace(sel.Text())
	}
}

// selectorHTML extracts the serialized markup of the first match,
// including the element itself
func selectorHTML(selector string) TextStrategy {
	return func(doc *goquery.Document) string {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			return ""
		}
		markup, err := goquery.OuterHtml(sel)
		if err != nil {
			return ""
		}
		return markup
	}
}

// brandTableRow scans detail tables for a header cell mentioning "brand"
// and returns the adjacent cell's text
func brandTableRow(doc *goquery.Document) string {
	value := ""
	doc.Find("table tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		header := row.Find("th").First()
		if header.Length() == 0 {
			return true
		}
		if !strings.Contains(strings.ToLower(strings.TrimSpace(header.Text())), "brand") {
			return true
		}
		cell := row.Find("td").First()
		if cell.Length() == 0 {
			return true
		}
		value = strings.TrimSpace(cell.Text())
		return value == ""
	})
	return value
}

// lastBreadcrumb returns the text of the final breadcrumb trail link
func lastBreadcrumb(selector string) TextStrategy {
	return func(doc *goquery.Document) string {
		crumbs := doc.Find(selector)
		if crumbs.Length() == 0 {
			return ""
		}
		return strings.TrimSpace(crumbs.Last().Text())
	}
}

// tagLinks collects non-empty texts of dedicated tag anchors
func tagLinks(selector string) ListStrategy {
	return func(doc *goquery.Document) []string {
		var tags []string
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			if tag := strings.TrimSpace(sel.Text()); tag != "" {
				tags = append(tags, tag)
			}
		})
		return tags
	}
}

// keywordsMeta splits a keywords meta tag on commas
func keywordsMeta(selector string) ListStrategy {
	return func(doc *goquery.Document) []string {
		content, _ := doc.Find(selector).First().Attr("content")
		if strings.TrimSpace(content) == "" {
			return nil
		}
		tags := helpers.SplitTags(content)
		if len(tags) == 0 {
			return nil
		}
		return tags
	}
}

// joinedText extracts the text of the first match with text nodes joined
// by newlines, mirroring how multi-line descriptions read on the page
func joinedText(doc *goquery.Document, selector string) string {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return ""
	}

	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				lines = append(lines, text)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for _, node := range sel.Nodes {
		walk(node)
	}
	return strings.Join(lines, "\n")
}

// parsePrices resolves price, sale price and currency. Structured price
// metadata wins; selector-based sell/strike prices only apply when the
// price meta tag is absent.
func parsePrices(doc *goquery.Document) (*float64, *float64, string) {
	price := parseAmount(attrOf(doc, `meta[property="product:price:amount"]`, "content"))
	salePrice := parseAmount(attrOf(doc, `meta[property="product:sale_price:amount"]`, "content"))
	currency := strings.TrimSpace(attrOf(doc, `meta[property="product:price:currency"]`, "content"))

	if price != nil {
		return price, salePrice, currency
	}

	sellText := doc.Find(".product_price, .price .sell").First().Text()
	strikeText := doc.Find(".price .strike").First().Text()
	return parseAmount(sellText), parseAmount(strikeText), currency
}

// parseImages resolves the main image from structured metadata and the
// gallery from thumbnail selectors, preferring lazy-load attributes
func parseImages(doc *goquery.Document, pageURL string) (string, []string) {
	main := ""
	if content := attrOf(doc, `meta[property="og:image"]`, "content"); strings.TrimSpace(content) != "" {
		main = absoluteURL(content, pageURL)
	}

	var gallery []string
	doc.Find(".product_thumbs img, .xans-product-addimage img").Each(func(_ int, sel *goquery.Selection) {
		if src := imageSource(sel); src != "" {
			gallery = append(gallery, absoluteURL(src, pageURL))
		}
	})
	return main, gallery
}

// parseDetailImages collects every image inside the detail container
func parseDetailImages(doc *goquery.Document, pageURL string) []string {
	container := doc.Find(detailContainerSelector).First()
	if container.Length() == 0 {
		return nil
	}

	var images []string
	container.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if src := imageSource(sel); src != "" {
			images = append(images, absoluteURL(src, pageURL))
		}
	})
	return images
}

// imageSource prefers the lazy-load data attribute over the plain source
func imageSource(sel *goquery.Selection) string {
	if src, exists := sel.Attr("data-src"); exists && strings.TrimSpace(src) != "" {
		return strings.TrimSpace(src)
	}
	src, _ := sel.Attr("src")
	return strings.TrimSpace(src)
}

// attrOf returns an attribute of the first matching element
func attrOf(doc *goquery.Document, selector, attr string) string {
	value, _ := doc.Find(selector).First().Attr(attr)
	return value
}

// parseAmount parses a numeric price, stripping thousands separators and
// the won glyph. Unparsable values yield nil, never an error.
func parseAmount(value string) *float64 {
	cleaned := strings.TrimSpace(value)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, "₩", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &amount
}

// absoluteURL resolves a possibly-relative source against the page URL.
// Already-absolute URLs pass through untouched.
func absoluteURL(src, pageURL string) string {
	src = strings.TrimSpace(src)
	if src == "" || strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	return base.ResolveReference(ref).String()
}
