package scraper

import "github.com/PuerkitoBio/goquery"

// ProductInput represents a single product URL entry from the input file
type ProductInput struct {
	URL string `json:"url"`
}

// RawProductData is the intermediate representation extracted from a
// Cafe24 product page. Every field except SourceURL may be unset;
// downstream stages degrade gracefully.
type RawProductData struct {
	SourceURL       string
	Title           string
	SKU             string
	Vendor          string
	ProductType     string
	Tags            []string
	DescriptionHTML string
	DescriptionKO   string
	DescriptionEN   string
	Price           *float64
	SalePrice       *float64
	Currency        string
	MainImage       string
	GalleryImages   []string
	DetailImages    []string
}

// ImageDownloadResult describes one successfully downloaded image
type ImageDownloadResult struct {
	Path      string
	SourceURL string
	Kind      string
}

// Image kinds used for download naming and post-processing decisions
const (
	KindMain    = "main"
	KindGallery = "gallery"
	KindDetail  = "detail"
)

// TextStrategy extracts a single text value from a document. It returns
// the empty string when the strategy does not apply.
type TextStrategy func(doc *goquery.Document) string

// ListStrategy extracts an ordered list of values from a document. It
// returns nil when the strategy does not apply.
type ListStrategy func(doc *goquery.Document) []string

// Failure records one per-item failure for the run summary
type Failure struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}
