package domain

// Product is the immutable catalog input to a checkout session. It is supplied
// by the catalog collaborator and never mutated by the engine.
type Product struct {
	ASIN      string `json:"asin"`
	Title     string `json:"title"`
	Variant   string `json:"variant,omitempty"`
	Price     string `json:"price"` // decimal string, display only
	Thumbnail string `json:"thumbnail"`
}

// Locator returns the processor-side product identifier.
func (p Product) Locator() string {
	return "amazon:" + p.ASIN
}
