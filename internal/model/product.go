package model

import (
	"sort"
	"time"
)

// Price is the best offer currently known for a product.
type Price struct {
	Value      float64   `json:"value"`
	Datasource string    `json:"datasource"`
	Timestamp  time.Time `json:"timestamp"`
}

// Score is a named product metric (for now, source ratings) tracked both as
// a per-product accumulator and, after a batch pass, relative to the
// vertical's population.
type Score struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`

	// Virtual marks a score synthesized at the vertical average because no
	// source reported one for this product.
	Virtual bool `json:"virtual,omitempty"`

	// Absolute accumulates the raw observations for this product.
	Absolute *Cardinality `json:"absolute,omitempty"`

	// Batch is a snapshot of the vertical-wide cardinality from the last
	// batch pass, used to position the product against its peers.
	Batch *Cardinality `json:"batch,omitempty"`

	// Relative is Value min-max scaled against Batch, in [0,100].
	Relative float64 `json:"relative,omitempty"`
}

// Product is the canonical entity reconciled from one or more fragments.
// It is created on the first fragment for a new identifier and then
// repeatedly revisited by realtime and batch aggregation services; this
// core never deletes it.
type Product struct {
	ID       string `json:"id"`
	Vertical string `json:"vertical,omitempty"`

	Attributes map[string]*ProductAttribute `json:"attributes,omitempty"`
	BestPrice  *Price                       `json:"best_price,omitempty"`
	PriceStats Cardinality                  `json:"price_stats"`
	Scores     map[string]*Score            `json:"scores,omitempty"`

	AggregationResult AggregationResult `json:"aggregation_result"`

	// CategoriesByDatasource keeps the raw categories each datasource
	// reported, so classification can be replayed as configuration evolves.
	CategoriesByDatasource map[string][]string `json:"categories_by_datasource,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	LastChange time.Time `json:"last_change"`
}

// NewProduct creates the canonical entity for a newly seen identifier.
func NewProduct(id string) *Product {
	now := time.Now().UTC()
	return &Product{
		ID:                     id,
		Attributes:             make(map[string]*ProductAttribute),
		Scores:                 make(map[string]*Score),
		CategoriesByDatasource: make(map[string][]string),
		CreatedAt:              now,
		LastChange:             now,
	}
}

// Attribute returns the attribute for name, creating it on first use.
func (p *Product) Attribute(name string) *ProductAttribute {
	if p.Attributes == nil {
		p.Attributes = make(map[string]*ProductAttribute)
	}
	a, ok := p.Attributes[name]
	if !ok {
		a = NewProductAttribute(name)
		p.Attributes[name] = a
	}
	return a
}

// Score returns the score for name, creating it on first use.
func (p *Product) Score(name string) *Score {
	if p.Scores == nil {
		p.Scores = make(map[string]*Score)
	}
	s, ok := p.Scores[name]
	if !ok {
		s = &Score{Name: name, Absolute: &Cardinality{}}
		p.Scores[name] = s
	}
	return s
}

// SetCategories records the categories one datasource reported.
func (p *Product) SetCategories(datasource string, categories []string) {
	if len(categories) == 0 {
		return
	}
	if p.CategoriesByDatasource == nil {
		p.CategoriesByDatasource = make(map[string][]string)
	}
	p.CategoriesByDatasource[datasource] = categories
}

// Categories flattens every datasource's reported categories into one
// deduplicated, sorted slice.
func (p *Product) Categories() []string {
	seen := make(map[string]struct{})
	for _, cats := range p.CategoriesByDatasource {
		for _, c := range cats {
			seen[c] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Touch updates the last-change timestamp.
func (p *Product) Touch() {
	p.LastChange = time.Now().UTC()
}
