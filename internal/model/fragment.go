package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// FragmentAttribute is one raw attribute observation inside a fragment.
type FragmentAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Fragment is one datasource's raw observation of a product, as captured by
// an external crawler. Immutable once captured.
type Fragment struct {
	GTIN       string              `json:"gtin"`
	Datasource string              `json:"datasource"`
	URL        string              `json:"url"`
	Timestamp  time.Time           `json:"timestamp"`
	Price      float64             `json:"price,omitempty"`
	Rating     float64             `json:"rating,omitempty"`
	Categories []string            `json:"categories,omitempty"`
	Attributes []FragmentAttribute `json:"attributes,omitempty"`
}

// Validate checks the minimal fields required before a fragment can enter
// the aggregation path.
func (f *Fragment) Validate() error {
	if strings.TrimSpace(f.GTIN) == "" {
		return eris.New("fragment: missing gtin")
	}
	if strings.TrimSpace(f.Datasource) == "" {
		return eris.Errorf("fragment: missing datasource for gtin %s", f.GTIN)
	}
	return nil
}

// HasPrice reports whether the fragment carries a usable price observation.
func (f *Fragment) HasPrice() bool {
	return f.Price > 0
}

// HasRating reports whether the fragment carries a rating observation.
func (f *Fragment) HasRating() bool {
	return f.Rating > 0
}
