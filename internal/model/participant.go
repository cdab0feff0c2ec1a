package model

// ParticipantData identifies one source that contributed to a product's
// construction. Identity is defined solely by DataURL: two contributions
// from the same URL are the same participant even if the other fields
// differ.
type ParticipantData struct {
	ProviderName string `json:"provider_name"`
	ProviderType string `json:"provider_type,omitempty"`
	DataURL      string `json:"data_url"`
}

// Equal reports participant identity (DataURL only).
func (p ParticipantData) Equal(other ParticipantData) bool {
	return p.DataURL == other.DataURL
}

// AggregationResult records the provenance of a product: the set of
// participants whose data was folded into it.
type AggregationResult struct {
	Participants []ParticipantData `json:"participants,omitempty"`
}

// AddParticipant inserts a participant, keeping the set unique on DataURL.
// Re-adding an existing URL refreshes the stored name and type.
func (r *AggregationResult) AddParticipant(p ParticipantData) {
	for i, existing := range r.Participants {
		if existing.Equal(p) {
			r.Participants[i] = p
			return
		}
	}
	r.Participants = append(r.Participants, p)
}

// HasParticipant reports whether the given data URL already contributed.
func (r *AggregationResult) HasParticipant(dataURL string) bool {
	for _, existing := range r.Participants {
		if existing.DataURL == dataURL {
			return true
		}
	}
	return false
}
