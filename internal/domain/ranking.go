package domain

import "math"

// RankedCandidate is an item with the signals that produced its score.
type RankedCandidate struct {
	Item               Item
	ProfileRelevance   float64
	QualityComposite   float64
	FeedbackAdjustment float64
	BaseTerm           float64
	FinalScore         float64
}

// DeliveryItem is the compact form handed to the delivery layer.
type DeliveryItem struct {
	ItemID string  `json:"item_id"`
	Title  string  `json:"title"`
	URL    string  `json:"url"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// ToDelivery converts ranked candidates, rounding scores to two decimals.
func ToDelivery(cands []RankedCandidate) []DeliveryItem {
	out := make([]DeliveryItem, 0, len(cands))
	for _, c := range cands {
		out = append(out, DeliveryItem{
			ItemID: c.Item.ID,
			Title:  c.Item.Title,
			URL:    c.Item.URL,
			Source: c.Item.Source,
			Score:  math.Round(c.FinalScore*100) / 100,
		})
	}
	return out
}
