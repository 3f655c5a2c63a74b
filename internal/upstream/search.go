package upstream

import "strconv"

// SearchQuery carries the caller-facing search filters. Zero values are
// omitted from the upstream payload.
type SearchQuery struct {
	Text       string    `json:"text"`
	CategoryID string    `json:"category_id"`
	AdType     string    `json:"ad_type"`    // "offer" or "demand"
	OwnerType  string    `json:"owner_type"` // "pro", "private" or "all"
	TitleOnly  bool      `json:"search_in_title_only"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	SortBy     string    `json:"sort_by"`    // e.g. "time", "price"
	SortOrder  string    `json:"sort_order"` // "asc" or "desc"
	PriceMin   *int      `json:"price_min"`
	PriceMax   *int      `json:"price_max"`
	SquareMin  *int      `json:"square_min"`
	SquareMax  *int      `json:"square_max"`
	Locations  []GeoArea `json:"locations"`
}

// GeoArea restricts a search to a circle around a point.
type GeoArea struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	RadiusM  int     `json:"radius"`
	CityName string  `json:"city"`
}

// payload renders the query into the finder API document shape.
func (q SearchQuery) payload() map[string]any {
	limit := q.Limit
	if limit <= 0 {
		limit = 35
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}

	filters := map[string]any{
		"category": map[string]any{},
		"enums":    map[string]any{"ad_type": []string{orDefault(q.AdType, "offer")}},
		"keywords": map[string]any{},
		"ranges":   map[string]any{},
	}

	if q.CategoryID != "" {
		filters["category"] = map[string]any{"id": q.CategoryID}
	}
	if q.Text != "" {
		kw := map[string]any{"text": q.Text}
		if q.TitleOnly {
			kw["type"] = "subject"
		}
		filters["keywords"] = kw
	}

	ranges := map[string]any{}
	if r := rangeOf(q.PriceMin, q.PriceMax); r != nil {
		ranges["price"] = r
	}
	if r := rangeOf(q.SquareMin, q.SquareMax); r != nil {
		ranges["square"] = r
	}
	if len(ranges) > 0 {
		filters["ranges"] = ranges
	}

	if len(q.Locations) > 0 {
		locs := make([]map[string]any, len(q.Locations))
		for i, l := range q.Locations {
			locs[i] = map[string]any{
				"locationType": "city",
				"area": map[string]any{
					"lat":       l.Lat,
					"lng":       l.Lng,
					"radius_km": l.RadiusM / 1000,
				},
				"city": l.CityName,
			}
		}
		filters["location"] = map[string]any{"locations": locs}
	}

	doc := map[string]any{
		"filters": filters,
		"limit":   limit,
		"offset":  (page - 1) * limit,
	}
	if q.OwnerType != "" && q.OwnerType != "all" {
		doc["owner_type"] = q.OwnerType
	}
	if q.SortBy != "" {
		doc["sort_by"] = q.SortBy
		doc["sort_order"] = orDefault(q.SortOrder, "desc")
	}
	return doc
}

func rangeOf(min, max *int) map[string]string {
	if min == nil && max == nil {
		return nil
	}
	r := map[string]string{}
	if min != nil {
		r["min"] = strconv.Itoa(*min)
	}
	if max != nil {
		r["max"] = strconv.Itoa(*max)
	}
	return r
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
