package catalog

import (
	"sort"
	"strconv"
	"strings"
)

const (
	defaultPage  = 1
	defaultLimit = 20
)

// FilterClause is one element of the structured listing filter. The
// repository translates clauses into the store's native query form; nothing
// above that boundary builds raw queries.
type FilterClause interface {
	filterClause()
}

// Equals matches documents whose field equals the given value.
type Equals struct {
	Field string
	Value string
}

// Range bounds a numeric field. Either bound may be nil.
type Range struct {
	Field string
	Min   *float64
	Max   *float64
}

// TextSearch matches against the collection's full-text index.
type TextSearch struct {
	Term string
}

func (Equals) filterClause()     {}
func (Range) filterClause()      {}
func (TextSearch) filterClause() {}

type SortField struct {
	Key  string
	Desc bool
}

// SortSpec describes the listing order. ByTextScore takes precedence over
// Fields and means relevance-ranked search results.
type SortSpec struct {
	Fields      []SortField
	ByTextScore bool
}

// ListQuery is the translated form of a raw listing request.
type ListQuery struct {
	Clauses []FilterClause
	Sort    SortSpec
	Page    int64
	Limit   int64
	Skip    int64
}

// reserved keys control pagination, sorting and search and never become
// equality filters. minPrice/maxPrice are consumed by the price range
// clause whether or not they parse.
var reservedParams = map[string]bool{
	"page":     true,
	"sort":     true,
	"limit":    true,
	"fields":   true,
	"search":   true,
	"minPrice": true,
	"maxPrice": true,
}

// ParseListQuery converts flat request parameters into a structured filter,
// sort spec and pagination triple.
func ParseListQuery(params map[string]string) ListQuery {
	var clauses []FilterClause

	// Equality filters, in stable field order.
	fields := make([]string, 0, len(params))
	for key := range params {
		if reservedParams[key] {
			continue
		}
		fields = append(fields, key)
	}
	sort.Strings(fields)
	for _, key := range fields {
		clauses = append(clauses, Equals{Field: key, Value: params[key]})
	}

	if r, ok := priceRange(params); ok {
		clauses = append(clauses, r)
	}

	search := strings.TrimSpace(params["search"])
	if search != "" {
		clauses = append(clauses, TextSearch{Term: search})
	}

	page := positiveInt(params["page"], defaultPage)
	limit := positiveInt(params["limit"], defaultLimit)

	return ListQuery{
		Clauses: clauses,
		Sort:    parseSort(params["sort"], search != ""),
		Page:    page,
		Limit:   limit,
		Skip:    (page - 1) * limit,
	}
}

func priceRange(params map[string]string) (Range, bool) {
	r := Range{Field: "price"}
	if v, err := strconv.ParseFloat(params["minPrice"], 64); err == nil {
		min := v
		r.Min = &min
	}
	if v, err := strconv.ParseFloat(params["maxPrice"], 64); err == nil {
		max := v
		r.Max = &max
	}
	return r, r.Min != nil || r.Max != nil
}

func parseSort(raw string, searching bool) SortSpec {
	if raw == "" {
		if searching {
			return SortSpec{ByTextScore: true}
		}
		return SortSpec{Fields: []SortField{{Key: "createdAt", Desc: true}}}
	}

	var spec SortSpec
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field := SortField{Key: part}
		switch part[0] {
		case '-':
			field = SortField{Key: part[1:], Desc: true}
		case '+':
			field = SortField{Key: part[1:]}
		}
		if field.Key == "" {
			continue
		}
		// The relevance score only exists alongside a search clause;
		// without one the key is meaningless and dropped.
		if field.Key == "score" {
			if searching {
				spec.ByTextScore = true
			}
			continue
		}
		spec.Fields = append(spec.Fields, field)
	}

	if spec.ByTextScore {
		spec.Fields = nil
		return spec
	}
	if len(spec.Fields) == 0 {
		if searching {
			return SortSpec{ByTextScore: true}
		}
		return SortSpec{Fields: []SortField{{Key: "createdAt", Desc: true}}}
	}
	return spec
}

// positiveInt coerces raw to a positive integer, falling back to def for
// missing, malformed or zero input and flooring negatives at 1.
func positiveInt(raw string, def int64) int64 {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v == 0 {
		return def
	}
	if v < 1 {
		return 1
	}
	return v
}
