package domain

import (
	"fmt"
	"strings"
)

// SortOrder is the direction of a faceted query sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder parses "asc" or "desc". An empty string yields SortAsc.
func ParseSortOrder(s string) (SortOrder, error) {
	switch s {
	case "", "asc":
		return SortAsc, nil
	case "desc":
		return SortDesc, nil
	default:
		return "", &ValidationError{
			Field:      "sort_order",
			Value:      s,
			Constraint: "asc|desc",
			Message:    "unsupported sort order",
		}
	}
}

// FacetedQuery is a query asking the backend for records and facet counts.
type FacetedQuery struct {
	Expression string    // Query expression, e.g. "DataLayer_text:parks AND uid:1_2_Point"
	Facets     []string  // Fields to facet on
	SortField  string    // Optional sort field
	SortOrder  SortOrder // Sort direction
	PageSize   int       // Records per page
	Page       int       // 1-based page number
	Limit      int       // Upper bound on records considered
	Highlight  bool      // Request highlighted snippets
}

// Validate checks paging arguments.
func (q *FacetedQuery) Validate() error {
	if q.PageSize < 0 {
		return &ValidationError{Field: "page_size", Value: q.PageSize, Constraint: ">= 0"}
	}
	if q.Page < 0 {
		return &ValidationError{Field: "page", Value: q.Page, Constraint: ">= 0"}
	}
	if q.Limit < 0 {
		return &ValidationError{Field: "limit", Value: q.Limit, Constraint: ">= 0"}
	}
	return nil
}

// FacetValue is one distinct value of a facet with its count.
type FacetValue struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// FacetField is a faceted field with its values, most frequent first.
type FacetField struct {
	Name   string       `json:"name"`
	Values []FacetValue `json:"values"`
}

// First returns the first facet value.
func (f FacetField) First() (FacetValue, bool) {
	if len(f.Values) == 0 {
		return FacetValue{}, false
	}
	return f.Values[0], true
}

// FacetedResult is the backend answer to a FacetedQuery.
type FacetedResult struct {
	Facets  []FacetField
	Records []SearchRecord
}

// FacetNames returns the facet field names in order.
func (r *FacetedResult) FacetNames() []string {
	names := make([]string, len(r.Facets))
	for i, f := range r.Facets {
		names[i] = f.Name
	}
	return names
}

// TagExpression builds the "<field>:<value>" query term.
func TagExpression(field, value string) string {
	return fmt.Sprintf("%s:%s", field, value)
}

// AndExpression joins terms with AND.
func AndExpression(terms ...string) string {
	return strings.Join(terms, " AND ")
}
