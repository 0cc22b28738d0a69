package domain

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseSortOrder(t *testing.T) {
	tests := []struct {
		in      string
		want    SortOrder
		wantErr bool
	}{
		{in: "", want: SortAsc},
		{in: "asc", want: SortAsc},
		{in: "desc", want: SortDesc},
		{in: "DESC", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseSortOrder(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSortOrder(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSortOrder(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFacetedQueryValidate(t *testing.T) {
	valid := FacetedQuery{Expression: "a:b", PageSize: 10, Page: 1, Limit: 100}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	invalid := FacetedQuery{PageSize: -1}
	err := invalid.Validate()
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Validate() error = %v, want ErrInvalidInput", err)
	}
}

func TestFacetFieldFirst(t *testing.T) {
	f := FacetField{Name: "addr_text", Values: []FacetValue{{Value: "10 Rue X", Count: 3}, {Value: "y", Count: 1}}}
	v, ok := f.First()
	if !ok || v.Value != "10 Rue X" {
		t.Errorf("First() = %+v, %v", v, ok)
	}

	if _, ok := (FacetField{Name: "empty"}).First(); ok {
		t.Error("First() on empty facet ok = true")
	}
}

func TestFacetedResultFacetNames(t *testing.T) {
	r := FacetedResult{Facets: []FacetField{{Name: "b"}, {Name: "a"}}}
	if got := r.FacetNames(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("FacetNames() = %v", got)
	}
}

func TestExpressions(t *testing.T) {
	got := AndExpression(TagExpression("DataLayer_text", "parks"), TagExpression("uid", "1_2_Point"))
	want := "DataLayer_text:parks AND uid:1_2_Point"
	if got != want {
		t.Errorf("AndExpression() = %q, want %q", got, want)
	}
}
