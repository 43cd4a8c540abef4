package pagination_test

import (
	"net/url"
	"testing"

	"github.com/ledgerline/ledgerline/pkg/pagination"
)

func testConfig() pagination.Config {
	return pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		req          pagination.PageRequest
		wantPage     int
		wantPageSize int
	}{
		{"zero values", pagination.PageRequest{}, 1, 20},
		{"negative page", pagination.PageRequest{Page: -3, PageSize: 10}, 1, 10},
		{"oversized page size", pagination.PageRequest{Page: 2, PageSize: 500}, 2, 100},
		{"valid request", pagination.PageRequest{Page: 3, PageSize: 50}, 3, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize(testConfig())
			if tt.req.Page != tt.wantPage {
				t.Errorf("Page = %d, want %d", tt.req.Page, tt.wantPage)
			}
			if tt.req.PageSize != tt.wantPageSize {
				t.Errorf("PageSize = %d, want %d", tt.req.PageSize, tt.wantPageSize)
			}
		})
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	values := url.Values{}
	values.Set("page", "2")
	values.Set("page_size", "10")
	values.Set("search", "invoice")

	req := pagination.PageRequestFromQuery(values, testConfig())
	if req.Page != 2 || req.PageSize != 10 || req.Search != "invoice" {
		t.Errorf("req = %+v", req)
	}

	empty := pagination.PageRequestFromQuery(url.Values{}, testConfig())
	if empty.Page != 1 || empty.PageSize != 20 {
		t.Errorf("empty query req = %+v", empty)
	}
}

func TestPaginate(t *testing.T) {
	items := make([]int, 25)
	for i := range items {
		items[i] = i
	}

	t.Run("first page", func(t *testing.T) {
		result := pagination.Paginate(items, pagination.PageRequest{Page: 1, PageSize: 10})
		if len(result.Data) != 10 || result.Data[0] != 0 {
			t.Errorf("Data = %v", result.Data)
		}
		if result.Total != 25 || result.TotalPages != 3 {
			t.Errorf("Total = %d, TotalPages = %d", result.Total, result.TotalPages)
		}
	})

	t.Run("last partial page", func(t *testing.T) {
		result := pagination.Paginate(items, pagination.PageRequest{Page: 3, PageSize: 10})
		if len(result.Data) != 5 || result.Data[0] != 20 {
			t.Errorf("Data = %v", result.Data)
		}
	})

	t.Run("page past the end", func(t *testing.T) {
		result := pagination.Paginate(items, pagination.PageRequest{Page: 10, PageSize: 10})
		if len(result.Data) != 0 {
			t.Errorf("Data = %v, want empty", result.Data)
		}
		if result.Total != 25 {
			t.Errorf("Total = %d, want 25", result.Total)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		result := pagination.Paginate([]int{}, pagination.PageRequest{Page: 1, PageSize: 10})
		if result.Data == nil {
			t.Error("Data = nil, want empty slice")
		}
		if result.TotalPages != 1 {
			t.Errorf("TotalPages = %d, want 1", result.TotalPages)
		}
	})
}
