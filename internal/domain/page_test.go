package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/welfare-transport/backend/internal/domain"
)

func TestNewPaginationParams(t *testing.T) {
	intPtr := func(v int) *int { return &v }

	tests := []struct {
		name        string
		page, limit *int
		want        domain.PaginationParams
		offset      int
	}{
		{"defaults", nil, nil, domain.PaginationParams{Page: 1, Limit: 20}, 0},
		{"explicit", intPtr(3), intPtr(10), domain.PaginationParams{Page: 3, Limit: 10}, 20},
		{"limit capped", nil, intPtr(500), domain.PaginationParams{Page: 1, Limit: 100}, 0},
		{"page capped", intPtr(1 << 62), intPtr(100), domain.PaginationParams{Page: domain.MaxPage, Limit: 100}, (domain.MaxPage - 1) * 100},
		{"non-positive ignored", intPtr(0), intPtr(-4), domain.PaginationParams{Page: 1, Limit: 20}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := domain.NewPaginationParams(tc.page, tc.limit)

			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.offset, got.Offset())
		})
	}
}
