package listing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/dirbot/internal/domain"
)

func strPtr(s string) *string { return &s }

func ints(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPaginateTwentyFiveByTen(t *testing.T) {
	items := ints(25)

	first := Paginate(items, 0, 10)
	assert.Len(t, first.Items, 10)
	assert.True(t, first.HasNext)
	assert.False(t, first.HasPrev)

	last := Paginate(items, 2, 10)
	assert.Len(t, last.Items, 5)
	assert.False(t, last.HasNext)
	assert.True(t, last.HasPrev)
}

func TestPaginateBeyondLastPage(t *testing.T) {
	w := Paginate(ints(5), 3, 2)
	assert.Empty(t, w.Items)
	assert.True(t, w.HasPrev)
	assert.False(t, w.HasNext)
}

func TestPaginateReconstructsItems(t *testing.T) {
	for n := 0; n <= 23; n++ {
		for size := 1; size <= 7; size++ {
			t.Run(fmt.Sprintf("n=%d/size=%d", n, size), func(t *testing.T) {
				items := ints(n)
				var got []int
				for page := 0; page < PageCount(n, size); page++ {
					w := Paginate(items, page, size)
					require.LessOrEqual(t, len(w.Items), size)
					require.Equal(t, page == LastPage(n, size), !w.HasNext)
					got = append(got, w.Items...)
				}
				if n == 0 {
					assert.Empty(t, got)
					return
				}
				assert.Equal(t, items, got)
			})
		}
	}
}

func TestClampPage(t *testing.T) {
	assert.Equal(t, 0, ClampPage(-1, 25, 10))
	assert.Equal(t, 2, ClampPage(3, 25, 10))
	assert.Equal(t, 1, ClampPage(1, 25, 10))
	assert.Equal(t, 0, ClampPage(4, 0, 10))
}

func TestSearchMatchesIDAndDisplayName(t *testing.T) {
	accounts := []domain.Account{
		{ID: "@john:x", DisplayName: strPtr("J. Public")},
		{ID: "@mary:x", DisplayName: strPtr("Mary Johnson")},
		{ID: "@zed:x"},
	}

	got := Search(accounts, "john")
	require.Len(t, got, 2)
	assert.Equal(t, "@john:x", got[0].ID)
	assert.Equal(t, "@mary:x", got[1].ID)

	exact := Search(accounts, "@JOHN:x")
	require.Len(t, exact, 1)
	assert.Equal(t, "@john:x", exact[0].ID)

	assert.Empty(t, Search(accounts, "   "))
}

func TestDeactivationCandidates(t *testing.T) {
	var accounts []domain.Account
	for i := 0; i < 16; i++ {
		accounts = append(accounts, domain.Account{
			ID:          fmt.Sprintf("@u%d:x", i),
			Deactivated: i&1 != 0,
			IsAdmin:     i&2 != 0,
		})
	}

	got := DeactivationCandidates(accounts)
	index := make(map[string]bool, len(accounts))
	for _, acc := range accounts {
		index[acc.ID] = true
	}
	for _, acc := range got {
		assert.True(t, index[acc.ID], "output must be a subset of input")
		assert.False(t, acc.Deactivated)
		assert.False(t, acc.IsAdmin)
	}
	for _, acc := range accounts {
		if !acc.Deactivated && !acc.IsAdmin {
			assert.Contains(t, got, acc)
		}
	}
	assert.Len(t, got, 4)
}
