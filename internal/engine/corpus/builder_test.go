package corpus

import (
	"testing"

	"github.com/boddenberg/finml/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_EightVariantsPerKeyword(t *testing.T) {
	table := domain.KeywordTable{
		domain.CategoryTravel: {"hotel"},
	}

	got := Build(table)

	want := []string{
		"payment to hotel",
		"hotel purchase",
		"bought from hotel",
		"hotel expense",
		"spending on hotel",
		"hotel",
		"hotel service",
		"hotel bill",
	}
	require.Len(t, got, len(want))
	for i, ex := range got {
		assert.Equal(t, want[i], ex.Text)
		assert.Equal(t, domain.CategoryTravel, ex.Category)
	}
}

func TestBuild_OrderFollowsEnumerationThenKeywords(t *testing.T) {
	table := domain.KeywordTable{
		domain.CategoryOther:      {"misc"},
		domain.CategoryFoodDining: {"pizza", "cafe"},
	}

	got := Build(table)
	require.Len(t, got, 3*len(Templates))

	assert.Equal(t, domain.CategoryFoodDining, got[0].Category)
	assert.Equal(t, "payment to pizza", got[0].Text)
	assert.Equal(t, "payment to cafe", got[len(Templates)].Text)
	assert.Equal(t, domain.CategoryOther, got[2*len(Templates)].Category)
	assert.Equal(t, "payment to misc", got[2*len(Templates)].Text)
}

func TestBuild_DefaultTableIsDeterministic(t *testing.T) {
	table := domain.DefaultKeywordTable()

	first := Build(table)
	second := Build(table)

	assert.Equal(t, first, second)

	total := 0
	for _, kws := range table {
		total += len(kws)
	}
	assert.Len(t, first, total*len(Templates))
}

func TestBuild_EmptyTable(t *testing.T) {
	assert.Empty(t, Build(domain.KeywordTable{}))
}
