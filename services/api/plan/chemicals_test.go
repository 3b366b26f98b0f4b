package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectFinalKeepsDuplicateLineItems(t *testing.T) {
	planRows := []ChemicalRow{{Name: "Mancozeb", Rate: 10, UOM: "gram"}}
	modalRows := []ChemicalRow{{Name: "Mancozeb", Rate: 20, UOM: "gram"}}

	final := CollectFinal(planRows, modalRows)

	require.Len(t, final, 2)
	assert.Equal(t, 10.0, final[0].Rate)
	assert.Equal(t, 20.0, final[1].Rate)
}

func TestCollectFinalDropsInvalidRows(t *testing.T) {
	rows := []ChemicalRow{
		{Name: "  Abamectin  ", Rate: 5},
		{Name: "", Rate: 5},
		{Name: "Zeroed", Rate: 0},
		{Name: "Negative", Rate: -1},
	}

	final := CollectFinal(rows, nil)

	require.Len(t, final, 1)
	assert.Equal(t, "Abamectin", final[0].Name)
}

func TestUniqueNamesDeduplicatesInFirstSeenOrder(t *testing.T) {
	rows := []ChemicalRow{
		{Name: "Mancozeb", Rate: 10},
		{Name: "Abamectin", Rate: 5},
		{Name: "Mancozeb", Rate: 20},
	}

	assert.Equal(t, []string{"Mancozeb", "Abamectin"}, UniqueNames(rows))
}

func TestSummarizeStock(t *testing.T) {
	balances := map[string]map[string]float64{
		"Mancozeb":  {"Main Store": 40, "Satellite": 10},
		"Abamectin": {"Main Store": 0},
	}
	chosen := func(chemical string) string {
		if chemical == "Mancozeb" {
			return "Main Store"
		}
		return ""
	}

	summaries := SummarizeStock(balances, chosen)

	require.Len(t, summaries, 2)
	assert.Equal(t, "Abamectin", summaries[0].Chemical)
	assert.True(t, summaries[0].Insufficient)
	assert.Empty(t, summaries[0].SourceWarehouse)

	assert.Equal(t, "Mancozeb", summaries[1].Chemical)
	assert.Equal(t, 50.0, summaries[1].Total)
	assert.False(t, summaries[1].Insufficient)
	assert.Equal(t, "Main Store", summaries[1].SourceWarehouse)
}

func TestValidateForSubmission(t *testing.T) {
	complete := ChemicalRow{Name: "Mancozeb", Rate: 10, UOM: "gram", SourceWarehouse: "Main Store"}

	assert.NoError(t, ValidateForSubmission([]ChemicalRow{complete}))

	broken := []ChemicalRow{
		{Rate: 10, UOM: "gram", SourceWarehouse: "Main Store"},
		{Name: "Mancozeb", UOM: "gram", SourceWarehouse: "Main Store"},
		{Name: "Mancozeb", Rate: 10, SourceWarehouse: "Main Store"},
		{Name: "Mancozeb", Rate: 10, UOM: "gram"},
	}
	for _, row := range broken {
		err := ValidateForSubmission([]ChemicalRow{complete, row})
		assert.ErrorIs(t, err, ErrIncompleteChemicalRows)
	}
}
