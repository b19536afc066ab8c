package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateComponentsKeepsBalanced(t *testing.T) {
	api := map[int64]*ApiRow{1: {ApiRowID: 1, ApiCents: 1000}}
	erp := map[int64]*ErpRow{9: {ErpRowID: 9, ErpCents: 1000}}
	edges := []Edge{{ApiRowID: 1, ErpRowID: 9, Stage: StageM1SameDayRN}}

	got := ValidateComponents(edges, api, erp)
	assert.Equal(t, edges, got)
}

func TestValidateComponentsIsolatesComponentsIndependently(t *testing.T) {
	api := map[int64]*ApiRow{
		1: {ApiRowID: 1, ApiCents: 1000},
		2: {ApiRowID: 2, ApiCents: 500},
	}
	erp := map[int64]*ErpRow{
		9:  {ErpRowID: 9, ErpCents: 1000},
		10: {ErpRowID: 10, ErpCents: 700}, // unbalanced with row 2
	}
	edges := []Edge{
		{ApiRowID: 1, ErpRowID: 9, Stage: StageM1SameDayRN},
		{ApiRowID: 2, ErpRowID: 10, Stage: StageM1SameDayRN},
	}

	got := ValidateComponents(edges, api, erp)
	assert.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ApiRowID)
}

func TestValidateComponentsMergesSharedRowIntoOneComponent(t *testing.T) {
	api := map[int64]*ApiRow{1: {ApiRowID: 1, ApiCents: 1000}}
	erp := map[int64]*ErpRow{
		9:  {ErpRowID: 9, ErpCents: 700},
		10: {ErpRowID: 10, ErpCents: 300},
	}
	edges := []Edge{
		{ApiRowID: 1, ErpRowID: 9, Stage: StageDescKsum1N},
		{ApiRowID: 1, ErpRowID: 10, Stage: StageDescKsum1N},
	}

	got := ValidateComponents(edges, api, erp)
	assert.Len(t, got, 2)
}
