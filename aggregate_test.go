package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildResultUnreconciledRows(t *testing.T) {
	day := time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)
	api := []ApiRow{mkApi(1, 1000, day), mkApi(2, 2000, day)}
	erp := []ErpRow{mkErp(9, 1000, day)}
	edges := []Edge{{ApiRowID: 1, ErpRowID: 9, Stage: StageM1SameDayRN}}

	result := BuildResult(DefaultConfig(), api, erp, edges, day, day)

	require.Len(t, result.Matches, 1)
	require.Len(t, result.UnrecApi, 1)
	assert.Equal(t, "A", result.UnrecApi[0].ApiID)
	assert.Empty(t, result.UnrecErp)
}

func TestBuildResultWeightedDailySplit(t *testing.T) {
	apiDay := time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)
	erpDay1 := time.Date(2025, 8, 9, 0, 0, 0, 0, time.UTC)
	erpDay2 := time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)

	api := []ApiRow{mkApi(1, 10000, apiDay)} // 100.00
	erp := []ErpRow{mkErp(9, 7500, erpDay1), mkErp(10, 2500, erpDay2)}
	edges := []Edge{
		{ApiRowID: 1, ErpRowID: 9, Stage: StageDescKsum1N},
		{ApiRowID: 1, ErpRowID: 10, Stage: StageDescKsum1N},
	}

	result := BuildResult(DefaultConfig(), api, erp, edges, erpDay1, erpDay2)

	byDate := make(map[string]DailyAggregate)
	for _, d := range result.Daily {
		byDate[d.Date.Format("2006-01-02")] = d
	}
	day1 := byDate["2025-08-09"]
	day2 := byDate["2025-08-10"]

	assert.InDelta(t, 75.0, day1.ApiMatchedAbs, 0.01) // 100 * 75/100
	assert.InDelta(t, 25.0, day2.ApiMatchedAbs, 0.01) // 100 * 25/100
	assert.InDelta(t, 75.0, day1.ErpMatchedAbs, 0.01)
	assert.InDelta(t, 25.0, day2.ErpMatchedAbs, 0.01)
}

func TestBuildResultDenseSpineIncludesZeroActivityDate(t *testing.T) {
	day1 := time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)
	day3 := time.Date(2025, 8, 12, 0, 0, 0, 0, time.UTC)

	api := []ApiRow{mkApi(1, 1000, day1)}
	erp := []ErpRow{mkErp(9, 1000, day1)}
	edges := []Edge{{ApiRowID: 1, ErpRowID: 9, Stage: StageM1SameDayRN}}

	result := BuildResult(DefaultConfig(), api, erp, edges, day1, day3)

	require.Len(t, result.Daily, 3, "the spine must include every date in range, not just dates with activity")
	byDate := make(map[string]DailyAggregate)
	for _, d := range result.Daily {
		byDate[d.Date.Format("2006-01-02")] = d
	}
	mid := byDate["2025-08-11"]
	assert.Zero(t, mid.ApiMatchedAbs)
	assert.Zero(t, mid.ErpMatchedAbs)
	assert.Zero(t, mid.ApiUnrecAbs)
	assert.Zero(t, mid.ErpUnrecAbs)
}

func TestBuildMonthlyAggregatesRegroup(t *testing.T) {
	daily := []DailyAggregate{
		{TenantID: "t1", BankCode: "237", AccTail: "7242", Date: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), ApiUnrecAbs: 10},
		{TenantID: "t1", BankCode: "237", AccTail: "7242", Date: time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC), ApiUnrecAbs: 5},
		{TenantID: "t1", BankCode: "237", AccTail: "7242", Date: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), ApiUnrecAbs: 2},
	}
	monthly := buildMonthlyAggregates(daily)
	require.Len(t, monthly, 2)
	assert.Equal(t, 15.0, monthly[0].ApiUnrecAbs)
	assert.Equal(t, 2.0, monthly[1].ApiUnrecAbs)
}
