package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkApi(id int64, cents int64, date time.Time) ApiRow {
	return ApiRow{
		ApiRowID: id,
		ApiUID:   "A",
		TenantID: "t1", BankCode: "237", AccTail: "7242",
		ApiDate: date, ApiCents: cents, ApiSign: SignOf(cents),
		ApiAmount: centsToFloat(cents),
	}
}

func mkErp(id int64, cents int64, date time.Time) ErpRow {
	return ErpRow{
		ErpRowID: id,
		ErpUID:   "E",
		TenantID: "t1", BankCode: "237", AccTail: "7242",
		ErpDate: date, ErpCents: cents, ErpSign: SignOf(cents),
		ErpAmount: centsToFloat(cents),
	}
}

func TestRunCascadeTrivial1To1(t *testing.T) {
	day := time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)
	api := []ApiRow{mkApi(1, 12345, day)}
	erp := []ErpRow{mkErp(7, 12345, day)}

	edges := RunCascade(DefaultConfig(), api, erp)

	require.Len(t, edges, 1)
	assert.Equal(t, Edge{ApiRowID: 1, ErpRowID: 7, Stage: StageM1SameDayRN, Priority: 10, DateDiff: 0}, edges[0])
}

func TestRunCascadeN1SameDay(t *testing.T) {
	day := time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)
	api := []ApiRow{mkApi(1, 3000, day), mkApi(2, 2000, day), mkApi(3, 5000, day)}
	erp := []ErpRow{mkErp(9, 10000, day)}

	edges := RunCascade(DefaultConfig(), api, erp)

	require.Len(t, edges, 3)
	seen := make(map[int64]bool)
	for _, e := range edges {
		assert.Equal(t, StageM2KsumSameDay, e.Stage)
		assert.Equal(t, int64(9), e.ErpRowID)
		seen[e.ApiRowID] = true
	}
	assert.True(t, seen[1] && seen[2] && seen[3])
}

func TestRunCascadeBalancedFallback(t *testing.T) {
	day := time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)
	api := []ApiRow{mkApi(1, 100, day), mkApi(2, 200, day)}
	erp := []ErpRow{mkErp(9, 150, day), mkErp(10, 150, day)}

	edges := RunCascade(DefaultConfig(), api, erp)

	require.Len(t, edges, 4)
	for _, e := range edges {
		assert.Equal(t, StageFallbackBalanceDay, e.Stage)
	}

	apiByID := map[int64]*ApiRow{1: &api[0], 2: &api[1]}
	erpByID := map[int64]*ErpRow{9: &erp[0], 10: &erp[1]}
	validated := ValidateComponents(edges, apiByID, erpByID)
	assert.Len(t, validated, 4)
}

// TestRunCascadeDescFull1N mirrors the worked description-anchor example:
// a single API row above the anchor threshold against two ERP rows whose
// descriptions are NOT verbatim equal to the anchor's (one drops
// "FORNECEDOR", the other adds "JUROS") but share enough keywords and sum
// to the anchor's cents. 02_DESC_FULL_1N must match on keyword
// intersection + subset-sum alone, not on description equality.
func TestRunCascadeDescFull1N(t *testing.T) {
	day := time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)
	api := []ApiRow{{
		ApiRowID: 1, TenantID: "t1", BankCode: "237", AccTail: "7242",
		ApiDate: day, ApiCents: 15000000, ApiSign: SignPositive,
		DescNorm: NormalizeDescription("PAGAMENTO FORNECEDOR ACME SUPRIMENTOS NOTA 7823"),
	}}
	erp := []ErpRow{
		{ErpRowID: 9, TenantID: "t1", BankCode: "237", AccTail: "7242",
			ErpDate: day, ErpCents: 10000000, ErpSign: SignPositive,
			DescNorm: NormalizeDescription("ACME SUPRIMENTOS NOTA 7823")},
		{ErpRowID: 10, TenantID: "t1", BankCode: "237", AccTail: "7242",
			ErpDate: day, ErpCents: 5000000, ErpSign: SignPositive,
			DescNorm: NormalizeDescription("ACME SUPRIMENTOS JUROS NOTA 7823")},
	}

	edges := RunCascade(DefaultConfig(), api, erp)

	require.Len(t, edges, 2)
	for _, e := range edges {
		assert.Equal(t, StageDescFull1N, e.Stage)
		assert.Equal(t, int64(1), e.ApiRowID)
	}
}

func TestValidateComponentsRejectsUnbalanced(t *testing.T) {
	api := []ApiRow{mkApi(1, 1000, time.Now())}
	erp := []ErpRow{mkErp(9, 700, time.Now()), mkErp(10, 500, time.Now())}
	apiByID := map[int64]*ApiRow{1: &api[0]}
	erpByID := map[int64]*ErpRow{9: &erp[0], 10: &erp[1]}

	edges := []Edge{
		{ApiRowID: 1, ErpRowID: 9, Stage: StageDescKsum1N},
		{ApiRowID: 1, ErpRowID: 10, Stage: StageDescKsumN1},
	}
	validated := ValidateComponents(edges, apiByID, erpByID)
	assert.Empty(t, validated)
}

func TestRunCascadeOversizedPartitionMatchedByRNFirst(t *testing.T) {
	day := time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)
	cfg := DefaultConfig()
	n := 3000
	api := make([]ApiRow, n)
	erp := make([]ErpRow, n)
	for i := 0; i < n; i++ {
		api[i] = mkApi(int64(i+1), 100, day)
		erp[i] = mkErp(int64(i+1+n), 100, day)
	}

	edges := RunCascade(cfg, api, erp)

	// RN stage matches all equal-cent rows 1:1 before KSUM ever runs.
	assert.Len(t, edges, n)
	for _, e := range edges {
		assert.Equal(t, StageM1SameDayRN, e.Stage)
	}
}

func TestM0TaxDMinus1(t *testing.T) {
	apiDay := time.Date(2025, 8, 7, 0, 0, 0, 0, time.UTC)  // Thursday
	erpDay := time.Date(2025, 8, 8, 0, 0, 0, 0, time.UTC)  // Friday, +1 business day
	api := []ApiRow{{
		ApiRowID: 1, TenantID: "t1", BankCode: "237", AccTail: "7242",
		ApiDate: apiDay, ApiCents: -500, ApiSign: SignNegative, IsTax: true,
	}}
	erp := []ErpRow{mkErp(9, -500, erpDay)}

	edges := RunCascade(DefaultConfig(), api, erp)

	require.Len(t, edges, 1)
	assert.Equal(t, StageM0TaxDMinus1, edges[0].Stage)
	assert.Equal(t, 1, edges[0].DateDiff)
}

func TestKsumSameDayExcludesRentRows(t *testing.T) {
	day := time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)
	api := []ApiRow{{
		ApiRowID: 1, TenantID: "t1", BankCode: "237", AccTail: "7242",
		ApiDate: day, ApiCents: 3000, ApiSign: SignPositive, IsRentD1: true,
	}}
	erp := []ErpRow{mkErp(9, 3000, day)}

	cfg := DefaultConfig()
	ws := newWorkingSet(cfg, api, erp)
	runKsumSameDayStage(ws)

	assert.Empty(t, ws.edges)
}
