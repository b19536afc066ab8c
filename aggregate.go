package reconcile

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// dailyKey groups an aggregate row by (tenant, bank, acc_tail, date).
type dailyKey struct {
	tenantID string
	bankCode string
	bankName string
	accTail  string
	date     string
}

// BuildResult assembles the full output Result (matches, unreconciled
// rows, daily and monthly aggregates) from the validated edge set, per
// component C7.
func BuildResult(cfg Config, apiRows []ApiRow, erpRows []ErpRow, edges []Edge, dateFrom, dateTo time.Time) Result {
	apiByID := make(map[int64]*ApiRow, len(apiRows))
	for i := range apiRows {
		apiByID[apiRows[i].ApiRowID] = &apiRows[i]
	}
	erpByID := make(map[int64]*ErpRow, len(erpRows))
	for i := range erpRows {
		erpByID[erpRows[i].ErpRowID] = &erpRows[i]
	}

	matches := make([]Match, 0, len(edges))
	matchedApi := make(map[int64]bool, len(edges))
	matchedErp := make(map[int64]bool, len(edges))
	apiToErp := make(map[int64][]int64) // api_row_id -> erp_row_ids it matched

	for _, e := range edges {
		a := apiByID[e.ApiRowID]
		r := erpByID[e.ErpRowID]
		if a == nil || r == nil {
			continue
		}
		matches = append(matches, Match{
			ApiRowID: e.ApiRowID,
			ErpRowID: e.ErpRowID,
			ApiUID:   a.ApiUID,
			ErpUID:   r.ErpUID,
			Stage:    e.Stage,
			Priority: e.Priority,
			DateDiff: e.DateDiff,
		})
		matchedApi[e.ApiRowID] = true
		matchedErp[e.ErpRowID] = true
		apiToErp[e.ApiRowID] = append(apiToErp[e.ApiRowID], e.ErpRowID)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].ApiRowID != matches[j].ApiRowID {
			return matches[i].ApiRowID < matches[j].ApiRowID
		}
		return matches[i].ErpRowID < matches[j].ErpRowID
	})

	unrecApi := make([]UnrecApi, 0)
	for i := range apiRows {
		r := &apiRows[i]
		if matchedApi[r.ApiRowID] {
			continue
		}
		unrecApi = append(unrecApi, UnrecApi{
			TenantID: r.TenantID,
			BankCode: r.BankCode,
			BankName: r.BankName,
			AccTail:  r.AccTail,
			Date:     r.ApiDate,
			Amount:   r.ApiAmount,
			ApiID:    r.ApiUID,
			DescNorm: r.DescNorm,
		})
	}
	sort.Slice(unrecApi, func(i, j int) bool { return unrecApi[i].ApiID < unrecApi[j].ApiID })

	unrecErp := make([]UnrecErp, 0)
	for i := range erpRows {
		r := &erpRows[i]
		if matchedErp[r.ErpRowID] {
			continue
		}
		unrecErp = append(unrecErp, UnrecErp{
			TenantID:     r.TenantID,
			BankCode:     r.BankCode,
			BankName:     r.BankName,
			AccTail:      r.AccTail,
			Date:         r.ErpDate,
			Amount:       r.ErpAmount,
			CdLancamento: r.ErpUID,
			DescNorm:     r.DescNorm,
		})
	}
	sort.Slice(unrecErp, func(i, j int) bool { return unrecErp[i].CdLancamento < unrecErp[j].CdLancamento })

	daily := buildDailyAggregates(cfg, apiRows, erpRows, apiToErp, erpByID, matchedApi, matchedErp, dateFrom, dateTo)
	monthly := buildMonthlyAggregates(daily)

	return Result{
		Matches:  matches,
		UnrecApi: unrecApi,
		UnrecErp: unrecErp,
		Daily:    daily,
		Monthly:  monthly,
	}
}

// buildDailyAggregates implements daily aggregate: a dense
// (tenant, bank, acc_tail, date) spine over [dateFrom, dateTo], with
// api_matched_abs computed by splitting each matched API row's |amount|
// across the ERP dates of its surviving matches, weighted by each ERP's
// |amount| share of the match's total ERP amount.
func buildDailyAggregates(
	cfg Config,
	apiRows []ApiRow,
	erpRows []ErpRow,
	apiToErp map[int64][]int64,
	erpByID map[int64]*ErpRow,
	matchedApi, matchedErp map[int64]bool,
	dateFrom, dateTo time.Time,
) []DailyAggregate {
	type acct struct {
		tenantID, bankCode, bankName, accTail string
	}
	accounts := make(map[acct]bool)

	apiMatchedAbs := make(map[dailyKey]float64)
	for i := range apiRows {
		a := &apiRows[i]
		accounts[acct{a.TenantID, a.BankCode, a.BankName, a.AccTail}] = true
		erpIDs := apiToErp[a.ApiRowID]
		if len(erpIDs) == 0 {
			continue
		}
		var totalErpAbs float64
		for _, eid := range erpIDs {
			if e := erpByID[eid]; e != nil {
				totalErpAbs += math.Abs(e.ErpAmount)
			}
		}
		apiAbs := math.Abs(a.ApiAmount)
		if totalErpAbs <= 0 {
			continue
		}
		for _, eid := range erpIDs {
			e := erpByID[eid]
			if e == nil {
				continue
			}
			share := math.Abs(e.ErpAmount) / totalErpAbs
			k := dailyKey{a.TenantID, a.BankCode, a.BankName, a.AccTail, e.ErpDate.Format("2006-01-02")}
			apiMatchedAbs[k] += apiAbs * share
		}
	}

	erpMatchedAbs := make(map[dailyKey]float64)
	apiUnrecAbs := make(map[dailyKey]float64)
	erpUnrecAbs := make(map[dailyKey]float64)

	for i := range erpRows {
		r := &erpRows[i]
		accounts[acct{r.TenantID, r.BankCode, r.BankName, r.AccTail}] = true
		k := dailyKey{r.TenantID, r.BankCode, r.BankName, r.AccTail, r.ErpDate.Format("2006-01-02")}
		if matchedErp[r.ErpRowID] {
			erpMatchedAbs[k] += math.Abs(r.ErpAmount)
		} else {
			erpUnrecAbs[k] += math.Abs(r.ErpAmount)
		}
	}
	for i := range apiRows {
		a := &apiRows[i]
		if matchedApi[a.ApiRowID] {
			continue
		}
		k := dailyKey{a.TenantID, a.BankCode, a.BankName, a.AccTail, a.ApiDate.Format("2006-01-02")}
		apiUnrecAbs[k] += math.Abs(a.ApiAmount)
	}

	dates := DateRange(dateFrom, dateTo)
	out := make([]DailyAggregate, 0, len(accounts)*len(dates))
	accts := make([]acct, 0, len(accounts))
	for a := range accounts {
		accts = append(accts, a)
	}
	sort.Slice(accts, func(i, j int) bool {
		if accts[i].tenantID != accts[j].tenantID {
			return accts[i].tenantID < accts[j].tenantID
		}
		if accts[i].bankCode != accts[j].bankCode {
			return accts[i].bankCode < accts[j].bankCode
		}
		return accts[i].accTail < accts[j].accTail
	})

	for _, a := range accts {
		for _, d := range dates {
			k := dailyKey{a.tenantID, a.bankCode, a.bankName, a.accTail, d.Format("2006-01-02")}
			am := round2(apiMatchedAbs[k])
			em := round2(erpMatchedAbs[k])
			au := round2(apiUnrecAbs[k])
			eu := round2(erpUnrecAbs[k])
			out = append(out, DailyAggregate{
				TenantID:      a.tenantID,
				BankCode:      a.bankCode,
				BankName:      a.bankName,
				AccTail:       a.accTail,
				Date:          d,
				ApiMatchedAbs: am,
				ErpMatchedAbs: em,
				ApiUnrecAbs:   au,
				ErpUnrecAbs:   eu,
				UnrecTotalAbs: round2(au + eu),
				UnrecDiff:     round2(eu - au),
			})
		}
	}
	return out
}

// buildMonthlyAggregates regroups daily rows by month start and sums them.
func buildMonthlyAggregates(daily []DailyAggregate) []MonthlyAggregate {
	type key struct {
		tenantID, bankCode, accTail, month string
	}
	sums := make(map[key]*MonthlyAggregate)
	order := make([]key, 0)

	for _, d := range daily {
		k := key{d.TenantID, d.BankCode, d.AccTail, MonthStart(d.Date).Format("2006-01-02")}
		agg, ok := sums[k]
		if !ok {
			agg = &MonthlyAggregate{
				TenantID: d.TenantID,
				BankCode: d.BankCode,
				BankName: d.BankName,
				AccTail:  d.AccTail,
				Date:     MonthStart(d.Date),
			}
			sums[k] = agg
			order = append(order, k)
		}
		agg.ApiMatchedAbs += d.ApiMatchedAbs
		agg.ErpMatchedAbs += d.ErpMatchedAbs
		agg.ApiUnrecAbs += d.ApiUnrecAbs
		agg.ErpUnrecAbs += d.ErpUnrecAbs
		agg.UnrecTotalAbs += d.UnrecTotalAbs
		agg.UnrecDiff += d.UnrecDiff
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].tenantID != order[j].tenantID {
			return order[i].tenantID < order[j].tenantID
		}
		if order[i].bankCode != order[j].bankCode {
			return order[i].bankCode < order[j].bankCode
		}
		if order[i].accTail != order[j].accTail {
			return order[i].accTail < order[j].accTail
		}
		return order[i].month < order[j].month
	})

	out := make([]MonthlyAggregate, 0, len(order))
	for _, k := range order {
		agg := sums[k]
		agg.ApiMatchedAbs = round2(agg.ApiMatchedAbs)
		agg.ErpMatchedAbs = round2(agg.ErpMatchedAbs)
		agg.ApiUnrecAbs = round2(agg.ApiUnrecAbs)
		agg.ErpUnrecAbs = round2(agg.ErpUnrecAbs)
		agg.UnrecTotalAbs = round2(agg.UnrecTotalAbs)
		agg.UnrecDiff = round2(agg.UnrecDiff)
		out = append(out, *agg)
	}
	return out
}

// round2 rounds to two decimals at the reporting boundary ("All
// sums rounded to two decimals"), using shopspring/decimal rather than a
// float64 multiply-round-divide so the rounding is exact base-10, matching
// the boundary-only decimal use of the normalizer (design notes).
func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
