package reconcile

import "time"

// Primitive data structures for the bank/ERP reconciliation core.
// Rows are immutable once loaded; the only mutable state the pipeline
// carries is the growing set of consumed row ids and the growing list
// of candidate edges.

// Sign is the signum of a cents value. Zero-cents rows get SignZero and
// never anchor a subset-sum, but they can still participate in an
// N:M cross-product emitted by the fallback stage.
type Sign int8

const (
	SignNegative Sign = -1
	SignZero     Sign = 0
	SignPositive Sign = 1
)

// SignOf returns the Sign of a cents value.
func SignOf(cents int64) Sign {
	switch {
	case cents > 0:
		return SignPositive
	case cents < 0:
		return SignNegative
	default:
		return SignZero
	}
}

// ApiRow is a single normalized row from the bank API side.
type ApiRow struct {
	ApiRowID      int64
	ApiUID        string
	TenantID      string
	BankCode      string
	BankName      string
	AccTail       string
	ApiDate       time.Time
	ApiCents      int64
	ApiSign       Sign
	ApiAmount     float64
	DescNorm      string
	IsTax         bool
	IsBankFees    bool
	IsPixTariff   bool
	IsRentD1      bool
	IsRentGeneric bool
}

// IsRent reports whether either rent flag is set.
func (r *ApiRow) IsRent() bool { return r.IsRentD1 || r.IsRentGeneric }

// ErpRow is a single normalized row from the ERP ledger side.
type ErpRow struct {
	ErpRowID    int64
	ErpUID      string // cd_lancamento
	TenantID    string
	BankCode    string
	BankName    string
	AccTail     string
	ErpDate     time.Time
	ErpCents    int64
	ErpSign     Sign
	ErpAmount   float64
	DescNorm    string
	Favorecido  string
	NrDocumento string
}

// Edge is a single candidate (later: validated) match between one API row
// and one ERP row, tagged with the stage that produced it.
type Edge struct {
	ApiRowID  int64
	ErpRowID  int64
	Stage     StageName
	Priority  int
	DateDiff  int // fixed per stage: 1 for the M0 D-minus-1 stages, 0 for all others (including 02_DESC_FULL_1N, whose ERP rows may lie up to 2 business days away)
}

// key returns the dedup key for an edge union.
func (e Edge) key() edgeKey { return edgeKey{e.ApiRowID, e.ErpRowID} }

type edgeKey struct {
	apiRowID int64
	erpRowID int64
}

// StageName identifies a matcher stage. Declared as a distinct type (rather
// than bare strings) so stage-exclusivity assertions in tests can switch
// exhaustively.
type StageName string

const (
	StageM0TaxDMinus1       StageName = "M0_TAX_DMINUS1_RN_1TO1"
	StageM0BankFeesDMinus1  StageName = "M0_BANKFEES_DMINUS1_RN_1TO1"
	StageM0RentDMinus1      StageName = "M0_RENT_DMINUS1_RN_1TO1"
	StageDescMNSignature    StageName = "01_DESC_MN_SIGNATURE"
	StageDescFull1N         StageName = "02_DESC_FULL_1N"
	StageDescKsum1N         StageName = "03_DESC_KSUM_1N"
	StageDescKsumN1         StageName = "03_DESC_KSUM_N1"
	StageM1SameDayRN        StageName = "M1_SAME_DAY_RN"
	StageM2KsumSameDay      StageName = "M2_KSUM_SAME_DAY"
	StageFallbackBalanceDay StageName = "07_FALLBACK_BALANCE_DAY"
)

// Priority maps each stage to its audit-metadata priority number (5..30).
// Per design notes, this is never used to reorder or resolve
// matches — cascade execution order and first-write-wins dedup are the
// only things that determine which edges survive to validation.
var stagePriority = map[StageName]int{
	StageM0TaxDMinus1:       5,
	StageM0BankFeesDMinus1:  6,
	StageM0RentDMinus1:      7,
	StageDescMNSignature:    9,
	StageDescFull1N:         9,
	StageDescKsum1N:         9,
	StageDescKsumN1:         9,
	StageM1SameDayRN:        10,
	StageM2KsumSameDay:      20,
	StageFallbackBalanceDay: 30,
}

// Match is an output row of the `matches` table.
type Match struct {
	ApiRowID int64
	ErpRowID int64
	ApiUID   string
	ErpUID   string
	Stage    StageName
	Priority int
	DateDiff int
}

// UnrecApi is an output row of the `unrec_api` table.
type UnrecApi struct {
	TenantID string
	BankCode string
	BankName string
	AccTail  string
	Date     time.Time
	Amount   float64
	ApiID    string
	DescNorm string
}

// UnrecErp is an output row of the `unrec_erp` table.
type UnrecErp struct {
	TenantID     string
	BankCode     string
	BankName     string
	AccTail      string
	Date         time.Time
	Amount       float64
	CdLancamento string
	DescNorm     string
}

// DailyAggregate is an output row of the `daily` table.
type DailyAggregate struct {
	TenantID      string
	BankCode      string
	BankName      string
	AccTail       string
	Date          time.Time
	ApiMatchedAbs float64
	ErpMatchedAbs float64
	ApiUnrecAbs   float64
	ErpUnrecAbs   float64
	UnrecTotalAbs float64
	UnrecDiff     float64
}

// MonthlyAggregate is a DailyAggregate regrouped to month start.
type MonthlyAggregate = DailyAggregate

// Result bundles every output table produced by a single pipeline run.
type Result struct {
	Matches  []Match
	UnrecApi []UnrecApi
	UnrecErp []UnrecErp
	Daily    []DailyAggregate
	Monthly  []MonthlyAggregate
}
