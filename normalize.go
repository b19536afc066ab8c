package reconcile

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(s))
}

// RawApiRow is a single row as read from the bank API source, before
// normalization. Amount is a decimal string (the boundary representation,
// design notes: "decimal types are used only at the boundary").
type RawApiRow struct {
	ApiRowID      int64
	ApiUID        string
	TenantID      string
	BankCode      string
	BankName      string
	AccountNumber string
	Date          string // YYYY-MM-DD
	Amount        string
	Description   string
	Category      string
	CategoryID    string
	OperationType string
}

// RawErpRow is the ERP-side mirror of RawApiRow.
type RawErpRow struct {
	ErpRowID      int64
	ErpUID        string // cd_lancamento
	TenantID      string
	BankCode      string
	BankName      string
	AccountNumber string
	Date          string
	Amount        string
	Description   string
	Favorecido    string
	NrDocumento   string
}

// Normalizer turns raw source rows into the immutable, canonical ApiRow /
// ErpRow sets consumed by the matcher cascade.
type Normalizer struct {
	cfg Config
}

func NewNormalizer(cfg Config) *Normalizer { return &Normalizer{cfg: cfg} }

// NormalizeApiRows converts raw API rows, dropping any row whose amount
// does not parse as a valid decimal (InvalidAmount, exact-cent
// drop path). Drops are logged, never fatal.
func (n *Normalizer) NormalizeApiRows(raw []RawApiRow) []ApiRow {
	out := make([]ApiRow, 0, len(raw))
	for _, r := range raw {
		cents, ok := parseCents(r.Amount)
		if !ok {
			log.Warn().
				Str("kind", string(ErrInvalidAmount)).
				Int64("api_row_id", r.ApiRowID).
				Str("amount", r.Amount).
				Msg("dropping API row with unparseable amount")
			continue
		}
		date, err := parseDate(r.Date)
		if err != nil {
			log.Warn().
				Str("kind", string(ErrInvalidAmount)).
				Int64("api_row_id", r.ApiRowID).
				Str("date", r.Date).
				Msg("dropping API row with unparseable date")
			continue
		}
		flags := deriveFlags(r.Category, r.CategoryID, r.OperationType)
		out = append(out, ApiRow{
			ApiRowID:      r.ApiRowID,
			ApiUID:        r.ApiUID,
			TenantID:      r.TenantID,
			BankCode:      r.BankCode,
			BankName:      r.BankName,
			AccTail:       AccTail(r.AccountNumber, n.cfg.AccTailDigits),
			ApiDate:       date,
			ApiCents:      cents,
			ApiSign:       SignOf(cents),
			ApiAmount:     centsToFloat(cents),
			DescNorm:      NormalizeDescription(r.Description),
			IsTax:         flags.isTax,
			IsBankFees:    flags.isBankFees,
			IsPixTariff:   flags.isPixTariff,
			IsRentD1:      flags.isRentD1,
			IsRentGeneric: flags.isRentGeneric,
		})
	}
	return out
}

// NormalizeErpRows is the ERP-side mirror of NormalizeApiRows.
func (n *Normalizer) NormalizeErpRows(raw []RawErpRow) []ErpRow {
	out := make([]ErpRow, 0, len(raw))
	for _, r := range raw {
		cents, ok := parseCents(r.Amount)
		if !ok {
			log.Warn().
				Str("kind", string(ErrInvalidAmount)).
				Int64("erp_row_id", r.ErpRowID).
				Str("amount", r.Amount).
				Msg("dropping ERP row with unparseable amount")
			continue
		}
		date, err := parseDate(r.Date)
		if err != nil {
			log.Warn().
				Str("kind", string(ErrInvalidAmount)).
				Int64("erp_row_id", r.ErpRowID).
				Str("date", r.Date).
				Msg("dropping ERP row with unparseable date")
			continue
		}
		out = append(out, ErpRow{
			ErpRowID:    r.ErpRowID,
			ErpUID:      r.ErpUID,
			TenantID:    r.TenantID,
			BankCode:    r.BankCode,
			BankName:    r.BankName,
			AccTail:     AccTail(r.AccountNumber, n.cfg.AccTailDigits),
			ErpDate:     date,
			ErpCents:    cents,
			ErpSign:     SignOf(cents),
			ErpAmount:   centsToFloat(cents),
			DescNorm:    NormalizeDescription(r.Description),
			Favorecido:  r.Favorecido,
			NrDocumento: r.NrDocumento,
		})
	}
	return out
}

// parseCents converts a decimal amount string to integer cents using
// round-half-to-even. shopspring/decimal gives exact base-10 arithmetic
// so the rounding is faithful to any source-supplied decimal string,
// unlike a float64 round-trip.
func parseCents(amount string) (int64, bool) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, false
	}
	scaled := d.Mul(decimal.NewFromInt(100)).RoundBank(0)
	return scaled.IntPart(), true
}

func centsToFloat(cents int64) float64 {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).InexactFloat64()
}

// AccTail strips non-digits, strips leading zeros, and returns the
// rightmost `digits` characters.
func AccTail(account string, digits int) string {
	var b strings.Builder
	for _, r := range account {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	s := strings.TrimLeft(b.String(), "0")
	if len(s) <= digits {
		return s
	}
	return s[len(s)-digits:]
}

// NormalizeDescription upper-cases, NFD-decomposes and strips combining
// marks (accent folding), collapses runs of non-alphanumeric characters to
// a single space, and trims.
func NormalizeDescription(desc string) string {
	upper := strings.ToUpper(desc)
	decomposed := norm.NFD.String(upper)

	var folded strings.Builder
	folded.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) { // combining mark
			continue
		}
		folded.WriteRune(r)
	}

	var collapsed strings.Builder
	collapsed.Grow(folded.Len())
	lastWasSpace := false
	for _, r := range folded.String() {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			collapsed.WriteRune(r)
			lastWasSpace = false
			continue
		}
		if !lastWasSpace {
			collapsed.WriteRune(' ')
			lastWasSpace = true
		}
	}
	return strings.TrimSpace(collapsed.String())
}

type derivedFlags struct {
	isTax         bool
	isBankFees    bool
	isPixTariff   bool
	isRentD1      bool
	isRentGeneric bool
}

// deriveFlags maps (category, categoryid, operationtype) to the five
// boolean flags per the documented lookup table. The exact upstream
// category taxonomy is opaque to the core; this implements the
// documented rules literally.
func deriveFlags(category, categoryID, operationType string) derivedFlags {
	cat := strings.ToLower(strings.TrimSpace(category))
	catID := strings.TrimSpace(categoryID)
	opType := strings.ToUpper(strings.TrimSpace(operationType))

	return derivedFlags{
		isTax:         cat == "tax on financial operations" || catID == "15030000",
		isBankFees:    catID == "16000000" || cat == "bank fees",
		isPixTariff:   cat == "transfer - pix" && opType == "TARIFA_SERVICOS_AVULSOS",
		isRentD1:      opType == "RENDIMENTO_APLIC_FINANCEIRA",
		isRentGeneric: cat == "proceeds interests and dividends" || catID == "03060000" || opType == "RESGATE_APLIC_FINANCEIRA",
	}
}
