package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCents(t *testing.T) {
	t.Run("rounds to cents", func(t *testing.T) {
		c, ok := parseCents("123.456")
		require.True(t, ok)
		assert.Equal(t, int64(12346), c)
	})

	t.Run("tie rounds to even, down", func(t *testing.T) {
		c, ok := parseCents("123.445")
		require.True(t, ok)
		assert.Equal(t, int64(12344), c)
	})

	t.Run("tie rounds to even, up", func(t *testing.T) {
		c, ok := parseCents("123.455")
		require.True(t, ok)
		assert.Equal(t, int64(12346), c)
	})

	t.Run("negative amount", func(t *testing.T) {
		c, ok := parseCents("-50.00")
		require.True(t, ok)
		assert.Equal(t, int64(-5000), c)
	})

	t.Run("invalid string drops", func(t *testing.T) {
		_, ok := parseCents("not-a-number")
		assert.False(t, ok)
	})

	t.Run("empty string drops", func(t *testing.T) {
		_, ok := parseCents("")
		assert.False(t, ok)
	})
}

func TestAccTail(t *testing.T) {
	assert.Equal(t, "72420", AccTail("0000-00072420", 8))
	assert.Equal(t, "7242", AccTail("007242", 8))
	assert.Equal(t, "3456789", AccTail("123456789", 7))
}

func TestNormalizeDescription(t *testing.T) {
	got := NormalizeDescription("Pagaménto Fôrnecedor  ACME-NF/7823")
	assert.Equal(t, "PAGAMENTO FORNECEDOR ACME NF 7823", got)
}

func TestDeriveFlags(t *testing.T) {
	t.Run("tax by category", func(t *testing.T) {
		f := deriveFlags("Tax on Financial Operations", "", "")
		assert.True(t, f.isTax)
	})

	t.Run("tax by category id", func(t *testing.T) {
		f := deriveFlags("", "15030000", "")
		assert.True(t, f.isTax)
	})

	t.Run("bank fees", func(t *testing.T) {
		f := deriveFlags("Bank Fees", "", "")
		assert.True(t, f.isBankFees)
	})

	t.Run("pix tariff requires both fields", func(t *testing.T) {
		f := deriveFlags("Transfer - PIX", "", "TARIFA_SERVICOS_AVULSOS")
		assert.True(t, f.isPixTariff)
		f2 := deriveFlags("Transfer - PIX", "", "")
		assert.False(t, f2.isPixTariff)
	})

	t.Run("rent d1", func(t *testing.T) {
		f := deriveFlags("", "", "RENDIMENTO_APLIC_FINANCEIRA")
		assert.True(t, f.isRentD1)
		assert.False(t, f.isRentGeneric)
	})

	t.Run("rent generic", func(t *testing.T) {
		f := deriveFlags("Proceeds Interests and Dividends", "", "")
		assert.True(t, f.isRentGeneric)
	})
}

func TestNormalizeApiRowsDropsInvalid(t *testing.T) {
	n := NewNormalizer(DefaultConfig())
	raw := []RawApiRow{
		{ApiRowID: 1, Date: "2025-08-01", Amount: "100.00", AccountNumber: "12345678"},
		{ApiRowID: 2, Date: "2025-08-01", Amount: "garbage", AccountNumber: "12345678"},
		{ApiRowID: 3, Date: "not-a-date", Amount: "50.00", AccountNumber: "12345678"},
	}
	rows := n.NormalizeApiRows(raw)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].ApiRowID)
	assert.Equal(t, int64(10000), rows[0].ApiCents)
	assert.Equal(t, SignPositive, rows[0].ApiSign)
}
