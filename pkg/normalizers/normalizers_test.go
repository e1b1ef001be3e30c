package normalizers

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAmount_Formats(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain decimal", "123.45", "123.45"},
		{"brazilian with currency", "R$ 1.234,56", "1234.56"},
		{"us thousands", "1,234.56", "1234.56"},
		{"comma decimal", "1234,56", "1234.56"},
		{"comma single cent digit", "1234,5", "1234.5"},
		{"dot thousands group", "1.234", "1234"},
		{"two decimal digits after dot", "12.34", "12.34"},
		{"multiple dot groups", "1.234.567,89", "1234567.89"},
		{"comma thousands only", "1,234,567", "1234567"},
		{"negative reads as absolute", "-50.00", "50"},
		{"currency and spaces", "R$  987,00", "987"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Amount(tt.raw)
			want := decimal.RequireFromString(tt.want)
			assert.True(t, got.Equal(want), "Amount(%q) = %s, want %s", tt.raw, got, want)
		})
	}
}

func TestAmount_Unparsable(t *testing.T) {
	for _, raw := range []string{"", "   ", "N/A", "abc", "--", "12-34"} {
		assert.True(t, Amount(raw).IsZero(), "Amount(%q) should be zero", raw)
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"João da Silva", "JOAO DA SILVA"},
		{"  pix transf   joão  ", "PIX TRANSF JOAO"},
		{"MARIA-LUIZA D'AVILA", "MARIALUIZA DAVILA"},
		{"José // Comércio Ltda.", "JOSE COMERCIO LTDA"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Name(tt.raw))
	}
}

func TestDocument(t *testing.T) {
	assert.Equal(t, "12345678901", Document("123.456.789-01"))
	assert.Equal(t, "12345678000199", Document("12.345.678/0001-99"))
	assert.Equal(t, "", Document("no digits here"))
}

func TestApplyChain(t *testing.T) {
	assert.Equal(t, "hello world", ApplyChain("  Hello   World  ", "lowercase", "collapse_whitespace"))

	// Unknown normalizers pass the value through untouched
	assert.Equal(t, "AbC", Apply("AbC", "does_not_exist"))
}

func TestRegister(t *testing.T) {
	Register("reverse_test", func(s string) string {
		runes := []rune(s)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes)
	})

	fn, ok := Get("reverse_test")
	assert.True(t, ok)
	assert.Equal(t, "cba", fn("abc"))
}
