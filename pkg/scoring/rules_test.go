package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fintally/tally/pkg/models"
)

func datePtr(s string) *time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &ts
}

func pair(receiptAmount, txAmount, receiptName, txName string, receiptDate, txDate *time.Time) candidatePair {
	return newCandidatePair(
		models.ReceiptRecord{RawAmount: receiptAmount, PayerName: receiptName, TransactionDate: receiptDate},
		models.BankTransactionRecord{RawAmount: txAmount, Description: txName, TransactionDate: txDate},
	)
}

func TestScoreAmount_Exact(t *testing.T) {
	rule := models.ReconciliationRule{Type: models.RuleTypeAmount, Strategy: models.RuleStrategyExact}

	t.Run("equal amounts across formats", func(t *testing.T) {
		score, _ := scoreAmount(rule, pair("R$ 1.234,56", "1234.56", "", "", nil, nil))
		assert.Equal(t, 100.0, score)
	})

	t.Run("different amounts score zero", func(t *testing.T) {
		score, _ := scoreAmount(rule, pair("100.00", "100.02", "", "", nil, nil))
		assert.Equal(t, 0.0, score)
	})

	t.Run("unparsable side degrades to zero", func(t *testing.T) {
		score, text := scoreAmount(rule, pair("N/A", "100.00", "", "", nil, nil))
		assert.Equal(t, 0.0, score)
		assert.Equal(t, "amount unavailable", text)
	})
}

func TestScoreAmount_Tolerant(t *testing.T) {
	rule := models.ReconciliationRule{Type: models.RuleTypeAmount, Strategy: models.RuleStrategyTolerant, Tolerance: 2}

	t.Run("half the tolerance scores 75", func(t *testing.T) {
		score, _ := scoreAmount(rule, pair("100.00", "101.00", "", "", nil, nil))
		assert.InDelta(t, 75.0, score, 0.001)
	})

	t.Run("at tolerance scores 50", func(t *testing.T) {
		score, _ := scoreAmount(rule, pair("100.00", "102.00", "", "", nil, nil))
		assert.InDelta(t, 50.0, score, 0.001)
	})

	t.Run("far beyond tolerance scores zero", func(t *testing.T) {
		score, _ := scoreAmount(rule, pair("100.00", "150.00", "", "", nil, nil))
		assert.Equal(t, 0.0, score)
	})
}

func TestScoreDate(t *testing.T) {
	exact := models.ReconciliationRule{Type: models.RuleTypeDate, Strategy: models.RuleStrategyExact}
	tolerant := models.ReconciliationRule{Type: models.RuleTypeDate, Strategy: models.RuleStrategyTolerant, Tolerance: 72}

	d := datePtr("2025-03-10T14:00:00Z")
	dayLater := datePtr("2025-03-11T14:00:00Z")
	weekLater := datePtr("2025-03-17T14:00:00Z")

	t.Run("same instant matches exactly", func(t *testing.T) {
		score, _ := scoreDate(exact, pair("1", "1", "", "", d, d))
		assert.Equal(t, 100.0, score)
	})

	t.Run("exact rule rejects any gap", func(t *testing.T) {
		score, _ := scoreDate(exact, pair("1", "1", "", "", d, dayLater))
		assert.Equal(t, 0.0, score)
	})

	t.Run("24h inside a 72h tolerance", func(t *testing.T) {
		score, _ := scoreDate(tolerant, pair("1", "1", "", "", d, dayLater))
		assert.InDelta(t, 100-(24.0/72.0)*50, score, 0.001)
	})

	t.Run("a week out scores zero", func(t *testing.T) {
		score, _ := scoreDate(tolerant, pair("1", "1", "", "", d, weekLater))
		assert.Equal(t, 0.0, score)
	})

	t.Run("missing timestamp degrades to zero", func(t *testing.T) {
		score, text := scoreDate(tolerant, pair("1", "1", "", "", d, nil))
		assert.Equal(t, 0.0, score)
		assert.Equal(t, "date unavailable", text)
	})
}

func TestScoreName_Similarity(t *testing.T) {
	rule := models.ReconciliationRule{Type: models.RuleTypeName, Strategy: models.RuleStrategySimilarity}

	t.Run("payer name inside statement description", func(t *testing.T) {
		// "DA" is below the token length floor on both sides
		score, _ := scoreName(rule, pair("1", "1", "João da Silva", "PIX TRANSF JOAO DA SILVA", nil, nil))
		assert.InDelta(t, 50.0, score, 0.001)
	})

	t.Run("identical names", func(t *testing.T) {
		score, _ := scoreName(rule, pair("1", "1", "Maria Souza", "MARIA SOUZA", nil, nil))
		assert.Equal(t, 100.0, score)
	})

	t.Run("disjoint names", func(t *testing.T) {
		score, _ := scoreName(rule, pair("1", "1", "Carlos Pereira", "TED REMESSA 8839", nil, nil))
		assert.Equal(t, 0.0, score)
	})

	t.Run("empty side", func(t *testing.T) {
		score, _ := scoreName(rule, pair("1", "1", "", "MARIA", nil, nil))
		assert.Equal(t, 0.0, score)
	})
}

func TestScoreDocument(t *testing.T) {
	rule := models.ReconciliationRule{Type: models.RuleTypeDocument, Strategy: models.RuleStrategyExact}

	t.Run("same digits under different masks", func(t *testing.T) {
		p := newCandidatePair(
			models.ReceiptRecord{RawAmount: "1", PayerDocument: "123.456.789-01"},
			models.BankTransactionRecord{RawAmount: "1", Document: "12345678901"},
		)
		score, _ := scoreDocument(rule, p)
		assert.Equal(t, 100.0, score)
	})

	t.Run("two empty documents never match", func(t *testing.T) {
		p := newCandidatePair(models.ReceiptRecord{RawAmount: "1"}, models.BankTransactionRecord{RawAmount: "1"})
		score, text := scoreDocument(rule, p)
		assert.Equal(t, 0.0, score)
		assert.Equal(t, "document unavailable", text)
	})
}

func TestRuleNormalizerChains(t *testing.T) {
	t.Run("name rule chain without diacritic stripping", func(t *testing.T) {
		p := pair("1", "1", "João", "JOAO", nil, nil)

		deflt := models.ReconciliationRule{Type: models.RuleTypeName, Strategy: models.RuleStrategyExact}
		score, _ := scoreName(deflt, p)
		assert.Equal(t, 100.0, score)

		chained := models.ReconciliationRule{Type: models.RuleTypeName, Strategy: models.RuleStrategyExact, Normalizers: []string{"trim", "uppercase"}}
		score, _ = scoreName(chained, p)
		assert.Equal(t, 0.0, score)
	})

	t.Run("document rule chain keeping letters", func(t *testing.T) {
		p := newCandidatePair(
			models.ReceiptRecord{RawAmount: "1", PayerDocument: "AB-123"},
			models.BankTransactionRecord{RawAmount: "1", Document: "CD-123"},
		)

		// Default digit-only canonicalization collapses both to "123"
		deflt := models.ReconciliationRule{Type: models.RuleTypeDocument, Strategy: models.RuleStrategyExact}
		score, _ := scoreDocument(deflt, p)
		assert.Equal(t, 100.0, score)

		chained := models.ReconciliationRule{Type: models.RuleTypeDocument, Strategy: models.RuleStrategyExact, Normalizers: []string{"trim", "uppercase"}}
		score, _ = scoreDocument(chained, p)
		assert.Equal(t, 0.0, score)
	})
}

func TestEvaluateRule_CustomTypeSkipped(t *testing.T) {
	rule := models.ReconciliationRule{Type: models.RuleTypeCustom}
	_, _, ok := evaluateRule(rule, pair("1", "1", "", "", nil, nil))
	assert.False(t, ok)
}

func TestTokenSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, tokenSimilarity("JOAO SILVA", "JOAO SILVA"))
	assert.Equal(t, 0.5, tokenSimilarity("JOAO SILVA", "PIX TRANSF JOAO SILVA"))
	assert.Equal(t, 0.0, tokenSimilarity("AB", "AB CD"))
	assert.Equal(t, 0.0, tokenSimilarity("CARLOS", "MARIA"))
}

func TestAmountsComparable(t *testing.T) {
	r := models.ReceiptRecord{RawAmount: "100.00"}
	tx := models.BankTransactionRecord{RawAmount: "100.00"}
	assert.True(t, AmountsComparable(r, tx))

	assert.False(t, AmountsComparable(models.ReceiptRecord{RawAmount: "N/A"}, tx))
	assert.False(t, AmountsComparable(r, models.BankTransactionRecord{RawAmount: ""}))
}
