package matching

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fintally/tally/pkg/learning"
	"github.com/fintally/tally/pkg/models"
	"github.com/fintally/tally/pkg/scoring"
)

func newTestEngine() *Engine {
	store := learning.NewStore(zap.NewNop())
	return NewEngine(scoring.NewAggregator(store, zap.NewNop()), zap.NewNop())
}

func datePtr(s string) *time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &ts
}

func receipt(id, amount, payer string, date *time.Time) models.ReceiptRecord {
	return models.ReceiptRecord{ID: id, RawAmount: amount, PayerName: payer, TransactionDate: date}
}

func transaction(id, amount, description string, date *time.Time) models.BankTransactionRecord {
	return models.BankTransactionRecord{ID: id, RawAmount: amount, Description: description, TransactionDate: date}
}

func TestEngine_Reconcile_ExactMatchAutoMatched(t *testing.T) {
	engine := newTestEngine()
	d := datePtr("2025-03-10T14:30:00Z")

	receipts := []models.ReceiptRecord{receipt("r1", "R$ 100,50", "João da Silva", d)}
	transactions := []models.BankTransactionRecord{transaction("t1", "100.50", "PIX TRANSF JOAO DA SILVA", d)}

	summary := engine.Reconcile(context.Background(), receipts, transactions, models.DefaultSettings())

	require.Len(t, summary.Matches, 1)
	match := summary.Matches[0]
	assert.Equal(t, "r1", match.ReceiptID)
	assert.Equal(t, "t1", match.TransactionID)
	assert.Equal(t, models.MatchStatusAutoMatched, match.Status)
	assert.GreaterOrEqual(t, match.Score, 90.0)
	assert.NotEmpty(t, match.Reasons)
	assert.NotEmpty(t, match.Signature)
	assert.Equal(t, 1, summary.AutoMatched)
	assert.Equal(t, 0, summary.Unmatched)
}

func TestEngine_Reconcile_AmountOnlyNeedsReview(t *testing.T) {
	engine := newTestEngine()

	// Same amount, but no timestamps and unrelated names
	receipts := []models.ReceiptRecord{receipt("r1", "512.30", "Carlos Pereira", nil)}
	transactions := []models.BankTransactionRecord{transaction("t1", "512.30", "TED REMESSA 8839", nil)}

	summary := engine.Reconcile(context.Background(), receipts, transactions, models.DefaultSettings())

	require.Len(t, summary.Matches, 1)
	assert.Equal(t, models.MatchStatusManualReview, summary.Matches[0].Status)
	assert.Less(t, summary.Matches[0].Score, 70.0)
	assert.Equal(t, 1, summary.ManualReview)
}

func TestEngine_Reconcile_NoPlausibleMatch(t *testing.T) {
	engine := newTestEngine()

	receipts := []models.ReceiptRecord{receipt("r1", "512.30", "Carlos Pereira", nil)}
	transactions := []models.BankTransactionRecord{transaction("t1", "9.99", "TARIFA PACOTE SERVICOS", nil)}

	summary := engine.Reconcile(context.Background(), receipts, transactions, models.DefaultSettings())

	assert.Empty(t, summary.Matches)
	assert.Equal(t, 1, summary.Unmatched)
	assert.Equal(t, 0, summary.AutoMatched)
	assert.Equal(t, 0, summary.ManualReview)
}

func TestEngine_Reconcile_TransactionClaimedOnce(t *testing.T) {
	engine := newTestEngine()
	d := datePtr("2025-03-10T09:00:00Z")

	// Both receipts fit the lone transaction equally well; the earlier one
	// claims it and the later one goes unmatched.
	receipts := []models.ReceiptRecord{
		receipt("r1", "75.00", "Ana Lima", d),
		receipt("r2", "75.00", "Ana Lima", d),
	}
	transactions := []models.BankTransactionRecord{transaction("t1", "75.00", "PIX ANA LIMA", d)}

	summary := engine.Reconcile(context.Background(), receipts, transactions, models.DefaultSettings())

	require.Len(t, summary.Matches, 1)
	assert.Equal(t, "r1", summary.Matches[0].ReceiptID)
	assert.Equal(t, 1, summary.Unmatched)
}

func TestEngine_Reconcile_PicksBestAvailable(t *testing.T) {
	engine := newTestEngine()
	d := datePtr("2025-03-10T09:00:00Z")

	receipts := []models.ReceiptRecord{receipt("r1", "75.00", "Ana Lima", d)}
	transactions := []models.BankTransactionRecord{
		transaction("t1", "75.90", "DEB AUTOR CONVENIO", nil),
		transaction("t2", "75.00", "PIX ANA LIMA", d),
	}

	summary := engine.Reconcile(context.Background(), receipts, transactions, models.DefaultSettings())

	require.Len(t, summary.Matches, 1)
	assert.Equal(t, "t2", summary.Matches[0].TransactionID)
}

func TestEngine_Reconcile_Deterministic(t *testing.T) {
	engine := newTestEngine()
	d := datePtr("2025-03-10T09:00:00Z")

	receipts := []models.ReceiptRecord{
		receipt("r1", "75.00", "Ana Lima", d),
		receipt("r2", "120.00", "Bruno Costa", d),
	}
	transactions := []models.BankTransactionRecord{
		transaction("t1", "120.00", "PIX BRUNO COSTA", d),
		transaction("t2", "75.00", "PIX ANA LIMA", d),
	}

	first := engine.Reconcile(context.Background(), receipts, transactions, models.DefaultSettings())
	second := engine.Reconcile(context.Background(), receipts, transactions, models.DefaultSettings())

	require.Equal(t, len(first.Matches), len(second.Matches))
	for i := range first.Matches {
		assert.Equal(t, first.Matches[i].ReceiptID, second.Matches[i].ReceiptID)
		assert.Equal(t, first.Matches[i].TransactionID, second.Matches[i].TransactionID)
		assert.Equal(t, first.Matches[i].Score, second.Matches[i].Score)
	}
}

func TestEngine_Reconcile_StrictMode(t *testing.T) {
	engine := newTestEngine()
	d := datePtr("2025-03-10T09:00:00Z")

	receipts := []models.ReceiptRecord{receipt("r1", "N/A", "Ana Lima", d)}
	transactions := []models.BankTransactionRecord{transaction("t1", "75.00", "PIX ANA LIMA", d)}

	t.Run("strict mode drops the candidate outright", func(t *testing.T) {
		settings := models.DefaultSettings()
		settings.StrictMode = true
		summary := engine.Reconcile(context.Background(), receipts, transactions, settings)
		assert.Empty(t, summary.Matches)
		assert.Equal(t, 1, summary.Unmatched)
	})

	t.Run("default mode still matches on date and name", func(t *testing.T) {
		summary := engine.Reconcile(context.Background(), receipts, transactions, models.DefaultSettings())
		require.Len(t, summary.Matches, 1)
		assert.Equal(t, models.MatchStatusManualReview, summary.Matches[0].Status)
	})
}

func TestEngine_Reconcile_ProgressCallback(t *testing.T) {
	engine := newTestEngine()

	receipts := []models.ReceiptRecord{
		receipt("r1", "10.00", "A", nil),
		receipt("r2", "20.00", "B", nil),
		receipt("r3", "30.00", "C", nil),
	}

	var reported []int
	engine.ReconcileWithProgress(context.Background(), receipts, nil, models.DefaultSettings(), func(processed int) {
		reported = append(reported, processed)
	})

	assert.Equal(t, []int{1, 2, 3}, reported)
}

func TestEngine_ComputeScore(t *testing.T) {
	engine := newTestEngine()

	breakdown := engine.ComputeScore(context.Background(),
		receipt("r1", "100.00", "Ana Lima", nil),
		transaction("t1", "100.00", "PIX ANA LIMA", nil),
		models.DefaultSettings(),
	)

	assert.Greater(t, breakdown.Score, 0.0)
	assert.NotEmpty(t, breakdown.Reasons)
}
