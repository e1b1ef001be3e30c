package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fintally/tally/pkg/models"
	"github.com/fintally/tally/pkg/normalizers"
)

// Exact amount matches allow a sub-cent rounding slack; exact date matches
// allow the same slack in hours.
var amountEpsilon = decimal.NewFromFloat(0.01)

const (
	hourEpsilon = 0.01
	minTokenLen = 3
)

// candidatePair holds the normalized fields of one (receipt, transaction)
// candidate. Normalizing once per pair keeps the rule functions pure string
// and decimal comparisons.
type candidatePair struct {
	receiptAmount decimal.Decimal
	txAmount      decimal.Decimal
	receiptName   string
	txName        string
	receiptDoc    string
	txDoc         string
	receiptDate   *time.Time
	txDate        *time.Time

	// Raw extracted values, kept for rules carrying a custom normalizer chain
	rawReceiptName string
	rawTxName      string
	rawReceiptDoc  string
	rawTxDoc       string
}

func newCandidatePair(receipt models.ReceiptRecord, tx models.BankTransactionRecord) candidatePair {
	return candidatePair{
		receiptAmount:  normalizers.Amount(receipt.RawAmount),
		txAmount:       normalizers.Amount(tx.RawAmount),
		receiptName:    normalizers.Name(receipt.PayerName),
		txName:         normalizers.Name(tx.Description),
		receiptDoc:     normalizers.Document(receipt.PayerDocument),
		txDoc:          normalizers.Document(tx.Document),
		receiptDate:    receipt.TransactionDate,
		txDate:         tx.TransactionDate,
		rawReceiptName: receipt.PayerName,
		rawTxName:      tx.Description,
		rawReceiptDoc:  receipt.PayerDocument,
		rawTxDoc:       tx.Document,
	}
}

// ruleNames returns the name values a rule compares, running the rule's
// normalizer chain over the raw values when one is configured
func ruleNames(rule models.ReconciliationRule, p candidatePair) (string, string) {
	if len(rule.Normalizers) == 0 {
		return p.receiptName, p.txName
	}
	return normalizers.ApplyChain(p.rawReceiptName, rule.Normalizers...),
		normalizers.ApplyChain(p.rawTxName, rule.Normalizers...)
}

func ruleDocuments(rule models.ReconciliationRule, p candidatePair) (string, string) {
	if len(rule.Normalizers) == 0 {
		return p.receiptDoc, p.txDoc
	}
	return normalizers.ApplyChain(p.rawReceiptDoc, rule.Normalizers...),
		normalizers.ApplyChain(p.rawTxDoc, rule.Normalizers...)
}

// evaluateRule computes one rule's sub-score in [0,100] and a short
// explanation. ok is false for rule types the engine has no evaluator for
// (custom rules); those are absent from the weighted mean entirely.
func evaluateRule(rule models.ReconciliationRule, p candidatePair) (score float64, text string, ok bool) {
	switch rule.Type {
	case models.RuleTypeAmount:
		score, text = scoreAmount(rule, p)
	case models.RuleTypeDate:
		score, text = scoreDate(rule, p)
	case models.RuleTypeName:
		score, text = scoreName(rule, p)
	case models.RuleTypeDocument:
		score, text = scoreDocument(rule, p)
	default:
		return 0, "", false
	}
	return score, text, true
}

// scoreAmount compares normalized amounts. A zero on either side means the
// extractor could not read the amount; the rule degrades to 0 instead of
// treating it as a real zero-value payment. Tolerance is a percentage of the
// receipt amount; the score is already down to 50 when the difference equals
// the tolerance (soft boundary).
func scoreAmount(rule models.ReconciliationRule, p candidatePair) (float64, string) {
	if p.receiptAmount.IsZero() || p.txAmount.IsZero() {
		return 0, "amount unavailable"
	}

	diff := p.receiptAmount.Sub(p.txAmount).Abs()
	if rule.Tolerance <= 0 {
		if diff.LessThan(amountEpsilon) {
			return 100, "exact amount match"
		}
		return 0, fmt.Sprintf("amounts differ by %s", diff.StringFixed(2))
	}

	pctDiff, _ := diff.Div(p.receiptAmount).Mul(decimal.NewFromInt(100)).Float64()
	score := math.Max(0, 100-(pctDiff/rule.Tolerance)*50)
	if score == 0 {
		return 0, fmt.Sprintf("amount difference %.2f%% beyond tolerance", pctDiff)
	}
	return score, fmt.Sprintf("amount within %.2f%% of receipt", pctDiff)
}

// scoreDate is symmetric to scoreAmount with absolute hour distance in place
// of percentage difference. Missing timestamps degrade to 0.
func scoreDate(rule models.ReconciliationRule, p candidatePair) (float64, string) {
	if p.receiptDate == nil || p.txDate == nil {
		return 0, "date unavailable"
	}

	hours := math.Abs(p.receiptDate.Sub(*p.txDate).Hours())
	if rule.Tolerance <= 0 {
		if hours < hourEpsilon {
			return 100, "exact date match"
		}
		return 0, fmt.Sprintf("dates %.1f hours apart", hours)
	}

	score := math.Max(0, 100-(hours/rule.Tolerance)*50)
	if score == 0 {
		return 0, fmt.Sprintf("dates %.1f hours apart, beyond tolerance", hours)
	}
	return score, fmt.Sprintf("dates %.1f hours apart", hours)
}

func scoreName(rule models.ReconciliationRule, p candidatePair) (float64, string) {
	receiptName, txName := ruleNames(rule, p)
	if receiptName == "" || txName == "" {
		return 0, "name unavailable"
	}

	if rule.Strategy == models.RuleStrategySimilarity {
		similarity := tokenSimilarity(receiptName, txName)
		if similarity == 0 {
			return 0, "no name tokens in common"
		}
		return similarity * 100, fmt.Sprintf("name token overlap %.0f%%", similarity*100)
	}

	if receiptName == txName {
		return 100, "exact name match"
	}
	return 0, "names differ"
}

func scoreDocument(rule models.ReconciliationRule, p candidatePair) (float64, string) {
	receiptDoc, txDoc := ruleDocuments(rule, p)
	// An empty document never matches another empty document
	if receiptDoc == "" || txDoc == "" {
		return 0, "document unavailable"
	}
	if receiptDoc == txDoc {
		return 100, "exact document match"
	}
	return 0, "documents differ"
}

// tokenSimilarity tokenizes both normalized names on whitespace, keeps
// tokens of length >= 3, and counts tokens from the receipt side contained
// in (or containing) any token on the transaction side. The count is scaled
// by the larger token set, so a short payer name buried in a long statement
// description still scores partial credit rather than full.
func tokenSimilarity(a, b string) float64 {
	tokensA := significantTokens(a)
	tokensB := significantTokens(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	matched := 0
	for _, ta := range tokensA {
		for _, tb := range tokensB {
			if strings.Contains(tb, ta) || strings.Contains(ta, tb) {
				matched++
				break
			}
		}
	}

	return float64(matched) / math.Max(float64(len(tokensA)), float64(len(tokensB)))
}

func significantTokens(s string) []string {
	var tokens []string
	for _, t := range strings.Fields(s) {
		if len(t) >= minTokenLen {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// AmountsComparable reports whether both sides carry a parseable amount.
// Strict mode uses this to drop candidates outright instead of letting them
// score on date and name signals alone.
func AmountsComparable(receipt models.ReceiptRecord, tx models.BankTransactionRecord) bool {
	return !normalizers.Amount(receipt.RawAmount).IsZero() && !normalizers.Amount(tx.RawAmount).IsZero()
}
