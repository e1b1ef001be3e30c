package learning

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/shopspring/decimal"
)

// Signature derives the learning-store key for a candidate pair from both
// normalized amounts and both normalized names. The canonical form is hashed
// so the key stays fixed-width regardless of how long the statement
// description was.
func Signature(receiptAmount, transactionAmount decimal.Decimal, receiptName, transactionName string) string {
	canonical := strings.Join([]string{
		receiptAmount.String(),
		transactionAmount.String(),
		receiptName,
		transactionName,
	}, "|")
	hash := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(hash[:])
}
