package models

import "time"

// BankTransactionRecord is a single line item extracted from a bank
// statement. The free-text description commonly embeds the counterparty
// name ("PIX RECEBIDO - JOAO SILVA"); a tax-ID is present only when the
// extractor found one. A statement file yields many transaction records,
// all carrying the same StatementFileID.
type BankTransactionRecord struct {
	ID              string     `json:"id"`
	RawAmount       string     `json:"amount"`
	Description     string     `json:"description,omitempty"`
	TransactionDate *time.Time `json:"transaction_date,omitempty"`
	Document        string     `json:"document,omitempty"`
	StatementFileID string     `json:"statement_file_id,omitempty"`
}
