package models

import "time"

// ReceiptRecord is one extracted instant-payment (PIX) receipt. Records are
// produced by the upstream OCR/extraction pipeline and are read-only to the
// engine; amounts arrive as raw strings and are canonicalized by the
// normalizers package at scoring time.
type ReceiptRecord struct {
	ID                   string     `json:"id"`
	RawAmount            string     `json:"amount"`
	PayerName            string     `json:"payer_name,omitempty"`
	PayerDocument        string     `json:"payer_document,omitempty"`
	TransactionDate      *time.Time `json:"transaction_date,omitempty"`
	ExtractionConfidence float64    `json:"extraction_confidence,omitempty"`
}
