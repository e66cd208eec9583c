package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rentbill-backend/internal/logger"
	"rentbill-backend/internal/repository"
)

type invoiceNumberGenerator struct {
	db     *sql.DB
	prefix string
}

// NewInvoiceNumberGenerator issues numbers from the invoice_number_seq
// sequence, formatted as <prefix>-<yyyymm>-<000000>. Sequences never hand out
// the same value twice, gaps are possible.
func NewInvoiceNumberGenerator(db *sql.DB, prefix string) repository.InvoiceNumberGenerator {
	if prefix == "" {
		prefix = "INV"
	}
	return &invoiceNumberGenerator{db: db, prefix: prefix}
}

func (g *invoiceNumberGenerator) Next(ctx context.Context, issuedAt time.Time) (string, error) {
	logger.ExternalServiceCall("invoice_number_seq", "nextval")

	var seq int64
	err := g.db.QueryRowContext(ctx, `SELECT nextval('invoice_number_seq')`).Scan(&seq)
	logger.ExternalServiceResult("invoice_number_seq", "nextval", err, "seq", seq)
	if err != nil {
		return "", translateError(err, "invoice number", nil)
	}

	return fmt.Sprintf("%s-%s-%06d", g.prefix, issuedAt.UTC().Format("200601"), seq), nil
}
