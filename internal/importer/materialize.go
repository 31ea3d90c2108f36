package importer

import "github.com/cleared-dev/ledger-import/internal/model"

// Materialize maps parsed transactions to import rows in file order. It is
// a pure function of its inputs, so re-materializing the same text yields
// the same rows.
func Materialize(importID string, txns []model.ParsedTransaction, opts Options) []model.ImportRow {
	rows := make([]model.ImportRow, 0, len(txns))
	for i, txn := range txns {
		name := txn.Name
		if name == "" {
			name = opts.DefaultRowName
		}
		currency := txn.Currency
		if currency == "" {
			currency = opts.DefaultCurrency
		}
		var tags []string
		if len(txn.Tags) > 0 {
			tags = append(tags, txn.Tags...)
		}
		rows = append(rows, model.ImportRow{
			ImportID:   importID,
			Position:   i,
			Date:       txn.Date,
			Amount:     txn.Amount,
			Currency:   currency,
			Name:       name,
			Notes:      txn.Memo,
			Category:   txn.Category,
			Tags:       tags,
			ExternalID: txn.ExternalID,
		})
	}
	return rows
}
