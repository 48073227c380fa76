package sheets

import (
	"context"

	"gagyebu/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionExporter mirrors stored transactions into a spreadsheet.
	TransactionExporter interface {
		// AppendTransaction writes one row for tx and returns a reference to it.
		AppendTransaction(ctx context.Context, tx core.Transaction) (rowRef string, err error)
		// DeleteTransaction removes the row for the transaction id. A missing
		// row is not an error.
		DeleteTransaction(ctx context.Context, id string) error
	}
)
