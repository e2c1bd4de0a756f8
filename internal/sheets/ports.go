package sheets

import (
	"context"

	"pagamentos/internal/ledger"
)

// Ports for outbound adapters.
type (
	// LedgerReader loads a stored month. found is false when the month was never saved;
	// the global bank and category names are filled in either way.
	LedgerReader interface {
		FetchMonth(ctx context.Context, year, month int) (data ledger.Data, found bool, err error)
	}

	LedgerWriter interface {
		SaveMonth(ctx context.Context, snap ledger.Snapshot) error
	}

	SettingsWriter interface {
		SaveSettings(ctx context.Context, banks, categories []string) error
	}

	// MonthMirror copies a month to an external, human-readable sheet.
	MonthMirror interface {
		MirrorMonth(ctx context.Context, snap ledger.Snapshot) error
	}
)
