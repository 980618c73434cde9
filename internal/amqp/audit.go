package amqp

import (
	"log/slog"
)

// AuditHandler returns a consume handler that writes one structured
// log line per mutation event. cmd/mutation-worker runs it to keep an
// audit trail of ledger changes outside the API process.
func AuditHandler(logger *slog.Logger) func(*MutationMessage) error {
	return func(msg *MutationMessage) error {
		logger.Info("ledger mutation",
			"action", msg.Action,
			"user_id", msg.UserID,
			"transaction_id", msg.TransactionID,
			"count", msg.Count,
			"occurred_at", msg.Timestamp)
		return nil
	}
}
