package gate

// Action describes the kind of operation a subject wants to perform.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"

	// Ledger transitions.
	ActionPay  Action = "pay"
	ActionVoid Action = "void"

	// Aggregates over the whole store, not a single record.
	ActionStatistics Action = "statistics"

	// ActionMarkRead flips the read flag on a notification.
	ActionMarkRead Action = "read"
)
