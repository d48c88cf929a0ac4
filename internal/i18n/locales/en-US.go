package locales

// MessagesEnUS holds the English (US) translations.
var MessagesEnUS = map[string]string{
	// Common messages
	"success":        "Operation successful",
	"error":          "Operation failed",
	"unauthorized":   "Unauthorized",
	"forbidden":      "Forbidden",
	"not_found":      "Not found",
	"bad_request":    "Bad request",
	"internal_error": "Internal error",
	"invalid_param":  "Invalid parameter",

	// Authentication related
	"auth.invalid_key":  "Invalid authorization key",
	"auth.key_required": "Authorization key required",

	// Budget rule related
	"rule.created":          "Budget rule created successfully",
	"rule.bulk_created":     "Created {{.created}} budget rules, {{.failed}} failed",
	"rule.updated":          "Budget rule updated successfully",
	"rule.deactivated":      "Budget rule deactivated",
	"rule.not_found":        "Budget rule not found",
	"rule.invalid_window":   "Hour window start must be before end",
	"rule.invalid_campaign": "Campaign not found or not ongoing",

	// Clone job related
	"job.scheduled":     "Clone job scheduled successfully",
	"job.started":       "Clone job started",
	"job.cancelled":     "Clone job cancelled",
	"job.requeued":      "Clone job requeued",
	"job.rescheduled":   "Clone job rescheduled",
	"job.not_found":     "Clone job not found",
	"job.invalid_state": "Clone job is not in a state that allows this operation",

	// Sync related
	"sync.started":     "Synchronization started",
	"sync.fresh":       "Data is fresh, no synchronization needed",
	"sync.in_progress": "Synchronization already in progress",

	// Logs related
	"logs.exported": "Execution logs exported successfully",

	// Scheduler related
	"scheduler.pass_completed": "Budget pass completed: {{.succeeded}} succeeded, {{.failed}} failed, {{.skipped}} skipped",
}
