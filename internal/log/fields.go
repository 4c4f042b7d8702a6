package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldGroupID     = "group_id"
	FieldMemberID    = "member_id"
	FieldEntryID     = "entry_id"
	FieldEntryType   = "entry_type"
	FieldLoanID      = "loan_id"
	FieldApplication = "application_id"
	FieldVoteID      = "vote_id"
	FieldFromState   = "from_state"
	FieldToState     = "to_state"
	FieldConfigKey   = "config_key"
	FieldCount       = "count"
)

// Component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentLedger     = "ledger"
	ComponentAssessment = "assessment"
	ComponentLoan       = "loan"
	ComponentApproval   = "approval"
	ComponentVote       = "vote"
	ComponentRules      = "rules"
	ComponentSettings   = "settings"
	ComponentMember     = "member"
	ComponentWorker     = "worker"
	ComponentCache      = "cache"
)
