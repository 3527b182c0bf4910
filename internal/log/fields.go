package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldOwner      = "owner"
	FieldMonth      = "month"
	FieldRowCount   = "row_count"
	FieldExcluded   = "excluded"
	FieldDuplicates = "duplicates_removed"
	FieldItemName   = "item_name"
	FieldAmount     = "amount"
	FieldBackend    = "backend"
	FieldModel      = "model"
	FieldSheetsRef  = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentLedger  = "ledger"
	ComponentIngest  = "ingest"
	ComponentExtract = "extract"
	ComponentAccount = "account"
	ComponentSession = "session"
	ComponentStorage = "storage"
	ComponentSheets  = "sheets"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentCache   = "cache"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpAppend   = "append"
	OpLoad     = "load"
	OpRewrite  = "rewrite"
	OpExtract  = "extract"
	OpValidate = "validate"
	OpRegister = "register"
	OpLogin    = "login"
	OpLogout   = "logout"
	OpPurge    = "purge"
	OpPrune    = "prune"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithOwner adds owner field
func (f LogFields) WithOwner(owner string) LogFields {
	f[FieldOwner] = owner
	return f
}

// WithLedgerCounts adds row accounting fields for a ledger read
func (f LogFields) WithLedgerCounts(rows, excluded, duplicates int) LogFields {
	f[FieldRowCount] = rows
	f[FieldExcluded] = excluded
	f[FieldDuplicates] = duplicates
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
