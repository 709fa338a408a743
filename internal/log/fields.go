package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldOperation    = "operation"
	FieldError        = "error"
	FieldErrorType    = "error_type"
	FieldUserID       = "user_id"
	FieldCategoryID   = "category_id"
	FieldCategoryName = "category_name"
	FieldMonth        = "month"
	FieldInsightID    = "insight_id"
	FieldInsightType  = "insight_type"
	FieldPriority     = "priority"
	FieldCount        = "count"
	FieldTransactions = "transaction_count"
	FieldTransaction  = "transaction_id"
	FieldDuration     = "duration_ms"
	FieldTrigger      = "trigger"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentEngine  = "engine"
	ComponentService = "insight_service"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentCache   = "cache"
	ComponentCLI     = "cli"
	ComponentHTTP    = "http"
)

// Operations defines standard operation names
const (
	OpGenerate = "generate"
	OpEvaluate = "evaluate"
	OpPersist  = "persist"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpDismiss  = "dismiss"
	OpSweep    = "sweep"
	OpImport   = "import"
	OpMigrate  = "migrate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeDataQuality   = "data_quality_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
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

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorType adds the error category
func (f LogFields) WithErrorType(t string) LogFields {
	f[FieldErrorType] = t
	return f
}

// WithUser adds user ID field
func (f LogFields) WithUser(userID string) LogFields {
	f[FieldUserID] = userID
	return f
}

// WithCategory adds category fields
func (f LogFields) WithCategory(id, name string) LogFields {
	f[FieldCategoryID] = id
	if name != "" {
		f[FieldCategoryName] = name
	}
	return f
}

// WithMonth adds the reference month as YYYY-MM
func (f LogFields) WithMonth(month string) LogFields {
	f[FieldMonth] = month
	return f
}

// WithInsight adds insight-related fields
func (f LogFields) WithInsight(id, insightType string, priority int) LogFields {
	if id != "" {
		f[FieldInsightID] = id
	}
	f[FieldInsightType] = insightType
	f[FieldPriority] = priority
	return f
}

// With adds an arbitrary field
func (f LogFields) With(key string, value any) LogFields {
	f[key] = value
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
