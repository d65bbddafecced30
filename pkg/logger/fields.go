package logger

// Temporary field name constants for structured logging.
//
// Usage:
//   logger.With(ctx, logger.FieldErrorCode, code).Error("commit aborted")
//
// For high-frequency fields (>10 occurrences), use helper functions instead
// (e.g. WithError).

// Server/config related fields
const (
	FieldEnvironment = "environment"
	FieldLogLevel    = "level"
	FieldLogFormat   = "format"
	FieldLogOutput   = "output"
)

// Model/schema related fields
const (
	FieldModel      = "model"
	FieldClassIRI   = "class_iri"
	FieldSchemaPath = "schema_path"
	FieldAttribute  = "attribute"
)

// Resource/session related fields
const (
	FieldResourceIRI = "resource_iri"
	FieldHashlessIRI = "hashless_iri"
	FieldSessionID   = "session_id"
	FieldDirtyCount  = "dirty_count"
)

// Database related fields
const (
	FieldMigrationID = "migration_id"
	// FieldConnectionString - WARNING: always sanitize before logging, to
	// avoid exposing credentials.
	FieldConnectionString = "connection_string"
	FieldTable            = "table"
	FieldChannel          = "channel"
)

// OpenTelemetry related fields
const (
	FieldOTelEnabled      = "otel_enabled"
	FieldSamplingRate     = "sampling_rate"
	FieldExporterEndpoint = "exporter_endpoint"
)

// Generic fields
const (
	FieldErrorCode = "error_code"
	FieldFlag      = "flag"
	FieldData      = "data"
)
