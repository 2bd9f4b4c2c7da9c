package logging

// Standardized field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRawValue   = "raw_value"
	FieldNormalized = "normalized_value"
	FieldMappedTo   = "mapped_to"
	FieldMappedKey  = "mapped_key"
	FieldSource     = "source"
	FieldConfidence = "confidence"
	FieldCacheKey   = "cache_key"
	FieldProvider   = "provider"
	FieldModel      = "model"
	FieldBatch      = "batch"
	FieldOperation  = "operation"
	FieldDuration   = "duration_ms"
	FieldCount      = "count"
	FieldTemplateID = "template_id"
	FieldFile       = "file_path"
)
