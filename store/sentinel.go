package store

// DeleteFieldValue marks a field for removal in an update.
type DeleteFieldValue string

// DeleteField is the field value which removes the field on update. Over JSON it travels as
// its string form; only the wire decoder turns that string back into the sentinel.
const DeleteField DeleteFieldValue = "__docfacade_delete_field__"

// IsDeleteField matches the typed sentinel only. A plain string is always a value.
func IsDeleteField(v any) bool {
	d, ok := v.(DeleteFieldValue)
	return ok && d == DeleteField
}
