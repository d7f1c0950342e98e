// Package extract holds the pure text-to-value rules shared by the listing
// parser and the normalization pipeline.
package extract

// Result is the outcome of a value rule: either a representable value or the
// unrepresentable marker. Unrepresentable values are stored as null.
type Result struct {
	Value any
	OK    bool
}

// Ok wraps a representable value.
func Ok(v any) Result {
	return Result{Value: v, OK: true}
}

// Unrepresentable marks input that a rule could not turn into a value.
func Unrepresentable() Result {
	return Result{}
}

// Nullable returns the value, or nil when the result is unrepresentable.
func (r Result) Nullable() any {
	if !r.OK {
		return nil
	}
	return r.Value
}
