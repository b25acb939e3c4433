/*
errors.go - Error taxonomy for the analysis engine

PURPOSE:
  All engine error types in one place. The web layer maps these onto status
  codes; everything else degrades rather than failing:
  - Missing/NaN cells aggregate as zero
  - Cache store failures degrade to recompute
  - Narrative failures resolve to the rule-based fallback and never surface

CATEGORIES:
  1. No data   - the user has not uploaded the required template yet
  2. Schema    - the upload is missing a required column (data-quality error,
                 deliberately distinct from "no data")
  3. Period    - malformed or empty requested range

USAGE:
  if analysis.IsNoData(err) {
      // "please upload data first"
  }
  var schemaErr *analysis.SchemaError
  if errors.As(err, &schemaErr) {
      // report schemaErr.Column
  }
*/
package analysis

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoData is returned when no active row-set of the requested template
	// type exists for the user. Surfaced as "please upload data first".
	ErrNoData = errors.New("no data uploaded")

	// ErrEmptyPeriod is returned when the requested range matched no rows and
	// the operation cannot produce a meaningful result from nothing.
	ErrEmptyPeriod = errors.New("no data found for the specified period")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// SchemaError reports a required column absent from an uploaded row-set.
// It signals an incompatible template, not missing data.
type SchemaError struct {
	Template TemplateType
	Column   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s column not found in %s data", e.Column, e.Template)
}

// NoDataError wraps ErrNoData with the template type that was missing.
type NoDataError struct {
	User     UserID
	Template TemplateType
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no active %s data for user %s", e.Template, e.User)
}

func (e *NoDataError) Unwrap() error { return ErrNoData }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNoData reports whether the error means the user has no uploaded data.
func IsNoData(err error) bool { return errors.Is(err, ErrNoData) }

// IsSchemaError reports whether the error is a data-quality (missing column)
// failure.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// IsClientError reports whether the error is attributable to the caller's
// input or data rather than the engine.
func IsClientError(err error) bool {
	return IsNoData(err) || IsSchemaError(err) ||
		errors.Is(err, ErrInvalidPeriod) || errors.Is(err, ErrEmptyPeriod)
}
