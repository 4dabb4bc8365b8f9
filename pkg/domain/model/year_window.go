package model

import (
	"fmt"
	"time"
)

// Operation names a mutating operation subject to the year window.
type Operation string

const (
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// YearStatus classifies a record relative to the current calendar year.
type YearStatus string

const (
	YearStatusCurrent    YearStatus = "current"
	YearStatusHistorical YearStatus = "historical"
	YearStatusFuture     YearStatus = "future"
)

// YearWindow decides whether a record may still be modified: only records
// created in the current calendar year of Location are mutable. A nil
// Location means UTC. YearWindow holds no state and is evaluated per call.
type YearWindow struct {
	Location *time.Location
}

func (w YearWindow) loc() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

// Year returns the calendar year of t in the window's location.
func (w YearWindow) Year(t time.Time) int {
	return t.In(w.loc()).Year()
}

// CanModify reports whether a record created at createdAt is mutable at now.
func (w YearWindow) CanModify(createdAt, now time.Time) bool {
	return w.Year(createdAt) == w.Year(now)
}

// Status classifies createdAt against now.
func (w YearWindow) Status(createdAt, now time.Time) YearStatus {
	switch ry, cy := w.Year(createdAt), w.Year(now); {
	case ry < cy:
		return YearStatusHistorical
	case ry > cy:
		return YearStatusFuture
	default:
		return YearStatusCurrent
	}
}

// Check returns nil when op is allowed on a record created at createdAt,
// otherwise an *ImmutableRecordError describing why not.
func (w YearWindow) Check(op Operation, createdAt, now time.Time) error {
	if w.CanModify(createdAt, now) {
		return nil
	}
	return &ImmutableRecordError{
		Operation:   op,
		RecordYear:  w.Year(createdAt),
		CurrentYear: w.Year(now),
	}
}

// Range returns [Jan 1 of year, Jan 1 of year+1) in the window's location.
func (w YearWindow) Range(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, w.loc())
	return start, start.AddDate(1, 0, 0)
}

// ImmutableRecordError is returned when a record falls outside the mutable
// year window.
type ImmutableRecordError struct {
	Operation   Operation
	RecordYear  int
	CurrentYear int
}

func (e *ImmutableRecordError) Error() string {
	switch {
	case e.RecordYear < e.CurrentYear:
		return fmt.Sprintf("Cannot %s data from %d. Only current year (%d) data can be modified.",
			e.Operation, e.RecordYear, e.CurrentYear)
	case e.RecordYear > e.CurrentYear:
		return "Invalid date detected. Future dates are not allowed."
	default:
		return fmt.Sprintf("Action not allowed for %s.", e.Operation)
	}
}
