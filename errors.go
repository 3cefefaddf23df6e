/*
Copyright © 2026 the eocalc authors.
This file is part of eocalc.

eocalc is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

eocalc is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with eocalc.  If not, see <http://www.gnu.org/licenses/>.
*/

package eocalc

import (
	"fmt"
	"time"
)

// ValidationError reports a region, period, or pollutant outside a
// method's capability envelope. It is raised before any computation
// starts, so a failed run has no side effects.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "eocalc: validation: " + e.Reason
}

func newValidationError(format string, a ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, a...)}
}

// DataUnavailableError reports that an observation provider cannot
// supply data for a day and region, or that the available data are
// insufficient to proceed. Whether a run skips the day or aborts is
// the calling method's policy.
type DataUnavailableError struct {
	Day    time.Time
	Source string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	msg := "eocalc: data unavailable"
	if e.Source != "" {
		msg += " from " + e.Source
	}
	if !e.Day.IsZero() {
		msg += " for " + e.Day.Format(dateFormat)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// SolverDivergenceError reports that the iterative solver hit its
// iteration cap without converging. It is fatal for the run; no
// partially converged result is returned.
type SolverDivergenceError struct {
	Iterations int
	Residual   float64
}

func (e *SolverDivergenceError) Error() string {
	return fmt.Sprintf("eocalc: solver failed to converge after %d iterations (residual %g)",
		e.Iterations, e.Residual)
}

// NumericConsistencyError reports inconsistent numeric input to an
// aggregation, such as mismatched lengths or a negative uncertainty.
// It is raised immediately and never retried.
type NumericConsistencyError struct {
	Reason string
}

func (e *NumericConsistencyError) Error() string {
	return "eocalc: " + e.Reason
}
