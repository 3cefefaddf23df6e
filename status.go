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

import "sync"

// Status describes what a calculator instance is currently doing.
type Status int

const (
	// Ready means the calculator accepts a new run.
	Ready Status = iota
	// Running means a calculation is in progress.
	Running
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	default:
		return "invalid status"
	}
}

// Tracker implements the Status and Progress parts of the Calculator
// contract. Methods embed a Tracker and bracket Run with Begin and
// Done. The zero value is a Ready tracker.
type Tracker struct {
	mu       sync.Mutex
	status   Status
	progress float64
}

// Begin marks the calculator Running with zero progress. A second
// Begin before Done fails: concurrent runs on one instance are
// unsupported.
func (t *Tracker) Begin() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == Running {
		return newValidationError("a calculation is already running on this instance")
	}
	t.status = Running
	t.progress = 0
	return nil
}

// Update sets the progress percentage of the running calculation.
func (t *Tracker) Update(percent float64) {
	t.mu.Lock()
	t.progress = percent
	t.mu.Unlock()
}

// Done returns the calculator to Ready.
func (t *Tracker) Done() {
	t.mu.Lock()
	t.status = Ready
	t.mu.Unlock()
}

// Status returns the current state.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Progress returns the completion percentage of the current (or most
// recent) calculation.
func (t *Tracker) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}
