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

package obs

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/eocalc"
)

// RetryingSource wraps a Source, retrying transient fetch failures with
// exponential backoff. A day reported as unavailable is definitive and
// passes through without retrying.
type RetryingSource struct {
	// Source is the underlying observation source.
	Source Source

	// Log receives retry notifications.
	Log logrus.FieldLogger
}

// NewRetryingSource wraps s with retry behavior.
func NewRetryingSource(s Source) *RetryingSource {
	return &RetryingSource{Source: s, Log: logrus.StandardLogger()}
}

// Fetch fetches the given day from the wrapped source, retrying until
// the fetch succeeds, the backoff schedule is exhausted, or ctx is
// canceled.
func (s *RetryingSource) Fetch(ctx context.Context, region geom.Polygonal, day time.Time) ([]Observation, error) {
	var o []Observation
	err := backoff.RetryNotify(
		func() error {
			var err error
			o, err = s.Source.Fetch(ctx, region, day)
			if err != nil {
				var unavail *eocalc.DataUnavailableError
				if errors.As(err, &unavail) {
					return backoff.Permanent(err)
				}
				if ctx.Err() != nil {
					return backoff.Permanent(err)
				}
				return err
			}
			return nil
		},
		backoff.WithContext(backoff.NewExponentialBackOff(), ctx),
		func(err error, d time.Duration) {
			s.Log.WithFields(logrus.Fields{
				"day":   day.Format("2006-01-02"),
				"error": err.Error(),
			}).Infof("retrying in %v", d)
		},
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}
