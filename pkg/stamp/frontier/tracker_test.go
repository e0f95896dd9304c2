/*
Copyright 2024 The Waveline Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package frontier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wavelineproj/waveline/pkg/stamp"
)

func TestTracker_CombinedHeldBackBySlowestInput(t *testing.T) {
	tr := NewTracker(2)
	assert.True(t, tr.Frontier().Equals(stamp.NewAntichain(stamp.Time{})))

	// input 0 races ahead, the combined frontier does not move
	ci, err := tr.Advance(0, stamp.NewAntichain(stamp.New(5, 0)))
	assert.NoError(t, err)
	assert.True(t, ci.IsEmpty())
	assert.True(t, tr.Frontier().Equals(stamp.NewAntichain(stamp.Time{})))

	// input 1 catches up, the combined frontier is the meet
	ci, err = tr.Advance(1, stamp.NewAntichain(stamp.New(3, 0)))
	assert.NoError(t, err)
	assert.False(t, ci.IsEmpty())
	assert.True(t, tr.Frontier().Equals(stamp.NewAntichain(stamp.New(3, 0))))
	assert.True(t, ci.Contains(stamp.New(1, 0)))
	assert.False(t, ci.Contains(stamp.New(4, 0)))
}

func TestTracker_IntervalsPartitionTime(t *testing.T) {
	tr := NewTracker(1)
	var intervals []ClosedInterval
	for _, f := range []*stamp.Antichain{
		stamp.NewAntichain(stamp.New(2, 0), stamp.New(0, 2)),
		stamp.NewAntichain(stamp.New(3, 1)),
		stamp.NewAntichain(),
	} {
		ci, err := tr.Advance(0, f)
		assert.NoError(t, err)
		intervals = append(intervals, ci)
	}

	// every timestamp is closed by exactly one interval
	for r := int64(0); r < 6; r++ {
		for i := int64(0); i < 6; i++ {
			ts := stamp.New(r, i)
			hits := 0
			for _, ci := range intervals {
				if ci.Contains(ts) {
					hits++
				}
			}
			assert.Equal(t, 1, hits, "timestamp %v closed by %d intervals", ts, hits)
		}
	}
	assert.True(t, tr.Closed())
}

func TestTracker_RejectsRegression(t *testing.T) {
	tr := NewTracker(1)
	_, err := tr.Advance(0, stamp.NewAntichain(stamp.New(4, 0)))
	assert.NoError(t, err)

	// moving back is a protocol violation
	_, err = tr.Advance(0, stamp.NewAntichain(stamp.New(2, 0)))
	assert.ErrorIs(t, err, ErrRegression)
	// sideways moves that reopen times are also regressions
	_, err = tr.Advance(0, stamp.NewAntichain(stamp.New(3, 9)))
	assert.ErrorIs(t, err, ErrRegression)

	// the failed advances left the tracker untouched
	assert.True(t, tr.Frontier().Equals(stamp.NewAntichain(stamp.New(4, 0))))

	// re-reporting the same frontier is legal and closes nothing
	ci, err := tr.Advance(0, stamp.NewAntichain(stamp.New(4, 0)))
	assert.NoError(t, err)
	assert.True(t, ci.IsEmpty())
}

func TestTracker_BadInput(t *testing.T) {
	tr := NewTracker(1)
	_, err := tr.Advance(3, stamp.NewAntichain())
	assert.Error(t, err)
}
