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

package stamp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTime_Compare(t *testing.T) {
	tests := []struct {
		name     string
		a        Time
		b        Time
		expected Ordering
	}{
		{
			name:     "equal",
			a:        New(3, 4),
			b:        New(3, 4),
			expected: Equal,
		},
		{
			name:     "less_both_coordinates",
			a:        New(1, 2),
			b:        New(3, 4),
			expected: Less,
		},
		{
			name:     "less_one_coordinate_equal",
			a:        New(3, 2),
			b:        New(3, 4),
			expected: Less,
		},
		{
			name:     "greater",
			a:        New(5, 5),
			b:        New(2, 3),
			expected: Greater,
		},
		{
			name:     "incomparable",
			a:        New(1, 5),
			b:        New(5, 1),
			expected: Incomparable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Compare(tt.b))
		})
	}
}

func TestTime_LessEqual(t *testing.T) {
	assert.True(t, New(1, 1).LessEqual(New(1, 1)))
	assert.True(t, New(1, 1).LessEqual(New(2, 1)))
	assert.False(t, New(2, 1).LessEqual(New(1, 1)))
	assert.False(t, New(1, 5).LessEqual(New(5, 1)))
}

func TestTime_JoinMeet(t *testing.T) {
	a, b := New(1, 5), New(5, 1)
	assert.Equal(t, New(5, 5), a.Join(b))
	assert.Equal(t, New(1, 1), a.Meet(b))
	// join and meet of comparable times are the endpoints
	assert.Equal(t, New(5, 5), New(2, 2).Join(New(5, 5)))
	assert.Equal(t, New(2, 2), New(2, 2).Meet(New(5, 5)))
	// the join is an upper bound of both inputs
	assert.True(t, a.LessEqual(a.Join(b)))
	assert.True(t, b.LessEqual(a.Join(b)))
}

func TestTime_Lexicographic(t *testing.T) {
	assert.True(t, New(1, 9).Lexicographic(New(2, 0)))
	assert.True(t, New(2, 0).Lexicographic(New(2, 1)))
	assert.False(t, New(2, 1).Lexicographic(New(2, 1)))
	// lexicographic order extends the partial order
	assert.True(t, New(1, 1).Lexicographic(New(2, 2)))
}
