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

func TestAntichain_Insert(t *testing.T) {
	a := NewAntichain()
	assert.True(t, a.Insert(New(2, 2)))
	// dominated by an existing element, rejected
	assert.False(t, a.Insert(New(3, 3)))
	assert.False(t, a.Insert(New(2, 2)))
	// incomparable, kept alongside
	assert.True(t, a.Insert(New(0, 5)))
	assert.Equal(t, []Time{New(0, 5), New(2, 2)}, a.Elements())
	// dominates both existing elements, evicts them
	assert.True(t, a.Insert(New(0, 0)))
	assert.Equal(t, []Time{New(0, 0)}, a.Elements())
}

func TestAntichain_OpenClosed(t *testing.T) {
	f := NewAntichain(New(2, 0), New(0, 3))
	assert.True(t, f.LessEqual(New(2, 5)))
	assert.True(t, f.LessEqual(New(1, 3)))
	assert.True(t, f.Closes(New(1, 2)))
	assert.True(t, f.Closes(New(0, 0)))

	// the empty frontier closes everything
	empty := NewAntichain()
	assert.True(t, empty.Closes(New(0, 0)))
	assert.True(t, empty.IsEmpty())
}

func TestAntichain_DominatedBy(t *testing.T) {
	old := NewAntichain(New(1, 0), New(0, 1))
	adv := NewAntichain(New(1, 1))
	assert.True(t, adv.DominatedBy(old))
	assert.False(t, old.DominatedBy(adv))
	// advancing to empty is always legal
	assert.True(t, NewAntichain().DominatedBy(adv))
	// self domination
	assert.True(t, old.DominatedBy(old))
}

func TestAntichain_Meet(t *testing.T) {
	a := NewAntichain(New(2, 2))
	b := NewAntichain(New(0, 5), New(3, 0))
	m := a.Meet(b)
	assert.Equal(t, []Time{New(0, 5), New(2, 2), New(3, 0)}, m.Elements())
	// every time open under either input stays open under the meet
	assert.True(t, m.LessEqual(New(2, 3)))
	assert.True(t, m.LessEqual(New(0, 9)))
	assert.True(t, m.LessEqual(New(4, 0)))
	// a time closed under both stays closed
	assert.True(t, m.Closes(New(1, 1)))

	// inputs are not mutated
	assert.Equal(t, []Time{New(2, 2)}, a.Elements())
}

func TestAntichain_MeetAll(t *testing.T) {
	m, ok := NewAntichain(New(1, 5), New(5, 1)).MeetAll()
	assert.True(t, ok)
	assert.Equal(t, New(1, 1), m)

	_, ok = NewAntichain().MeetAll()
	assert.False(t, ok)
}

func TestAntichain_Equals(t *testing.T) {
	a := NewAntichain(New(1, 0), New(0, 1))
	b := NewAntichain(New(0, 1), New(1, 0))
	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(NewAntichain(New(1, 0))))
}
