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

package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wavelineproj/waveline/pkg/flow"
	"github.com/wavelineproj/waveline/pkg/stamp"
)

func TestCapability_Covers(t *testing.T) {
	c := Mint(stamp.New(1, 1))
	assert.True(t, c.Covers(stamp.New(1, 1)))
	assert.True(t, c.Covers(stamp.New(3, 2)))
	assert.False(t, c.Covers(stamp.New(0, 5)))
	assert.False(t, c.Covers(stamp.New(2, 0)))

	c.Drop()
	assert.False(t, c.Covers(stamp.New(3, 2)))
}

func TestCapability_DowngradeInvalidatesReceiver(t *testing.T) {
	c := Mint(stamp.New(0, 0))
	child, err := c.Downgrade(stamp.New(2, 1))
	assert.NoError(t, err)
	assert.Equal(t, stamp.New(2, 1), child.Time())
	assert.True(t, child.Valid())
	assert.False(t, c.Valid())

	// the spent capability cannot be downgraded again
	_, err = c.Downgrade(stamp.New(3, 3))
	assert.ErrorIs(t, err, ErrInvalidated)
}

func TestCapability_DowngradeBackward(t *testing.T) {
	c := Mint(stamp.New(2, 2))
	_, err := c.Downgrade(stamp.New(1, 5))
	assert.ErrorIs(t, err, ErrBackward)
	// a failed downgrade does not spend the capability
	assert.True(t, c.Valid())
}

func TestCapability_DowngradeAll(t *testing.T) {
	c := Mint(stamp.New(0, 0))
	children, err := c.DowngradeAll([]stamp.Time{stamp.New(1, 0), stamp.New(0, 1)})
	assert.NoError(t, err)
	assert.Len(t, children, 2)
	assert.False(t, c.Valid())
	for _, ch := range children {
		assert.True(t, ch.Valid())
	}
}

func TestCapability_FromBatch(t *testing.T) {
	b := flow.NewBatch(stamp.New(2, 3), flow.Update{Key: "a", Mult: 1})
	c := FromBatch(b)
	assert.Equal(t, stamp.New(2, 3), c.Time())
	assert.True(t, c.Valid())
}

func TestRegistry_SyncTo(t *testing.T) {
	r := NewRegistry(stamp.Time{})
	assert.True(t, r.Frontier().Equals(stamp.NewAntichain(stamp.Time{})))

	// one held capability splits to cover two incomparable elements
	err := r.SyncTo(stamp.NewAntichain(stamp.New(1, 0), stamp.New(0, 1)))
	assert.NoError(t, err)
	assert.True(t, r.Frontier().Equals(stamp.NewAntichain(stamp.New(1, 0), stamp.New(0, 1))))

	// two held capabilities merge back behind one element, the uncovering
	// one is dropped
	err = r.SyncTo(stamp.NewAntichain(stamp.New(2, 2)))
	assert.NoError(t, err)
	assert.True(t, r.Frontier().Equals(stamp.NewAntichain(stamp.New(2, 2))))

	// a frontier element unreachable from any held capability is fatal
	err = r.SyncTo(stamp.NewAntichain(stamp.New(0, 9)))
	assert.ErrorIs(t, err, ErrNoCover)
}

func TestRegistry_CoverFor(t *testing.T) {
	r := NewRegistry(stamp.New(1, 1))
	c, err := r.CoverFor(stamp.New(2, 4))
	assert.NoError(t, err)
	assert.True(t, c.Covers(stamp.New(2, 4)))

	_, err = r.CoverFor(stamp.New(0, 0))
	assert.ErrorIs(t, err, ErrNoCover)

	r.DropAll()
	assert.True(t, r.Frontier().IsEmpty())
	_, err = r.CoverFor(stamp.New(2, 4))
	assert.ErrorIs(t, err, ErrNoCover)
}
