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

package edge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wavelineproj/waveline/pkg/flow"
	"github.com/wavelineproj/waveline/pkg/flow/capability"
	"github.com/wavelineproj/waveline/pkg/stamp"
)

func TestEdge_SendChecksCapability(t *testing.T) {
	ctx := context.Background()
	e := New(ctx, "test")
	var got []*flow.Batch
	e.OnBatch(func(b *flow.Batch) error {
		got = append(got, b)
		return nil
	})

	c := capability.Mint(stamp.New(1, 0))
	assert.NoError(t, e.Send(c, flow.NewBatch(stamp.New(2, 0), flow.Update{Key: "a", Mult: 1})))
	assert.Len(t, got, 1)

	// batch time below the capability
	err := e.Send(c, flow.NewBatch(stamp.New(0, 0)))
	assert.ErrorIs(t, err, flow.ErrTimeNotCovered)

	// explicit update time below the batch time
	err = e.Send(c, flow.NewBatch(stamp.New(2, 0), flow.Update{Key: "a", Mult: 1}.At(stamp.New(1, 0))))
	assert.ErrorIs(t, err, flow.ErrTimeNotCovered)

	// a dropped capability authorizes nothing
	c.Drop()
	err = e.Send(c, flow.NewBatch(stamp.New(2, 0)))
	assert.ErrorIs(t, err, capability.ErrInvalidated)

	assert.Len(t, got, 1)
}

func TestEdge_SendBehindFrontier(t *testing.T) {
	ctx := context.Background()
	e := New(ctx, "test")
	assert.NoError(t, e.AdvanceFrontier(stamp.NewAntichain(stamp.New(3, 0))))

	// the producer declared nothing below (3,0) would be sent again
	err := e.Send(capability.Mint(stamp.New(1, 0)), flow.NewBatch(stamp.New(1, 0)))
	assert.ErrorIs(t, err, flow.ErrTimeNotCovered)

	assert.NoError(t, e.Send(capability.Mint(stamp.New(3, 0)), flow.NewBatch(stamp.New(3, 5))))
}

func TestEdge_AdvanceFrontier(t *testing.T) {
	ctx := context.Background()
	e := New(ctx, "test")
	var advances []*stamp.Antichain
	e.OnFrontierAdvance(func(f *stamp.Antichain) error {
		advances = append(advances, f)
		return nil
	})

	assert.NoError(t, e.AdvanceFrontier(stamp.NewAntichain(stamp.New(2, 0))))
	// a repeat of the same frontier is quietly absorbed
	assert.NoError(t, e.AdvanceFrontier(stamp.NewAntichain(stamp.New(2, 0))))
	assert.Len(t, advances, 1)

	// regression is rejected and not delivered
	assert.Error(t, e.AdvanceFrontier(stamp.NewAntichain(stamp.New(1, 0))))
	assert.Len(t, advances, 1)

	assert.NoError(t, e.AdvanceFrontier(stamp.NewAntichain()))
	assert.True(t, e.Closed())
	assert.Len(t, advances, 2)
}

func TestCollector(t *testing.T) {
	ctx := context.Background()
	e := New(ctx, "test")
	col := NewCollector(e)

	c := capability.Mint(stamp.Time{})
	assert.NoError(t, e.Send(c, flow.NewBatch(stamp.New(1, 0),
		flow.Update{Key: "a", Value: []byte("x"), Mult: 1},
		flow.Update{Key: "a", Value: []byte("x"), Mult: 1}.At(stamp.New(2, 0)),
	)))
	assert.NoError(t, e.Send(c, flow.NewBatch(stamp.New(2, 0),
		flow.Update{Key: "a", Value: []byte("x"), Mult: -1},
	)))

	ups := col.Updates()
	assert.Len(t, ups, 3)
	for _, u := range ups {
		assert.NotNil(t, u.Time)
	}

	// the +1 and -1 at (2,0) cancel in the accumulated view
	acc := col.Accumulate()
	assert.Equal(t, map[string]int64{
		"a|x|" + stamp.New(1, 0).String(): 1,
	}, acc)

	assert.NoError(t, e.AdvanceFrontier(stamp.NewAntichain(stamp.New(5, 0))))
	assert.True(t, col.Frontier().Equals(stamp.NewAntichain(stamp.New(5, 0))))
}
