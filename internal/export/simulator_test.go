package export

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulator_CountsToComplete(t *testing.T) {
	var seen []int
	err := Simulator{Interval: time.Millisecond}.Run(context.Background(), func(p int) {
		seen = append(seen, p)
	})
	require.NoError(t, err)

	require.Len(t, seen, Complete)
	for i, p := range seen {
		assert.Equal(t, i+1, p)
	}
}

func TestSimulator_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var last int
	err := Simulator{Interval: time.Millisecond}.Run(ctx, func(p int) {
		last = p
		if p == 10 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, last, 10)
	assert.Less(t, last, Complete)
}
