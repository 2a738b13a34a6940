package forecast

import (
	"context"
	"sync"
	"testing"

	"github.com/Veraticus/adoption-forecast/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulate(t *testing.T) {
	tests := []struct {
		name     string
		purchase []int
		want     []int
		initial  int
	}{
		{name: "production baseline", initial: 60, purchase: []int{28, 22, 23, 14, 26}, want: []int{88, 110, 133, 147, 173}},
		{name: "zero purchases keep the stock flat", initial: 5, purchase: []int{0, 0, 0}, want: []int{5, 5, 5}},
		{name: "empty horizon", initial: 5, purchase: []int{}, want: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Accumulate(tt.initial, tt.purchase))
		})
	}
}

func TestKeys(t *testing.T) {
	keys := Keys(2)
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.Name()
	}

	assert.Equal(t, []string{
		"Negative_Year1", "Negative_Year2",
		"Neutral_Year1", "Neutral_Year2",
		"Positive_Year1", "Positive_Year2",
	}, names)
}

func TestRunAll_WorkersProduceSameResult(t *testing.T) {
	sim := newTestSimulator(t, model.DefaultInputs())

	sequential, err := sim.RunAll(context.Background(), RunOptions{Workers: 1})
	require.NoError(t, err)

	var mu sync.Mutex
	seen := make(map[string]bool)
	parallel, err := sim.RunAll(context.Background(), RunOptions{
		Workers: 8,
		OnScenario: func(sc model.Scenario) {
			mu.Lock()
			defer mu.Unlock()
			seen[sc.Name()] = true
		},
	})
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
	assert.Len(t, seen, 15)
	for i := 1; i < len(parallel); i++ {
		assert.True(t, parallel[i-1].Key.Less(parallel[i].Key))
	}
}

func TestRunAll_Canceled(t *testing.T) {
	sim := newTestSimulator(t, model.DefaultInputs())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scenarios, err := sim.RunAll(ctx, RunOptions{Workers: 2})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, scenarios)
}
