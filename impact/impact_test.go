package impact

import (
	"testing"
	"time"

	"github.com/chefmayhem/carbonai-go/aimodel"
	"github.com/chefmayhem/carbonai-go/common"
	"github.com/chefmayhem/carbonai-go/gpuserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackOfEnvelopeGrams(t *testing.T) {
	tests := []struct {
		name        string
		runtimeSecs float64
		want        float64
	}{
		{name: "zero runtime", runtimeSecs: 0, want: 0},
		{name: "one second", runtimeSecs: 1, want: 0.0035},
		{name: "a thousand seconds", runtimeSecs: 1000, want: 3.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, BackOfEnvelopeGrams(tt.runtimeSecs), 1e-12)
		})
	}
}

func TestBackOfEnvelope(t *testing.T) {
	assert.InDelta(t, 0.007, BackOfEnvelope(2*time.Second), 1e-12)
}

func TestGetElectricityMix(t *testing.T) {
	mix, err := GetElectricityMix("")
	require.NoError(t, err)
	assert.Equal(t, 0.67978, mix.GWP)

	_, err = GetElectricityMix("ATLANTIS")
	assert.EqualError(t, err, `no electricity mix for zone "ATLANTIS"`)
}

func TestIndicator(t *testing.T) {
	var ind Indicator
	ind.CalculateRequestUsage(common.RangeValue{Min: 1, Max: 2}, 0.5)
	ind.CalculateServerGPUEmbodied(3000, 100, 143, 2)
	ind.CalculateRequestEmbodied(1000, common.RangeValue{Min: 1, Max: 1})
	ind.CalculateTotal()

	// 2/100 * 3000 + 2 * 143
	assert.InDelta(t, 346.0, ind.ServerGPUEmbodiedImpact, 1e-9)
	assert.Equal(t, common.RangeValue{Min: 0.5, Max: 1}, ind.Usage)
	assert.InDelta(t, 0.346, ind.Embodied.Min, 1e-12)
	assert.InDelta(t, 0.846, ind.Total.Min, 1e-12)
	assert.InDelta(t, 1.346, ind.Total.Max, 1e-12)
}

func TestComputeImpacts(t *testing.T) {
	registry, err := aimodel.DefaultRegistry()
	require.NoError(t, err)
	model, err := registry.Lookup("gpt-4o-mini")
	require.NoError(t, err)
	server, err := gpuserver.GenericGPUServer()
	require.NoError(t, err)

	t.Run("computes positive impacts", func(t *testing.T) {
		got, err := ComputeImpacts(model, server, Request{OutputTokens: 40, LatencySecs: 1.2})
		require.NoError(t, err)
		assert.Greater(t, got.Energy.Min, 0.0)
		assert.GreaterOrEqual(t, got.GWP.Total.Max, got.GWP.Total.Min)
		assert.Greater(t, got.GWP.Total.Min, got.GWP.Usage.Min)
		assert.Greater(t, got.PE.Total.Min, 0.0)
		assert.Greater(t, got.ADPe.Total.Min, 0.0)
	})

	t.Run("returns error for unknown zone", func(t *testing.T) {
		_, err := ComputeImpacts(model, server, Request{OutputTokens: 40, LatencySecs: 1.2, Zone: "XXX"})
		assert.Error(t, err)
	})

	t.Run("returns error without output tokens", func(t *testing.T) {
		_, err := ComputeImpacts(model, server, Request{LatencySecs: 1.2})
		assert.ErrorContains(t, err, "outputTokens must be greater than 0")
	})
}
