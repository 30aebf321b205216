/*
Package impact provides utilities for calculating the environmental and energy impact of computation:
a back-of-envelope estimate for local code and the ecologits model for chat model requests.
*/
package impact

import (
	"fmt"

	"github.com/chefmayhem/carbonai-go/aimodel"
	"github.com/chefmayhem/carbonai-go/common"
	"github.com/chefmayhem/carbonai-go/gpuserver"
)

// Request describes one served chat request.
type Request struct {
	OutputTokens float64
	LatencySecs  float64
	Zone         string
}

// Impacts is the footprint of one chat request. Energy is in kWh; GWP in kgCO2eq, ADPe in kgSbeq
// and PE in MJ.
type Impacts struct {
	Energy common.RangeValue `json:"energy"`
	GWP    Indicator         `json:"gwp"`
	ADPe   Indicator         `json:"adpe"`
	PE     Indicator         `json:"pe"`
}

// ComputeImpacts computes the environmental and energy impact of serving req with model.
func ComputeImpacts(model *aimodel.AIModel, server *gpuserver.GPUServer, req Request) (Impacts, error) {
	mix, err := GetElectricityMix(req.Zone)
	if err != nil {
		return Impacts{}, err
	}

	active := model.Architecture().Parameters.Active.Max
	memory := model.RequiredMemoryGB(aimodel.DefaultQuantizationBits)
	fp, err := server.Footprint(active, memory, req.OutputTokens, req.LatencySecs)
	if err != nil {
		return Impacts{}, fmt.Errorf("failed to compute footprint of %s: %w", model.Name(), err)
	}

	lifespan := float64(server.HardwareLifespan)
	gpuCount := float64(server.AvailableGPUCount)
	indicator := func(factor, serverEmbodied, gpuEmbodied float64) Indicator {
		var ind Indicator
		ind.CalculateRequestUsage(fp.EnergyKWH, factor)
		ind.CalculateServerGPUEmbodied(serverEmbodied, gpuCount, gpuEmbodied, fp.GPUCount)
		ind.CalculateRequestEmbodied(lifespan, fp.GenerationLatency)
		ind.CalculateTotal()
		return ind
	}

	return Impacts{
		Energy: fp.EnergyKWH,
		GWP:    indicator(mix.GWP, server.EmbodiedImpactGWP, server.GPUModel.EmbodiedImpactGWP),
		ADPe:   indicator(mix.ADPe, server.EmbodiedImpactADPe, server.GPUModel.EmbodiedImpactADPe),
		PE:     indicator(mix.PE, server.EmbodiedImpactPE, server.GPUModel.EmbodiedImpactPE),
	}, nil
}
