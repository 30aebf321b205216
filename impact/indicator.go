package impact

import "github.com/chefmayhem/carbonai-go/common"

// Indicator is one impact criterion split into usage and embodied parts.
type Indicator struct {
	Usage                   common.RangeValue `json:"usage"`
	Embodied                common.RangeValue `json:"embodied"`
	ServerGPUEmbodiedImpact float64           `json:"-"`
	Total                   common.RangeValue `json:"total"`
}

// CalculateRequestUsage computes the usage impact from request energy and the electricity impact
// factor of the grid (impact unit per kWh).
func (i *Indicator) CalculateRequestUsage(requestEnergyKWH common.RangeValue, elecImpactFactor float64) {
	i.Usage = requestEnergyKWH.Scale(elecImpactFactor)
}

// CalculateServerGPUEmbodied computes the embodied impact of the share of the server and the
// GPUs the request occupies.
func (i *Indicator) CalculateServerGPUEmbodied(
	serverEmbodied float64,
	serverGPUCount float64,
	gpuEmbodied float64,
	gpuRequiredCount int,
) {
	n := float64(gpuRequiredCount)
	i.ServerGPUEmbodiedImpact = n/serverGPUCount*serverEmbodied + n*gpuEmbodied
}

// CalculateRequestEmbodied allocates the server embodied impact to the request by generation time
// over hardware lifespan. CalculateServerGPUEmbodied must run first.
func (i *Indicator) CalculateRequestEmbodied(hardwareLifespanSecs float64, generationLatency common.RangeValue) {
	i.Embodied = generationLatency.Scale(i.ServerGPUEmbodiedImpact / hardwareLifespanSecs)
}

func (i *Indicator) CalculateTotal() {
	i.Total = i.Usage.Add(i.Embodied)
}
