package gpuserver

import (
	"errors"
	"fmt"
	"math"

	"github.com/chefmayhem/carbonai-go/common"
)

// z95 is the two-sided 95% normal quantile used for the energy and latency intervals.
const z95 = 1.96

// GPUServer represents the infrastructure serving a chat model. Some impact is attributed to
// the requests it serves and some to building and operating the server, the embodied impact.
type GPUServer struct {
	AvailableGPUCount  int
	PowerConsumptionKW float64
	EmbodiedImpactADPe float64
	EmbodiedImpactGWP  float64
	EmbodiedImpactPE   float64
	HardwareLifespan   int64
	GPUModel           GPU
	DatacenterPUE      float64
}

// GPU holds the per-token energy and latency regression of a GPU plus its embodied impact.
type GPU struct {
	EnergyAlpha        float64
	EnergyBeta         float64
	EnergyStdev        float64
	LatencyAlpha       float64
	LatencyBeta        float64
	LatencyStdev       float64
	AvailMemoryGB      float64
	EmbodiedImpactADPe float64
	EmbodiedImpactGWP  float64
	EmbodiedImpactPE   float64
}

// Footprint is the energy side of serving one request.
type Footprint struct {
	GPUCount          int
	GenerationLatency common.RangeValue // seconds
	EnergyKWH         common.RangeValue
}

// GenericGPUServer returns a server with default values for energy and latency parameters.
func GenericGPUServer() (*GPUServer, error) {
	const (
		serverGPUCount           = 100
		serverPowerKw            = 1
		serverEmbodiedImpactGWP  = 3000
		serverEmbodiedImpactADPe = 0.24
		serverEmbodiedImpactPE   = 38000
		hardwareLifespan         = 5 * 365 * 24 * 60 * 60
		datacenterPUE            = 1.2
	)

	return &GPUServer{
		AvailableGPUCount:  serverGPUCount,
		PowerConsumptionKW: serverPowerKw,
		EmbodiedImpactADPe: serverEmbodiedImpactADPe,
		EmbodiedImpactGWP:  serverEmbodiedImpactGWP,
		EmbodiedImpactPE:   serverEmbodiedImpactPE,
		HardwareLifespan:   hardwareLifespan,
		GPUModel:           GenericGPU(),
		DatacenterPUE:      datacenterPUE,
	}, nil
}

// GenericGPU returns a GPU with default values for energy and latency parameters.
func GenericGPU() GPU {
	return GPU{
		EnergyAlpha:        8.91e-8,
		EnergyBeta:         1.43e-6,
		EnergyStdev:        5.19e-7,
		LatencyAlpha:       8.02e-4,
		LatencyBeta:        2.23e-2,
		LatencyStdev:       7.00e-6,
		AvailMemoryGB:      80,
		EmbodiedImpactADPe: 5.1e-3,
		EmbodiedImpactGWP:  143,
		EmbodiedImpactPE:   1828,
	}
}

// Footprint combines the GPU count, generation latency and request energy for a request that
// produced outputTokens with a model of activeParams billion parameters needing requiredMemoryGB
// of GPU memory. requestLatencySecs is the measured upper bound of the generation time.
func (g *GPUServer) Footprint(
	activeParams float64,
	requiredMemoryGB float64,
	outputTokens float64,
	requestLatencySecs float64,
) (Footprint, error) {
	gpus, err := g.GPURequiredCount(requiredMemoryGB)
	if err != nil {
		return Footprint{}, fmt.Errorf("failed to get GPU required count: %w", err)
	}
	latency, err := g.GenerationLatency(activeParams, outputTokens, requestLatencySecs)
	if err != nil {
		return Footprint{}, fmt.Errorf("failed to get generation latency: %w", err)
	}
	gpuEnergy, err := g.GPUEnergyKWH(activeParams, outputTokens)
	if err != nil {
		return Footprint{}, fmt.Errorf("failed to get GPU energy: %w", err)
	}
	baseline, err := g.ServerEnergyBaseline(latency.Max, gpus)
	if err != nil {
		return Footprint{}, fmt.Errorf("failed to get server energy: %w", err)
	}
	energy, err := g.RequestEnergy(baseline, gpus, gpuEnergy)
	if err != nil {
		return Footprint{}, fmt.Errorf("failed to get request energy: %w", err)
	}
	return Footprint{GPUCount: gpus, GenerationLatency: latency, EnergyKWH: energy}, nil
}

// GPURequiredCount returns the number of GPUs needed to hold the model, rounding up.
func (g *GPUServer) GPURequiredCount(requiredMemoryGB float64) (int, error) {
	if requiredMemoryGB <= 0 {
		return 0, errors.New("model required memory must be greater than 0")
	}
	if g.GPUModel.AvailMemoryGB <= 0 {
		return 0, errors.New("available GPU memory must be greater than 0")
	}
	count := int(math.Ceil(requiredMemoryGB / g.GPUModel.AvailMemoryGB))
	if count > g.AvailableGPUCount {
		return 0, fmt.Errorf("model needs %d GPUs but the server has %d", count, g.AvailableGPUCount)
	}
	return count, nil
}

// ServerEnergyBaseline returns the server energy in kWh excluding GPUs, prorated to the GPUs used.
func (g *GPUServer) ServerEnergyBaseline(generationLatencySecs float64, gpuRequiredCount int) (float64, error) {
	if generationLatencySecs <= 0 {
		return 0, errors.New("generation latency must be greater than 0")
	}
	if gpuRequiredCount <= 0 || gpuRequiredCount > g.AvailableGPUCount {
		return 0, errors.New("gpuRequiredCount must be between 1 and the number of available GPUs")
	}
	if g.PowerConsumptionKW <= 0 {
		return 0, errors.New("power consumption must be greater than 0")
	}
	share := float64(gpuRequiredCount) / float64(g.AvailableGPUCount)
	return generationLatencySecs / 3600 * g.PowerConsumptionKW * share, nil
}

// GPUEnergyKWH returns the 95% interval of the energy a single GPU spends on outputTokens.
func (g *GPUServer) GPUEnergyKWH(activeParams float64, outputTokens float64) (common.RangeValue, error) {
	if activeParams <= 0 {
		return common.RangeValue{}, errors.New("activeParams must be greater than 0")
	}
	if outputTokens <= 0 {
		return common.RangeValue{}, errors.New("outputTokens must be greater than 0")
	}
	m := g.GPUModel
	if m.EnergyAlpha <= 0 || m.EnergyBeta <= 0 || m.EnergyStdev <= 0 {
		return common.RangeValue{}, errors.New("GPU energy parameters must be greater than 0")
	}
	return perTokenInterval(m.EnergyAlpha*activeParams+m.EnergyBeta, m.EnergyStdev, outputTokens), nil
}

// GenerationLatency returns the 95% interval of the time spent generating outputTokens, or the
// measured request latency when the model predicts a longer generation than was observed.
func (g *GPUServer) GenerationLatency(
	activeParams float64,
	outputTokens float64,
	requestLatencySecs float64,
) (common.RangeValue, error) {
	if activeParams <= 0 {
		return common.RangeValue{}, errors.New("activeParams must be greater than 0")
	}
	if outputTokens <= 0 {
		return common.RangeValue{}, errors.New("outputTokens must be greater than 0")
	}
	if requestLatencySecs <= 0 {
		return common.RangeValue{}, errors.New("requestLatencySecs must be greater than 0")
	}
	m := g.GPUModel
	if m.LatencyAlpha <= 0 || m.LatencyBeta <= 0 || m.LatencyStdev <= 0 {
		return common.RangeValue{}, errors.New("GPU latency parameters must be greater than 0")
	}
	interval := perTokenInterval(m.LatencyAlpha*activeParams+m.LatencyBeta, m.LatencyStdev, outputTokens)
	if interval.Max < requestLatencySecs {
		return interval, nil
	}
	return common.Point(requestLatencySecs), nil
}

// RequestEnergy returns the datacenter energy of the request in kWh.
func (g *GPUServer) RequestEnergy(
	serverEnergyKWH float64,
	gpuRequiredCount int,
	gpuEnergyKWH common.RangeValue,
) (common.RangeValue, error) {
	if serverEnergyKWH <= 0 {
		return common.RangeValue{}, errors.New("serverEnergyKWH must be greater than 0")
	}
	if gpuRequiredCount <= 0 || gpuRequiredCount > g.AvailableGPUCount {
		return common.RangeValue{}, errors.New("gpuRequiredCount must be between 1 and the number of available GPUs")
	}
	if gpuEnergyKWH.Min < 0 || gpuEnergyKWH.Max < 0 {
		return common.RangeValue{}, errors.New("gpuEnergyKWH values must be non-negative")
	}
	gpus := gpuEnergyKWH.Scale(float64(gpuRequiredCount))
	return common.Point(serverEnergyKWH).Add(gpus).Scale(g.DatacenterPUE), nil
}

func perTokenInterval(mean, stdev, tokens float64) common.RangeValue {
	return common.RangeValue{
		Min: math.Max(0, tokens*(mean-z95*stdev)),
		Max: tokens * (mean + z95*stdev),
	}
}
