package impact

import "time"

// desktopGramsPerSecond is the emission rate of code running on a consumer desktop: about 60 W
// drawn, half of it attributed to the measured code, on a grid emitting 0.42 kg CO2 per kWh.
// That is roughly 3.5 mg of CO2 per second.
const desktopGramsPerSecond = 0.0035

// BackOfEnvelopeGrams returns a rough estimate in grams of CO2 for running code on a desktop
// for runtimeSecs seconds.
func BackOfEnvelopeGrams(runtimeSecs float64) float64 {
	return desktopGramsPerSecond * runtimeSecs
}

// BackOfEnvelope is BackOfEnvelopeGrams for a measured duration.
func BackOfEnvelope(elapsed time.Duration) float64 {
	return BackOfEnvelopeGrams(elapsed.Seconds())
}
