package impact

import "fmt"

// ElectricityMix holds the impact factors of one kWh drawn from a grid.
type ElectricityMix struct {
	ADPe float64 // kgSbeq / kWh
	GWP  float64 // kgCO2eq / kWh
	PE   float64 // MJ / kWh
}

// DefaultZone is used when a request does not name a grid zone.
const DefaultZone = "USA"

var electricityMixes = map[string]ElectricityMix{
	"USA": {ADPe: 9.85548e-8, GWP: 0.67978, PE: 11.358},
	"FRA": {ADPe: 4.85869e-8, GWP: 0.0812, PE: 11.289},
	"DEU": {ADPe: 7.52402e-8, GWP: 0.62135, PE: 11.316},
	"WOR": {ADPe: 7.37708e-8, GWP: 0.59087, PE: 9.988},
}

// GetElectricityMix returns the mix of an ISO 3166-1 alpha-3 zone, or WOR for the world average.
func GetElectricityMix(zone string) (ElectricityMix, error) {
	if zone == "" {
		zone = DefaultZone
	}
	mix, ok := electricityMixes[zone]
	if !ok {
		return ElectricityMix{}, fmt.Errorf("no electricity mix for zone %q", zone)
	}
	return mix, nil
}
