package common

// RangeValue is a closed interval used for uncertain quantities such as parameter counts or energy.
type RangeValue struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Point returns a degenerate range where Min and Max are both v.
func Point(v float64) RangeValue {
	return RangeValue{Min: v, Max: v}
}

// Scale multiplies both bounds by f.
func (r RangeValue) Scale(f float64) RangeValue {
	return RangeValue{Min: r.Min * f, Max: r.Max * f}
}

// Add returns the bound-wise sum of r and o.
func (r RangeValue) Add(o RangeValue) RangeValue {
	return RangeValue{Min: r.Min + o.Min, Max: r.Max + o.Max}
}
