package parking

import "fmt"

type PlateParity int

const (
	PlateOdd PlateParity = iota + 1
	PlateEven
)

func (p PlateParity) String() string {
	switch p {
	case PlateOdd:
		return "odd"
	case PlateEven:
		return "even"
	default:
		return "unknown"
	}
}

// ParsePlateParity accepts "odd" or "even".
func ParsePlateParity(s string) (PlateParity, bool) {
	switch s {
	case "odd":
		return PlateOdd, true
	case "even":
		return PlateEven, true
	default:
		return 0, false
	}
}

// ClassifyPlate looks at the last character of a registration number.
func ClassifyPlate(registrationNumber string) (PlateParity, error) {
	if registrationNumber == "" {
		return 0, fmt.Errorf("empty registration: %w", ErrUnparsablePlateDigit)
	}

	last := registrationNumber[len(registrationNumber)-1]
	if last < '0' || last > '9' {
		return 0, fmt.Errorf("%q: %w", registrationNumber, ErrUnparsablePlateDigit)
	}

	if (last-'0')%2 == 1 {
		return PlateOdd, nil
	}
	return PlateEven, nil
}

type GroupCount struct {
	Key   string
	Count int
}

// Report is a point-in-time summary of a lot. Groups are listed in the order
// their first vehicle appears when walking slots by number.
type Report struct {
	Capacity     int
	Occupied     int
	Available    int
	VehicleTypes []GroupCount
	Colors       []GroupCount
	OddPlates    []string
	EvenPlates   []string
	Unclassified []string
}

// TypeCount returns the number of parked vehicles of exactly this type.
func (r Report) TypeCount(vehicleType string) int {
	return countOf(r.VehicleTypes, vehicleType)
}

func (r Report) ColorCount(color string) int {
	return countOf(r.Colors, color)
}

func (r Report) Plates(parity PlateParity) []string {
	if parity == PlateOdd {
		return r.OddPlates
	}
	return r.EvenPlates
}

func countOf(groups []GroupCount, key string) int {
	for _, g := range groups {
		if g.Key == key {
			return g.Count
		}
	}
	return 0
}

// BuildReport derives a Report from a slot snapshot in a single pass.
func BuildReport(slots []Slot) Report {
	report := Report{
		Capacity:     len(slots),
		VehicleTypes: []GroupCount{},
		Colors:       []GroupCount{},
		OddPlates:    []string{},
		EvenPlates:   []string{},
	}

	typeIndex := make(map[string]int)
	colorIndex := make(map[string]int)

	for _, slot := range slots {
		if !slot.IsOccupied || slot.Vehicle == nil {
			continue
		}
		report.Occupied++

		v := slot.Vehicle
		report.VehicleTypes = addToGroup(report.VehicleTypes, typeIndex, v.Type)
		report.Colors = addToGroup(report.Colors, colorIndex, v.Color)

		parity, err := ClassifyPlate(v.RegistrationNumber)
		switch {
		case err != nil:
			report.Unclassified = append(report.Unclassified, v.RegistrationNumber)
		case parity == PlateOdd:
			report.OddPlates = append(report.OddPlates, v.RegistrationNumber)
		default:
			report.EvenPlates = append(report.EvenPlates, v.RegistrationNumber)
		}
	}

	report.Available = report.Capacity - report.Occupied
	return report
}

func addToGroup(groups []GroupCount, index map[string]int, key string) []GroupCount {
	if i, ok := index[key]; ok {
		groups[i].Count++
		return groups
	}
	index[key] = len(groups)
	return append(groups, GroupCount{Key: key, Count: 1})
}
