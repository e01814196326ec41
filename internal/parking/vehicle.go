package parking

type Vehicle struct {
	RegistrationNumber string
	Color              string
	Type               string
}

func NewVehicle(registrationNumber, color, vehicleType string) *Vehicle {
	return &Vehicle{
		RegistrationNumber: registrationNumber,
		Color:              color,
		Type:               vehicleType,
	}
}
