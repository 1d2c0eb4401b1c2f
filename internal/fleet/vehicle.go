package fleet

// Vehicle represents a tracked car
type Vehicle struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Plate string `json:"plate"`
}

// SeedVehicles returns the default fleet used when no fleet has been
// persisted yet (or the persisted blob cannot be read).
func SeedVehicles() []Vehicle {
	return []Vehicle{
		{ID: "car-01", Name: "Toyota Corolla", Plate: "AB-123-CD"},
		{ID: "car-02", Name: "Ford Focus", Plate: "EF-456-GH"},
		{ID: "car-03", Name: "Volkswagen Golf", Plate: "IJ-789-KL"},
		{ID: "car-04", Name: "Honda Civic", Plate: "MN-012-OP"},
		{ID: "car-05", Name: "BMW 3 Series", Plate: "QR-345-ST"},
		{ID: "car-06", Name: "Mercedes C-Class", Plate: "UV-678-WX"},
		{ID: "car-07", Name: "Audi A4", Plate: "YZ-901-AB"},
		{ID: "car-08", Name: "Tesla Model 3", Plate: "CD-234-EF"},
		{ID: "car-09", Name: "Hyundai Elantra", Plate: "GH-567-IJ"},
		{ID: "car-10", Name: "Kia Forte", Plate: "KL-890-MN"},
	}
}
