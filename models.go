package main

// User is a stored account. Password holds the bcrypt hash and never leaves
// the server.
type User struct {
	UserID            int64  `db:"user_id" json:"user_id"`
	Username          string `db:"username" json:"username"`
	Email             string `db:"email" json:"email"`
	Password          string `db:"password" json:"-"`
	Onboarding        bool   `db:"onboarding" json:"onboarding"`
	SelectedVehicleID *int64 `db:"selected_vehicle_id" json:"selected_vehicle_id"`
	CreatedAt         string `db:"created_at" json:"created_at"`
}

// Vehicle belongs to exactly one user.
type Vehicle struct {
	VehicleID          int64    `db:"vehicle_id" json:"vehicle_id"`
	UserID             int64    `db:"user_id" json:"user_id"`
	Name               string   `db:"name" json:"name"`
	VehicleYear        *int64   `db:"vehicle_year" json:"vehicle_year"`
	Make               *string  `db:"make" json:"make"`
	Model              *string  `db:"model" json:"model"`
	Odometer           *float64 `db:"odometer" json:"odometer"`
	OilChangeFrequency *float64 `db:"oil_change_frequency" json:"oil_change_frequency"`
	NextOilChange      *float64 `db:"next_oil_change" json:"next_oil_change"`
	CreatedAt          string   `db:"created_at" json:"created_at"`
}

// FuelPurchase is one fill-up of one of the user's vehicles. Timestamps are
// carried as the strings the driver returns.
type FuelPurchase struct {
	FuelPurchaseID int64   `db:"fuel_purchase_id" json:"fuel_purchase_id"`
	UserID         int64   `db:"user_id" json:"user_id"`
	VehicleID      int64   `db:"vehicle_id" json:"vehicle_id"`
	DateOfFillUp   string  `db:"date_of_fill_up" json:"date_of_fill_up"`
	Odometer       float64 `db:"odometer" json:"odometer"`
	Gallons        float64 `db:"gallons" json:"gallons"`
	Price          float64 `db:"price" json:"price"`
	Location       *string `db:"location" json:"location"`
	CreatedAt      string  `db:"created_at" json:"created_at"`
}
