// Package dataset provides taxi trip records and the sources that load them.
package dataset

// TripRecord is one taxi trip. FareAmount is the label and is ignored when
// predicting.
type TripRecord struct {
	VendorID       string  `csv:"vendor_id" json:"vendor_id"`
	RateCode       string  `csv:"rate_code" json:"rate_code"`
	PassengerCount float64 `csv:"passenger_count" json:"passenger_count"`
	TripTime       float64 `csv:"trip_time_in_secs" json:"trip_time_in_secs"`
	TripDistance   float64 `csv:"trip_distance" json:"trip_distance"`
	PaymentType    string  `csv:"payment_type" json:"payment_type"`
	FareAmount     float64 `csv:"fare_amount" json:"fare_amount"`
}

// Column names of the trip CSV files, in file order.
const (
	ColVendorID       = "vendor_id"
	ColRateCode       = "rate_code"
	ColPassengerCount = "passenger_count"
	ColTripTime       = "trip_time_in_secs"
	ColTripDistance   = "trip_distance"
	ColPaymentType    = "payment_type"
	ColFareAmount     = "fare_amount"
)

// Columns lists every column a trip CSV must carry.
var Columns = []string{
	ColVendorID,
	ColRateCode,
	ColPassengerCount,
	ColTripTime,
	ColTripDistance,
	ColPaymentType,
	ColFareAmount,
}

// Labels returns the FareAmount of every record.
func Labels(records []TripRecord) []float64 {
	y := make([]float64, len(records))
	for i, r := range records {
		y[i] = r.FareAmount
	}
	return y
}
