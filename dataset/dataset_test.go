package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/taxifare/pkg/errors"
)

const sampleCSV = `vendor_id,rate_code,passenger_count,trip_time_in_secs,trip_distance,payment_type,fare_amount
CMT,1,1,1271,3.8,CRD,17.5
CMT,1,1,474,1.5,CRD,8
VTS,1,1,637,1.4,CSH,8.5
`

func TestReadCSV(t *testing.T) {
	records, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, TripRecord{
		VendorID:       "CMT",
		RateCode:       "1",
		PassengerCount: 1,
		TripTime:       1271,
		TripDistance:   3.8,
		PaymentType:    "CRD",
		FareAmount:     17.5,
	}, records[0])
	assert.Equal(t, "CSH", records[2].PaymentType)
}

func TestReadCSV_MissingColumn(t *testing.T) {
	in := "vendor_id,rate_code,passenger_count,trip_time_in_secs,payment_type,fare_amount\nCMT,1,1,10,CRD,5\n"
	_, err := ReadCSV(strings.NewReader(in))

	var schema *errors.SchemaMismatchError
	require.True(t, errors.As(err, &schema))
	assert.Equal(t, ColTripDistance, schema.Field)
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	var schema *errors.SchemaMismatchError
	assert.True(t, errors.As(err, &schema))
}

func TestReadCSV_BlankNumericCell(t *testing.T) {
	tests := []struct {
		name  string
		row   string
		field string
	}{
		{"passenger count", "VTS,1,,1,2,CRD,3", ColPassengerCount},
		{"trip time", "VTS,1,1,,2,CRD,3", ColTripTime},
		{"trip distance", "VTS,1,1,1, ,CRD,3", ColTripDistance},
		{"fare amount", "VTS,1,1,1,2,CRD,", ColFareAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ReadCSV(strings.NewReader(sampleCSV + tt.row + "\n"))
			assert.Nil(t, records)
			var schema *errors.SchemaMismatchError
			require.True(t, errors.As(err, &schema), "got %v", err)
			assert.Equal(t, tt.field, schema.Field)
			assert.Contains(t, schema.Reason, "record 3")
		})
	}
}

func TestReadCSV_BlankCategoryAllowed(t *testing.T) {
	records, err := ReadCSV(strings.NewReader(sampleCSV + ",1,1,1,2,,3\n"))
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "", records[3].VendorID)
}

func TestReadCSV_BadNumber(t *testing.T) {
	in := strings.Replace(sampleCSV, "3.8", "far", 1)
	_, err := ReadCSV(strings.NewReader(in))
	var schema *errors.SchemaMismatchError
	assert.True(t, errors.As(err, &schema))
}

func TestCSVSource_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trips.csv")
	want := Synthetic(DefaultSyntheticConfig(20, 7))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, want))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	got, err := NewCSVSource(path).Records()
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].VendorID, got[i].VendorID)
		assert.InDelta(t, want[i].TripDistance, got[i].TripDistance, 1e-9)
		assert.InDelta(t, want[i].FareAmount, got[i].FareAmount, 1e-9)
	}
}

func TestCSVSource_MissingFile(t *testing.T) {
	_, err := NewCSVSource(filepath.Join(t.TempDir(), "nope.csv")).Records()
	assert.Error(t, err)
}

func TestSliceSource_Copies(t *testing.T) {
	src := SliceSource{{VendorID: "VTS"}}
	got, err := src.Records()
	require.NoError(t, err)
	got[0].VendorID = "CMT"
	assert.Equal(t, "VTS", src[0].VendorID)
}

func TestSynthetic(t *testing.T) {
	cfg := DefaultSyntheticConfig(500, 42)
	a := Synthetic(cfg)
	b := Synthetic(cfg)
	require.Len(t, a, 500)
	assert.Equal(t, a, b)

	vendors := map[string]int{}
	for _, r := range a {
		vendors[r.VendorID]++
		assert.GreaterOrEqual(t, r.TripDistance, cfg.MinDistance)
		assert.LessOrEqual(t, r.TripDistance, cfg.MaxDistance)
		assert.GreaterOrEqual(t, r.PassengerCount, 1.0)
		assert.InDelta(t, cfg.ExpectedFare(r.TripDistance), r.FareAmount, 2.0)
	}
	assert.Len(t, vendors, 2)
}

func TestSplit(t *testing.T) {
	records := Synthetic(DefaultSyntheticConfig(100, 1))
	train, test := Split(records, 0.2, 3)
	assert.Len(t, train, 80)
	assert.Len(t, test, 20)

	train, test = Split(records, 2, 3)
	assert.Empty(t, train)
	assert.Len(t, test, 100)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, []float64{1, 2}, Labels([]TripRecord{{FareAmount: 1}, {FareAmount: 2}}))
}
