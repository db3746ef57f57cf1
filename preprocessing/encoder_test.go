package preprocessing

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/taxifare/dataset"
	"github.com/YuminosukeSato/taxifare/pkg/errors"
)

func trainingRecords() []dataset.TripRecord {
	return []dataset.TripRecord{
		{VendorID: "VTS", RateCode: "1", PassengerCount: 1, TripTime: 600, TripDistance: 2, PaymentType: "CRD", FareAmount: 3.5},
		{VendorID: "CMT", RateCode: "1", PassengerCount: 2, TripTime: 900, TripDistance: 3, PaymentType: "CSH", FareAmount: 4},
		{VendorID: "VTS", RateCode: "2", PassengerCount: 1, TripTime: 300, TripDistance: 1, PaymentType: "CRD", FareAmount: 3},
	}
}

func TestCategoryEncoding_FirstSeenOrder(t *testing.T) {
	enc := NewCategoryEncoding([]string{"b", "a", "", "b", "c", "a"})
	assert.Equal(t, []string{"b", "a", "c"}, enc.Categories())
	assert.Equal(t, 3, enc.Len())

	i, ok := enc.Index("c")
	assert.True(t, ok)
	assert.Equal(t, 2, i)
	_, ok = enc.Index("")
	assert.False(t, ok)
}

func TestFit_Layout(t *testing.T) {
	e, err := Fit(trainingRecords())
	require.NoError(t, err)

	// vendor(2) + rate(2) + passenger + distance + payment(2)
	assert.Equal(t, 8, e.Width())

	var names []string
	for _, s := range e.Steps() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{StepVendorID, StepRateCode, StepPassengerCount, StepTripDistance, StepPaymentType}, names)
	assert.Equal(t, []string{
		"vendor_id=VTS", "vendor_id=CMT",
		"rate_code=1", "rate_code=2",
		"passenger_count", "trip_distance",
		"payment_type=CRD", "payment_type=CSH",
	}, e.FeatureNames())
	assert.False(t, e.IncludesTripTime())
}

func TestTransform(t *testing.T) {
	e, err := Fit(trainingRecords())
	require.NoError(t, err)

	x, err := e.Transform(dataset.TripRecord{
		VendorID: "CMT", RateCode: "2", PassengerCount: 3, TripDistance: 4.5, PaymentType: "CRD", FareAmount: 99,
	})
	require.NoError(t, err)
	assert.Equal(t, EncodedVector{0, 1, 0, 1, 3, 4.5, 1, 0}, x)
}

func TestTransform_UnknownCategoryIsZeroBlock(t *testing.T) {
	e, err := Fit(trainingRecords())
	require.NoError(t, err)

	rec := dataset.TripRecord{VendorID: "XYZ", RateCode: "", PassengerCount: 1, TripDistance: 2, PaymentType: "CRD"}
	x, err := e.Transform(rec)
	require.NoError(t, err)
	assert.Len(t, x, e.Width())
	assert.Equal(t, EncodedVector{0, 0, 0, 0, 1, 2, 1, 0}, x)
	assert.Equal(t, []string{dataset.ColVendorID, dataset.ColRateCode}, e.UnknownFields(rec))
}

func TestTransform_WidthIsConstantAndPure(t *testing.T) {
	e, err := Fit(dataset.Synthetic(dataset.DefaultSyntheticConfig(50, 1)))
	require.NoError(t, err)

	inputs := []dataset.TripRecord{
		{},
		{VendorID: "VTS", RateCode: "1", PaymentType: "CRD", TripDistance: 1},
		{VendorID: "nope", RateCode: "9", PaymentType: "UNK", PassengerCount: 6, TripDistance: 30},
	}
	for _, rec := range inputs {
		a, err := e.Transform(rec)
		require.NoError(t, err)
		b, err := e.Transform(rec)
		require.NoError(t, err)
		assert.Len(t, a, e.Width())
		assert.Equal(t, a, b)
	}
}

func TestTransform_NonFinite(t *testing.T) {
	e, err := Fit(trainingRecords())
	require.NoError(t, err)

	_, err = e.Transform(dataset.TripRecord{VendorID: "VTS", TripDistance: math.NaN()})
	var schema *errors.SchemaMismatchError
	require.True(t, errors.As(err, &schema))
	assert.Equal(t, dataset.ColTripDistance, schema.Field)
}

func TestFit_Errors(t *testing.T) {
	_, err := Fit(nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	noPayment := trainingRecords()
	for i := range noPayment {
		noPayment[i].PaymentType = ""
	}
	_, err = Fit(noPayment)
	var schema *errors.SchemaMismatchError
	require.True(t, errors.As(err, &schema))
	assert.Equal(t, dataset.ColPaymentType, schema.Field)

	bad := trainingRecords()
	bad[1].PassengerCount = math.Inf(1)
	_, err = Fit(bad)
	require.True(t, errors.As(err, &schema))
	assert.Equal(t, dataset.ColPassengerCount, schema.Field)
}

func TestFit_EmptyValuesTolerated(t *testing.T) {
	records := trainingRecords()
	records[0].RateCode = ""
	e, err := Fit(records)
	require.NoError(t, err)
	enc, ok := e.Encoding(dataset.ColRateCode)
	require.True(t, ok)
	assert.Equal(t, []string{"1", "2"}, enc.Categories())
}

func TestWithTripTime(t *testing.T) {
	e, err := Fit(trainingRecords(), WithTripTime())
	require.NoError(t, err)
	assert.Equal(t, 9, e.Width())
	assert.True(t, e.IncludesTripTime())

	x, err := e.Transform(trainingRecords()[1])
	require.NoError(t, err)
	assert.Equal(t, EncodedVector{0, 1, 1, 0, 2, 3, 900, 0, 1}, x)
}

func TestTransformAll(t *testing.T) {
	records := trainingRecords()
	e, err := Fit(records)
	require.NoError(t, err)

	X, err := e.TransformAll(records)
	require.NoError(t, err)
	r, c := X.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, e.Width(), c)
	for i, rec := range records {
		x, err := e.Transform(rec)
		require.NoError(t, err)
		assert.Equal(t, []float64(x), X.RawRowView(i))
	}

	_, err = e.TransformAll(nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestEncoderJSONRoundTrip(t *testing.T) {
	e, err := Fit(trainingRecords(), WithTripTime())
	require.NoError(t, err)

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var restored FeatureEncoder
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, e.Width(), restored.Width())
	assert.Equal(t, e.FeatureNames(), restored.FeatureNames())

	for _, rec := range trainingRecords() {
		a, _ := e.Transform(rec)
		b, _ := restored.Transform(rec)
		assert.Equal(t, a, b)
	}
}

func TestFromState_Invalid(t *testing.T) {
	_, err := FromState(EncoderState{Categories: map[string][]string{dataset.ColVendorID: {"VTS"}}})
	assert.Error(t, err)

	_, err = FromState(EncoderState{Categories: map[string][]string{
		dataset.ColVendorID:    {"VTS", "VTS"},
		dataset.ColRateCode:    {"1"},
		dataset.ColPaymentType: {"CRD"},
	}})
	assert.Error(t, err)
}
