package dataset

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// SyntheticConfig describes a generated trip population whose fare follows
// BaseFare + PerMile*distance plus Gaussian noise.
type SyntheticConfig struct {
	N           int
	Seed        uint64
	BaseFare    float64
	PerMile     float64
	Noise       float64
	MinDistance float64
	MaxDistance float64
	Vendors     []string
	RateCodes   []string
	Payments    []string
}

// DefaultSyntheticConfig is the two-vendor population used by the tests and the demo.
func DefaultSyntheticConfig(n int, seed uint64) SyntheticConfig {
	return SyntheticConfig{
		N:           n,
		Seed:        seed,
		BaseFare:    2.5,
		PerMile:     0.5,
		Noise:       0.3,
		MinDistance: 0.5,
		MaxDistance: 20,
		Vendors:     []string{"VTS", "CMT"},
		RateCodes:   []string{"1", "2"},
		Payments:    []string{"CRD", "CSH"},
	}
}

// ExpectedFare is the noise free fare for a distance.
func (c SyntheticConfig) ExpectedFare(distance float64) float64 {
	return c.BaseFare + c.PerMile*distance
}

// Synthetic generates c.N records. The same config always yields the same records.
func Synthetic(c SyntheticConfig) []TripRecord {
	src := rand.NewPCG(c.Seed, c.Seed^0x9e3779b97f4a7c15)
	rng := rand.New(src)
	distance := distuv.Uniform{Min: c.MinDistance, Max: c.MaxDistance, Src: src}
	noise := distuv.Normal{Mu: 0, Sigma: c.Noise, Src: src}
	passengers := distuv.Poisson{Lambda: 0.6, Src: src}

	records := make([]TripRecord, c.N)
	for i := range records {
		d := distance.Rand()
		fare := c.ExpectedFare(d)
		if c.Noise > 0 {
			fare += noise.Rand()
		}
		records[i] = TripRecord{
			VendorID:       pick(rng, c.Vendors),
			RateCode:       pick(rng, c.RateCodes),
			PassengerCount: 1 + passengers.Rand(),
			// about 5 minutes per mile
			TripTime:     d * 300,
			TripDistance: d,
			PaymentType:  pick(rng, c.Payments),
			FareAmount:   fare,
		}
	}
	return records
}

func pick(rng *rand.Rand, values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[rng.IntN(len(values))]
}

// Split partitions records into a shuffled train and test set. testFraction is
// clamped to [0, 1].
func Split(records []TripRecord, testFraction float64, seed uint64) (train, test []TripRecord) {
	if testFraction < 0 {
		testFraction = 0
	}
	if testFraction > 1 {
		testFraction = 1
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(len(records))

	nTest := int(float64(len(records)) * testFraction)
	test = make([]TripRecord, 0, nTest)
	train = make([]TripRecord, 0, len(records)-nTest)
	for i, idx := range perm {
		if i < nTest {
			test = append(test, records[idx])
		} else {
			train = append(train, records[idx])
		}
	}
	return train, test
}
