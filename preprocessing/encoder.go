// Package preprocessing はタクシー乗車レコードを数値特徴量ベクトルへ変換する。
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/taxifare/dataset"
	"github.com/YuminosukeSato/taxifare/pkg/errors"
	"github.com/YuminosukeSato/taxifare/pkg/log"
)

// StepKind は変換ステップの種類
type StepKind int

const (
	// Categorical はone-hotブロックを出力する
	Categorical StepKind = iota
	// Numeric は値をそのまま1列で出力する
	Numeric
)

// Step names, in default output order.
const (
	StepVendorID       = "VendorIdEncoded"
	StepRateCode       = "RateCodeEncoded"
	StepPassengerCount = "PassengerCount"
	StepTripDistance   = "TripDistance"
	StepTripTime       = "TripTime"
	StepPaymentType    = "PaymentTypeEncoded"
)

// Step は特徴量ベクトルの一区間を担当する名前付き変換
type Step struct {
	Name   string
	Field  string
	Kind   StepKind
	Offset int
	Width  int
}

// EncodedVector は1レコード分の特徴量ベクトル
type EncodedVector []float64

type encoderConfig struct {
	tripTime bool
}

// Option はFeatureEncoderの設定を変更する
type Option func(*encoderConfig)

// WithTripTime は trip_time_in_secs を trip_distance の直後に特徴量として加える。
// 既定では含めない。
func WithTripTime() Option {
	return func(c *encoderConfig) {
		c.tripTime = true
	}
}

// FeatureEncoder は学習済みの変換器。カテゴリ列をone-hot化し数値列と連結する。
// Fit 後は不変で、並行して Transform を呼んでよい。
type FeatureEncoder struct {
	steps     []Step
	encodings map[string]*CategoryEncoding
	width     int
	tripTime  bool
}

func layout(tripTime bool) []Step {
	steps := []Step{
		{Name: StepVendorID, Field: dataset.ColVendorID, Kind: Categorical},
		{Name: StepRateCode, Field: dataset.ColRateCode, Kind: Categorical},
		{Name: StepPassengerCount, Field: dataset.ColPassengerCount, Kind: Numeric},
		{Name: StepTripDistance, Field: dataset.ColTripDistance, Kind: Numeric},
	}
	if tripTime {
		steps = append(steps, Step{Name: StepTripTime, Field: dataset.ColTripTime, Kind: Numeric})
	}
	return append(steps, Step{Name: StepPaymentType, Field: dataset.ColPaymentType, Kind: Categorical})
}

// Fit は学習レコードからカテゴリ一覧を作り、FeatureEncoderを返す。
//
// 空のレコード列は EmptyDatasetError、全レコードで空のカテゴリ列や
// NaN/Inf を含む数値列は SchemaMismatchError になる。
//
// 使用例:
//
//	enc, err := preprocessing.Fit(train)
//	x, err := enc.Transform(rec)
func Fit(records []dataset.TripRecord, opts ...Option) (*FeatureEncoder, error) {
	if len(records) == 0 {
		return nil, errors.NewEmptyDatasetError("FeatureEncoder.Fit", "training")
	}
	var cfg encoderConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := log.GetLoggerWithName("preprocessing.encoder")
	steps := layout(cfg.tripTime)
	encodings := make(map[string]*CategoryEncoding)

	for i, rec := range records {
		for _, s := range steps {
			if s.Kind != Numeric {
				continue
			}
			if v := numericValue(rec, s.Field); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.NewSchemaMismatchError("FeatureEncoder.Fit", s.Field,
					fmt.Sprintf("non-finite value %v in record %d", v, i))
			}
		}
	}

	values := make([]string, len(records))
	for _, s := range steps {
		if s.Kind != Categorical {
			continue
		}
		for i, rec := range records {
			values[i] = categoricalValue(rec, s.Field)
		}
		enc := NewCategoryEncoding(values)
		if enc.Len() == 0 {
			return nil, errors.NewSchemaMismatchError("FeatureEncoder.Fit", s.Field, "no non-empty value in any record")
		}
		encodings[s.Field] = enc
		logger.Debug("Category encoding built",
			log.FieldKey, s.Field,
			log.CategoriesKey, enc.Len(),
		)
	}

	e := newEncoder(steps, encodings, cfg.tripTime)
	logger.Info("Feature encoder fitted",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhasePreprocessing,
		log.SamplesKey, len(records),
		log.FeaturesKey, e.width,
	)
	return e, nil
}

func newEncoder(steps []Step, encodings map[string]*CategoryEncoding, tripTime bool) *FeatureEncoder {
	offset := 0
	for i := range steps {
		if steps[i].Kind == Categorical {
			steps[i].Width = encodings[steps[i].Field].Len()
		} else {
			steps[i].Width = 1
		}
		steps[i].Offset = offset
		offset += steps[i].Width
	}
	return &FeatureEncoder{steps: steps, encodings: encodings, width: offset, tripTime: tripTime}
}

// Transform はレコードを特徴量ベクトルに変換する。純粋関数で、同じ入力には同じ出力を返す。
// 未知または空のカテゴリはゼロブロックになる。
func (e *FeatureEncoder) Transform(rec dataset.TripRecord) (EncodedVector, error) {
	out := make(EncodedVector, e.width)
	if err := e.transformInto(out, rec); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *FeatureEncoder) transformInto(dst []float64, rec dataset.TripRecord) error {
	for _, s := range e.steps {
		block := dst[s.Offset : s.Offset+s.Width]
		switch s.Kind {
		case Categorical:
			e.encodings[s.Field].encodeInto(block, categoricalValue(rec, s.Field))
		case Numeric:
			v := numericValue(rec, s.Field)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.NewSchemaMismatchError("FeatureEncoder.Transform", s.Field,
					fmt.Sprintf("non-finite value %v", v))
			}
			block[0] = v
		}
	}
	return nil
}

// TransformAll は全レコードを変換し、行がレコードに対応する行列を返す
func (e *FeatureEncoder) TransformAll(records []dataset.TripRecord) (*mat.Dense, error) {
	if len(records) == 0 {
		return nil, errors.NewEmptyDatasetError("FeatureEncoder.TransformAll", "input")
	}
	data := make([]float64, len(records)*e.width)
	for i, rec := range records {
		if err := e.transformInto(data[i*e.width:(i+1)*e.width], rec); err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
	}
	return mat.NewDense(len(records), e.width, data), nil
}

// Width は特徴量ベクトルの長さ
func (e *FeatureEncoder) Width() int {
	return e.width
}

// Steps は出力順の変換ステップのコピーを返す
func (e *FeatureEncoder) Steps() []Step {
	return append([]Step(nil), e.steps...)
}

// Encoding はカテゴリ列のエンコーディングを返す。数値列や未知の列名なら false。
func (e *FeatureEncoder) Encoding(field string) (*CategoryEncoding, bool) {
	enc, ok := e.encodings[field]
	return enc, ok
}

// IncludesTripTime は trip_time_in_secs を特徴量に含めているかを返す
func (e *FeatureEncoder) IncludesTripTime() bool {
	return e.tripTime
}

// FeatureNames は各列の名前を返す。one-hot列は "field=category" 形式。
func (e *FeatureEncoder) FeatureNames() []string {
	names := make([]string, 0, e.width)
	for _, s := range e.steps {
		if s.Kind == Numeric {
			names = append(names, s.Field)
			continue
		}
		for _, c := range e.encodings[s.Field].categories {
			names = append(names, s.Field+"="+c)
		}
	}
	return names
}

// UnknownFields はレコードのうち学習時に観測されなかったカテゴリ値を持つ列名を返す
func (e *FeatureEncoder) UnknownFields(rec dataset.TripRecord) []string {
	var unknown []string
	for _, s := range e.steps {
		if s.Kind != Categorical {
			continue
		}
		if _, ok := e.encodings[s.Field].Index(categoricalValue(rec, s.Field)); !ok {
			unknown = append(unknown, s.Field)
		}
	}
	return unknown
}

// CategoricalValue returns the raw value of a categorical column.
func CategoricalValue(rec dataset.TripRecord, field string) string {
	return categoricalValue(rec, field)
}

func categoricalValue(rec dataset.TripRecord, field string) string {
	switch field {
	case dataset.ColVendorID:
		return rec.VendorID
	case dataset.ColRateCode:
		return rec.RateCode
	case dataset.ColPaymentType:
		return rec.PaymentType
	default:
		return ""
	}
}

func numericValue(rec dataset.TripRecord, field string) float64 {
	switch field {
	case dataset.ColPassengerCount:
		return rec.PassengerCount
	case dataset.ColTripDistance:
		return rec.TripDistance
	case dataset.ColTripTime:
		return rec.TripTime
	case dataset.ColFareAmount:
		return rec.FareAmount
	default:
		return math.NaN()
	}
}
