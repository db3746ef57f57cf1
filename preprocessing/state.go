package preprocessing

import (
	"encoding/json"

	"github.com/YuminosukeSato/taxifare/pkg/errors"
)

// EncoderState は FeatureEncoder の保存用表現
type EncoderState struct {
	TripTime   bool                `json:"trip_time"`
	Categories map[string][]string `json:"categories"`
}

// State は保存用の表現を返す
func (e *FeatureEncoder) State() EncoderState {
	cats := make(map[string][]string, len(e.encodings))
	for field, enc := range e.encodings {
		cats[field] = enc.Categories()
	}
	return EncoderState{TripTime: e.tripTime, Categories: cats}
}

// FromState は保存用の表現から FeatureEncoder を復元する
func FromState(s EncoderState) (*FeatureEncoder, error) {
	steps := layout(s.TripTime)
	encodings := make(map[string]*CategoryEncoding)
	for _, st := range steps {
		if st.Kind != Categorical {
			continue
		}
		values, ok := s.Categories[st.Field]
		if !ok || len(values) == 0 {
			return nil, errors.NewSchemaMismatchError("preprocessing.FromState", st.Field, "no categories stored")
		}
		enc := NewCategoryEncoding(values)
		if enc.Len() != len(values) {
			return nil, errors.NewSchemaMismatchError("preprocessing.FromState", st.Field, "duplicate or empty category stored")
		}
		encodings[st.Field] = enc
	}
	return newEncoder(steps, encodings, s.TripTime), nil
}

// MarshalJSON implements json.Marshaler.
func (e *FeatureEncoder) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.State())
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *FeatureEncoder) UnmarshalJSON(data []byte) error {
	var s EncoderState
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	restored, err := FromState(s)
	if err != nil {
		return err
	}
	*e = *restored
	return nil
}

