package pipeline

import (
	"bytes"
	"io"
	"time"

	"github.com/YuminosukeSato/taxifare/core/model"
	"github.com/YuminosukeSato/taxifare/pkg/errors"
	"github.com/YuminosukeSato/taxifare/preprocessing"
	"github.com/YuminosukeSato/taxifare/sklearn/ensemble"
)

// ArtifactType is the model_type written into every saved pipeline header.
const ArtifactType = "FittedPipeline"

// document は保存形式。JSON と gob の両方で同じ構造を使う。
type document struct {
	Header    model.Header               `json:"header"`
	Encoder   preprocessing.EncoderState `json:"encoder"`
	Model     *ensemble.Model            `json:"model"`
	TrainedAt time.Time                  `json:"trained_at"`
}

func (p *FittedPipeline) document() document {
	h := model.NewHeader(ArtifactType, p.encoder.FeatureNames())
	h.Hyperparameters = p.model.Params.Map()
	h.Metadata["samples"] = p.samples
	h.Metadata["estimator"] = ensemble.ModelName
	return document{
		Header:    h,
		Encoder:   p.encoder.State(),
		Model:     p.model,
		TrainedAt: p.trainedAt,
	}
}

func fromDocument(doc document) (*FittedPipeline, error) {
	if err := doc.Header.Validate(ArtifactType); err != nil {
		return nil, err
	}
	if doc.Model == nil {
		return nil, errors.NewModelError("pipeline.Load", "artifact has no model", nil)
	}
	encoder, err := preprocessing.FromState(doc.Encoder)
	if err != nil {
		return nil, err
	}
	if err := doc.Model.Validate(); err != nil {
		return nil, err
	}
	if encoder.Width() != doc.Model.NumFeatures() {
		return nil, errors.NewShapeMismatchError("pipeline.Load", "features", doc.Model.NumFeatures(), encoder.Width())
	}

	samples := 0
	switch v := doc.Header.Metadata["samples"].(type) {
	case int:
		samples = v
	case float64:
		samples = int(v)
	}
	return &FittedPipeline{
		encoder:   encoder,
		model:     doc.Model,
		samples:   samples,
		trainedAt: doc.TrainedAt,
	}, nil
}

// Encode writes p to w in the given format.
func (p *FittedPipeline) Encode(w io.Writer, format model.Format) error {
	if err := p.checkFitted("Encode"); err != nil {
		return err
	}
	return model.Encode(w, p.document(), format)
}

// Decode reads a pipeline written by Encode.
func Decode(r io.Reader, format model.Format) (*FittedPipeline, error) {
	var doc document
	if err := model.Decode(r, &doc, format); err != nil {
		return nil, err
	}
	return fromDocument(doc)
}

// Marshal は p を JSON にシリアライズする
func (p *FittedPipeline) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Encode(&buf, model.FormatJSON); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal は Marshal の出力から FittedPipeline を復元する
func Unmarshal(data []byte) (*FittedPipeline, error) {
	return Decode(bytes.NewReader(data), model.FormatJSON)
}

// Save は p をファイルに保存する。拡張子が ".gob" なら gob、それ以外は JSON。
func (p *FittedPipeline) Save(path string) error {
	if err := p.checkFitted("Save"); err != nil {
		return err
	}
	return model.SaveFile(p.document(), path)
}

// Load は Save で保存したファイルを読み込む
func Load(path string) (*FittedPipeline, error) {
	var doc document
	if err := model.LoadFile(&doc, path); err != nil {
		return nil, err
	}
	return fromDocument(doc)
}
