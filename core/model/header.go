package model

import (
	"github.com/YuminosukeSato/taxifare/pkg/errors"
)

// FormatVersion は保存形式のバージョン。互換性のない変更を加えたら上げる。
const FormatVersion = "1"

// Header は保存されたモデル成果物の先頭に置かれるメタデータ
type Header struct {
	// ModelType は成果物の種類（"FittedPipeline" 等）
	ModelType string `json:"model_type"`

	// Version は FormatVersion の値
	Version string `json:"version"`

	// Features はエンコード後の特徴量名（列順）
	Features []string `json:"features,omitempty"`

	// Hyperparameters は学習時のハイパーパラメータ
	Hyperparameters map[string]interface{} `json:"hyperparameters,omitempty"`

	// Metadata は学習サンプル数などの追加情報
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// IsFitted は学習済みかどうか
	IsFitted bool `json:"is_fitted"`
}

// NewHeader は現在のフォーマットバージョンでHeaderを作成する
func NewHeader(modelType string, features []string) Header {
	return Header{
		ModelType:       modelType,
		Version:         FormatVersion,
		Features:        append([]string(nil), features...),
		Hyperparameters: make(map[string]interface{}),
		Metadata:        make(map[string]interface{}),
		IsFitted:        true,
	}
}

// Validate はHeaderが期待する種類・バージョンのものか検証する
func (h Header) Validate(expectedType string) error {
	if h.ModelType == "" {
		return errors.NewModelError("Header.Validate", "model_type is required", nil)
	}
	if h.ModelType != expectedType {
		return errors.NewModelError("Header.Validate",
			"unexpected model_type "+h.ModelType+", want "+expectedType, nil)
	}
	if h.Version != FormatVersion {
		return errors.NewModelError("Header.Validate",
			"unsupported format version "+h.Version, nil)
	}
	if !h.IsFitted {
		return errors.NewNotFittedError(h.ModelType, "Load")
	}
	return nil
}

// Clone はHeaderのディープコピーを作成
func (h Header) Clone() Header {
	clone := Header{
		ModelType:       h.ModelType,
		Version:         h.Version,
		IsFitted:        h.IsFitted,
		Features:        append([]string(nil), h.Features...),
		Hyperparameters: make(map[string]interface{}, len(h.Hyperparameters)),
		Metadata:        make(map[string]interface{}, len(h.Metadata)),
	}
	for k, v := range h.Hyperparameters {
		clone.Hyperparameters[k] = v
	}
	for k, v := range h.Metadata {
		clone.Metadata[k] = v
	}
	return clone
}
