package model

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/taxifare/pkg/errors"
)

type artifact struct {
	Header Header    `json:"header"`
	Values []float64 `json:"values"`
}

func TestHeader_Validate(t *testing.T) {
	h := NewHeader("FittedPipeline", []string{"a", "b"})
	require.NoError(t, h.Validate("FittedPipeline"))

	assert.Error(t, h.Validate("Other"))

	old := h.Clone()
	old.Version = "0"
	assert.Error(t, old.Validate("FittedPipeline"))

	unfitted := h.Clone()
	unfitted.IsFitted = false
	var nf *errors.NotFittedError
	assert.True(t, errors.As(unfitted.Validate("FittedPipeline"), &nf))
}

func TestHeader_CloneIsDeep(t *testing.T) {
	h := NewHeader("FittedPipeline", []string{"a"})
	h.Metadata["samples"] = 10
	c := h.Clone()
	c.Features[0] = "z"
	c.Metadata["samples"] = 20

	assert.Equal(t, "a", h.Features[0])
	assert.Equal(t, 10, h.Metadata["samples"])
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatGob, FormatForPath("m.gob"))
	assert.Equal(t, FormatGob, FormatForPath("dir/M.GOB"))
	assert.Equal(t, FormatJSON, FormatForPath("m.json"))
	assert.Equal(t, FormatJSON, FormatForPath("model"))
}

func TestEncodeDecode(t *testing.T) {
	in := artifact{Header: NewHeader("FittedPipeline", []string{"x"}), Values: []float64{1.5, -2}}
	for _, format := range []Format{FormatJSON, FormatGob} {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, in, format))

		var out artifact
		require.NoError(t, Decode(&buf, &out, format))
		assert.Equal(t, in.Values, out.Values)
		assert.Equal(t, in.Header.ModelType, out.Header.ModelType)
		assert.Equal(t, in.Header.Features, out.Header.Features)
	}
}

func TestSaveLoadFile(t *testing.T) {
	dir := t.TempDir()
	in := artifact{Header: NewHeader("FittedPipeline", nil), Values: []float64{3}}

	for _, name := range []string{"a.json", "a.gob"} {
		path := filepath.Join(dir, name)
		require.NoError(t, SaveFile(in, path))
		var out artifact
		require.NoError(t, LoadFile(&out, path))
		assert.Equal(t, in.Values, out.Values)
	}

	var out artifact
	err := LoadFile(&out, filepath.Join(dir, "missing.json"))
	var me *errors.ModelError
	assert.True(t, errors.As(err, &me))
}

func TestDecode_Garbage(t *testing.T) {
	var out artifact
	err := Decode(bytes.NewBufferString("{not json"), &out, FormatJSON)
	assert.Error(t, err)
}
