package model

import (
	"encoding/gob"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/taxifare/pkg/errors"
)

// Format は成果物のエンコード形式
type Format int

const (
	// FormatJSON は人が読めるJSON形式
	FormatJSON Format = iota
	// FormatGob はGo専用のgob形式
	FormatGob
)

// FormatForPath は拡張子 ".gob" ならgob、それ以外はJSONを返す
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".gob") {
		return FormatGob
	}
	return FormatJSON
}

// Encode はvをwへ指定形式で書き出す
func Encode(w io.Writer, v interface{}, format Format) error {
	switch format {
	case FormatGob:
		if err := gob.NewEncoder(w).Encode(v); err != nil {
			return errors.NewModelError("model.Encode", "failed to encode gob", err)
		}
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return errors.NewModelError("model.Encode", "failed to encode json", err)
		}
	}
	return nil
}

// Decode はrから指定形式でvへ読み込む
func Decode(r io.Reader, v interface{}, format Format) error {
	switch format {
	case FormatGob:
		if err := gob.NewDecoder(r).Decode(v); err != nil {
			return errors.NewModelError("model.Decode", "failed to decode gob", err)
		}
	default:
		if err := json.NewDecoder(r).Decode(v); err != nil {
			return errors.NewModelError("model.Decode", "failed to decode json", err)
		}
	}
	return nil
}

// SaveFile はvをファイルに保存する。形式は拡張子から決まる。
//
// 使用例:
//
//	err := model.SaveFile(doc, "fare.gob")
func SaveFile(v interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.NewModelError("model.SaveFile", "failed to create file", err)
	}
	if err := Encode(file, v, FormatForPath(filename)); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return errors.NewModelError("model.SaveFile", "failed to close file", err)
	}
	return nil
}

// LoadFile はファイルからvへ読み込む
func LoadFile(v interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.NewModelError("model.LoadFile", "failed to open file", err)
	}
	defer file.Close()

	return Decode(file, v, FormatForPath(filename))
}
