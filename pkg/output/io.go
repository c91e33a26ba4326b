package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/model"
)

// Format 文档格式
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat 解析格式名称
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", errors.InvalidInput("format", fmt.Sprintf("不支持的格式 %q", s))
}

// FormatFromPath 按扩展名推断格式，默认 JSON
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Decode 按格式解码
func Decode(r io.Reader, f Format, v interface{}) error {
	var err error
	switch f {
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(v)
	default:
		err = json.NewDecoder(r).Decode(v)
	}
	if err != nil {
		return errors.Wrap(err, errors.CodeInvalidInput, fmt.Sprintf("%s 文档解析失败", f))
	}
	return nil
}

// Encode 按格式编码，JSON 带缩进
func Encode(w io.Writer, f Format, v interface{}) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "YAML 编码失败")
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "JSON 编码失败")
		}
		return nil
	}
}

// ReadInput 读取排课输入
func ReadInput(r io.Reader, f Format) (*model.TimetableInput, error) {
	var in model.TimetableInput
	if err := Decode(r, f, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// LoadInput 从文件读取排课输入，格式按扩展名推断
func LoadInput(path string) (*model.TimetableInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "无法读取输入文件").WithField("path", path)
	}
	return ReadInput(bytes.NewReader(data), FormatFromPath(path))
}

// LoadDocument 从文件读取输出文档
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "无法读取结果文件").WithField("path", path)
	}
	var doc Document
	if err := Decode(bytes.NewReader(data), FormatFromPath(path), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Save 将文档写入文件
func Save(path string, f Format, v interface{}) error {
	var buf bytes.Buffer
	if err := Encode(&buf, f, v); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "无法写入文件").WithField("path", path)
	}
	return nil
}
