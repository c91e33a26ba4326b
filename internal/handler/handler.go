// Package handler 提供HTTP请求处理器
package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/output"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error   bool                   `json:"error"`
	Code    errors.Code            `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("写入响应失败")
	}
}

// respond 按请求的 format 参数返回 JSON 或 YAML
func respond(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	f, err := output.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if f == output.FormatJSON {
		respondJSON(w, status, data)
		return
	}
	var buf bytes.Buffer
	if err := output.Encode(&buf, f, data); err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// respondError 返回错误响应，状态码由错误码决定
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.GetHTTPStatus(err)
	resp := ErrorResponse{Error: true, Code: errors.GetCode(err), Message: err.Error()}

	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		resp.Message = appErr.Message
		resp.Details = appErr.Details
		resp.Fields = appErr.Fields
	}
	if status >= http.StatusInternalServerError {
		logger.WithContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("请求处理失败")
	}
	respondJSON(w, status, resp)
}

// readBody 读取请求体，YAML 请求体按 Content-Type 识别
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, output.Format, error) {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", errors.Wrap(err, errors.CodeInvalidInput, "读取请求体失败")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, "", errors.InvalidInput("body", "请求体为空")
	}
	f := output.FormatJSON
	if ct := r.Header.Get("Content-Type"); strings.Contains(ct, "yaml") {
		f = output.FormatYAML
	}
	return data, f, nil
}
