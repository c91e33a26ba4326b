package handler

import (
	"net/http"

	"github.com/paiban/kebiao/internal/constraints"
	"github.com/paiban/kebiao/pkg/scheduler/constraint/builtin"
)

// BuildInfo 构建信息
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// Version 版本信息处理器
func Version(info BuildInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, info)
	}
}

// ConstraintLibrary 返回当前权重下的约束库
func ConstraintLibrary(w builtin.Weights) http.HandlerFunc {
	resp := constraints.LibraryResponse{Library: constraints.GetLibrary(w)}
	return func(rw http.ResponseWriter, r *http.Request) {
		respond(rw, r, http.StatusOK, resp)
	}
}
