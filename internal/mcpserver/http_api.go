package mcpserver

import (
	"encoding/json"
	"net/http"

	"TanLu/internal/model"
	"TanLu/internal/scanner"
	"TanLu/internal/utils"
	"TanLu/internal/wordlist"
	"TanLu/pkg/cli"
)

// DirScanRequest POST /tool/dir_scan 的请求体
type DirScanRequest struct {
	Target          string  `json:"target"`
	WordlistPath    *string `json:"wordlist_path"`
	Timeout         *int    `json:"timeout"`
	FollowRedirects *bool   `json:"follow_redirects"`
	SaveAll         *bool   `json:"save_all"`
	UserAgent       *string `json:"user_agent"`
}

type DirScanResponse struct {
	Target      string          `json:"target"`
	ResultCount int             `json:"result_count"`
	Results     []model.Finding `json:"results"`
}

type httpError struct {
	Detail string `json:"detail"`
}

// HTTPHandler 单目标扫描的 HTTP 接口
type HTTPHandler struct {
	threads int
	rate    float64
	logger  *utils.Logger
}

func NewHTTPHandler(cfg Config) http.Handler {
	h := &HTTPHandler{
		threads: cfg.Threads,
		rate:    cfg.Rate,
		logger:  utils.NewLogger("http_api"),
	}
	if h.threads <= 0 {
		h.threads = model.DefaultThreads
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /tool/dir_scan", h.handleDirScan)
	mux.HandleFunc("GET /health", h.handleHealth)
	return mux
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) handleDirScan(w http.ResponseWriter, r *http.Request) {
	var req DirScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, httpError{Detail: "Invalid request body: " + err.Error()})
		return
	}

	target := utils.NormalizeTarget(req.Target)
	if target == "" {
		writeJSON(w, http.StatusBadRequest, httpError{Detail: "Invalid target"})
		return
	}

	paths := model.DefaultWordlist()
	if req.WordlistPath != nil && *req.WordlistPath != "" {
		paths = wordlist.LoadWordlist(*req.WordlistPath)
	}

	timeout := model.DefaultTimeout
	if req.Timeout != nil {
		timeout = *req.Timeout
	}
	userAgent := model.HTTPAPIUserAgent
	if req.UserAgent != nil {
		userAgent = *req.UserAgent
	}
	follow := req.FollowRedirects == nil || *req.FollowRedirects
	saveAll := req.SaveAll != nil && *req.SaveAll

	ds := scanner.NewDirScanner(timeout, h.threads, follow)
	ds.SetRateLimit(h.rate)

	h.logger.Info("HTTP 扫描请求: %s", target)
	results := ds.ScanTarget(r.Context(), target, paths, saveAll, map[string]string{"User-Agent": userAgent})

	writeJSON(w, http.StatusOK, DirScanResponse{
		Target:      target,
		ResultCount: len(results),
		Results:     results,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := cli.RenderJSON(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}
