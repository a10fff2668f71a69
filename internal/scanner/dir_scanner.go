package scanner

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"TanLu/internal/model"
	"TanLu/internal/utils"
)

// 单个响应体最多读取 10MB
const maxBodySize = 10 << 20

// ProbeHook 每完成一次探测调用一次，可能被多个 worker 并发调用
type ProbeHook func(model.Finding)

type DirScanner struct {
	timeout         time.Duration
	threads         int
	followRedirects bool
	client          *http.Client
	limiter         *rate.Limiter
	maxBody         int64
	logger          *utils.Logger
	onProbe         ProbeHook
}

func NewDirScanner(timeoutSec int, threads int, followRedirects bool) *DirScanner {
	if timeoutSec <= 0 {
		timeoutSec = model.DefaultTimeout
	}
	if threads <= 0 {
		threads = 1
	}

	ds := &DirScanner{
		timeout:         time.Duration(timeoutSec) * time.Second,
		threads:         threads,
		followRedirects: followRedirects,
		maxBody:         maxBodySize,
		logger:          utils.NewLogger("scanner"),
	}
	ds.client = ds.newHTTPClient()
	return ds
}

func (ds *DirScanner) newHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = ds.threads
	// 自行声明 Accept-Encoding 并解码响应体
	transport.DisableCompression = true

	client := &http.Client{
		Timeout:   ds.timeout,
		Transport: transport,
	}
	if !ds.followRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}

// SetRateLimit 限制整个扫描器每秒发出的请求数，rps <= 0 表示不限速
func (ds *DirScanner) SetRateLimit(rps float64) {
	if rps <= 0 {
		ds.limiter = nil
		return
	}
	ds.limiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// SetProbeHook 设置探测完成回调（用于进度条）
func (ds *DirScanner) SetProbeHook(hook ProbeHook) {
	ds.onProbe = hook
}

// Probe 对 target + path 发起一次 GET 探测。
// 任何传输层错误都记录在 Finding.Error 中，不会向上返回。
func (ds *DirScanner) Probe(ctx context.Context, target, path string, headers map[string]string) model.Finding {
	finding := model.Finding{
		Target:      target,
		Path:        path,
		URL:         utils.JoinURL(target, path),
		Headers:     map[string]string{},
		KeywordHits: []string{},
	}

	if ds.limiter != nil {
		if err := ds.limiter.Wait(ctx); err != nil {
			return ds.failed(finding, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, ds.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finding.URL, nil)
	if err != nil {
		return ds.failed(finding, err)
	}

	if len(headers) == 0 {
		headers = map[string]string{"User-Agent": model.ProbeUserAgent}
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	}

	resp, err := ds.client.Do(req)
	if err != nil {
		return ds.failed(finding, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, ds.maxBody+1))
	if err != nil {
		return ds.failed(finding, err)
	}
	if int64(len(raw)) > ds.maxBody {
		raw = raw[:ds.maxBody]
		ds.logger.Debug("%s 响应体超过 %d 字节，已截断", finding.URL, ds.maxBody)
	}

	text := decodeBody(raw, resp.Header.Get("Content-Encoding"))
	snippet := truncateRunes(text, model.SnippetLimit)

	finding.Status = model.IntPtr(resp.StatusCode)
	finding.Length = utf8.RuneCountInString(text)
	finding.OK = resp.StatusCode < 400
	finding.Snippet = snippet
	finding.KeywordHits = matchKeywords(snippet)
	for _, name := range model.SelectedHeaders {
		if value := resp.Header.Get(name); value != "" {
			finding.Headers[name] = value
		}
	}

	ds.logger.Debug("%s -> %d (%d 字符, 关键词 %v)", finding.URL, resp.StatusCode, finding.Length, finding.KeywordHits)
	return finding
}

func (ds *DirScanner) failed(finding model.Finding, err error) model.Finding {
	finding.Error = err.Error()
	ds.logger.Debug("%s 探测失败: %v", finding.URL, err)
	return finding
}

// ScanTarget 针对单个目标按字典顺序探测，跳过空路径，并按保留策略过滤。
// 探测并发执行，但结果顺序始终与路径顺序一致。
func (ds *DirScanner) ScanTarget(ctx context.Context, target string, paths []string, saveAll bool, headers map[string]string) []model.Finding {
	probes := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			probes = append(probes, p)
		}
	}

	results := make([]model.Finding, len(probes))

	type job struct {
		index int
		path  string
	}
	jobs := make(chan job)

	workers := ds.threads
	if workers > len(probes) {
		workers = len(probes)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				finding := ds.Probe(ctx, target, j.path, headers)
				results[j.index] = finding
				if ds.onProbe != nil {
					ds.onProbe(finding)
				}
			}
		}()
	}

	for i, p := range probes {
		jobs <- job{index: i, path: p}
	}
	close(jobs)
	wg.Wait()

	kept := make([]model.Finding, 0, len(results))
	for _, finding := range results {
		if Keep(finding, saveAll) {
			kept = append(kept, finding)
		}
	}
	return kept
}

// matchKeywords 按关键词列表顺序返回片段中命中的敏感词
func matchKeywords(snippet string) []string {
	lower := strings.ToLower(snippet)
	hits := []string{}
	for _, kw := range model.SensitiveKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			hits = append(hits, kw)
		}
	}
	return hits
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
