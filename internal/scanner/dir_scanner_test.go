package scanner

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"TanLu/internal/model"
	"TanLu/internal/utils"
)

func init() {
	utils.SetOutput(io.Discard)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "test-srv")
		w.Write([]byte("User-agent: *\nDisallow: /private"))
	})
	mux.HandleFunc("/admin/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><title>Index of /admin</title>admin panel</html>"))
	})
	mux.HandleFunc("/.env", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("DB_PASSWORD=hunter2\nAPI_KEY=abc\nSECRET=x"))
	})
	mux.HandleFunc("/gzip", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		gz.Write([]byte("compressed token inside"))
		gz.Close()
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(buf.Bytes())
	})
	mux.HandleFunc("/br", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		bw.Write([]byte("brotli apikey inside"))
		bw.Close()
		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	})
	mux.HandleFunc("/deflate-zlib", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		zw.Write([]byte("zlib password inside"))
		zw.Close()
		w.Header().Set("Content-Encoding", "deflate")
		w.Write(buf.Bytes())
	})
	mux.HandleFunc("/deflate-raw", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		fw, _ := flate.NewWriter(&buf, flate.DefaultCompression)
		fw.Write([]byte("raw secret inside"))
		fw.Close()
		w.Header().Set("Content-Encoding", "deflate")
		w.Write(buf.Bytes())
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(3 * time.Second):
		}
		w.Write([]byte("too late"))
	})
	mux.HandleFunc("/long", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("中", 1500)))
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/robots.txt", http.StatusFound)
	})
	mux.HandleFunc("/ua", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.Header.Get("User-Agent")))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	return httptest.NewServer(mux)
}

func TestProbeSuccess(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	ds := NewDirScanner(5, 1, true)
	f := ds.Probe(context.Background(), server.URL, "robots.txt", nil)

	if f.URL != server.URL+"/robots.txt" {
		t.Errorf("URL 拼接错误: %s", f.URL)
	}
	if f.Status == nil || *f.Status != 200 {
		t.Fatalf("期望状态码 200, 实际得到 %v", f.Status)
	}
	if !f.OK {
		t.Error("200 响应应为 ok")
	}
	if f.Length != len("User-agent: *\nDisallow: /private") {
		t.Errorf("长度不符: %d", f.Length)
	}
	if f.Headers["Server"] != "test-srv" {
		t.Errorf("应记录 Server 头, 实际得到 %v", f.Headers)
	}
	if _, ok := f.Headers["Content-Type"]; !ok {
		t.Errorf("应记录 Content-Type 头, 实际得到 %v", f.Headers)
	}
	if len(f.KeywordHits) != 0 {
		t.Errorf("不应命中关键词: %v", f.KeywordHits)
	}
	if f.Error != "" {
		t.Errorf("不应有错误: %s", f.Error)
	}
}

func TestProbeKeywordsKeepListOrder(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	ds := NewDirScanner(5, 1, true)
	f := ds.Probe(context.Background(), server.URL, ".env", nil)

	if f.OK {
		t.Error("403 响应不应为 ok")
	}
	want := []string{"password", "secret", "api_key"}
	if !reflect.DeepEqual(f.KeywordHits, want) {
		t.Errorf("期望关键词 %v, 实际得到 %v", want, f.KeywordHits)
	}

	f = ds.Probe(context.Background(), server.URL, "admin/", nil)
	if !reflect.DeepEqual(f.KeywordHits, []string{"Index of"}) {
		t.Errorf("目录列表应命中 Index of, 实际得到 %v", f.KeywordHits)
	}
}

func TestProbeDecodesBody(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	ds := NewDirScanner(5, 1, true)

	f := ds.Probe(context.Background(), server.URL, "gzip", nil)
	if f.Snippet != "compressed token inside" {
		t.Errorf("gzip 解码失败: %q", f.Snippet)
	}
	if !reflect.DeepEqual(f.KeywordHits, []string{"token"}) {
		t.Errorf("gzip 正文应命中 token, 实际得到 %v", f.KeywordHits)
	}

	f = ds.Probe(context.Background(), server.URL, "br", nil)
	if f.Snippet != "brotli apikey inside" {
		t.Errorf("brotli 解码失败: %q", f.Snippet)
	}

	f = ds.Probe(context.Background(), server.URL, "deflate-zlib", nil)
	if f.Snippet != "zlib password inside" || !reflect.DeepEqual(f.KeywordHits, []string{"password"}) {
		t.Errorf("zlib 包装的 deflate 解码失败: %q %v", f.Snippet, f.KeywordHits)
	}

	f = ds.Probe(context.Background(), server.URL, "deflate-raw", nil)
	if f.Snippet != "raw secret inside" || !reflect.DeepEqual(f.KeywordHits, []string{"secret"}) {
		t.Errorf("裸 deflate 解码失败: %q %v", f.Snippet, f.KeywordHits)
	}
}

func TestDecodeBodyFallsBackToRaw(t *testing.T) {
	if got := decodeBody([]byte("plain text"), "gzip"); got != "plain text" {
		t.Errorf("无法解压时应返回原始内容, 实际得到 %q", got)
	}
	if got := decodeBody([]byte{'a', 0xff, 'b'}, ""); got != "a\uFFFDb" {
		t.Errorf("非法 UTF-8 应被替换, 实际得到 %q", got)
	}
}

func TestProbeBodyLimit(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	var logs bytes.Buffer
	utils.SetOutput(&logs)
	utils.SetVerbose(true)
	defer func() {
		utils.SetVerbose(false)
		utils.SetOutput(io.Discard)
	}()

	ds := NewDirScanner(5, 1, true)
	ds.maxBody = 16
	f := ds.Probe(context.Background(), server.URL, "robots.txt", nil)

	if f.Length != 16 || f.Snippet != "User-agent: *\nDi" {
		t.Errorf("超过上限的响应体应被截断: %d %q", f.Length, f.Snippet)
	}
	if !strings.Contains(logs.String(), "已截断") {
		t.Errorf("截断时应记录调试日志: %s", logs.String())
	}
}

func TestProbeSnippetLimitCountsCharacters(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	ds := NewDirScanner(5, 1, true)
	f := ds.Probe(context.Background(), server.URL, "long", nil)

	if f.Length != 1500 {
		t.Errorf("长度应按字符计为 1500, 实际得到 %d", f.Length)
	}
	if got := len([]rune(f.Snippet)); got != 1000 {
		t.Errorf("片段应截断为 1000 个字符, 实际得到 %d", got)
	}
}

func TestProbeRedirectPolicy(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	follow := NewDirScanner(5, 1, true).Probe(context.Background(), server.URL, "old", nil)
	if follow.StatusCode() != 200 {
		t.Errorf("跟随重定向时期望 200, 实际得到 %d", follow.StatusCode())
	}

	noFollow := NewDirScanner(5, 1, false).Probe(context.Background(), server.URL, "old", nil)
	if noFollow.StatusCode() != http.StatusFound {
		t.Errorf("不跟随重定向时期望 302, 实际得到 %d", noFollow.StatusCode())
	}
	if !noFollow.OK {
		t.Error("302 < 400 应为 ok")
	}
}

func TestProbeHeaders(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	ds := NewDirScanner(5, 1, true)

	f := ds.Probe(context.Background(), server.URL, "ua", nil)
	if f.Snippet != model.ProbeUserAgent {
		t.Errorf("未提供请求头时应使用默认 UA, 实际得到 %q", f.Snippet)
	}

	f = ds.Probe(context.Background(), server.URL, "ua", map[string]string{"User-Agent": "custom/2.0"})
	if f.Snippet != "custom/2.0" {
		t.Errorf("应使用调用方提供的 UA, 实际得到 %q", f.Snippet)
	}
}

func TestProbeTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL
	server.Close()

	ds := NewDirScanner(2, 1, true)
	f := ds.Probe(context.Background(), target, "admin/", nil)

	if f.Status != nil {
		t.Errorf("传输失败时状态码应为空, 实际得到 %d", *f.Status)
	}
	if f.Error == "" {
		t.Error("传输失败时应记录错误信息")
	}
	if f.OK || f.Length != 0 || f.Snippet != "" {
		t.Errorf("传输失败记录字段不应有值: %+v", f)
	}
	if f.Headers == nil || len(f.Headers) != 0 || f.KeywordHits == nil || len(f.KeywordHits) != 0 {
		t.Errorf("传输失败时 headers/keyword_hits 应为空集合: %+v", f)
	}
}

func TestScanTargetFiltersAndKeepsOrder(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	paths := []string{"missing", "robots.txt", "  ", ".env", "nope/", "admin/", "gzip", "robots.txt"}
	ds := NewDirScanner(5, 4, true)

	got := ds.ScanTarget(context.Background(), server.URL, paths, false, nil)
	var gotPaths []string
	for _, f := range got {
		gotPaths = append(gotPaths, f.Path)
	}
	want := []string{"robots.txt", ".env", "admin/", "gzip", "robots.txt"}
	if !reflect.DeepEqual(gotPaths, want) {
		t.Errorf("期望 %v, 实际得到 %v", want, gotPaths)
	}

	all := ds.ScanTarget(context.Background(), server.URL, paths, true, nil)
	if len(all) != 7 {
		t.Fatalf("save_all 时应保留全部 7 条非空路径, 实际得到 %d", len(all))
	}
	if all[0].Path != "missing" || all[0].StatusCode() != 404 {
		t.Errorf("第一条应为 404 的 missing, 实际得到 %+v", all[0])
	}
}

func TestScanTargetProbeHook(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	var calls int32
	ds := NewDirScanner(5, 3, true)
	ds.SetProbeHook(func(model.Finding) {
		atomic.AddInt32(&calls, 1)
	})
	ds.SetRateLimit(1000)

	ds.ScanTarget(context.Background(), server.URL, model.DefaultWordlist(), false, nil)
	if calls != 12 {
		t.Errorf("期望回调 12 次, 实际 %d 次", calls)
	}
}

func TestKeep(t *testing.T) {
	tests := []struct {
		name    string
		ok      bool
		hits    []string
		saveAll bool
		want    bool
	}{
		{"dropped", false, []string{}, false, false},
		{"ok kept", true, []string{}, false, true},
		{"keyword kept", false, []string{"token"}, false, true},
		{"both", true, []string{"secret"}, false, true},
		{"save all", false, []string{}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := model.Finding{OK: tt.ok, KeywordHits: tt.hits}
			if got := Keep(f, tt.saveAll); got != tt.want {
				t.Errorf("Keep() = %v, 期望 %v", got, tt.want)
			}
		})
	}
}

func TestSweep(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	ds := NewDirScanner(2, 2, true)
	paths := []string{"robots.txt", ".env", "missing"}

	results, summary, err := ds.Sweep(context.Background(), []string{server.URL, deadURL}, paths, false, nil)
	if err != nil {
		t.Fatalf("Sweep 返回错误: %v", err)
	}
	if summary.TargetsScanned != 2 || summary.TotalFindings != 2 || len(results) != 2 {
		t.Errorf("汇总不符: %+v", summary)
	}
	if summary.KeywordHitRecords != 1 {
		t.Errorf("期望 1 条关键词记录, 实际得到 %d", summary.KeywordHitRecords)
	}
	wantTargets := []model.TargetSummary{
		{Target: server.URL, FindingsCount: 2},
		{Target: deadURL, FindingsCount: 0},
	}
	if !reflect.DeepEqual(summary.Targets, wantTargets) {
		t.Errorf("期望 %v, 实际得到 %v", wantTargets, summary.Targets)
	}

	if _, _, err := ds.Sweep(context.Background(), nil, paths, false, nil); err != ErrNoTargets {
		t.Errorf("空目标应返回 ErrNoTargets, 实际得到 %v", err)
	}
}

func TestScanTargetPerProbeTimeout(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	ds := NewDirScanner(1, 2, true)
	paths := []string{"robots.txt", "slow", "admin/", "missing"}

	start := time.Now()
	results := ds.ScanTarget(context.Background(), server.URL, paths, true, nil)
	if elapsed := time.Since(start); elapsed > 2500*time.Millisecond {
		t.Errorf("慢路径应在超时后放弃, 实际耗时 %v", elapsed)
	}

	if len(results) != len(paths) {
		t.Fatalf("期望 %d 条结果, 实际得到 %d", len(paths), len(results))
	}
	for i, p := range paths {
		if results[i].Path != p {
			t.Errorf("第 %d 条结果路径期望 %s, 实际得到 %s", i, p, results[i].Path)
		}
	}

	slow := results[1]
	if slow.Status != nil || slow.Error == "" || slow.OK {
		t.Errorf("超时的探测应只记录错误: %+v", slow)
	}
	if results[0].StatusCode() != 200 || results[2].StatusCode() != 200 || results[3].StatusCode() != 404 {
		t.Errorf("其他路径不应受超时影响: %v %v %v", results[0].Status, results[2].Status, results[3].Status)
	}
}

func TestSweepLogsTarget(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	var logs bytes.Buffer
	utils.SetOutput(&logs)
	defer utils.SetOutput(io.Discard)

	ds := NewDirScanner(2, 1, true)
	if _, _, err := ds.Sweep(context.Background(), []string{server.URL}, []string{"robots.txt"}, false, nil); err != nil {
		t.Fatalf("Sweep 返回错误: %v", err)
	}
	if !strings.Contains(logs.String(), `target="`+server.URL+`"`) {
		t.Errorf("扫描日志应带 target 字段: %s", logs.String())
	}
}
