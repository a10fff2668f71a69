package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"TanLu/internal/model"
)

// 报告中片段的最大显示字符数
const htmlSnippetLimit = 600

const reportStyle = `
    body { font-family: -apple-system,BlinkMacSystemFont,'Segoe UI','Helvetica Neue',Arial,sans-serif; background:#f6f7fb; color:#1f2937; margin:0; }
    header { background: linear-gradient(135deg,#2563eb,#1e40af); color:#fff; padding:28px 32px; }
    header h1 { margin:0 0 6px 0; font-size:24px; }
    header p { margin:4px 0; opacity:.95; }
    main { padding:24px 28px; }
    .card { background:#fff; border-radius:12px; box-shadow:0 10px 30px rgba(30,64,175,.12); padding:18px; margin-bottom:22px; border:1px solid #e5e7eb; }
    .grid { display:grid; grid-template-columns:repeat(auto-fit,minmax(220px,1fr)); gap:14px; }
    .tile { background:#f9fafb; border:1px solid #e5e7eb; border-radius:10px; padding:12px 14px; }
    .tile h3 { margin:0; font-size:13px; color:#475569; }
    .tile p { margin:6px 0 0 0; font-size:20px; font-weight:700; color:#0f172a; }
    .tablewrap { overflow:auto; border-radius:10px; border:1px solid #e5e7eb; }
    table { border-collapse:collapse; width:100%; min-width:1080px; }
    th, td { text-align:left; padding:10px 12px; border-bottom:1px solid #f1f5f9; font-size:14px; }
    th { background:#f1f5f9; color:#0f172a; position:sticky; top:0; z-index:1; }
    tr:nth-child(even) { background:#fbfdff; }
    tr.ok { border-left:4px solid #22c55e; }
    tr.fail { border-left:4px solid #ef4444; }
    tr.keyword { background:rgba(244,114,182,.12); }
    details summary { cursor:pointer; color:#2563eb; }
    pre { white-space:pre-wrap; background:#0f172a; color:#e2e8f0; padding:10px 12px; border-radius:8px; font-size:13px; }
    ul { margin:8px 0 0 18px; padding:0; }
    .muted { color:#64748b; font-size:12px; }`

// RenderHTML 生成自包含的 HTML 报告。所有来自目标的字符串都经过转义，
// 表格行以节点树的形式交给 html.Render 输出。
func RenderHTML(findings []model.Finding, summary model.ScanSummary, generatedAt time.Time) string {
	title := ""
	if len(summary.Targets) > 0 {
		title = summary.Targets[0].Target
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"zh-CN\">\n<head>\n  <meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "  <title>目录扫描报告 - %s</title>\n", html.EscapeString(title))
	b.WriteString("  <style>" + reportStyle + "\n  </style>\n</head>\n<body>\n")

	b.WriteString("  <header>\n    <h1>目录扫描报告</h1>\n")
	fmt.Fprintf(&b, "    <p>目标：%s</p>\n", html.EscapeString(title))
	fmt.Fprintf(&b, "    <p class=\"muted\">报告生成时间：%s</p>\n", html.EscapeString(generatedAt.UTC().Format("2006-01-02 15:04:05 UTC")))
	b.WriteString("  </header>\n  <main>\n")

	b.WriteString("    <section class=\"card\">\n      <div class=\"grid\">\n")
	fmt.Fprintf(&b, "        <div class=\"tile\"><h3>记录总数</h3><p>%d</p></div>\n", len(findings))
	fmt.Fprintf(&b, "        <div class=\"tile\"><h3>关键词命中记录</h3><p>%d</p></div>\n", summary.KeywordHitRecords)
	fmt.Fprintf(&b, "        <div class=\"tile\"><h3>HTTP 状态分布</h3><ul>%s</ul></div>\n", statusHistogram(findings))
	b.WriteString("      </div>\n    </section>\n")

	b.WriteString("    <section class=\"card\">\n      <div class=\"tablewrap\">\n        <table>\n")
	b.WriteString("          <thead>\n            <tr><th>#</th><th>目标</th><th>路径</th><th>URL</th><th>状态码</th><th>响应长度</th><th>关键词命中</th><th>错误</th><th>内容片段</th></tr>\n          </thead>\n")
	b.WriteString("          <tbody>\n")
	if len(findings) == 0 {
		b.WriteString("            <tr><td colspan=\"9\" style=\"text-align:center;padding:26px;\">无数据</td></tr>\n")
	}
	for i, f := range findings {
		writeRow(&b, i+1, f)
	}
	b.WriteString("          </tbody>\n        </table>\n      </div>\n    </section>\n")

	b.WriteString("    <p class=\"muted\">本报告仅用于授权测试。请确保遵循所有相关法律与合规要求。</p>\n")
	b.WriteString("  </main>\n</body>\n</html>\n")
	return b.String()
}

func writeRow(b *strings.Builder, index int, f model.Finding) {
	rowClass := "fail"
	if f.OK {
		rowClass = "ok"
	}
	keywords := "-"
	if len(f.KeywordHits) > 0 {
		rowClass += " keyword"
		keywords = strings.Join(f.KeywordHits, ", ")
	}

	snippet := f.Snippet
	if runes := []rune(snippet); len(runes) > htmlSnippetLimit {
		snippet = string(runes[:htmlSnippetLimit]) + "..."
	}

	// 只有 http(s) 地址生成链接
	link := text(f.URL)
	if strings.HasPrefix(f.URL, "http://") || strings.HasPrefix(f.URL, "https://") {
		link = element("a", []html.Attribute{{Key: "href", Val: f.URL}, {Key: "target", Val: "_blank"}}, text(f.URL))
	}

	row := element("tr", []html.Attribute{{Key: "class", Val: rowClass}},
		element("td", nil, text(strconv.Itoa(index))),
		element("td", nil, text(f.Target)),
		element("td", nil, text(f.Path)),
		element("td", nil, link),
		element("td", nil, text(statusLabel(f))),
		element("td", nil, text(strconv.Itoa(f.Length))),
		element("td", nil, text(keywords)),
		element("td", nil, text(f.Error)),
		element("td", nil, element("details", nil,
			element("summary", nil, text("查看")),
			element("pre", nil, text(snippet)),
		)),
	)

	b.WriteString("            ")
	// 写入 strings.Builder 不会失败
	_ = html.Render(b, row)
	b.WriteString("\n")
}

// text 文本节点在渲染时自动转义
func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func element(tag string, attrs []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, Attr: attrs}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func statusLabel(f model.Finding) string {
	if !f.HasStatus() {
		return "N/A"
	}
	return strconv.Itoa(f.StatusCode())
}

// statusHistogram 状态码升序，无状态码的记录排在最后
func statusHistogram(findings []model.Finding) string {
	counts := make(map[int]int)
	missing := 0
	for _, f := range findings {
		if f.HasStatus() {
			counts[f.StatusCode()]++
		} else {
			missing++
		}
	}

	codes := make([]int, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	var b strings.Builder
	for _, code := range codes {
		fmt.Fprintf(&b, "<li><strong>%d</strong>: %d 条</li>", code, counts[code])
	}
	if missing > 0 {
		fmt.Fprintf(&b, "<li><strong>N/A</strong>: %d 条</li>", missing)
	}
	if b.Len() == 0 {
		return "<li>无</li>"
	}
	return b.String()
}
