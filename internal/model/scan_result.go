package model

// Finding 单次探测结果
type Finding struct {
	Target      string            `json:"target"`
	Path        string            `json:"path"`
	URL         string            `json:"url"`
	Status      *int              `json:"status"` // 传输层失败时为 null
	Length      int               `json:"length"`
	Headers     map[string]string `json:"headers"`
	OK          bool              `json:"ok"` // status 存在且 < 400
	Snippet     string            `json:"snippet"`
	KeywordHits []string          `json:"keyword_hits"`
	Error       string            `json:"error"`
}

// HasStatus 是否收到了 HTTP 响应
func (f Finding) HasStatus() bool {
	return f.Status != nil
}

// StatusCode 返回状态码，未收到响应时返回 0
func (f Finding) StatusCode() int {
	if f.Status == nil {
		return 0
	}
	return *f.Status
}

// IntPtr 返回 v 的指针，便于构造 Status
func IntPtr(v int) *int {
	return &v
}

// TargetSummary 单个目标的结果统计
type TargetSummary struct {
	Target        string `json:"target"`
	FindingsCount int    `json:"findings_count"`
}

// ScanSummary 扫描汇总，由 Finding 列表推导
type ScanSummary struct {
	TargetsScanned    int             `json:"targets_scanned"`
	TotalFindings     int             `json:"total_findings"`
	Targets           []TargetSummary `json:"targets"`
	KeywordHitRecords int             `json:"keyword_hit_records"`
}

// OutputFiles 实际写出的文件
type OutputFiles struct {
	JSONFile string `json:"json_file,omitempty"`
	CSVFile  string `json:"csv_file,omitempty"`
	HTMLFile string `json:"html_file,omitempty"`
}

// ToolResult scan_directory 工具的返回信封。
// 成功时 Success/Summary/OutputFiles 有值；无可用目标时只有 Error 和空 Results。
type ToolResult struct {
	Success     bool         `json:"success,omitempty"`
	Error       string       `json:"error,omitempty"`
	Summary     *ScanSummary `json:"summary,omitempty"`
	Results     []Finding    `json:"results"`
	OutputFiles *OutputFiles `json:"output_files,omitempty"`
}

// JSONReport 带生成时间的 JSON 报告
type JSONReport struct {
	GeneratedAt string    `json:"generated_at"`
	NumFiles    int       `json:"num_files"`
	Results     []Finding `json:"results"`
}

// ScanOptions 扫描选项
type ScanOptions struct {
	Target          string
	TargetsFile     string
	Wordlist        string
	Timeout         int
	FollowRedirects bool
	SaveAll         bool
	UserAgent       string
	Threads         int
	Rate            float64
	OutputFile      string
	CSVFile         string
	HTMLFile        string
	OutputFormat    string // text, json, csv
	ReportInput     string
	ServeMCP        bool
	HTTPAddr        string
	Verbose         bool
	NoProgress      bool
}

// Summarize 按目标顺序统计结果数量和关键词命中记录数
func Summarize(targets []string, findings []Finding) ScanSummary {
	counts := make(map[string]int, len(targets))
	summary := ScanSummary{
		TargetsScanned: len(targets),
		TotalFindings:  len(findings),
		Targets:        make([]TargetSummary, 0, len(targets)),
	}
	for _, f := range findings {
		counts[f.Target]++
		if len(f.KeywordHits) > 0 {
			summary.KeywordHitRecords++
		}
	}
	for _, target := range targets {
		summary.Targets = append(summary.Targets, TargetSummary{
			Target:        target,
			FindingsCount: counts[target],
		})
	}
	return summary
}

// TargetsOf 按首次出现顺序返回结果中的目标
func TargetsOf(findings []Finding) []string {
	seen := make(map[string]bool)
	targets := []string{}
	for _, f := range findings {
		if !seen[f.Target] {
			seen[f.Target] = true
			targets = append(targets, f.Target)
		}
	}
	return targets
}
