package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"TanLu/internal/model"
	"TanLu/internal/scanner"
	"TanLu/internal/utils"
	"TanLu/internal/wordlist"
	"TanLu/pkg/cli"
)

const (
	ScanToolName     = "scan_directory"
	noTargetsMessage = "No targets provided. Please provide 'target' or 'targets_file'."
)

// ScanArgs scan_directory 的参数，指针字段区分“未提供”和零值
type ScanArgs struct {
	Target          string  `json:"target"`
	TargetsFile     string  `json:"targets_file"`
	Wordlist        string  `json:"wordlist"`
	Timeout         *int    `json:"timeout"`
	FollowRedirects *bool   `json:"follow_redirects"`
	SaveAll         *bool   `json:"save_all"`
	UserAgent       *string `json:"user_agent"`
	OutputJSON      *string `json:"output_json"`
	OutputCSV       *string `json:"output_csv"`
	OutputHTML      *string `json:"output_html"`
}

func (a ScanArgs) timeout() int {
	if a.Timeout == nil {
		return model.DefaultTimeout
	}
	return *a.Timeout
}

func (a ScanArgs) followRedirects() bool {
	return a.FollowRedirects == nil || *a.FollowRedirects
}

func (a ScanArgs) saveAll() bool {
	return a.SaveAll != nil && *a.SaveAll
}

func (a ScanArgs) userAgent() string {
	if a.UserAgent == nil {
		return model.DefaultUserAgent
	}
	return *a.UserAgent
}

// ScanTool 执行目录扫描。threads 和 rate 在进程启动时确定，所有调用共享。
type ScanTool struct {
	threads int
	rate    float64
	now     func() time.Time
	logger  *utils.Logger
}

func NewScanTool(threads int, rate float64) *ScanTool {
	if threads <= 0 {
		threads = model.DefaultThreads
	}
	return &ScanTool{
		threads: threads,
		rate:    rate,
		now:     time.Now,
		logger:  utils.NewLogger("scan_tool"),
	}
}

func (t *ScanTool) Descriptor() ToolDescriptor {
	return ToolDescriptor{
		Name:        ScanToolName,
		Description: "扫描目标网站的敏感路径和文件，检测目录遍历、敏感文件泄露等安全问题",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"target": {
					Type:        "string",
					Description: "目标 URL 或域名（例如：example.com 或 https://example.com）",
				},
				"targets_file": {
					Type:        "string",
					Description: "目标列表文件路径（每行一个目标，可选）",
				},
				"wordlist": {
					Type:        "string",
					Description: "路径字典文件路径（每行一个路径，可选，不提供则使用默认字典）",
				},
				"timeout": {
					Type:        "integer",
					Description: "请求超时时间（秒，默认 8）",
					Default:     model.DefaultTimeout,
				},
				"follow_redirects": {
					Type:        "boolean",
					Description: "是否跟随 HTTP 重定向（默认 true）",
					Default:     true,
				},
				"save_all": {
					Type:        "boolean",
					Description: "是否保存所有请求结果（包括 404，默认 false）",
					Default:     false,
				},
				"user_agent": {
					Type:        "string",
					Description: "自定义 User-Agent（可选）",
					Default:     model.DefaultUserAgent,
				},
				"output_json": {
					Type:        "string",
					Description: "JSON 输出文件路径（可选，不提供则不保存文件）",
				},
				"output_csv": {
					Type:        "string",
					Description: "CSV 输出文件路径（可选）",
				},
				"output_html": {
					Type:        "string",
					Description: "HTML 报告输出文件路径（可选）",
				},
			},
			Required: []string{"target"},
		},
	}
}

func (t *ScanTool) Call(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args ScanArgs
	if len(arguments) > 0 && string(arguments) != "null" {
		if err := json.Unmarshal(arguments, &args); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
	}
	return t.Execute(ctx, args), nil
}

// Execute 收集目标、加载字典、扫描并按需写出文件。
// 没有可用目标时返回带 error 的结果，而不是 Go 错误。
func (t *ScanTool) Execute(ctx context.Context, args ScanArgs) model.ToolResult {
	targets := resolveTargets(args)
	if len(targets) == 0 {
		return model.ToolResult{Error: noTargetsMessage, Results: []model.Finding{}}
	}

	paths := wordlist.LoadWordlist(args.Wordlist)
	headers := map[string]string{"User-Agent": args.userAgent()}

	ds := scanner.NewDirScanner(args.timeout(), t.threads, args.followRedirects())
	ds.SetRateLimit(t.rate)

	findings, summary, err := ds.Sweep(ctx, targets, paths, args.saveAll(), headers)
	if err != nil {
		return model.ToolResult{Error: err.Error(), Results: []model.Finding{}}
	}

	return model.ToolResult{
		Success:     true,
		Summary:     &summary,
		Results:     findings,
		OutputFiles: t.writeOutputs(args, findings, summary),
	}
}

func resolveTargets(args ScanArgs) []string {
	targets := []string{}
	if target := utils.NormalizeTarget(args.Target); target != "" {
		targets = append(targets, target)
	}
	if args.TargetsFile != "" {
		targets = append(targets, wordlist.LoadTargets(args.TargetsFile)...)
	}
	return targets
}

// writeOutputs 写失败只记录日志，对应文件不出现在 output_files 中
func (t *ScanTool) writeOutputs(args ScanArgs, findings []model.Finding, summary model.ScanSummary) *model.OutputFiles {
	files := &model.OutputFiles{}
	now := t.now()

	if args.OutputJSON != nil && *args.OutputJSON != "" {
		if err := cli.SaveJSONReport(*args.OutputJSON, findings, now); err != nil {
			t.logger.Error("保存 JSON 失败: %v", err)
		} else {
			files.JSONFile = *args.OutputJSON
		}
	}
	if args.OutputCSV != nil && *args.OutputCSV != "" {
		if err := cli.SaveCSV(*args.OutputCSV, findings); err != nil {
			t.logger.Error("保存 CSV 失败: %v", err)
		} else {
			files.CSVFile = *args.OutputCSV
		}
	}
	if args.OutputHTML != nil && *args.OutputHTML != "" {
		if err := cli.SaveHTML(*args.OutputHTML, findings, summary, now); err != nil {
			t.logger.Error("保存 HTML 失败: %v", err)
		} else {
			files.HTMLFile = *args.OutputHTML
		}
	}
	return files
}
