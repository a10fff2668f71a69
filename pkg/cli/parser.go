package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"TanLu/internal/model"
)

type Parser struct {
	Options model.ScanOptions
	flags   *flag.FlagSet
}

func NewParser() *Parser {
	return &Parser{}
}

// Parse 解析 os.Args
func (p *Parser) Parse() error {
	return p.ParseArgs(os.Args[1:])
}

func (p *Parser) ParseArgs(args []string) error {
	var help, noRedirect bool

	fs := flag.NewFlagSet("TanLu", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	p.flags = fs

	fs.StringVar(&p.Options.Target, "target", "", "单个目标（域名或完整 URL）")
	fs.StringVar(&p.Options.TargetsFile, "targets-file", "", "目标列表文件（每行一个目标）")
	fs.StringVar(&p.Options.Wordlist, "wordlist", "", "路径字典文件（每行一个路径）")
	fs.IntVar(&p.Options.Timeout, "timeout", model.DefaultTimeout, "请求超时时间(秒)")
	fs.BoolVar(&noRedirect, "no-redirect", false, "不跟随重定向")
	fs.BoolVar(&p.Options.SaveAll, "save-all", false, "保存所有请求结果（包括 404）")
	fs.StringVar(&p.Options.UserAgent, "user-agent", model.DefaultUserAgent, "自定义 User-Agent")
	fs.IntVar(&p.Options.Threads, "threads", model.DefaultThreads, "每个目标的并发探测数")
	fs.Float64Var(&p.Options.Rate, "rate", 0, "每秒最大请求数（0 表示不限速）")
	fs.StringVar(&p.Options.OutputFile, "out", "results.json", "JSON 输出文件")
	fs.StringVar(&p.Options.CSVFile, "csv", "", "CSV 输出文件（可选）")
	fs.StringVar(&p.Options.HTMLFile, "html", "", "HTML 报告输出文件（可选）")
	fs.StringVar(&p.Options.OutputFormat, "format", "text", "控制台输出格式 (text, json, csv)")
	fs.StringVar(&p.Options.ReportInput, "report", "", "把已有的 JSON 结果渲染为 HTML 报告（配合 -html）")
	fs.BoolVar(&p.Options.ServeMCP, "mcp", false, "以 stdio JSON-RPC 工具服务器模式运行")
	fs.StringVar(&p.Options.HTTPAddr, "http", "", "以 HTTP 工具接口模式运行（如 127.0.0.1:9999）")
	fs.BoolVar(&p.Options.Verbose, "verbose", false, "显示详细信息")
	fs.BoolVar(&p.Options.NoProgress, "no-bar", false, "不显示进度条")
	fs.BoolVar(&help, "help", false, "显示帮助")

	if err := fs.Parse(args); err != nil {
		return err
	}
	p.Options.FollowRedirects = !noRedirect

	if help {
		p.printHelp()
		os.Exit(0)
	}

	p.Options.ApplyDefaults()
	return p.Options.Validate()
}

func (p *Parser) printHelp() {
	fmt.Println("探路 - 敏感路径与目录探测工具")
	fmt.Println("")
	fmt.Println("使用方法: TanLu [选项]")
	fmt.Println("")
	fmt.Println("选项:")
	p.flags.SetOutput(os.Stdout)
	p.flags.PrintDefaults()
	fmt.Println("")
	fmt.Println("示例:")
	fmt.Println("  TanLu -target example.com -csv results.csv -html report.html")
	fmt.Println("  TanLu -targets-file targets.txt -wordlist paths.txt -save-all")
	fmt.Println("  TanLu -mcp")
	fmt.Println("  TanLu -http 127.0.0.1:9999")
	fmt.Println("  TanLu -report results.json -html report.html")
}
