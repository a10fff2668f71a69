package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"

	"TanLu/internal/mcpserver"
	"TanLu/internal/model"
	"TanLu/internal/scanner"
	"TanLu/internal/utils"
	"TanLu/internal/wordlist"
	"TanLu/pkg/cli"
)

func main() {
	// 解析命令行参数
	parser := cli.NewParser()
	if err := parser.Parse(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n\n", err)
		fmt.Fprintf(os.Stderr, "使用方法: %s -target <目标地址> [选项]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "使用 -help 查看完整帮助信息\n")
		os.Exit(1)
	}

	options := parser.Options
	if options.Verbose {
		utils.SetVerbose(true)
	}
	logger := utils.NewLogger("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch {
	case options.ServeMCP:
		err = runMCP(ctx, options)
	case options.HTTPAddr != "":
		err = runHTTP(ctx, options)
	case options.ReportInput != "":
		err = runReport(options)
	default:
		err = runScan(ctx, options)
	}

	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func runMCP(ctx context.Context, options model.ScanOptions) error {
	server := mcpserver.NewServer(mcpserver.Config{
		Threads: options.Threads,
		Rate:    options.Rate,
	})
	err := server.Serve(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runHTTP(ctx context.Context, options model.ScanOptions) error {
	logger := utils.NewLogger("http")

	srv := &http.Server{
		Addr: options.HTTPAddr,
		Handler: mcpserver.NewHTTPHandler(mcpserver.Config{
			Threads: options.Threads,
			Rate:    options.Rate,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("HTTP 接口监听 %s", options.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP 服务启动失败: %w", err)
	}
	return nil
}

// runReport 把已有的 JSON 结果数组渲染为 HTML 报告
func runReport(options model.ScanOptions) error {
	logger := utils.NewLogger("report")

	findings, err := cli.LoadJSON(options.ReportInput)
	if err != nil {
		return err
	}

	output := options.HTMLFile
	if output == "" {
		output = "report.html"
	}

	summary := model.Summarize(model.TargetsOf(findings), findings)
	if err := cli.SaveHTML(output, findings, summary, time.Now()); err != nil {
		return err
	}

	logger.Info("已生成报告: %s (%d 条记录)", output, len(findings))
	return nil
}

func runScan(ctx context.Context, options model.ScanOptions) error {
	logger := utils.NewLogger("main")

	// 收集目标
	var targets []string
	if target := utils.NormalizeTarget(options.Target); target != "" {
		targets = append(targets, target)
	}
	if options.TargetsFile != "" {
		targets = append(targets, wordlist.LoadTargets(options.TargetsFile)...)
	}
	if len(targets) == 0 {
		return scanner.ErrNoTargets
	}

	paths := wordlist.LoadWordlist(options.Wordlist)

	if options.Verbose {
		logger.Info("目标数: %d, 路径数: %d", len(targets), len(paths))
		logger.Info("超时时间: %d秒, 线程数: %d", options.Timeout, options.Threads)
	}

	ds := scanner.NewDirScanner(options.Timeout, options.Threads, options.FollowRedirects)
	ds.SetRateLimit(options.Rate)

	var bar *progressbar.ProgressBar
	if !options.NoProgress {
		bar = progressbar.NewOptions(len(targets)*len(paths),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetDescription("[cyan]扫描中...[reset]"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
		ds.SetProbeHook(func(model.Finding) {
			_ = bar.Add(1)
		})
	}

	// 执行扫描
	startTime := time.Now()
	headers := map[string]string{"User-Agent": options.UserAgent}
	findings, summary, err := ds.Sweep(ctx, targets, paths, options.SaveAll, headers)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}
	logger.Info("扫描完成，耗时 %v", time.Since(startTime).Round(time.Millisecond))

	files := &model.OutputFiles{}
	if options.OutputFile != "" {
		if err := cli.SaveJSON(options.OutputFile, findings); err != nil {
			logger.Error("保存 JSON 失败: %v", err)
		} else {
			files.JSONFile = options.OutputFile
		}
	}
	if options.CSVFile != "" {
		if err := cli.SaveCSV(options.CSVFile, findings); err != nil {
			logger.Error("保存 CSV 失败: %v", err)
		} else {
			files.CSVFile = options.CSVFile
		}
	}
	if options.HTMLFile != "" {
		if err := cli.SaveHTML(options.HTMLFile, findings, summary, time.Now()); err != nil {
			logger.Error("保存 HTML 失败: %v", err)
		} else {
			files.HTMLFile = options.HTMLFile
		}
	}

	result := model.ToolResult{
		Success:     true,
		Summary:     &summary,
		Results:     findings,
		OutputFiles: files,
	}
	formatter := cli.NewOutputFormatter(options.OutputFormat)
	if err := formatter.PrintResult(os.Stdout, result); err != nil {
		return fmt.Errorf("输出结果失败: %w", err)
	}

	for _, path := range []string{files.JSONFile, files.CSVFile, files.HTMLFile} {
		if path != "" {
			logger.Info("已保存: %s", path)
		}
	}
	return nil
}
