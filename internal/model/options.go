package model

import (
	"errors"
	"fmt"
)

var (
	ErrNoTarget       = errors.New("必须指定 -target 或 -targets-file")
	ErrInvalidTimeout = errors.New("超时时间必须在 1-300 秒之间")
	ErrInvalidThreads = errors.New("线程数必须在 1-200 之间")
	ErrInvalidRate    = errors.New("速率不能为负数")
	ErrInvalidFormat  = errors.New("输出格式只能是 text、json 或 csv")
)

// ApplyDefaults 为零值字段填充默认值
func (o *ScanOptions) ApplyDefaults() {
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Threads == 0 {
		o.Threads = DefaultThreads
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.OutputFormat == "" {
		o.OutputFormat = "text"
	}
}

func (o *ScanOptions) Validate() error {
	if o.Timeout < 1 || o.Timeout > 300 {
		return fmt.Errorf("%w: %d", ErrInvalidTimeout, o.Timeout)
	}
	if o.Threads < 1 || o.Threads > 200 {
		return fmt.Errorf("%w: %d", ErrInvalidThreads, o.Threads)
	}
	if o.Rate < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRate, o.Rate)
	}
	switch o.OutputFormat {
	case "text", "json", "csv":
	default:
		return fmt.Errorf("%w: %s", ErrInvalidFormat, o.OutputFormat)
	}

	// 服务器模式和报告模式不需要命令行目标
	if o.ServeMCP || o.HTTPAddr != "" || o.ReportInput != "" {
		return nil
	}
	if o.Target == "" && o.TargetsFile == "" {
		return ErrNoTarget
	}
	return nil
}
