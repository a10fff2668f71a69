package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"TanLu/internal/model"
)

// CSVHeader CSV 固定列
var CSVHeader = []string{"target", "path", "url", "status", "length", "keyword_hits", "error"}

var (
	okColor      = color.New(color.FgGreen).SprintFunc()
	failColor    = color.New(color.FgRed).SprintFunc()
	keywordColor = color.New(color.FgMagenta, color.Bold).SprintFunc()
	titleColor   = color.New(color.FgCyan, color.Bold).SprintFunc()
)

type OutputFormatter struct {
	format string
}

func NewOutputFormatter(format string) *OutputFormatter {
	return &OutputFormatter{format: format}
}

// PrintResult 把扫描结果输出到控制台
func (of *OutputFormatter) PrintResult(w io.Writer, result model.ToolResult) error {
	var output []byte
	var err error

	switch strings.ToLower(of.format) {
	case "json":
		output, err = RenderJSON(result.Results)
	case "csv":
		output, err = RenderCSV(result.Results)
	default:
		output = []byte(of.formatText(result))
	}
	if err != nil {
		return err
	}

	_, err = w.Write(output)
	return err
}

func (of *OutputFormatter) formatText(result model.ToolResult) string {
	var builder strings.Builder

	builder.WriteString("\n" + titleColor("探路 目录扫描器") + "\n")
	builder.WriteString(strings.Repeat("═", 60) + "\n")

	if result.Summary != nil {
		for _, t := range result.Summary.Targets {
			builder.WriteString(fmt.Sprintf("目标: %s  保留记录: %d\n", t.Target, t.FindingsCount))
		}
		builder.WriteString(fmt.Sprintf("\n记录总数: %d | 关键词命中记录: %d\n\n",
			result.Summary.TotalFindings, result.Summary.KeywordHitRecords))
	}

	if len(result.Results) == 0 {
		builder.WriteString("未发现任何记录\n")
		return builder.String()
	}

	w := tabwriter.NewWriter(&builder, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "状态\t长度\tURL\t关键词")
	for _, f := range result.Results {
		status := "ERR"
		if f.HasStatus() {
			status = strconv.Itoa(f.StatusCode())
		}
		if f.OK {
			status = okColor(status)
		} else {
			status = failColor(status)
		}

		keywords := "-"
		if len(f.KeywordHits) > 0 {
			keywords = keywordColor(strings.Join(f.KeywordHits, ", "))
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", status, f.Length, f.URL, keywords)
	}
	w.Flush()

	builder.WriteString(strings.Repeat("═", 60) + "\n")
	return builder.String()
}

// RenderJSON 缩进输出全部字段，保留非 ASCII 字符原样
func RenderJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("序列化 JSON 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderJSONReport 生成带 generated_at/num_files 的报告
func RenderJSONReport(findings []model.Finding, generatedAt time.Time) ([]byte, error) {
	if findings == nil {
		findings = []model.Finding{}
	}
	return RenderJSON(model.JSONReport{
		GeneratedAt: generatedAt.Format(time.RFC3339),
		NumFiles:    len(findings),
		Results:     findings,
	})
}

// RenderCSV 固定 7 列，没有结果时也输出表头
func RenderCSV(findings []model.Finding) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(CSVHeader); err != nil {
		return nil, err
	}
	for _, f := range findings {
		status := ""
		if f.HasStatus() {
			status = strconv.Itoa(f.StatusCode())
		}
		if err := writer.Write([]string{
			f.Target,
			f.Path,
			f.URL,
			status,
			strconv.Itoa(f.Length),
			strings.Join(f.KeywordHits, ";"),
			f.Error,
		}); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("写入 CSV 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadJSON 读取 JSON 数组形式的结果文件
func LoadJSON(path string) ([]model.Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取结果文件失败: %w", err)
	}

	var findings []model.Finding
	if err := json.Unmarshal(data, &findings); err != nil {
		return nil, fmt.Errorf("结果文件必须是 JSON 数组: %w", err)
	}
	if findings == nil {
		findings = []model.Finding{}
	}
	return findings, nil
}

func SaveJSON(path string, findings []model.Finding) error {
	if findings == nil {
		findings = []model.Finding{}
	}
	data, err := RenderJSON(findings)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

func SaveJSONReport(path string, findings []model.Finding, generatedAt time.Time) error {
	data, err := RenderJSONReport(findings, generatedAt)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

func SaveCSV(path string, findings []model.Finding) error {
	data, err := RenderCSV(findings)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

func SaveHTML(path string, findings []model.Finding, summary model.ScanSummary, generatedAt time.Time) error {
	return WriteFileAtomic(path, []byte(RenderHTML(findings, summary, generatedAt)))
}

// WriteFileAtomic 先写同目录临时文件再重命名，必要时创建父目录
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("替换 %s 失败: %w", path, err)
	}
	return nil
}
