package wordlist

import (
	"os"
	"strings"

	"TanLu/internal/model"
	"TanLu/internal/utils"
)

var logger = utils.NewLogger("wordlist")

// LoadWordlist 加载路径字典。
// 路径为空、文件不存在或无法读取时静默回退到内置字典的拷贝；
// 否则逐行去除空白、剔除空行，保留原始顺序和重复项。
func LoadWordlist(path string) []string {
	lines, err := readLines(path)
	if err != nil {
		if path != "" {
			logger.Debug("字典 %s 不可用，使用内置字典: %v", path, err)
		}
		return model.DefaultWordlist()
	}
	return lines
}

// LoadTargets 加载批量目标文件。
// 文件不存在时返回空列表；每一行都经过 NormalizeTarget 规范化，规范化后为空的行被丢弃。
func LoadTargets(path string) []string {
	lines, err := readLines(path)
	if err != nil {
		if path != "" {
			logger.Warn("目标文件 %s 不可用: %v", path, err)
		}
		return []string{}
	}

	targets := make([]string, 0, len(lines))
	for _, line := range lines {
		if target := utils.NormalizeTarget(line); target != "" {
			targets = append(targets, target)
		}
	}
	return targets
}

func readLines(path string) ([]string, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	lines := []string{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
