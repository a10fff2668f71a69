package utils

import (
	"strings"
	"unicode"
)

// NormalizeTarget 规范化目标地址：
// 去除首尾空白，缺少协议时补全 https://，去除末尾所有斜杠。
// 输入为空（或只有协议头）时返回空字符串，由调用方拒绝。
func NormalizeTarget(raw string) string {
	target := strings.TrimSpace(raw)
	if target == "" {
		return ""
	}

	scheme := "https://"
	switch {
	case strings.HasPrefix(target, "http://"):
		scheme = "http://"
		target = target[len("http://"):]
	case strings.HasPrefix(target, "https://"):
		target = target[len("https://"):]
	}

	target = strings.TrimRightFunc(target, func(r rune) bool {
		return r == '/' || unicode.IsSpace(r)
	})
	if target == "" {
		return ""
	}
	return scheme + target
}

// JoinURL 拼接目标与路径，保证两者之间恰好一个斜杠
func JoinURL(target, path string) string {
	return strings.TrimRight(target, "/") + "/" + strings.TrimLeft(path, "/")
}
