package model

const (
	DefaultTimeout = 8
	DefaultThreads = 10

	// DefaultUserAgent 工具参数和命令行未指定 UA 时使用
	DefaultUserAgent = "DirScanSync/1.0"
	// ProbeUserAgent 探测时完全没有请求头时使用
	ProbeUserAgent = "DirScanSync/1.0 (+https://example.com)"
	// HTTPAPIUserAgent HTTP 工具接口的默认 UA
	HTTPAPIUserAgent = "DirScanMCP/1.0"

	SnippetLimit = 1000
)

// defaultWordlist 内置默认字典，顺序固定
var defaultWordlist = []string{
	"admin/", "login", "login/", "wp-admin/", "phpinfo.php", "config.php",
	".env", "robots.txt", "sitemap.xml", "upload/", "uploads/", "dashboard/",
}

// SensitiveKeywords 在响应片段中检索的敏感关键词（大小写不敏感）
var SensitiveKeywords = []string{"token", "password", "secret", "apikey", "api_key", "Index of", "Directory listing"}

// SelectedHeaders 记录到 Finding 中的响应头
var SelectedHeaders = []string{"Server", "Content-Type"}

// DefaultWordlist 返回内置字典的拷贝
func DefaultWordlist() []string {
	out := make([]string, len(defaultWordlist))
	copy(out, defaultWordlist)
	return out
}
