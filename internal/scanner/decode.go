package scanner

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// decodeBody 按 Content-Encoding 解压响应体并转成 UTF-8 文本。
// 解压失败时退回原始字节，非法 UTF-8 序列替换为 U+FFFD。
func decodeBody(raw []byte, contentEncoding string) string {
	data := raw

	encodings := strings.Split(contentEncoding, ",")
	// 多重编码按相反顺序解开
	for i := len(encodings) - 1; i >= 0; i-- {
		decoded, err := decompress(data, encodings[i])
		if err != nil {
			data = raw
			break
		}
		data = decoded
	}

	return strings.ToValidUTF8(string(data), "\uFFFD")
}

func decompress(data []byte, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return data, nil
	case "gzip", "x-gzip":
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer reader.Close()
		return io.ReadAll(io.LimitReader(reader, maxBodySize))
	case "deflate":
		// deflate 实际上常见 zlib 包装和裸 deflate 两种
		if reader, err := zlib.NewReader(bytes.NewReader(data)); err == nil {
			defer reader.Close()
			if out, err := io.ReadAll(io.LimitReader(reader, maxBodySize)); err == nil {
				return out, nil
			}
		}
		reader := flate.NewReader(bytes.NewReader(data))
		defer reader.Close()
		return io.ReadAll(io.LimitReader(reader, maxBodySize))
	case "br":
		reader := brotli.NewReader(bytes.NewReader(data))
		return io.ReadAll(io.LimitReader(reader, maxBodySize))
	default:
		return nil, fmt.Errorf("不支持的内容编码: %s", encoding)
	}
}
