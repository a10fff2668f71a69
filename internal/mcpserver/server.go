package mcpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"TanLu/internal/utils"
	"TanLu/pkg/cli"
)

type Config struct {
	Threads int
	Rate    float64
}

// Server 基于 stdio 的行式 JSON-RPC 服务器。
// 一次只处理一条消息：读取、分发、响应完成后才读下一行。
type Server struct {
	registry *Registry
	logger   *utils.Logger
}

func NewServer(cfg Config) *Server {
	return &Server{
		registry: NewRegistry(NewScanTool(cfg.Threads, cfg.Rate)),
		logger:   utils.NewLogger("mcpserver"),
	}
}

// NewServerWithRegistry 使用自定义工具集合
func NewServerWithRegistry(registry *Registry) *Server {
	return &Server{
		registry: registry,
		logger:   utils.NewLogger("mcpserver"),
	}
}

type readResult struct {
	line []byte
	err  error
}

// Serve 逐行读取 r 直到输入结束或 ctx 取消，响应逐行写入 w。
// 输入结束时返回 nil；ctx 取消时即使没有新输入也立即返回 ctx.Err()。
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	lines := make(chan readResult)
	done := make(chan struct{})
	defer close(done)

	// 读取协程最多预读一行，消息仍然逐条处理
	go func() {
		reader := bufio.NewReader(r)
		for {
			line, err := reader.ReadBytes('\n')
			select {
			case lines <- readResult{line: line, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	s.logger.Info("JSON-RPC 服务器已启动，等待请求")

	for {
		var res readResult
		select {
		case <-ctx.Done():
			s.logger.Info("收到退出信号，服务器退出")
			return ctx.Err()
		case res = <-lines:
		}

		if res.err != nil && !errors.Is(res.err, io.EOF) {
			return fmt.Errorf("读取输入失败: %w", res.err)
		}

		if resp := s.HandleLine(ctx, res.line); resp != nil {
			if err := enc.Encode(resp); err != nil {
				return fmt.Errorf("写入响应失败: %w", err)
			}
		}

		if errors.Is(res.err, io.EOF) {
			s.logger.Info("输入已关闭，服务器退出")
			return nil
		}
	}
}

// HandleLine 处理一行输入，返回 nil 表示不需要输出
func (s *Server) HandleLine(ctx context.Context, line []byte) *Response {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	msg, err := ParseMessage(line)
	if err != nil {
		s.logger.Warn("无法解析消息: %v", err)
		return &Response{
			JSONRPC: jsonrpcVersion,
			ID:      json.RawMessage("null"),
			Error:   newRPCError(CodeParseError, "Parse error: %v", err),
		}
	}

	result, rpcErr := s.dispatch(ctx, msg)
	if msg.IsNotification {
		if rpcErr != nil {
			s.logger.Debug("通知 %s 处理失败: %s", msg.Method, rpcErr.Message)
		}
		return nil
	}

	resp := &Response{JSONRPC: jsonrpcVersion, ID: msg.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	return resp
}

// dispatch 执行消息对应的操作，panic 转换为内部错误
func (s *Server) dispatch(ctx context.Context, msg *Message) (result interface{}, rpcErr *RPCError) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("处理 %s 时发生 panic: %v", msg.Method, r)
			result = nil
			rpcErr = newRPCError(CodeInternalError, "Internal error: %v", r)
		}
	}()

	call, rpcErr := DecodeCall(msg.Method, msg.Params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	switch c := call.(type) {
	case InitializeCall:
		return initializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    map[string]interface{}{"tools": map[string]interface{}{}},
			ServerInfo:      serverInfo{Name: serverName, Version: serverVersion},
		}, nil
	case ListToolsCall:
		return listToolsResult{Tools: s.registry.List()}, nil
	case CallToolCall:
		return s.callTool(ctx, c)
	case InitializedNotice:
		return struct{}{}, nil
	default:
		return nil, newRPCError(CodeMethodNotFound, "Method not found: %s", call.methodName())
	}
}

func (s *Server) callTool(ctx context.Context, c CallToolCall) (interface{}, *RPCError) {
	tool, ok := s.registry.Lookup(c.Name)
	if !ok {
		return nil, newRPCError(CodeInvalidParams, "Unknown tool: %s", c.Name)
	}

	s.logger.Info("调用工具 %s", c.Name)
	out, err := tool.Call(ctx, c.Arguments)
	if err != nil {
		if errors.Is(err, ErrInvalidArguments) {
			return nil, newRPCError(CodeInvalidParams, "Invalid params: %v", err)
		}
		s.logger.Error("工具 %s 执行失败: %v", c.Name, err)
		return nil, newRPCError(CodeInternalError, "Internal error: %v", err)
	}

	text, err := cli.RenderJSON(out)
	if err != nil {
		return nil, newRPCError(CodeInternalError, "Internal error: %v", err)
	}
	return callToolResult{
		Content: []textContent{{Type: "text", Text: string(bytes.TrimRight(text, "\n"))}},
	}, nil
}
