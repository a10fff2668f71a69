package mcpserver

import (
	"encoding/json"
	"fmt"
)

const (
	jsonrpcVersion  = "2.0"
	protocolVersion = "2024-11-05"
	serverName      = "directory-scanner"
	serverVersion   = "1.0.0"
)

// JSON-RPC 错误码
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

const (
	MethodInitialize  = "initialize"
	MethodListTools   = "tools/list"
	MethodCallTool    = "tools/call"
	MethodInitialized = "notifications/initialized"
)

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func newRPCError(code int, format string, args ...interface{}) *RPCError {
	return &RPCError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Response 成功时只有 Result，失败时只有 Error
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Message 一行输入解析后的消息。没有 id 字段的是通知。
type Message struct {
	ID             json.RawMessage
	IsNotification bool
	Method         string
	Params         json.RawMessage
}

// ParseMessage 解析单行输入，非 JSON 对象一律视为解析错误
func ParseMessage(line []byte) (*Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("message must be a JSON object")
	}

	msg := &Message{Params: fields["params"]}
	id, ok := fields["id"]
	msg.IsNotification = !ok
	msg.ID = id

	if raw, ok := fields["method"]; ok {
		if err := json.Unmarshal(raw, &msg.Method); err != nil {
			return nil, fmt.Errorf("method must be a string: %w", err)
		}
	}
	return msg, nil
}

// Call 已识别方法的带标签变体
type Call interface {
	methodName() string
}

type InitializeCall struct {
	Params json.RawMessage
}

type ListToolsCall struct{}

type CallToolCall struct {
	Name      string
	Arguments json.RawMessage
}

type InitializedNotice struct{}

type UnknownCall struct {
	Method string
}

func (InitializeCall) methodName() string    { return MethodInitialize }
func (ListToolsCall) methodName() string     { return MethodListTools }
func (CallToolCall) methodName() string      { return MethodCallTool }
func (InitializedNotice) methodName() string { return MethodInitialized }
func (c UnknownCall) methodName() string     { return c.Method }

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// DecodeCall 把方法名和参数转换为对应的变体
func DecodeCall(method string, params json.RawMessage) (Call, *RPCError) {
	switch method {
	case MethodInitialize:
		return InitializeCall{Params: params}, nil
	case MethodListTools:
		return ListToolsCall{}, nil
	case MethodCallTool:
		var p callToolParams
		if len(params) > 0 && string(params) != "null" {
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, newRPCError(CodeInvalidParams, "Invalid params: %v", err)
			}
		}
		return CallToolCall{Name: p.Name, Arguments: p.Arguments}, nil
	case MethodInitialized:
		return InitializedNotice{}, nil
	default:
		return UnknownCall{Method: method}, nil
	}
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      serverInfo             `json:"serverInfo"`
}

type listToolsResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type callToolResult struct {
	Content []textContent `json:"content"`
}
