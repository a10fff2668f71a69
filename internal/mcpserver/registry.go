package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrInvalidArguments 工具参数无法解码
var ErrInvalidArguments = errors.New("invalid tool arguments")

type Property struct {
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Default     interface{} `json:"default,omitempty"`
}

type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

type ToolDescriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// Tool 可被 tools/call 调用的工具
type Tool interface {
	Descriptor() ToolDescriptor
	Call(ctx context.Context, arguments json.RawMessage) (interface{}, error)
}

// Registry 只负责声明和查找，不执行工具
type Registry struct {
	names []string
	index map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{index: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

func (r *Registry) Register(t Tool) {
	name := t.Descriptor().Name
	if _, exists := r.index[name]; !exists {
		r.names = append(r.names, name)
	}
	r.index[name] = t
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.index[name]
	return t, ok
}

// List 按注册顺序返回工具声明
func (r *Registry) List() []ToolDescriptor {
	descriptors := make([]ToolDescriptor, 0, len(r.names))
	for _, name := range r.names {
		descriptors = append(descriptors, r.index[name].Descriptor())
	}
	return descriptors
}
