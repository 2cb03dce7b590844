// Package tool 定义跨会话统一的工具描述与调用类型
package tool

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Descriptor 展平后的工具描述。Qualified 在整个目录内唯一
// （会话标识前缀保证不同服务的同名工具不冲突）。
type Descriptor struct {
	Qualified   string              `json:"qualified_name"`
	Name        string              `json:"original_name"`
	Description string              `json:"description"`
	InputSchema mcp.ToolInputSchema `json:"input_schema"`
}

// Call 模型请求的一次工具调用，由路由消费且仅消费一次
type Call struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"` // 限定名
	Arguments map[string]any `json:"arguments"`
}

// Result 工具调用结果。失败时 Content 为可读错误描述，
// 不向上抛异常，避免单个工具失败中断整轮对话。
type Result struct {
	CallID  string `json:"call_id"`
	Content string `json:"content"`
	IsError bool   `json:"is_error"`
}
