// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// mcpClient Session 依赖的 MCP 客户端操作子集（测试可替换）
type mcpClient interface {
	Start(ctx context.Context) error
	Initialize(ctx context.Context, request mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// dialSSE 建立并初始化一条 SSE 连接；包级变量便于测试注入
var dialSSE = func(ctx context.Context, addr string) (mcpClient, error) {
	c, err := client.NewSSEMCPClient(addr)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "xiaofan-agent", Version: "0.1.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Session 到单个工具服务的双向会话。
// CallTool 由 mu 串行化：同一条传输通道上不允许并发在途调用，
// 否则响应与请求的关联会被打乱。
type Session struct {
	id      string
	addr    string
	client  mcpClient
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

// ID 会话标识（server0、server1 …，按启动时地址顺序分配）
func (s *Session) ID() string { return s.id }

// Addr 会话对应的服务地址
func (s *Session) Addr() string { return s.addr }

// ListTools 查询会话的工具目录。目录不保证跨调用不变，调用方不应长期缓存。
func (s *Session) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("会话 %s 已关闭", s.id)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	result, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("查询 %s 工具目录 failed: %w", s.addr, err)
	}
	return result.Tools, nil
}

// CallTool 调用会话上的工具，返回文本内容与工具侧错误标记。
// 传输层错误以 error 返回，由上层路由转为失败 ToolResult。
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, fmt.Errorf("会话 %s 已关闭", s.id)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := s.client.CallTool(ctx, req)
	if err != nil {
		return "", false, err
	}
	return flattenContent(result.Content), result.IsError, nil
}

// close 关闭底层连接；重复关闭为空操作
func (s *Session) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}

// flattenContent 取出所有文本内容拼接（非文本内容忽略）
func flattenContent(contents []mcp.Content) string {
	var out string
	for _, c := range contents {
		if tc, ok := c.(mcp.TextContent); ok {
			if out != "" {
				out += "\n"
			}
			out += tc.Text
		}
	}
	return out
}
