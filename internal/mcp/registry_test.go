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
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xiaofan-agent/pkg/errors"
)

// fakeClient 内存版 MCP 客户端
type fakeClient struct {
	tools    []mcp.Tool
	callErr  error
	closed   bool
	closeErr error
	calls    []string
}

func (f *fakeClient) Start(ctx context.Context) error { return nil }
func (f *fakeClient) Initialize(ctx context.Context, request mcp.InitializeRequest) (*mcp.InitializeResult, error) {
	return &mcp.InitializeResult{}, nil
}
func (f *fakeClient) ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	return &mcp.ListToolsResult{Tools: f.tools}, nil
}
func (f *fakeClient) CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f.calls = append(f.calls, request.Params.Name)
	if f.callErr != nil {
		return nil, f.callErr
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "result of " + request.Params.Name}},
	}, nil
}
func (f *fakeClient) Close() error {
	f.closed = true
	return f.closeErr
}

// withDialer 替换 dialSSE，测试结束后恢复
func withDialer(t *testing.T, dial func(ctx context.Context, addr string) (mcpClient, error)) {
	t.Helper()
	orig := dialSSE
	dialSSE = dial
	t.Cleanup(func() { dialSSE = orig })
}

func TestOpen_FailFastClosesEarlierSessions(t *testing.T) {
	first := &fakeClient{}
	withDialer(t, func(ctx context.Context, addr string) (mcpClient, error) {
		if addr == "http://a/sse" {
			return first, nil
		}
		return nil, fmt.Errorf("dial refused")
	})

	_, err := Open(context.Background(), []string{"http://a/sse", "http://b/sse"}, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConnection))
	assert.Contains(t, err.Error(), "http://b/sse")
	assert.True(t, first.closed, "先建立的会话应在整体失败时被回收")
}

func TestOpen_NoAddrs(t *testing.T) {
	_, err := Open(context.Background(), nil, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidArg))
}

func TestRegistry_CloseAttemptsAllSessions(t *testing.T) {
	a := &fakeClient{closeErr: fmt.Errorf("close a failed")}
	b := &fakeClient{}
	clients := map[string]*fakeClient{"http://a/sse": a, "http://b/sse": b}
	withDialer(t, func(ctx context.Context, addr string) (mcpClient, error) {
		return clients[addr], nil
	})

	r, err := Open(context.Background(), []string{"http://a/sse", "http://b/sse"}, Options{})
	require.NoError(t, err)

	err = r.Close()
	require.Error(t, err, "首个关闭错误应被返回")
	assert.True(t, a.closed)
	assert.True(t, b.closed, "前序会话出错不应阻止后续回收")

	// 重复关闭为空操作，返回同一错误
	assert.Equal(t, err, r.Close())
}

func TestSession_CallTool(t *testing.T) {
	fc := &fakeClient{}
	withDialer(t, func(ctx context.Context, addr string) (mcpClient, error) { return fc, nil })

	r, err := Open(context.Background(), []string{"http://a/sse"}, Options{})
	require.NoError(t, err)
	sess := r.Sessions()[0]
	assert.Equal(t, "server0", sess.ID())

	content, isErr, err := sess.CallTool(context.Background(), "list_tables", map[string]any{})
	require.NoError(t, err)
	assert.False(t, isErr)
	assert.Equal(t, "result of list_tables", content)

	require.NoError(t, r.Close())
	_, _, err = sess.CallTool(context.Background(), "list_tables", nil)
	assert.Error(t, err, "关闭后调用应报错")
}
