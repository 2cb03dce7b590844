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

package chat

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xiaofan-agent/internal/tool"
)

// scriptedModel 按预置脚本逐轮返回响应
type scriptedModel struct {
	responses []*schema.Message
	turn      int
	boundWith []*schema.ToolInfo
	seen      [][]*schema.Message
}

func (m *scriptedModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.seen = append(m.seen, in)
	if m.turn >= len(m.responses) {
		// 脚本耗尽后持续请求工具，用于验证轮次上限
		return &schema.Message{
			Role: schema.Assistant,
			ToolCalls: []schema.ToolCall{{
				ID:       fmt.Sprintf("call-%d", m.turn),
				Function: schema.FunctionCall{Name: "server0_echo", Arguments: `{"text":"again"}`},
			}},
		}, nil
	}
	resp := m.responses[m.turn]
	m.turn++
	return resp, nil
}

func (m *scriptedModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("not implemented")
}

func (m *scriptedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.boundWith = tools
	return m, nil
}

// recordDispatcher 记录派发顺序并返回固定内容
type recordDispatcher struct {
	infos    []*schema.ToolInfo
	calls    []tool.Call
	contents map[string]string
}

func (d *recordDispatcher) ToolInfos() []*schema.ToolInfo { return d.infos }

func (d *recordDispatcher) Dispatch(ctx context.Context, call tool.Call) tool.Result {
	d.calls = append(d.calls, call)
	content, ok := d.contents[call.Name]
	if !ok {
		return tool.Result{CallID: call.ID, Content: "工具 " + call.Name + " 未找到", IsError: true}
	}
	return tool.Result{CallID: call.ID, Content: content}
}

func toolInfo(name string) *schema.ToolInfo {
	return &schema.ToolInfo{
		Name:        name,
		Desc:        "test tool",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
	}
}

func TestLoop_NoToolCallsTerminatesImmediately(t *testing.T) {
	m := &scriptedModel{responses: []*schema.Message{
		{Role: schema.Assistant, Content: "你好，有什么可以帮您？"},
	}}
	d := &recordDispatcher{infos: []*schema.ToolInfo{toolInfo("server0_echo")}, contents: map[string]string{}}

	out, err := NewLoop(m, d, nil, 8).Run(context.Background(), "你好")
	require.NoError(t, err)
	assert.Equal(t, "你好，有什么可以帮您？", out)
	assert.Empty(t, d.calls)
	assert.Len(t, m.boundWith, 1, "有工具时必须绑定工具列表")
}

func TestLoop_DispatchesInModelOrderAndFeedsResultsBack(t *testing.T) {
	m := &scriptedModel{responses: []*schema.Message{
		{
			Role: schema.Assistant,
			ToolCalls: []schema.ToolCall{
				{ID: "call-a", Function: schema.FunctionCall{Name: "server0_list_tables", Arguments: `{}`}},
				{ID: "call-b", Function: schema.FunctionCall{Name: "server1_execute_sql", Arguments: `{"sql":"SELECT 1"}`}},
			},
		},
		{Role: schema.Assistant, Content: "查询完成"},
	}}
	d := &recordDispatcher{
		infos: []*schema.ToolInfo{toolInfo("server0_list_tables"), toolInfo("server1_execute_sql")},
		contents: map[string]string{
			"server0_list_tables": "products",
			"server1_execute_sql": "1",
		},
	}

	out, err := NewLoop(m, d, nil, 8).Run(context.Background(), "列出表")
	require.NoError(t, err)

	require.Len(t, d.calls, 2)
	assert.Equal(t, "server0_list_tables", d.calls[0].Name)
	assert.Equal(t, "server1_execute_sql", d.calls[1].Name)
	assert.Equal(t, map[string]any{"sql": "SELECT 1"}, d.calls[1].Arguments)

	// 第二轮对话必须携带两条工具结果消息
	require.Len(t, m.seen, 2)
	second := m.seen[1]
	var toolMsgs []*schema.Message
	for _, msg := range second {
		if msg.Role == schema.Tool {
			toolMsgs = append(toolMsgs, msg)
		}
	}
	require.Len(t, toolMsgs, 2)
	assert.Equal(t, "call-a", toolMsgs[0].ToolCallID)
	assert.Equal(t, "products", toolMsgs[0].Content)
	assert.Equal(t, "call-b", toolMsgs[1].ToolCallID)

	assert.Contains(t, out, "查询完成")
	assert.Contains(t, out, "工具返回：products")
}

func TestLoop_ToolFailureDoesNotAbortConversation(t *testing.T) {
	m := &scriptedModel{responses: []*schema.Message{
		{
			Role: schema.Assistant,
			ToolCalls: []schema.ToolCall{
				{ID: "call-x", Function: schema.FunctionCall{Name: "server0_missing", Arguments: `{}`}},
			},
		},
		{Role: schema.Assistant, Content: "该工具不可用，已跳过"},
	}}
	d := &recordDispatcher{infos: []*schema.ToolInfo{toolInfo("server0_echo")}, contents: map[string]string{}}

	out, err := NewLoop(m, d, nil, 8).Run(context.Background(), "查询")
	require.NoError(t, err)
	assert.Contains(t, out, "未找到")
	assert.Contains(t, out, "该工具不可用，已跳过")
}

func TestLoop_BadArgumentsBecomeErrorResult(t *testing.T) {
	m := &scriptedModel{responses: []*schema.Message{
		{
			Role: schema.Assistant,
			ToolCalls: []schema.ToolCall{
				{ID: "call-y", Function: schema.FunctionCall{Name: "server0_echo", Arguments: `{broken`}},
			},
		},
		{Role: schema.Assistant, Content: "参数异常"},
	}}
	d := &recordDispatcher{infos: []*schema.ToolInfo{toolInfo("server0_echo")}, contents: map[string]string{"server0_echo": "ok"}}

	out, err := NewLoop(m, d, nil, 8).Run(context.Background(), "查询")
	require.NoError(t, err)
	assert.Empty(t, d.calls, "参数非法时不应派发")
	assert.Contains(t, out, "参数解析失败")
}

func TestLoop_MaxTurnsBoundsIteration(t *testing.T) {
	// 脚本为空：模型每轮都请求工具，回路必须在上限处截断
	m := &scriptedModel{}
	d := &recordDispatcher{
		infos:    []*schema.ToolInfo{toolInfo("server0_echo")},
		contents: map[string]string{"server0_echo": "echo"},
	}

	out, err := NewLoop(m, d, nil, 3).Run(context.Background(), "不停调用")
	require.NoError(t, err)
	assert.Len(t, d.calls, 3)
	assert.Contains(t, out, "轮次上限")
}
