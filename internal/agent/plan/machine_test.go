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

package plan

import (
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xiaofan-agent/internal/model/llm"
	"xiaofan-agent/pkg/errors"
)

// recordingConversation 记录每次对话种子并返回固定输出
type recordingConversation struct {
	out   string
	seeds [][]*schema.Message
}

func (r *recordingConversation) RunMessages(ctx context.Context, seed []*schema.Message) (string, error) {
	r.seeds = append(r.seeds, seed)
	return r.out, nil
}

// scriptedClient 按脚本逐次返回响应，并保留每次收到的完整对话
type scriptedClient struct {
	responses []string
	calls     [][]llm.Message
}

func (c *scriptedClient) ChatWithContext(ctx context.Context, messages []llm.Message, options llm.GenerateOptions) (string, error) {
	snapshot := make([]llm.Message, len(messages))
	copy(snapshot, messages)
	c.calls = append(c.calls, snapshot)
	if len(c.responses) == 0 {
		return "", nil
	}
	resp := c.responses[0]
	if len(c.responses) > 1 {
		c.responses = c.responses[1:]
	}
	return resp, nil
}

func (c *scriptedClient) Chat(messages []llm.Message, options llm.GenerateOptions) (string, error) {
	return c.ChatWithContext(context.Background(), messages, options)
}

func (c *scriptedClient) Generate(prompt string, options llm.GenerateOptions) (string, error) {
	return c.Chat([]llm.Message{{Role: "user", Content: prompt}}, options)
}

func (c *scriptedClient) GenerateWithContext(ctx context.Context, prompt string, options llm.GenerateOptions) (string, error) {
	return c.ChatWithContext(ctx, []llm.Message{{Role: "user", Content: prompt}}, options)
}

func (c *scriptedClient) Model() string    { return "scripted" }
func (c *scriptedClient) Provider() string { return "test" }

type fakeRunner struct {
	steps   []string
	seen    [][]string
	results []string
	result  string
}

func (f *fakeRunner) RunStep(ctx context.Context, userMessage, stepDescription string, observations []string) (string, error) {
	f.steps = append(f.steps, stepDescription)
	snapshot := make([]string, len(observations))
	copy(snapshot, observations)
	f.seen = append(f.seen, snapshot)
	if len(f.results) > 0 {
		r := f.results[0]
		f.results = f.results[1:]
		return r, nil
	}
	return f.result, nil
}

const onePendingLastStepPlan = `{
  "goal": "分析文档",
  "thought": "直接汇总",
  "steps": [
    {"title": "汇总", "description": "生成报告", "status": "pending"}
  ]
}`

func TestExtract_ThinkAndFence(t *testing.T) {
	raw := "思考过程...</think>\n结论：\n```json\n{\"goal\":\"g\",\"thought\":\"t\",\"steps\":[]}\n```"
	p, err := ParsePlan(raw)
	require.NoError(t, err)
	assert.Equal(t, "g", p.Goal)
	assert.Empty(t, p.Steps)
}

func TestParsePlan_RejectsUnknownStatus(t *testing.T) {
	_, err := ParsePlan(`{"goal":"g","steps":[{"title":"a","description":"d","status":"running"}]}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "状态非法")
}

func TestRun_RepairTwiceThenSucceed(t *testing.T) {
	client := &scriptedClient{responses: []string{
		"这不是JSON",
		"```json\n{\"goal\":\"g\",\"steps\":[{\"title\":\"a\",\"status\":\"没做\"}]}\n```",
		onePendingLastStepPlan,
		"最终报告",
	}}
	m := NewMachine(client, &fakeRunner{}, nil, 0)

	out, err := m.Run(context.Background(), "分析文档")
	require.NoError(t, err)
	assert.Equal(t, "最终报告", out)

	// 第三次建计划调用前，对话里应恰好有两条纠错消息
	require.GreaterOrEqual(t, len(client.calls), 3)
	third := client.calls[2]
	var corrections int
	for _, msg := range third {
		if msg.Role == "user" && strings.HasPrefix(msg.Content, "json格式错误:") {
			corrections++
		}
	}
	assert.Equal(t, 2, corrections)
}

func TestRun_LastPendingStepGoesStraightToReport(t *testing.T) {
	client := &scriptedClient{responses: []string{onePendingLastStepPlan, "报告内容"}}
	runner := &fakeRunner{}
	m := NewMachine(client, runner, nil, 5)

	out, err := m.Run(context.Background(), "任务")
	require.NoError(t, err)
	assert.Equal(t, "报告内容", out)
	assert.Empty(t, runner.steps, "最后一个待执行步骤不应进入执行节点")
}

func TestRun_ExecutesPendingStepsThenReports(t *testing.T) {
	created := `{
  "goal": "查询并汇总",
  "thought": "先查再汇总",
  "steps": [
    {"title": "查询", "description": "执行查询", "status": "pending"},
    {"title": "汇总", "description": "生成报告", "status": "pending"}
  ]
}`
	updated := `{
  "goal": "查询并汇总",
  "thought": "先查再汇总",
  "steps": [
    {"title": "查询", "description": "执行查询", "status": "completed"},
    {"title": "汇总", "description": "生成报告", "status": "pending"}
  ]
}`
	client := &scriptedClient{responses: []string{created, updated, "综合报告"}}
	runner := &fakeRunner{result: "查询返回 3 条记录"}
	m := NewMachine(client, runner, nil, 5)

	out, err := m.Run(context.Background(), "查询产品")
	require.NoError(t, err)
	assert.Equal(t, "综合报告", out)
	require.Len(t, runner.steps, 1)
	assert.Equal(t, "执行查询", runner.steps[0])

	// 报告调用应携带步骤结果
	last := client.calls[len(client.calls)-1]
	assert.Contains(t, last[len(last)-1].Content, "查询返回 3 条记录")
}

func TestRun_LaterStepsSeeEarlierResults(t *testing.T) {
	created := `{
  "goal": "分析产物",
  "steps": [
    {"title": "导出", "description": "导出数据", "status": "pending"},
    {"title": "分析", "description": "分析上一步的产物", "status": "pending"},
    {"title": "汇总", "description": "生成报告", "status": "pending"}
  ]
}`
	afterFirst := `{
  "goal": "分析产物",
  "steps": [
    {"title": "导出", "description": "导出数据", "status": "completed"},
    {"title": "分析", "description": "分析上一步的产物", "status": "pending"},
    {"title": "汇总", "description": "生成报告", "status": "pending"}
  ]
}`
	afterSecond := `{
  "goal": "分析产物",
  "steps": [
    {"title": "导出", "description": "导出数据", "status": "completed"},
    {"title": "分析", "description": "分析上一步的产物", "status": "completed"},
    {"title": "汇总", "description": "生成报告", "status": "pending"}
  ]
}`
	client := &scriptedClient{responses: []string{created, afterFirst, afterSecond, "报告"}}
	runner := &fakeRunner{results: []string{"结果文件位于 /tmp/out_ABC123.csv", "分析完成"}}
	m := NewMachine(client, runner, nil, 5)

	_, err := m.Run(context.Background(), "任务")
	require.NoError(t, err)

	// 第二步执行时必须能看到第一步的产物
	require.Len(t, runner.seen, 2)
	assert.Empty(t, runner.seen[0])
	require.Len(t, runner.seen[1], 1)
	assert.Contains(t, runner.seen[1][0], "/tmp/out_ABC123.csv")
}

func TestLoopRunner_SeedsObservationsBeforeStepPrompt(t *testing.T) {
	conv := &recordingConversation{out: "done"}
	r := NewLoopRunner(conv)

	_, err := r.RunStep(context.Background(), "任务", "分析上一步的产物",
		[]string{"步骤「导出」结果：结果文件位于 /tmp/out_ABC123.csv"})
	require.NoError(t, err)

	require.Len(t, conv.seeds, 1)
	seed := conv.seeds[0]
	require.Len(t, seed, 3)
	assert.Contains(t, seed[1].Content, "/tmp/out_ABC123.csv")
	assert.Contains(t, seed[2].Content, "分析上一步的产物")
}

func TestRun_UpdatePlannerRepairsBadJSON(t *testing.T) {
	created := `{
  "goal": "查询并汇总",
  "steps": [
    {"title": "查询", "description": "执行查询", "status": "pending"},
    {"title": "汇总", "description": "生成报告", "status": "pending"}
  ]
}`
	updated := `{
  "goal": "查询并汇总",
  "steps": [
    {"title": "查询", "description": "执行查询", "status": "completed"},
    {"title": "汇总", "description": "生成报告", "status": "pending"}
  ]
}`
	client := &scriptedClient{responses: []string{created, "更新失败了不是JSON", updated, "报告"}}
	m := NewMachine(client, &fakeRunner{result: "ok"}, nil, 5)

	out, err := m.Run(context.Background(), "任务")
	require.NoError(t, err)
	assert.Equal(t, "报告", out)

	// 修复成功的那次调用，末尾应是一条纠错消息
	require.GreaterOrEqual(t, len(client.calls), 3)
	repaired := client.calls[2]
	assert.True(t, strings.HasPrefix(repaired[len(repaired)-1].Content, "json格式错误:"))
}

func TestRun_UpdatePlannerRepairTwiceThenSucceed(t *testing.T) {
	created := `{
  "goal": "查询并汇总",
  "steps": [
    {"title": "查询", "description": "执行查询", "status": "pending"},
    {"title": "汇总", "description": "生成报告", "status": "pending"}
  ]
}`
	updated := `{
  "goal": "查询并汇总",
  "steps": [
    {"title": "查询", "description": "执行查询", "status": "completed"},
    {"title": "汇总", "description": "生成报告", "status": "pending"}
  ]
}`
	client := &scriptedClient{responses: []string{
		created,
		"第一次不是JSON",
		"```json\n{\"goal\":\"g\",\"steps\":[{\"title\":\"a\",\"status\":\"进行中\"}]}\n```",
		updated,
		"报告",
	}}
	m := NewMachine(client, &fakeRunner{result: "ok"}, nil, 5)

	out, err := m.Run(context.Background(), "任务")
	require.NoError(t, err)
	assert.Equal(t, "报告", out)

	// 第三次更新调用（全局第 4 次）前，更新提示之后应恰好有两条纠错消息
	require.GreaterOrEqual(t, len(client.calls), 4)
	third := client.calls[3]
	var corrections int
	for _, msg := range third {
		if msg.Role == "user" && strings.HasPrefix(msg.Content, "json格式错误:") {
			corrections++
		}
	}
	assert.Equal(t, 2, corrections)
}

func TestRun_RepairCapExhaustionFails(t *testing.T) {
	client := &scriptedClient{responses: []string{"永远不是JSON"}}
	m := NewMachine(client, &fakeRunner{}, nil, 3)

	_, err := m.Run(context.Background(), "任务")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPlanRepair))
	assert.Len(t, client.calls, 3)
}
