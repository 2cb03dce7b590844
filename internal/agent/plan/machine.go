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
	"encoding/json"
	"fmt"
	"strings"

	"xiaofan-agent/internal/model/llm"
	"xiaofan-agent/pkg/errors"
	"xiaofan-agent/pkg/log"
	"xiaofan-agent/pkg/metrics"
)

// StepRunner 执行单个步骤并返回结果摘要。observations 是此前各步骤的
// 结果，后续步骤要能引用先前产物（文件路径、查询结果）。
// 生产实现是工具增强对话回路；测试用内存实现。
type StepRunner interface {
	RunStep(ctx context.Context, userMessage, stepDescription string, observations []string) (string, error)
}

// Machine 计划执行状态机。节点固定为
// create_planner -> execute -> update_planner -> ... -> report，
// execute 与 update_planner 之间循环直至计划收敛。
type Machine struct {
	client llm.Client
	runner StepRunner
	logger *log.Logger

	// maxRepair 限制 JSON 纠错重试次数，0 表示不限制
	maxRepair int
}

// NewMachine 创建状态机
func NewMachine(client llm.Client, runner StepRunner, logger *log.Logger, maxRepair int) *Machine {
	if logger == nil {
		logger, _ = log.NewLogger(nil)
	}
	return &Machine{client: client, runner: runner, logger: logger, maxRepair: maxRepair}
}

// Run 以用户任务驱动整个计划周期，返回最终报告文本
func (m *Machine) Run(ctx context.Context, userMessage string) (string, error) {
	messages := []llm.Message{
		{Role: "system", Content: planSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(planCreatePrompt, userMessage)},
	}

	m.logger.Info("运行 create_planner 节点")
	p, messages, err := m.invokePlanner(ctx, "create_planner", messages)
	if err != nil {
		return "", err
	}

	var observations []string
	for {
		step, index, ok := p.CurrentStep()
		// 最后一个 pending 步骤视为汇总步骤，直接进报告
		if !ok || index == len(p.Steps)-1 {
			break
		}

		m.logger.Info("运行 execute 节点", "step", step.Title, "index", index)
		result, err := m.runner.RunStep(ctx, userMessage, step.Description, observations)
		if err != nil {
			return "", errors.Wrapf(err, "执行步骤 %q", step.Title)
		}
		observations = append(observations, fmt.Sprintf("步骤「%s」结果：%s", step.Title, result))
		messages = append(messages, llm.Message{Role: "assistant", Content: result})

		m.logger.Info("运行 update_planner 节点")
		planJSON, _ := json.Marshal(p)
		messages = append(messages,
			llm.Message{Role: "system", Content: planSystemPrompt},
			llm.Message{Role: "user", Content: fmt.Sprintf(updatePlanPrompt, string(planJSON), p.Goal)},
		)
		p, messages, err = m.invokePlanner(ctx, "update_planner", messages)
		if err != nil {
			return "", err
		}
	}

	m.logger.Info("运行 report 节点")
	return m.report(ctx, p, observations)
}

// invokePlanner 调用模型产出计划并解析；解析失败时追加纠错消息重试。
// 成功时把规范化后的计划 JSON 作为 assistant 消息写回对话历史。
func (m *Machine) invokePlanner(ctx context.Context, node string, messages []llm.Message) (*Plan, []llm.Message, error) {
	attempts := 0
	for {
		raw, err := m.client.ChatWithContext(ctx, messages, llm.GenerateOptions{Temperature: 0})
		if err != nil {
			return nil, messages, errors.Wrapf(err, "节点 %s 调用模型", node)
		}
		p, perr := ParsePlan(raw)
		if perr == nil {
			normalized, _ := json.Marshal(p)
			messages = append(messages, llm.Message{Role: "assistant", Content: string(normalized)})
			return p, messages, nil
		}

		attempts++
		metrics.PlanRepairTotal.WithLabelValues(node).Inc()
		m.logger.Warn("计划 JSON 解析失败，追加纠错提示重试",
			"node", node, "attempt", attempts, "error", perr)
		if m.maxRepair > 0 && attempts >= m.maxRepair {
			return nil, messages, errors.Wrapf(errors.ErrPlanRepair, "节点 %s 连续 %d 次输出非法计划", node, attempts)
		}
		messages = append(messages, llm.Message{Role: "user", Content: fmt.Sprintf("json格式错误:%v", perr)})
	}
}

func (m *Machine) report(ctx context.Context, p *Plan, observations []string) (string, error) {
	planJSON, _ := json.MarshalIndent(p, "", "  ")
	msgs := []llm.Message{
		{Role: "system", Content: reportSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(reportPrompt, p.Goal, string(planJSON), strings.Join(observations, "\n"))},
	}
	out, err := m.client.ChatWithContext(ctx, msgs, llm.GenerateOptions{})
	if err != nil {
		return "", errors.Wrap(err, "节点 report 调用模型")
	}
	return ExtractAnswer(out), nil
}
