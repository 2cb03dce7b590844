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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"xiaofan-agent/internal/tool"
	"xiaofan-agent/pkg/log"
)

// Dispatcher 回路依赖的目录操作子集（*router.Catalog 满足）
type Dispatcher interface {
	ToolInfos() []*schema.ToolInfo
	Dispatch(ctx context.Context, call tool.Call) tool.Result
}

// Loop 工具增强对话回路：模型调用与工具派发交替，
// 直到模型不再请求工具为止。
type Loop struct {
	model    model.ToolCallingChatModel
	catalog  Dispatcher
	logger   *log.Logger
	maxTurns int
}

// NewLoop 创建回路。maxTurns <=0 使用默认 8，防止模型持续请求工具导致不终止。
func NewLoop(m model.ToolCallingChatModel, catalog Dispatcher, logger *log.Logger, maxTurns int) *Loop {
	if maxTurns <= 0 {
		maxTurns = 8
	}
	if logger == nil {
		logger, _ = log.NewLogger(nil)
	}
	return &Loop{model: m, catalog: catalog, logger: logger, maxTurns: maxTurns}
}

// Run 处理一次用户查询，返回全部助手可见文本片段按产生顺序的拼接。
func (l *Loop) Run(ctx context.Context, query string) (string, error) {
	return l.RunMessages(ctx, []*schema.Message{schema.UserMessage(query)})
}

// RunMessages 以给定初始对话运行回路（计划执行节点以步骤描述作为种子复用此入口）。
func (l *Loop) RunMessages(ctx context.Context, seed []*schema.Message) (string, error) {
	logger := &log.Logger{Logger: l.logger.With("request_id", uuid.NewString())}

	m := l.model
	infos := l.catalog.ToolInfos()
	if len(infos) > 0 {
		bound, err := l.model.WithTools(infos)
		if err != nil {
			return "", fmt.Errorf("绑定工具列表 failed: %w", err)
		}
		m = bound
	}

	messages := make([]*schema.Message, 0, len(seed)+8)
	messages = append(messages, seed...)

	var finalText []string
	for turn := 0; ; turn++ {
		if turn >= l.maxTurns {
			logger.Warn("工具调用轮次达到上限，提前结束", "max_turns", l.maxTurns)
			finalText = append(finalText, "（已达到工具调用轮次上限，以下为现有结果）")
			break
		}

		resp, err := m.Generate(ctx, messages)
		if err != nil {
			return "", fmt.Errorf("模型调用 failed: %w", err)
		}
		messages = append(messages, resp)
		if resp.Content != "" {
			finalText = append(finalText, resp.Content)
		}
		if len(resp.ToolCalls) == 0 {
			break
		}

		// 按模型返回顺序逐个派发，不重排
		for _, tc := range resp.ToolCalls {
			call := tool.Call{ID: tc.ID, Name: tc.Function.Name}
			if tc.Function.Arguments != "" {
				if err := json.Unmarshal([]byte(tc.Function.Arguments), &call.Arguments); err != nil {
					logger.Warn("工具参数不是合法 JSON", "tool", tc.Function.Name, "error", err)
					res := tool.Result{
						CallID:  tc.ID,
						Content: fmt.Sprintf("工具 %s 参数解析失败：%v", tc.Function.Name, err),
						IsError: true,
					}
					finalText = append(finalText, res.Content)
					messages = append(messages, schema.ToolMessage(res.Content, res.CallID))
					continue
				}
			}
			res := l.catalog.Dispatch(ctx, call)
			finalText = append(finalText, fmt.Sprintf("[调用工具 %s 参数：%v]", call.Name, call.Arguments))
			finalText = append(finalText, "工具返回："+res.Content)
			messages = append(messages, schema.ToolMessage(res.Content, res.CallID))
		}
	}
	return strings.Join(finalText, "\n"), nil
}
