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
	"fmt"

	"github.com/cloudwego/eino/schema"
)

// conversationRunner 工具增强对话入口（*chat.Loop 满足）
type conversationRunner interface {
	RunMessages(ctx context.Context, seed []*schema.Message) (string, error)
}

// LoopRunner 用工具增强对话回路执行单个计划步骤
type LoopRunner struct {
	loop conversationRunner
}

// NewLoopRunner 创建步骤执行器
func NewLoopRunner(loop conversationRunner) *LoopRunner {
	return &LoopRunner{loop: loop}
}

// RunStep 以先前步骤结果加执行提示为种子运行一轮工具对话，
// 返回步骤结果摘要。先前结果作为 assistant 消息进入上下文，
// 当前步骤可以直接引用其中的产物。
func (r *LoopRunner) RunStep(ctx context.Context, userMessage, stepDescription string, observations []string) (string, error) {
	seed := make([]*schema.Message, 0, len(observations)+2)
	seed = append(seed, schema.SystemMessage(executeSystemPrompt))
	for _, obs := range observations {
		seed = append(seed, schema.AssistantMessage(obs, nil))
	}
	seed = append(seed, schema.UserMessage(fmt.Sprintf(executionPrompt, userMessage, stepDescription)))
	out, err := r.loop.RunMessages(ctx, seed)
	if err != nil {
		return "", err
	}
	return ExtractAnswer(out), nil
}
