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

// Package plan 计划-执行-再计划编排：模型产出结构化计划，
// 逐步执行并在每步后让模型修订计划，直至收敛到报告。
package plan

import (
	"fmt"
)

// 步骤状态只有两个合法值，解析时校验
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Step 计划中的一个步骤
type Step struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// Plan 结构化执行计划
type Plan struct {
	Goal    string `json:"goal"`
	Thought string `json:"thought"`
	Steps   []Step `json:"steps"`
}

// CurrentStep 返回第一个 pending 步骤及其下标；全部完成时 ok 为 false
func (p *Plan) CurrentStep() (step Step, index int, ok bool) {
	for i, s := range p.Steps {
		if s.Status == StatusPending {
			return s, i, true
		}
	}
	return Step{}, 0, false
}

// Validate 校验步骤状态合法性，供解析后的修复判定使用
func (p *Plan) Validate() error {
	for i, s := range p.Steps {
		if s.Status != StatusPending && s.Status != StatusCompleted {
			return fmt.Errorf("步骤 %d 状态非法: %q", i, s.Status)
		}
	}
	return nil
}
