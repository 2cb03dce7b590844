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
	"encoding/json"
	"strings"
)

// ExtractAnswer 去掉推理模型输出中的思考段，保留 </think> 之后的正文
func ExtractAnswer(text string) string {
	if idx := strings.LastIndex(text, "</think>"); idx >= 0 {
		return strings.TrimSpace(text[idx+len("</think>"):])
	}
	return text
}

// ExtractJSON 剥掉 ```json 围栏，没有围栏时原样返回
func ExtractJSON(text string) string {
	if !strings.Contains(text, "```json") {
		return text
	}
	after := strings.SplitN(text, "```json", 2)[1]
	return strings.TrimSpace(strings.SplitN(after, "```", 2)[0])
}

// ParsePlan 从模型原始输出解析计划。任何结构或状态错误都返回 error，
// 由调用方决定是否带纠错提示重试。
func ParsePlan(raw string) (*Plan, error) {
	cleaned := ExtractJSON(ExtractAnswer(raw))
	var p Plan
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
