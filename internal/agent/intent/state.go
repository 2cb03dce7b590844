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

// Package intent 产品推荐意图路由：意图识别、产品检索、澄清、
// 结果生成四类节点在图上流转，直到产出最终回答。
package intent

// 意图取值
const (
	IntentDetailSearch = "detail_search"
	IntentMumbleSearch = "mumble_search"
)

// ProductParams detail_search 提取出的型号与参数约束
type ProductParams struct {
	Models   []string          `json:"models"`
	Criteria map[string]string `json:"criteria"`
}

// AgentState 图上流转的会话状态
type AgentState struct {
	UserInput string `json:"user_input"`

	Intent        string        `json:"intent"`
	ProductLines  []string      `json:"product_lines"`
	ProductParams ProductParams `json:"product_params"`

	// ProductInfo 检索节点产出的产品信息文本，空表示没查到
	ProductInfo string `json:"product_info"`

	ClarificationNeeded   bool   `json:"clarification_needed"`
	ClarificationQuestion string `json:"clarification_question"`
	ClarificationAnswer   string `json:"clarification_answer"`
	ClarificationCount    int    `json:"clarification_count"`

	Response string `json:"response"`

	// Messages 各节点产出的消息轨迹，按发生顺序追加
	Messages []string `json:"messages"`
}
