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

package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/schema"

	"xiaofan-agent/internal/model/llm"
	"xiaofan-agent/pkg/log"
	"xiaofan-agent/pkg/metrics"
)

// Answerer 向用户提出澄清问题并取回回答（命令行实现读标准输入）
type Answerer interface {
	Ask(ctx context.Context, question string) (string, error)
}

// searchRunner 工具增强对话入口，检索节点用它查库（*chat.Loop 满足）
type searchRunner interface {
	RunMessages(ctx context.Context, seed []*schema.Message) (string, error)
}

// Nodes 图节点集合及其共享依赖
type Nodes struct {
	client   llm.Client
	search   searchRunner
	answerer Answerer
	logger   *log.Logger

	// clarificationLimit 澄清次数上限，超过后放弃并给出固定话术
	clarificationLimit int
}

// NewNodes 创建节点集合。limit <=0 使用默认 3。
func NewNodes(client llm.Client, search searchRunner, answerer Answerer, logger *log.Logger, limit int) *Nodes {
	if limit <= 0 {
		limit = 3
	}
	if logger == nil {
		logger, _ = log.NewLogger(nil)
	}
	return &Nodes{client: client, search: search, answerer: answerer, logger: logger, clarificationLimit: limit}
}

var jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

func extractJSONBlock(text string) string {
	if m := jsonFenceRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return strings.TrimSpace(text)
}

// intentResult 意图识别节点期望的模型输出结构
type intentResult struct {
	QueryType             string        `json:"query_type"`
	ProductLines          []string      `json:"product_lines"`
	Parameters            ProductParams `json:"parameters"`
	ClarificationNeeded   bool          `json:"clarification_needed"`
	ClarificationQuestion string        `json:"clarification_question"`
}

// intentDetection 识别用户意图。模型输出无法解析时不报错，
// 退化为固定澄清问题，让图继续走澄清分支。
func (n *Nodes) intentDetection(ctx context.Context, state *AgentState) (*AgentState, error) {
	query := state.UserInput
	if state.ClarificationAnswer != "" {
		query = query + "\n补充说明：" + state.ClarificationAnswer
	}

	var result intentResult
	raw, err := n.client.GenerateWithContext(ctx, fmt.Sprintf(intentPrompt, query), llm.GenerateOptions{Temperature: 0})
	if err == nil {
		err = json.Unmarshal([]byte(extractJSONBlock(raw)), &result)
	}
	if err != nil {
		n.logger.Warn("意图识别结果不可用，进入澄清", "error", err)
		result = intentResult{
			ClarificationNeeded:   true,
			ClarificationQuestion: fallbackClarifyQuestion,
		}
	}

	state.Intent = result.QueryType
	state.ProductLines = result.ProductLines
	state.ProductParams = result.Parameters
	state.ClarificationNeeded = result.ClarificationNeeded
	state.ClarificationQuestion = result.ClarificationQuestion
	n.logger.Info("意图识别完成",
		"intent", state.Intent, "product_lines", state.ProductLines, "clarify", state.ClarificationNeeded)
	state.Messages = append(state.Messages, fmt.Sprintf("intent: %s %v", state.Intent, state.ProductLines))
	return state, nil
}

// mumbleSearch 按品类/应用场景在限定产品线内检索。
// 检索失败视为未查到，由后继分支转澄清，不中断整个图。
func (n *Nodes) mumbleSearch(ctx context.Context, state *AgentState) (*AgentState, error) {
	seed := []*schema.Message{
		schema.SystemMessage("请根据用户需求返回产品信息。"),
		schema.UserMessage(fmt.Sprintf(mumbleSearchPrompt, state.UserInput, strings.Join(state.ProductLines, "、"))),
	}
	state.ProductInfo = n.runSearch(ctx, "mumble_search", seed)
	state.Messages = append(state.Messages, "mumble_search: "+state.ProductInfo)
	return state, nil
}

// detailSearch 按型号/参数约束检索
func (n *Nodes) detailSearch(ctx context.Context, state *AgentState) (*AgentState, error) {
	criteria, _ := json.Marshal(state.ProductParams.Criteria)
	seed := []*schema.Message{
		schema.SystemMessage("请根据用户需求返回产品信息。"),
		schema.UserMessage(fmt.Sprintf(detailSearchPrompt,
			state.UserInput,
			strings.Join(state.ProductLines, "、"),
			strings.Join(state.ProductParams.Models, "、"),
			string(criteria),
		)),
	}
	state.ProductInfo = n.runSearch(ctx, "detail_search", seed)
	state.Messages = append(state.Messages, "detail_search: "+state.ProductInfo)
	return state, nil
}

func (n *Nodes) runSearch(ctx context.Context, node string, seed []*schema.Message) string {
	out, err := n.search.RunMessages(ctx, seed)
	if err != nil {
		n.logger.Error("产品检索 failed", "node", node, "error", err)
		return ""
	}
	out = strings.TrimSpace(out)
	if out == "" || out == "[]" {
		return ""
	}
	return out
}

// clarification 向用户追问。超过次数上限后放弃并清空意图，
// 由后继分支直接结束。
func (n *Nodes) clarification(ctx context.Context, state *AgentState) (*AgentState, error) {
	if state.ClarificationQuestion == "" {
		state.ClarificationQuestion = defaultClarifyQuestion
	}
	state.ClarificationCount++
	if state.ClarificationCount > n.clarificationLimit {
		n.logger.Warn("澄清次数超限，放弃本轮会话", "count", state.ClarificationCount)
		metrics.ClarificationEndTotal.Inc()
		state.Response = giveUpResponse
		state.Intent = ""
		return state, nil
	}

	answer, err := n.answerer.Ask(ctx, state.ClarificationQuestion)
	if err != nil {
		return nil, fmt.Errorf("获取澄清回答 failed: %w", err)
	}
	state.ClarificationAnswer = strings.TrimSpace(answer)
	state.ClarificationNeeded = false
	return state, nil
}

// responseGeneration 生成最终推荐回答，失败时退化为固定话术
func (n *Nodes) responseGeneration(ctx context.Context, state *AgentState) (*AgentState, error) {
	info := state.ProductInfo
	if info == "" {
		info = "[]"
	}
	out, err := n.client.GenerateWithContext(ctx,
		fmt.Sprintf(responsePrompt, state.UserInput, info), llm.GenerateOptions{})
	if err != nil {
		n.logger.Error("生成回答 failed", "error", err)
		state.Response = responseFallback
		return state, nil
	}
	state.Response = strings.TrimSpace(out)
	state.Messages = append(state.Messages, "response: "+state.Response)
	return state, nil
}
