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

	"github.com/cloudwego/eino/compose"
)

// 图节点名
const (
	nodeIntentDetection = "intent_detection"
	nodeDetailSearch    = "detail_search"
	nodeMumbleSearch    = "mumble_search"
	nodeClarification   = "clarification"
	nodeResponse        = "response_generation"
)

// routeAfterIntent 意图识别后的路由：需要澄清或意图未知都进澄清
func routeAfterIntent(ctx context.Context, s *AgentState) (string, error) {
	if s.ClarificationNeeded {
		return nodeClarification, nil
	}
	switch s.Intent {
	case IntentDetailSearch:
		return nodeDetailSearch, nil
	case IntentMumbleSearch:
		return nodeMumbleSearch, nil
	}
	return nodeClarification, nil
}

// routeAfterSearch 没查到产品转澄清，查到则生成回答
func routeAfterSearch(ctx context.Context, s *AgentState) (string, error) {
	if s.ProductInfo == "" {
		return nodeClarification, nil
	}
	return nodeResponse, nil
}

// routeAfterClarification 放弃则结束；拿到回答后回到已知意图的
// 检索节点，意图未知时重新识别；没有回答继续追问。
func routeAfterClarification(ctx context.Context, s *AgentState) (string, error) {
	if s.Response != "" {
		return compose.END, nil
	}
	if s.ClarificationAnswer != "" {
		switch s.Intent {
		case IntentDetailSearch:
			return nodeDetailSearch, nil
		case IntentMumbleSearch:
			return nodeMumbleSearch, nil
		}
		return nodeIntentDetection, nil
	}
	return nodeClarification, nil
}

// BuildGraph 编排意图路由图并编译。澄清环路存在，
// maxRunSteps 兜底防止状态异常时空转（<=0 用默认 32）。
func BuildGraph(ctx context.Context, n *Nodes, maxRunSteps int) (compose.Runnable[*AgentState, *AgentState], error) {
	if maxRunSteps <= 0 {
		maxRunSteps = 32
	}

	g := compose.NewGraph[*AgentState, *AgentState]()
	if err := g.AddLambdaNode(nodeIntentDetection, compose.InvokableLambda(n.intentDetection)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(nodeDetailSearch, compose.InvokableLambda(n.detailSearch)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(nodeMumbleSearch, compose.InvokableLambda(n.mumbleSearch)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(nodeClarification, compose.InvokableLambda(n.clarification)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(nodeResponse, compose.InvokableLambda(n.responseGeneration)); err != nil {
		return nil, err
	}

	if err := g.AddEdge(compose.START, nodeIntentDetection); err != nil {
		return nil, err
	}
	if err := g.AddBranch(nodeIntentDetection, compose.NewGraphBranch(routeAfterIntent, map[string]bool{
		nodeDetailSearch:  true,
		nodeMumbleSearch:  true,
		nodeClarification: true,
	})); err != nil {
		return nil, err
	}
	searchTargets := map[string]bool{nodeClarification: true, nodeResponse: true}
	if err := g.AddBranch(nodeDetailSearch, compose.NewGraphBranch(routeAfterSearch, searchTargets)); err != nil {
		return nil, err
	}
	if err := g.AddBranch(nodeMumbleSearch, compose.NewGraphBranch(routeAfterSearch, searchTargets)); err != nil {
		return nil, err
	}
	if err := g.AddBranch(nodeClarification, compose.NewGraphBranch(routeAfterClarification, map[string]bool{
		nodeIntentDetection: true,
		nodeDetailSearch:    true,
		nodeMumbleSearch:    true,
		nodeClarification:   true,
		compose.END:         true,
	})); err != nil {
		return nil, err
	}
	if err := g.AddEdge(nodeResponse, compose.END); err != nil {
		return nil, err
	}

	return g.Compile(ctx, compose.WithMaxRunSteps(maxRunSteps))
}
