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

// 产品推荐命令行：意图识别 + 数据库检索 + 澄清追问，
// 面向产品目录库的 MCP 工具服务工作。
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"xiaofan-agent/internal/agent/chat"
	"xiaofan-agent/internal/agent/intent"
	"xiaofan-agent/internal/mcp"
	"xiaofan-agent/internal/model/llm"
	"xiaofan-agent/internal/tool/router"
	"xiaofan-agent/pkg/config"
	"xiaofan-agent/pkg/log"
)

// stdinAnswerer 把澄清问题打印到终端并读取用户回答
type stdinAnswerer struct {
	reader *bufio.Reader
}

func (a *stdinAnswerer) Ask(ctx context.Context, question string) (string, error) {
	fmt.Printf("\n小凡: %s\n你: ", question)
	line, err := a.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	addrs := os.Args[1:]
	if len(addrs) == 0 {
		addrs = cfg.MCP.Servers
	}
	if len(addrs) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: recommend <sse-url> [sse-url...]\n")
		os.Exit(1)
	}

	logger, err := log.NewLogger(&log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	client, err := llm.NewClient(cfg.Model.Provider, cfg.Model.Name, cfg.Model.APIKey, cfg.Model.BaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化模型客户端失败: %v\n", err)
		os.Exit(1)
	}
	limited := llm.NewRateLimitedClient(client, &llm.LimitConfig{
		RequestsPerMinute: cfg.Model.RateLimit.RequestsPerMinute,
		MaxConcurrent:     cfg.Model.RateLimit.MaxConcurrent,
	})

	chatModel, err := llm.NewChatModel(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化模型失败: %v\n", err)
		os.Exit(1)
	}

	registry, err := mcp.Open(ctx, addrs, mcp.Options{
		CallTimeout: cfg.MCPCallTimeout(),
		Logger:      logger.Named("mcp"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "连接工具服务失败: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := registry.Close(); err != nil {
			logger.Error("关闭工具会话 failed", "error", err)
		}
	}()

	catalog, err := router.FromRegistry(ctx, registry, logger.Named("router"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取工具目录失败: %v\n", err)
		os.Exit(1)
	}

	search := chat.NewLoop(chatModel, catalog, logger.Named("search"), cfg.Agent.Chat.MaxTurns)
	reader := bufio.NewReader(os.Stdin)
	nodes := intent.NewNodes(limited, search, &stdinAnswerer{reader: reader},
		logger.Named("intent"), cfg.Agent.Intent.ClarificationLimit)

	graph, err := intent.BuildGraph(ctx, nodes, cfg.Agent.Intent.MaxRunSteps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "编排推荐图失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("请输入产品需求（如：推荐适合户外场景的热成像仪），quit 退出。")
	for {
		fmt.Print("\n你: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}
		if query == "quit" || query == "exit" {
			return
		}

		state, err := graph.Invoke(ctx, &intent.AgentState{UserInput: query})
		if err != nil {
			fmt.Fprintf(os.Stderr, "处理失败: %v\n", err)
			continue
		}
		fmt.Println("\n小凡: " + state.Response)
	}
}
