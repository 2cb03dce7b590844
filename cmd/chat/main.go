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

// 工具增强对话命令行：连接一个或多个 MCP SSE 服务，
// 把其工具目录交给模型，交互式处理用户查询。
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"xiaofan-agent/internal/agent/chat"
	"xiaofan-agent/internal/mcp"
	"xiaofan-agent/internal/model/llm"
	"xiaofan-agent/internal/tool/router"
	"xiaofan-agent/pkg/config"
	"xiaofan-agent/pkg/log"
	"xiaofan-agent/pkg/metrics"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: chat <sse-url> [sse-url...]\n")
		os.Exit(1)
	}
	addrs := os.Args[1:]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	logger, err := log.NewLogger(&log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
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
	for _, d := range catalog.Descriptors() {
		fmt.Printf("已加载工具: %s - %s\n", d.Qualified, d.Description)
	}

	loop := chat.NewLoop(chatModel, catalog, logger.Named("chat"), cfg.Agent.Chat.MaxTurns)

	fmt.Println("输入查询内容，quit 退出，metrics 查看指标。")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n你: ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		switch query {
		case "":
			continue
		case "quit", "exit":
			return
		case "metrics":
			if err := metrics.WritePrometheus(os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "输出指标失败: %v\n", err)
			}
			continue
		}

		out, err := loop.Run(ctx, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "处理失败: %v\n", err)
			continue
		}
		fmt.Println("\n" + out)
	}
}
