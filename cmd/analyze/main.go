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

// 任务分析命令行：为给定任务生成执行计划，借助 MCP 工具逐步执行，
// 每步之后修订计划，最后输出报告。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"xiaofan-agent/internal/agent/chat"
	"xiaofan-agent/internal/agent/plan"
	"xiaofan-agent/internal/mcp"
	"xiaofan-agent/internal/model/llm"
	"xiaofan-agent/internal/tool/router"
	"xiaofan-agent/pkg/config"
	"xiaofan-agent/pkg/log"
)

func main() {
	var server string
	flag.StringVar(&server, "server", "", "MCP SSE 服务地址，可多次用逗号分隔")
	flag.Parse()

	task := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if task == "" {
		fmt.Fprintf(os.Stderr, "Usage: analyze [-server <sse-url,...>] <任务描述>\n")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	var addrs []string
	if server != "" {
		addrs = strings.Split(server, ",")
	} else {
		addrs = cfg.MCP.Servers
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

	loop := chat.NewLoop(chatModel, catalog, logger.Named("execute"), cfg.Agent.Chat.MaxTurns)
	machine := plan.NewMachine(limited, plan.NewLoopRunner(loop),
		logger.Named("plan"), cfg.Agent.Plan.MaxRepairAttempts)

	report, err := machine.Run(ctx, task)
	if err != nil {
		fmt.Fprintf(os.Stderr, "任务执行失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(report)
}
