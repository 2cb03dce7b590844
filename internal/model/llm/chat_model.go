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

package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"xiaofan-agent/pkg/config"
)

// NewChatModel 创建 OpenAI 兼容 ChatModel（工具调用路径专用）。
// 与 Client 并存：Client 走纯文本补全，ChatModel 承载 function-calling。
func NewChatModel(ctx context.Context, cfg *config.Config) (model.ToolCallingChatModel, error) {
	if cfg.Model.APIKey == "" || cfg.Model.APIKey == "${DEEPSEEK_API_KEY}" {
		return nil, fmt.Errorf("模型 api_key 未配置，请检查配置文件或环境变量")
	}
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		Model:   cfg.Model.Name,
		APIKey:  cfg.Model.APIKey,
		BaseURL: cfg.Model.BaseURL,
		Timeout: cfg.ModelTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("创建 ChatModel failed: %w", err)
	}
	return chatModel, nil
}
