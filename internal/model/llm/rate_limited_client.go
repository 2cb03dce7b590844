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

	"golang.org/x/time/rate"
)

// LimitConfig 模型调用限流配置
type LimitConfig struct {
	RequestsPerMinute float64 // 每分钟请求数，<=0 不限
	MaxConcurrent     int     // 最大并发请求数，<=0 不限
}

// RateLimitedClient 包装任意 LLM Client，在真实调用前执行限流控制。
// 对话回路是严格请求/响应序列，这里主要防止多个并发会话打爆端点配额。
type RateLimitedClient struct {
	inner          Client
	requestLimiter *rate.Limiter
	semaphore      chan struct{}
}

// NewRateLimitedClient 创建带限流的 LLM 客户端。cfg 为 nil 时退化为直接调用。
func NewRateLimitedClient(inner Client, cfg *LimitConfig) *RateLimitedClient {
	c := &RateLimitedClient{inner: inner}
	if cfg == nil {
		return c
	}
	if cfg.RequestsPerMinute > 0 {
		rps := cfg.RequestsPerMinute / 60.0
		burst := int(rps * 2)
		if burst < 1 {
			burst = 1
		}
		c.requestLimiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	if cfg.MaxConcurrent > 0 {
		c.semaphore = make(chan struct{}, cfg.MaxConcurrent)
	}
	return c
}

func (c *RateLimitedClient) wait(ctx context.Context) (release func(), err error) {
	if c.requestLimiter != nil {
		if err := c.requestLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if c.semaphore != nil {
		select {
		case c.semaphore <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return func() { <-c.semaphore }, nil
	}
	return func() {}, nil
}

// Generate 实现 Client.Generate
func (c *RateLimitedClient) Generate(prompt string, options GenerateOptions) (string, error) {
	return c.GenerateWithContext(context.Background(), prompt, options)
}

// GenerateWithContext 实现 Client.GenerateWithContext，调用前执行限流
func (c *RateLimitedClient) GenerateWithContext(ctx context.Context, prompt string, options GenerateOptions) (string, error) {
	release, err := c.wait(ctx)
	if err != nil {
		return "", err
	}
	defer release()
	return c.inner.GenerateWithContext(ctx, prompt, options)
}

// Chat 实现 Client.Chat
func (c *RateLimitedClient) Chat(messages []Message, options GenerateOptions) (string, error) {
	return c.ChatWithContext(context.Background(), messages, options)
}

// ChatWithContext 实现 Client.ChatWithContext，调用前执行限流
func (c *RateLimitedClient) ChatWithContext(ctx context.Context, messages []Message, options GenerateOptions) (string, error) {
	release, err := c.wait(ctx)
	if err != nil {
		return "", err
	}
	defer release()
	return c.inner.ChatWithContext(ctx, messages, options)
}

// Model 返回底层 Client 的模型名称
func (c *RateLimitedClient) Model() string { return c.inner.Model() }

// Provider 返回底层 Client 的提供商名称
func (c *RateLimitedClient) Provider() string { return c.inner.Provider() }
