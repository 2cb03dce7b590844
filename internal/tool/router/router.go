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

package router

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	mcpspec "github.com/mark3labs/mcp-go/mcp"

	"xiaofan-agent/internal/mcp"
	"xiaofan-agent/internal/tool"
	"xiaofan-agent/pkg/errors"
	"xiaofan-agent/pkg/log"
	"xiaofan-agent/pkg/metrics"
)

// Session 路由依赖的会话操作子集（*mcp.Session 满足；测试可用内存实现）
type Session interface {
	ID() string
	Addr() string
	ListTools(ctx context.Context) ([]mcpspec.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (string, bool, error)
}

// entry 限定名到 (会话, 原始名) 的映射项
type entry struct {
	session Session
	name    string
	desc    tool.Descriptor
}

// Catalog 展平后的无冲突工具命名空间。
// 限定名规则：{会话标识}_{原始工具名}，仅由枚举顺序派生，
// 单次进程运行内跨调用稳定。
type Catalog struct {
	entries map[string]entry
	order   []string // 构建时的枚举顺序，供展示与广告列表使用
	logger  *log.Logger
}

// FromRegistry 以 Registry 的全部会话构建 Catalog
func FromRegistry(ctx context.Context, registry *mcp.Registry, logger *log.Logger) (*Catalog, error) {
	sessions := make([]Session, 0, len(registry.Sessions()))
	for _, s := range registry.Sessions() {
		sessions = append(sessions, s)
	}
	return BuildCatalog(ctx, sessions, logger)
}

// BuildCatalog 遍历各会话的工具目录构建 Catalog。
// 目录可能随服务端变化，每次查询前重建即可拿到最新视图。
func BuildCatalog(ctx context.Context, sessions []Session, logger *log.Logger) (*Catalog, error) {
	if logger == nil {
		logger, _ = log.NewLogger(nil)
	}
	c := &Catalog{entries: make(map[string]entry), logger: logger}
	for _, sess := range sessions {
		tools, err := sess.ListTools(ctx)
		if err != nil {
			return nil, err
		}
		for _, t := range tools {
			qualified := sess.ID() + "_" + t.Name
			if _, dup := c.entries[qualified]; dup {
				// 同一会话内重名由服务端保证不出现；出现则后者覆盖并告警
				logger.Warn("工具限定名重复，后者覆盖", "qualified", qualified)
			} else {
				c.order = append(c.order, qualified)
			}
			c.entries[qualified] = entry{
				session: sess,
				name:    t.Name,
				desc: tool.Descriptor{
					Qualified:   qualified,
					Name:        t.Name,
					Description: t.Description,
					InputSchema: t.InputSchema,
				},
			}
		}
	}
	return c, nil
}

// Descriptors 按构建顺序返回全部工具描述
func (c *Catalog) Descriptors() []tool.Descriptor {
	out := make([]tool.Descriptor, 0, len(c.order))
	for _, q := range c.order {
		out = append(out, c.entries[q].desc)
	}
	return out
}

// Resolve 将限定名还原为 (会话, 原始名)
func (c *Catalog) Resolve(qualified string) (Session, string, error) {
	e, ok := c.entries[qualified]
	if !ok {
		return nil, "", errors.Wrapf(errors.ErrUnknownTool, "工具 %s", qualified)
	}
	return e.session, e.name, nil
}

// Dispatch 执行一次工具调用。任何解析/传输/工具侧错误都转为
// 失败 Result 而非向上传播——单个工具失败不得中断整轮对话。
func (c *Catalog) Dispatch(ctx context.Context, call tool.Call) tool.Result {
	sess, name, err := c.Resolve(call.Name)
	if err != nil {
		c.logger.Warn("工具未找到", "qualified", call.Name)
		metrics.ToolDispatchTotal.WithLabelValues(call.Name, "error").Inc()
		return tool.Result{CallID: call.ID, Content: fmt.Sprintf("工具 %s 未找到", call.Name), IsError: true}
	}

	start := time.Now()
	content, isErr, err := sess.CallTool(ctx, name, call.Arguments)
	metrics.ToolDispatchDuration.WithLabelValues(call.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		c.logger.Error("调用工具 failed",
			"qualified", call.Name, "tool", name, "addr", sess.Addr(), "args", call.Arguments, "error", err)
		metrics.ToolDispatchTotal.WithLabelValues(call.Name, "error").Inc()
		return tool.Result{CallID: call.ID, Content: fmt.Sprintf("调用工具 %s 失败：%v", name, err), IsError: true}
	}
	status := "ok"
	if isErr {
		status = "error"
	}
	metrics.ToolDispatchTotal.WithLabelValues(call.Name, status).Inc()
	return tool.Result{CallID: call.ID, Content: content, IsError: isErr}
}

// ToolInfos 生成供模型广告的工具列表（顶层属性结构化映射）
func (c *Catalog) ToolInfos() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(c.order))
	for _, q := range c.order {
		d := c.entries[q].desc
		infos = append(infos, &schema.ToolInfo{
			Name:        d.Qualified,
			Desc:        d.Description,
			ParamsOneOf: schema.NewParamsOneOfByParams(paramsFromSchema(d.InputSchema)),
		})
	}
	return infos
}

// paramsFromSchema 将 MCP inputSchema 顶层属性映射为 eino 参数描述。
// 仅做结构化转换，不做深层校验。
func paramsFromSchema(in mcpspec.ToolInputSchema) map[string]*schema.ParameterInfo {
	if len(in.Properties) == 0 {
		return map[string]*schema.ParameterInfo{}
	}
	required := make(map[string]bool, len(in.Required))
	for _, r := range in.Required {
		required[r] = true
	}
	params := make(map[string]*schema.ParameterInfo, len(in.Properties))
	for name, raw := range in.Properties {
		info := &schema.ParameterInfo{Type: schema.String, Required: required[name]}
		if prop, ok := raw.(map[string]any); ok {
			if t, ok := prop["type"].(string); ok {
				info.Type = dataTypeOf(t)
			}
			if d, ok := prop["description"].(string); ok {
				info.Desc = d
			}
		}
		params[name] = info
	}
	return params
}

func dataTypeOf(jsonType string) schema.DataType {
	switch jsonType {
	case "integer":
		return schema.Integer
	case "number":
		return schema.Number
	case "boolean":
		return schema.Boolean
	case "array":
		return schema.Array
	case "object":
		return schema.Object
	default:
		return schema.String
	}
}
