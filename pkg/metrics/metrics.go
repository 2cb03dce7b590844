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

package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供各回路注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		ModelCallTotal, ModelCallDuration,
		ToolDispatchTotal, ToolDispatchDuration,
		PlanRepairTotal, ClarificationEndTotal,
	)
}

// ModelCallTotal 模型调用总数（按结果）
var ModelCallTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "xiaofan_model_call_total",
		Help: "模型调用总数（按结果）",
	},
	[]string{"status"}, // ok | error
)

// ModelCallDuration 模型调用耗时（秒）
var ModelCallDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "xiaofan_model_call_duration_seconds",
		Help:    "模型调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
)

// ToolDispatchTotal 工具派发总数（按限定名与结果）
var ToolDispatchTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "xiaofan_tool_dispatch_total",
		Help: "工具派发总数（按限定名与结果）",
	},
	[]string{"tool", "status"}, // ok | error
)

// ToolDispatchDuration 工具派发耗时（秒）
var ToolDispatchDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "xiaofan_tool_dispatch_duration_seconds",
		Help:    "工具派发耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// PlanRepairTotal 计划 JSON 修复重试总数
var PlanRepairTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "xiaofan_plan_repair_total",
		Help: "计划 JSON 修复重试总数（按节点）",
	},
	[]string{"node"}, // create_planner | update_planner
)

// ClarificationEndTotal 澄清轮次触顶终止总数
var ClarificationEndTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "xiaofan_clarification_end_total",
		Help: "澄清轮次触顶强制终止总数",
	},
)

// WritePrometheus 将 Prometheus 文本格式写入 w
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
