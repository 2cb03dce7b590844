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

// 意图识别提示词。产品线清单与返回格式约定保持稳定，
// 下游按 query_type 与 product_lines 字段路由。
const intentPrompt = `请分析以下用户查询的意图，并以JSON格式返回结果：
例如：
1. mumble_search: 用户查询的内容涉及品类/应用场景，但没有具体的产品型号或参数。例如 "测试地暖的场景，应该选择哪些热成像仪。"
2. detail_search: 用户查询的内容涉及具体的产品型号或参数。
返回JSON的条件如下：
如果用户查询的内容涉及具体产品型号或者参数，返回"detail_search"类型；如果用户查询的没有涉及具体的产品型号或者参数，返回"mumble_search"类型。
如果是detail_search，从以下的产品线选择一个最相关的产品线填写到json中。
如果是mumble_search，从以下的产品线选择两个最相关的产品线填写到json中。
产品线包括：
1. 电动气动工具
2. 电子焊接工具
3. 测试仪器
4. 电源/负载
5. 测试仪表
6. 实验仪器
7. 热成像仪
8. 手动五金工具
9. 辅料耗材
10. 工业控制
11. 工业物联网
如果找不到相关的产品线，请在clarification_needed中返回true，并在clarification_question中询问用户。
请确保 'product_lines' 字段总是包含一个列表，即使只有一个产品线。

用户查询: "%s"

返回的JSON格式如下：
{
    "query_type": "detail_search | mumble_search",
    "product_lines": ["product_line1", "product_line2"],
    "parameters": {
        "models": ["model1", "model2"],
        "criteria": {
            "parameter1": "value1"
        }
    },
    "clarification_needed": false,
    "clarification_question": ""
}`

// 模糊检索：按品类/应用场景在限定产品线内查库
const mumbleSearchPrompt = `你现在是产品数据库检索助手。数据库表结构如下：
- id: int
- product_line: varchar(100)
- category: varchar(100)
- model: varchar(50)
- features: text
- application_scenarios: text
- parameters: json

请根据用户输入内容，在限定的产品线范围内，用提供的数据库工具检索最相关的产品。
检索时优先考虑 application_scenarios、features、parameters 字段的匹配度，返回最符合用户需求的产品信息。

用户输入: %s
限定产品线: %s

请以 JSON 格式返回产品列表，每个产品包含：model、features、application_scenarios、parameters 的核心信息。
没有查到任何产品时返回空数组 []。`

// 精确检索：按型号或参数约束查库
const detailSearchPrompt = `你现在是产品数据库检索助手。数据库表结构如下：
- id: int
- product_line: varchar(100)
- category: varchar(100)
- model: varchar(50)
- features: text
- application_scenarios: text
- parameters: json

请根据给出的产品型号和参数约束，在限定的产品线范围内，用提供的数据库工具检索对应产品，
多个型号时逐一检索以便对比。

用户输入: %s
限定产品线: %s
产品型号: %s
参数约束: %s

请以 JSON 格式返回产品列表，每个产品包含：model、features、application_scenarios、parameters 的核心信息。
没有查到任何产品时返回空数组 []。`

// 结果生成
const responsePrompt = `请根据以下信息生成用户所需的推荐回答：
1. 用户查询：%s
2. 产品信息：%s

生成要求：
- 若没有相关产品信息，返回"抱歉，我没有找到相关产品。"
- 若有产品信息，按以下逻辑生成：
  1. 先说明推荐结论
  2. 按产品相关性排序（优先展示更匹配用户查询的型号）
  3. 每个产品仅保留核心参数（重量、防护等级、关键优势）和特点，避免冗余
  4. 最后补充选择建议（如"轻量便携选XX，专业监测选XX"）
- 语言简洁口语化，避免技术术语堆砌，总长度控制在300字内`

// 固定话术
const (
	fallbackClarifyQuestion = "抱歉，我无法理解您的请求。请问您需要查询什么？"
	defaultClarifyQuestion  = "请详细描述您的需求。"
	giveUpResponse          = "抱歉，无法理解您的需求，请联系人工客服。"
	responseFallback        = "抱歉，暂时无法生成推荐结果，请稍后重试。"
)
