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

// Package importer 产品手册 CSV 入库：解析中文表头的产品数据并
// 幂等写入产品表，供检索工具查询。
package importer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"xiaofan-agent/pkg/errors"
	"xiaofan-agent/pkg/log"
)

// Product 一行产品数据
type Product struct {
	ProductLine          string          `json:"product_line"`
	Category             string          `json:"category"`
	Model                string          `json:"model"`
	Features             string          `json:"features"`
	ApplicationScenarios string          `json:"application_scenarios"`
	Parameters           json.RawMessage `json:"parameters"`
}

// 表头别名，产品手册导出的列名不完全统一
var headerAliases = map[string]string{
	"产品线名称": "product_line",
	"产品线":   "product_line",
	"产品品类":  "category",
	"品类":    "category",
	"型号":    "model",
	"特点":    "features",
	"应用场景":  "application_scenarios",
	"参数":    "parameters",
}

// ParseCSV 解析产品手册 CSV。参数列应为 JSON，格式错误时退化为空对象
// 并告警，不让单行坏数据中断整个导入。
func ParseCSV(r io.Reader, logger *log.Logger) ([]Product, error) {
	if logger == nil {
		logger, _ = log.NewLogger(nil)
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "读取 CSV 表头")
	}
	columns := make(map[int]string, len(header))
	for i, name := range header {
		if field, ok := headerAliases[strings.TrimSpace(name)]; ok {
			columns[i] = field
		}
	}
	if len(columns) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidArg, "CSV 表头没有可识别的列")
	}

	var products []Product
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrapf(err, "读取 CSV 第 %d 行", line)
		}

		var p Product
		for i, value := range record {
			value = strings.TrimSpace(value)
			switch columns[i] {
			case "product_line":
				p.ProductLine = value
			case "category":
				p.Category = value
			case "model":
				p.Model = value
			case "features":
				p.Features = value
			case "application_scenarios":
				p.ApplicationScenarios = value
			case "parameters":
				p.Parameters = normalizeParameters(value, line, logger)
			}
		}
		if len(p.Parameters) == 0 {
			p.Parameters = json.RawMessage("{}")
		}
		if p.Model == "" {
			logger.Warn("跳过缺少型号的行", "line", line)
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

// LoadCSV 打开并解析产品手册 CSV 文件
func LoadCSV(path string, logger *log.Logger) ([]Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "打开 CSV 文件 %s", path)
	}
	defer f.Close()
	return ParseCSV(f, logger)
}

func normalizeParameters(value string, line int, logger *log.Logger) json.RawMessage {
	if value == "" {
		return json.RawMessage("{}")
	}
	if !json.Valid([]byte(value)) {
		logger.Warn("参数列不是合法 JSON，已置为空对象", "line", line, "value", value)
		return json.RawMessage("{}")
	}
	return json.RawMessage(value)
}

// Importer 产品表写入器
type Importer struct {
	pool   *pgxpool.Pool
	table  string
	logger *log.Logger
}

// New 连接数据库并创建写入器
func New(ctx context.Context, dsn, table string, logger *log.Logger) (*Importer, error) {
	if table == "" {
		table = "products"
	}
	if logger == nil {
		logger, _ = log.NewLogger(nil)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("连接数据库 failed: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("数据库连接检查 failed: %w", err)
	}
	return &Importer{pool: pool, table: table, logger: logger}, nil
}

// EnsureSchema 建表。(product_line, model) 唯一，导入可重复执行。
func (im *Importer) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	product_line VARCHAR(100) NOT NULL,
	category VARCHAR(100) NOT NULL DEFAULT '',
	model VARCHAR(50) NOT NULL,
	features TEXT NOT NULL DEFAULT '',
	application_scenarios TEXT NOT NULL DEFAULT '',
	parameters JSONB NOT NULL DEFAULT '{}',
	UNIQUE (product_line, model)
)`, im.table)
	if _, err := im.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("创建产品表 failed: %w", err)
	}
	return nil
}

// Import 幂等写入产品数据，返回写入行数
func (im *Importer) Import(ctx context.Context, products []Product) (int, error) {
	upsert := fmt.Sprintf(`
INSERT INTO %s (product_line, category, model, features, application_scenarios, parameters)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (product_line, model) DO UPDATE SET
	category = EXCLUDED.category,
	features = EXCLUDED.features,
	application_scenarios = EXCLUDED.application_scenarios,
	parameters = EXCLUDED.parameters`, im.table)

	count := 0
	for _, p := range products {
		if _, err := im.pool.Exec(ctx, upsert,
			p.ProductLine, p.Category, p.Model, p.Features, p.ApplicationScenarios, string(p.Parameters)); err != nil {
			return count, fmt.Errorf("写入产品 %s failed: %w", p.Model, err)
		}
		count++
	}
	im.logger.Info("产品数据导入完成", "table", im.table, "count", count)
	return count, nil
}

// Close 释放连接池
func (im *Importer) Close() {
	im.pool.Close()
}
