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

// 产品手册导入命令行：解析 CSV 并幂等写入产品目录库。
package main

import (
	"context"
	"fmt"
	"os"

	"xiaofan-agent/internal/importer"
	"xiaofan-agent/pkg/config"
	"xiaofan-agent/pkg/log"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: import <csv-file> [dsn]\n")
		os.Exit(1)
	}
	csvPath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	dsn := cfg.Storage.Metadata.DSN
	if len(os.Args) > 2 {
		dsn = os.Args[2]
	}
	if dsn == "" {
		fmt.Fprintf(os.Stderr, "未配置数据库连接串（storage.metadata.dsn 或第二个参数）\n")
		os.Exit(1)
	}

	logger, err := log.NewLogger(&log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	products, err := importer.LoadCSV(csvPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "解析 CSV 失败: %v\n", err)
		os.Exit(1)
	}
	if len(products) == 0 {
		fmt.Println("CSV 中没有可导入的产品数据")
		return
	}

	ctx := context.Background()
	im, err := importer.New(ctx, dsn, cfg.Storage.Metadata.Table, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "连接数据库失败: %v\n", err)
		os.Exit(1)
	}
	defer im.Close()

	if err := im.EnsureSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "初始化产品表失败: %v\n", err)
		os.Exit(1)
	}
	count, err := im.Import(ctx, products)
	if err != nil {
		fmt.Fprintf(os.Stderr, "导入失败（已写入 %d 行）: %v\n", count, err)
		os.Exit(1)
	}
	fmt.Printf("成功导入 %d 行产品数据到表 %s\n", count, cfg.Storage.Metadata.Table)
}
