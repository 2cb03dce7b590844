// Package errors 提供统一错误辅助，不依赖 internal
package errors

import (
	"errors"
	"fmt"
)

// 常用哨兵错误（可按需扩展错误码）
var (
	ErrNotFound   = errors.New("not found")
	ErrInvalidArg = errors.New("invalid argument")

	// ErrConnection 工具服务连接失败（会话建立阶段致命）
	ErrConnection = errors.New("connection error")
	// ErrUnknownTool 限定名在目录中不存在
	ErrUnknownTool = errors.New("unknown tool")
	// ErrPlanRepair 计划 JSON 修复重试次数耗尽
	ErrPlanRepair = errors.New("plan repair attempts exhausted")
)

// Wrap 包装错误并附加消息
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 带格式的 Wrap
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is 透传 errors.Is，调用方免于同时导入标准库 errors
func Is(err, target error) bool {
	return errors.Is(err, target)
}
