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

package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"xiaofan-agent/pkg/errors"
	"xiaofan-agent/pkg/log"
)

// Options Registry 建立选项
type Options struct {
	CallTimeout time.Duration // 单次 ListTools/CallTool 超时，<=0 默认 30s
	Logger      *log.Logger
}

// Registry 持有到各工具服务的全部会话。
// 会话在多个查询间共享：取消单个查询不得关闭 Registry。
type Registry struct {
	sessions []*Session
	logger   *log.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open 为每个地址建立一个会话，顺序连接。任一地址失败则整体失败，
// 已建立的会话全部回收，不对外暴露半初始化的 Registry。
func Open(ctx context.Context, addrs []string, opts Options) (*Registry, error) {
	if len(addrs) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidArg, "至少需要一个工具服务地址")
	}
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger, _ = log.NewLogger(nil)
	}

	r := &Registry{logger: logger}
	for i, addr := range addrs {
		c, err := dialSSE(ctx, addr)
		if err != nil {
			_ = r.Close()
			return nil, errors.Wrapf(errors.ErrConnection, "连接工具服务 %s failed: %v", addr, err)
		}
		sess := &Session{
			id:      fmt.Sprintf("server%d", i),
			addr:    addr,
			client:  c,
			timeout: timeout,
		}
		r.sessions = append(r.sessions, sess)

		tools, err := sess.ListTools(ctx)
		if err != nil {
			_ = r.Close()
			return nil, errors.Wrapf(errors.ErrConnection, "连接工具服务 %s failed: %v", addr, err)
		}
		names := make([]string, 0, len(tools))
		for _, t := range tools {
			names = append(names, t.Name)
		}
		logger.Info("已连接工具服务", "addr", addr, "session", sess.id, "tools", names)
	}
	return r, nil
}

// Sessions 返回全部会话（按地址顺序）
func (r *Registry) Sessions() []*Session {
	return r.sessions
}

// Close 释放全部会话。先出错的会话不中断后续回收，首个错误被记录并返回。
func (r *Registry) Close() error {
	r.closeOnce.Do(func() {
		for _, sess := range r.sessions {
			if err := sess.close(); err != nil {
				r.logger.Warn("关闭会话 failed", "session", sess.id, "addr", sess.addr, "error", err)
				if r.closeErr == nil {
					r.closeErr = errors.Wrapf(err, "关闭会话 %s", sess.id)
				}
			}
		}
	})
	return r.closeErr
}
