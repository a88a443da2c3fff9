package alttext

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"alt-text-ai-api/pkg/logger"
)

// Reloader 监听凭证文件，变化时重新激活生成器
// 监听目录而不是文件本身，原子替换（rename）后仍能收到事件
type Reloader struct {
	deps Deps
	path string

	mu      sync.Mutex
	current *Generator
}

// NewReloader 创建重载器；current 为启动时 Activate 的结果，可为 nil
func NewReloader(deps Deps, credentialPath string, current *Generator) *Reloader {
	return &Reloader{
		deps:    deps,
		path:    filepath.Clean(credentialPath),
		current: current,
	}
}

// Current 当前生效的生成器，未激活时为 nil
func (r *Reloader) Current() *Generator {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Run 阻塞直到 ctx 取消
func (r *Reloader) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(r.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Info(ctx, "watching credential file", "path", r.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != r.path {
				continue
			}
			r.handle(ctx, ev.Op)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error(ctx, "credential watcher error", err)
		}
	}
}

// handle 根据文件事件切换生成器状态
func (r *Reloader) handle(ctx context.Context, op fsnotify.Op) {
	switch {
	case op.Has(fsnotify.Create), op.Has(fsnotify.Write):
		r.reload(ctx)
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		if !r.deps.Credentials.Exists() {
			r.mu.Lock()
			r.current = nil
			r.mu.Unlock()
			Deactivate(ctx, r.deps.Subscriber)
		}
	}
}

// reload 重新读取凭证并替换已注册的处理器
func (r *Reloader) reload(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, active, err := Activate(ctx, r.deps)
	if err != nil {
		logger.Error(ctx, "failed to reactivate alt text generator", err)
		return
	}
	if !active {
		return
	}
	r.current = g
}
