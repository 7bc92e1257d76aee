package crawlers

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/RecoveryAshes/PriceWatch/internal/utils"
	"github.com/spf13/afero"
)

// SnapshotStore 被拦截时的诊断快照存储
// 文件名: <itemId>_attempt<N>.png / .html
type SnapshotStore struct {
	fs  afero.Fs
	dir string
}

// NewSnapshotStore 创建快照存储, dir 为空时禁用
func NewSnapshotStore(fs afero.Fs, dir string) *SnapshotStore {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &SnapshotStore{fs: fs, dir: dir}
}

// Enabled 是否启用
func (s *SnapshotStore) Enabled() bool {
	return s != nil && s.dir != ""
}

// SnapshotPaths 本次写入的文件
type SnapshotPaths struct {
	Screenshot string
	HTML       string
}

// Save 保存截图和HTML, 截图失败不影响HTML写入
// 返回的错误仅供记录, 调用方不应因此中断重试流程
func (s *SnapshotStore) Save(itemID string, attempt int, page Page, html string) (SnapshotPaths, error) {
	var paths SnapshotPaths
	if !s.Enabled() {
		return paths, nil
	}

	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return paths, fmt.Errorf("创建快照目录失败 [%s]: %w", s.dir, err)
	}

	base := filepath.Join(s.dir, fmt.Sprintf("%s_attempt%d", itemID, attempt))
	var errs []error

	if page != nil {
		png, err := page.Screenshot()
		switch {
		case errors.Is(err, ErrUnsupported):
		case err != nil:
			errs = append(errs, fmt.Errorf("截图失败: %w", err))
		default:
			if err := afero.WriteFile(s.fs, base+".png", png, 0644); err != nil {
				errs = append(errs, fmt.Errorf("写入截图失败: %w", err))
			} else {
				paths.Screenshot = base + ".png"
			}
		}
	}

	if err := afero.WriteFile(s.fs, base+".html", []byte(html), 0644); err != nil {
		errs = append(errs, fmt.Errorf("写入HTML失败: %w", err))
	} else {
		paths.HTML = base + ".html"
	}

	utils.Logger.Debug().
		Str("item_id", itemID).
		Int("attempt", attempt).
		Str("screenshot", paths.Screenshot).
		Str("html", paths.HTML).
		Msg("📸 已保存诊断快照")

	return paths, errors.Join(errs...)
}
