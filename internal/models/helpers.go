package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidateItemID 验证商品编号 (goodscode 只包含数字)
func ValidateItemID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("商品编号不能为空")
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return fmt.Errorf("商品编号只能包含数字: %q", id)
		}
	}
	return nil
}

// NormalizeItemIDs 去除空白并校验, 保持原有顺序
// 重复编号保留: 每个输入都对应一个结果
func NormalizeItemIDs(ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	for i, id := range ids {
		id = strings.TrimSpace(id)
		if err := ValidateItemID(id); err != nil {
			return nil, fmt.Errorf("第%d个商品编号无效: %w", i+1, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// NewRunID 生成运行ID
func NewRunID() string {
	return uuid.New().String()
}
