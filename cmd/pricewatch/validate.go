package main

import (
	"fmt"

	"github.com/RecoveryAshes/PriceWatch/internal/utils"
)

// collectItems 合并商品来源, 优先级: 位置参数 / --items > --items-file > 配置文件
// 同一来源内保持顺序和重复项
func collectItems(flagItems, args []string, itemsFile string, configItems []string) ([]string, error) {
	refs := append(append([]string{}, args...), flagItems...)
	if len(refs) > 0 {
		return parseItemRefs(refs)
	}

	if itemsFile != "" {
		ids, err := utils.ReadItemIDsFromFile(itemsFile)
		if err != nil {
			return nil, fmt.Errorf("读取商品列表失败: %w", err)
		}
		return ids, nil
	}

	return parseItemRefs(configItems)
}

func parseItemRefs(refs []string) ([]string, error) {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		id, err := utils.ParseItemRef(ref)
		if err != nil {
			return nil, fmt.Errorf("无效的商品 %q: %w", ref, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
