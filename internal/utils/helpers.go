package utils

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/RecoveryAshes/PriceWatch/internal/models"
)

// ReadItemIDsFromFile 从文件读取商品编号, 每行一个
// 行内容可以是编号本身或完整的商品页地址; 空行和 # 开头的行被忽略
func ReadItemIDsFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开商品列表文件失败: %w", err)
	}
	defer file.Close()

	ids := make([]string, 0)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		id, err := ParseItemRef(line)
		if err != nil {
			Warnf("跳过无效商品 (行 %d): %s - %v", lineNum, line, err)
			continue
		}
		ids = append(ids, id)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取商品列表文件失败: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("商品列表文件中没有有效的商品编号")
	}

	Infof("从文件加载了 %d 个商品", len(ids))
	return ids, nil
}

// ParseItemRef 解析商品编号或商品页地址, 返回 goodscode
func ParseItemRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if !strings.Contains(ref, "://") {
		if err := models.ValidateItemID(ref); err != nil {
			return "", err
		}
		return ref, nil
	}

	if err := ValidateURL(ref); err != nil {
		return "", err
	}
	parsed, _ := url.Parse(ref)
	// goodscode 参数名大小写不固定
	for key, values := range parsed.Query() {
		if strings.EqualFold(key, "goodscode") && len(values) > 0 {
			id := strings.TrimSpace(values[0])
			if err := models.ValidateItemID(id); err != nil {
				return "", err
			}
			return id, nil
		}
	}
	return "", fmt.Errorf("URL中缺少goodscode参数")
}

// ValidateURL 验证URL格式
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("URL格式无效: %w", err)
	}
	if parsed.Scheme == "" {
		return fmt.Errorf("URL缺少协议(http/https)")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL协议必须是http或https")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL缺少主机名")
	}
	return nil
}
