// Package alttext 根据图片标签检测结果生成 alt text
package alttext

import (
	"strings"

	"alt-text-ai-api/internal/domain/entity"
)

// DefaultThreshold 默认置信度阈值，严格大于才保留
const DefaultThreshold = 0.8

// Separator 标签描述的连接符
const Separator = ", "

// BuildAltText 使用默认阈值生成 alt text
func BuildAltText(labels []entity.Label) string {
	return BuildAltTextWithThreshold(labels, DefaultThreshold)
}

// BuildAltTextWithThreshold 保留 score > threshold 的标签，按原顺序用 ", " 连接
// 不去重也不截断；没有满足条件的标签时返回空字符串
func BuildAltTextWithThreshold(labels []entity.Label, threshold float64) string {
	kept := make([]string, 0, len(labels))
	for _, l := range labels {
		if l.Score() > threshold {
			kept = append(kept, l.Description())
		}
	}
	return strings.Join(kept, Separator)
}
