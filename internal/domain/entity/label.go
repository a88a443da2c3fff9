// Package entity 定义领域实体
package entity

// Label 标签检测结果（描述 + 置信度），不可变值类型
type Label struct {
	description string
	score       float64
}

// NewLabel 创建标签
func NewLabel(description string, score float64) Label {
	return Label{description: description, score: score}
}

// Description 返回标签描述
func (l Label) Description() string {
	return l.description
}

// Score 返回置信度，范围 [0,1]
func (l Label) Score() float64 {
	return l.score
}

// Descriptions 按原顺序提取描述
func Descriptions(labels []Label) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		out = append(out, l.description)
	}
	return out
}
