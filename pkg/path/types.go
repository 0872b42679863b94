package path

import "strings"

// Segment 表示 URL 模板中的一个片段
type Segment struct {
	Type SegmentType
	Text string // 常量文本，或参数名（不含花括号）
}

type SegmentType int

const (
	SegmentTypeParameter SegmentType = iota // {id} 路径参数
	SegmentTypeConstant                     // groups 常量
)

// Compare 定义片段的全序：参数排在常量之前，同类型按文本字典序
func (s Segment) Compare(other Segment) int {
	if s.Type != other.Type {
		if s.Type == SegmentTypeParameter {
			return -1
		}
		return 1
	}
	return strings.Compare(s.Text, other.Text)
}

func (s Segment) String() string {
	switch s.Type {
	case SegmentTypeParameter:
		return "{" + s.Text + "}"
	default:
		return s.Text
	}
}

// Path 表示解析后的 URL 模板，至少包含一个片段
type Path struct {
	Segments []Segment
}

// Constants 按顺序返回所有常量片段的文本，跳过参数
func (p Path) Constants() []string {
	var out []string
	for _, seg := range p.Segments {
		switch seg.Type {
		case SegmentTypeConstant:
			out = append(out, seg.Text)
		case SegmentTypeParameter:
			// 参数不参与树的定位
		}
	}
	return out
}

func (p Path) String() string {
	parts := make([]string, len(p.Segments))
	for i, seg := range p.Segments {
		parts[i] = seg.String()
	}
	return strings.Join(parts, "/")
}
