package path

import "strings"

// Parse 解析 URL 模板
// 支持语法：
//   - groups/{groupId}/members
//   - /api/v1/orgs/{orgId}
//
// 空片段（例如开头的 /）会被丢弃；没有任何片段时返回 false
func Parse(template string) (Path, bool) {
	var segments []Segment

	for _, part := range strings.Split(template, "/") {
		if part == "" {
			continue
		}
		segments = append(segments, parseSegment(part))
	}

	if len(segments) == 0 {
		return Path{}, false
	}

	return Path{Segments: segments}, true
}

// parseSegment 解析单个片段
// 只剥离一次 { 和 }，两者都存在才是参数，否则原样作为常量
func parseSegment(part string) Segment {
	if rest, ok := strings.CutPrefix(part, "{"); ok {
		if name, ok := strings.CutSuffix(rest, "}"); ok {
			return Segment{Type: SegmentTypeParameter, Text: name}
		}
	}

	return Segment{Type: SegmentTypeConstant, Text: part}
}
