package hierarchy

import (
	"fmt"
	"strings"
)

// Lookup 根据以 . 分隔的键路径查找子树
// 每一段既可以是原始路径片段，也可以是解析出的实体名，例如:
//   - groups
//   - groups.members
//   - group.member
func (h *Hierarchy) Lookup(selector string) (*Entry, error) {
	parts := splitSelector(selector)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty selector")
	}

	entry, err := find(h.Entries, parts[0])
	if err != nil {
		return nil, err
	}
	return entry.findRecursive(parts, 1)
}

// findRecursive 递归查找
func (e *Entry) findRecursive(parts []string, idx int) (*Entry, error) {
	// 到达路径末尾
	if idx >= len(parts) {
		return e, nil
	}

	child, err := find(e.Entries, parts[idx])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", strings.Join(parts[:idx], "."), err)
	}
	return child.findRecursive(parts, idx+1)
}

// find 先按键精确匹配，再按实体名匹配（按键的字母序取第一个）
func find(entries map[string]*Entry, part string) (*Entry, error) {
	if e, ok := entries[part]; ok {
		return e, nil
	}

	for _, key := range sortedKeys(entries) {
		if entries[key].EntityName == part {
			return entries[key], nil
		}
	}

	return nil, fmt.Errorf("entry '%s' not found", part)
}

func sortedKeys(entries map[string]*Entry) []string {
	e := Entry{Entries: entries}
	return e.Keys()
}

// splitSelector 分割选择器并丢弃空段
func splitSelector(selector string) []string {
	var parts []string
	for _, part := range strings.Split(selector, ".") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
