// Package hierarchy 把 OpenAPI 路径和 operationId 整理成按资源、实体、动词分组的树
package hierarchy

import (
	"fmt"
	"io"
	"slices"

	"golang.org/x/exp/maps"
	"gopkg.in/yaml.v3"
)

// Hierarchy 是构建完成后的只读树，键为顶层路径片段
type Hierarchy struct {
	Entries map[string]*Entry
}

// Entry 是树中的一个节点
type Entry struct {
	EntityName string            `yaml:"entity_name,omitempty"` // 为空表示没有推断出实体
	Entries    map[string]*Entry `yaml:"entries,omitempty"`
	Verbs      map[string]string `yaml:"verbs,omitempty"` // 动词 -> operationId
}

// Name 返回渲染时使用的名字：优先实体名，否则用键
func (e *Entry) Name(key string) string {
	if e.EntityName != "" {
		return e.EntityName
	}
	return key
}

// Keys 返回排序后的子节点键
func (e *Entry) Keys() []string {
	return keysOf(e.Entries)
}

// VerbNames 返回排序后的动词
func (e *Entry) VerbNames() []string {
	return keysOf(e.Verbs)
}

// Keys 返回排序后的顶层键
func (h *Hierarchy) Keys() []string {
	return keysOf(h.Entries)
}

// WalkFunc 在遍历到每个节点时调用，keys 是从顶层到该节点的键路径
type WalkFunc func(keys []string, e *Entry) error

// Walk 深度优先遍历，每一层都按键的字母序
func (h *Hierarchy) Walk(fn WalkFunc) error {
	for _, key := range h.Keys() {
		if err := walkEntry([]string{key}, h.Entries[key], fn); err != nil {
			return err
		}
	}
	return nil
}

func walkEntry(keys []string, e *Entry, fn WalkFunc) error {
	if err := fn(keys, e); err != nil {
		return err
	}
	for _, key := range e.Keys() {
		if err := walkEntry(append(slices.Clone(keys), key), e.Entries[key], fn); err != nil {
			return err
		}
	}
	return nil
}

// MarshalYAML 直接输出顶层映射，yaml.v3 会按键排序
func (h *Hierarchy) MarshalYAML() (interface{}, error) {
	if h.Entries == nil {
		return map[string]*Entry{}, nil
	}
	return h.Entries, nil
}

// Encode 以 2 空格缩进写出 YAML
func (h *Hierarchy) Encode(w io.Writer) error {
	return encode(w, h)
}

// Encode 以 2 空格缩进写出单个节点
func (e *Entry) Encode(w io.Writer) error {
	return encode(w, e)
}

func encode(w io.Writer, v interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	return encoder.Close()
}

// keysOf 返回排序后的 map 键
func keysOf[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
