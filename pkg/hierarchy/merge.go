package hierarchy

import (
	"slices"

	"golang.org/x/exp/maps"
)

// Merge 把 source 合并进 e，调用方需保证两者实体名相同
// 在副本上完成合并，失败时 e 保持不变；source 合并后不应再使用
func (e *Entry) Merge(source *Entry) error {
	return e.merge(source, nil)
}

func (e *Entry) merge(source *Entry, keys []string) error {
	merged := e.clone()
	if err := merged.absorb(source, keys); err != nil {
		return err
	}
	*e = *merged
	return nil
}

// absorb 写入 source 的动词和子节点
// 子节点的落点与构建时一致：先找实体名相同的子节点，再找同键的子节点，都没有则按键插入
func (e *Entry) absorb(source *Entry, keys []string) error {
	if e.Verbs == nil {
		e.Verbs = map[string]string{}
	}
	if e.Entries == nil {
		e.Entries = map[string]*Entry{}
	}

	for _, verb := range source.VerbNames() {
		if existing, ok := e.Verbs[verb]; ok {
			return &VerbCollisionError{Keys: keys, Verb: verb, Existing: existing, Incoming: source.Verbs[verb]}
		}
		e.Verbs[verb] = source.Verbs[verb]
	}

	for _, key := range source.Keys() {
		child := source.Entries[key]
		target := e.placement(key, child.EntityName)
		if target == "" {
			e.Entries[key] = child
			continue
		}
		if err := e.Entries[target].absorb(child, append(slices.Clone(keys), target)); err != nil {
			return err
		}
	}

	return nil
}

// placement 返回 source 子节点应合并进的键，返回空串表示按原键插入
// 同键但实体名不同时仍合并进该键，保留原有实体名
func (e *Entry) placement(key, entityName string) string {
	if existing, ok := e.Entries[key]; ok && existing.EntityName == entityName {
		return key
	}
	for _, k := range e.Keys() {
		if e.Entries[k].EntityName == entityName {
			return k
		}
	}
	if _, ok := e.Entries[key]; ok {
		return key
	}
	return ""
}

func (e *Entry) clone() *Entry {
	out := &Entry{EntityName: e.EntityName, Verbs: maps.Clone(e.Verbs)}
	if e.Entries != nil {
		out.Entries = make(map[string]*Entry, len(e.Entries))
		for key, child := range e.Entries {
			out.Entries[key] = child.clone()
		}
	}
	return out
}
