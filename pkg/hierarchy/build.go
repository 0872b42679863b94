package hierarchy

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dlclark/regexp2"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/iancoleman/strcase"

	"github.com/glesirok/apicmd/pkg/infer"
)

// Options 控制树的构建
type Options struct {
	Prefix         string   // 只处理以此开头的路径，例如 /api/atlas/v2/
	SeedVerbs      []string // 为空时使用 infer.DefaultSeedVerbs
	IgnorePatterns []string // regexp2 语法，匹配的 operationId 被忽略
	Singularizer   infer.Singularizer
	Logger         *log.Logger
}

// FromOpenAPI 从已加载的 OpenAPI 文档构建
func FromOpenAPI(doc *openapi3.T, opts Options) (*Hierarchy, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil openapi document")
	}

	return Build(documentPaths(doc), opts)
}

// VocabularyFromOpenAPI 对已加载的文档执行推断
func VocabularyFromOpenAPI(doc *openapi3.T, opts Options) (infer.Result, error) {
	if doc == nil {
		return infer.Result{}, fmt.Errorf("nil openapi document")
	}
	return Vocabulary(documentPaths(doc), opts)
}

func documentPaths(doc *openapi3.T) map[string]*openapi3.PathItem {
	if doc.Paths == nil {
		return nil
	}
	return doc.Paths.Map()
}

// Build 遍历路径、推断动词，再把中间树转换成合并后的实体树
// 任何冲突都会中止整个构建，不返回部分结果
func Build(paths map[string]*openapi3.PathItem, opts Options) (*Hierarchy, error) {
	s, err := prepare(paths, opts)
	if err != nil {
		return nil, err
	}

	if len(s.walked.root.operationIDs) > 0 {
		s.logger.Debug("skip operations at the api root", "operations", s.walked.root.sortedIDs())
	}

	b := &builder{verbs: s.inferred.Verbs, logger: s.logger}
	entries, err := b.buildTop(s.walked.root)
	if err != nil {
		return nil, err
	}

	return &Hierarchy{Entries: entries}, nil
}

// Vocabulary 只执行遍历和推断，返回动词和实体集合
func Vocabulary(paths map[string]*openapi3.PathItem, opts Options) (infer.Result, error) {
	s, err := prepare(paths, opts)
	if err != nil {
		return infer.Result{}, err
	}
	return s.inferred, nil
}

// state 是遍历和推断阶段的产物
type state struct {
	walked   *walkResult
	inferred infer.Result
	logger   *log.Logger
}

func prepare(paths map[string]*openapi3.PathItem, opts Options) (*state, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	ignore := make([]*regexp2.Regexp, 0, len(opts.IgnorePatterns))
	for _, pattern := range opts.IgnorePatterns {
		re, err := regexp2.Compile(pattern, 0)
		if err != nil {
			return nil, fmt.Errorf("compile ignore pattern %q: %w", pattern, err)
		}
		ignore = append(ignore, re)
	}

	w := &walker{prefix: opts.Prefix, ignore: ignore, logger: logger}
	walked, err := w.walk(paths)
	if err != nil {
		return nil, fmt.Errorf("walk paths: %w", err)
	}

	seeds := opts.SeedVerbs
	if len(seeds) == 0 {
		seeds = infer.DefaultSeedVerbs
	}
	singularizer := opts.Singularizer
	if singularizer == nil {
		singularizer = infer.NewSingularizer()
	}

	inferred := infer.Infer(walked.operationIDs, seeds, singularizer)
	logger.Debug("inferred vocabulary",
		"operations", len(walked.operationIDs),
		"segments", len(walked.segments),
		"entities", inferred.Entities,
		"verbs", inferred.Verbs)

	return &state{walked: walked, inferred: inferred, logger: logger}, nil
}

// builder 把 rawEntry 递归转换成 Entry
type builder struct {
	verbs  []string // 已排序
	logger *log.Logger
}

// build 转换单个节点，节点为空时返回 nil
// ancestors 是祖先节点已经解析出的实体名
func (b *builder) build(node *rawEntry, keys, ancestors []string) (*Entry, error) {
	if len(node.children) == 0 && len(node.operationIDs) == 0 {
		return nil, nil
	}

	verbs := map[string]string{}
	var candidates []string

	for _, id := range node.sortedIDs() {
		for _, verb := range b.verbs {
			rest, ok := strings.CutPrefix(id, verb)
			if !ok {
				continue
			}
			if existing, ok := verbs[verb]; ok && existing != id {
				return nil, &VerbCollisionError{Keys: keys, Verb: verb, Existing: existing, Incoming: id}
			}
			verbs[verb] = id
			if rest != "" {
				candidates = append(candidates, rest)
			}
		}
	}

	entityName := resolveEntity(candidates, ancestors)

	childAncestors := ancestors
	if entityName != "" {
		childAncestors = append(slices.Clone(ancestors), entityName)
	}

	entries, err := b.buildChildren(node, keys, childAncestors)
	if err != nil {
		return nil, err
	}

	if len(verbs) == 0 && len(entries) == 0 {
		b.logger.Debug("prune entry without verbs", "keys", location(keys), "operations", node.sortedIDs())
		return nil, nil
	}

	return &Entry{
		EntityName: entityName,
		Entries:    entries,
		Verbs:      verbs,
	}, nil
}

// buildTop 转换顶层节点，顶层按片段原样插入，不做兄弟合并
func (b *builder) buildTop(root *rawEntry) (map[string]*Entry, error) {
	entries := map[string]*Entry{}
	for _, key := range root.sortedKeys() {
		child, err := b.build(root.children[key], []string{key}, nil)
		if err != nil {
			return nil, err
		}
		if child != nil {
			entries[key] = child
		}
	}
	return entries, nil
}

// buildChildren 按键的字母序转换子节点
// 实体名与已有兄弟节点相同的子节点合并进该兄弟，否则以原片段为键插入
func (b *builder) buildChildren(node *rawEntry, keys, ancestors []string) (map[string]*Entry, error) {
	entries := map[string]*Entry{}
	var placed []string

	for _, key := range node.sortedKeys() {
		childKeys := append(slices.Clone(keys), key)
		child, err := b.build(node.children[key], childKeys, ancestors)
		if err != nil {
			return nil, err
		}
		if child == nil {
			continue
		}

		if sibling := findSibling(entries, placed, child.EntityName); sibling != "" {
			b.logger.Debug("merge sibling", "into", location(append(slices.Clone(keys), sibling)), "from", location(childKeys))
			if err := entries[sibling].merge(child, append(slices.Clone(keys), sibling)); err != nil {
				return nil, err
			}
			continue
		}

		entries[key] = child
		placed = append(placed, key)
	}

	return entries, nil
}

// findSibling 按插入顺序（即字母序）查找实体名相同的兄弟节点
func findSibling(entries map[string]*Entry, placed []string, entityName string) string {
	for _, key := range placed {
		if entries[key].EntityName == entityName {
			return key
		}
	}
	return ""
}

// resolveEntity 取字典序最小的候选，统一成小驼峰后依次去掉祖先实体前缀
func resolveEntity(candidates, ancestors []string) string {
	if len(candidates) == 0 {
		return ""
	}

	name := strcase.ToLowerCamel(slices.Min(candidates))
	for _, ancestor := range ancestors {
		if rest, ok := strings.CutPrefix(name, ancestor); ok {
			name = strcase.ToLowerCamel(rest)
		}
	}
	return name
}
