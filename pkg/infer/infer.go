// Package infer 从 operationId 集合中推断动词和实体名
package infer

import (
	"slices"
	"strings"
	"unicode"

	"github.com/gertd/go-pluralize"
	"golang.org/x/exp/maps"
)

// DefaultSeedVerbs 是默认的种子动词
var DefaultSeedVerbs = []string{
	"add", "create", "delete", "get", "list", "update", "upgrade", "verify",
}

// Singularizer 把名词转成单数形式
type Singularizer interface {
	Singular(word string) string
}

// NewSingularizer 返回基于 go-pluralize 的默认实现
func NewSingularizer() Singularizer {
	return pluralize.NewClient()
}

// Result 是推断结果，两个集合都已排序去重
type Result struct {
	Verbs    []string `yaml:"verbs"`
	Entities []string `yaml:"entities"`
}

// Infer 执行两轮推断：先用种子动词发现实体，再用实体反推其余动词
func Infer(operationIDs, seeds []string, s Singularizer) Result {
	entities := Entities(operationIDs, seeds, s)
	return Result{
		Verbs:    Verbs(operationIDs, seeds, entities),
		Entities: entities,
	}
}

// Entities 第一轮：operationId 以种子动词开头时，剩余部分的单数形式即实体
// 同一个 operationId 可能匹配多个动词，所有候选都保留
func Entities(operationIDs, seeds []string, s Singularizer) []string {
	entities := map[string]struct{}{}

	for _, id := range sorted(operationIDs) {
		for _, verb := range sorted(seeds) {
			rest, ok := strings.CutPrefix(id, verb)
			if !ok || rest == "" {
				continue
			}
			entities[singularize(rest, s)] = struct{}{}
		}
	}

	return keysOf(entities)
}

// Verbs 第二轮：在以实体结尾的匹配中取剩余前缀最短的一个作为新动词
// 等长时保留字典序靠前的实体，结果总是包含全部种子动词
func Verbs(operationIDs, seeds, entities []string) []string {
	verbs := map[string]struct{}{}
	for _, verb := range seeds {
		verbs[verb] = struct{}{}
	}

	candidates := sorted(entities)
	for _, id := range sorted(operationIDs) {
		best, found := "", false
		for _, entity := range candidates {
			prefix, ok := strings.CutSuffix(id, entity)
			if !ok || prefix == "" {
				continue
			}
			if !found || len(prefix) < len(best) {
				best, found = prefix, true
			}
		}

		if found {
			verbs[best] = struct{}{}
		}
	}

	return keysOf(verbs)
}

// singularize 只处理最后一个驼峰单词，保留前面的大小写
// 例如 OrgMembers -> OrgMember
func singularize(word string, s Singularizer) string {
	head, tail := splitLastWord(word)
	single := s.Singular(tail)
	if single == "" {
		return word
	}
	return head + single
}

func splitLastWord(word string) (string, string) {
	runes := []rune(word)
	for i := len(runes) - 1; i > 0; i-- {
		if !unicode.IsUpper(runes[i]) {
			continue
		}
		// APIKeys 在 K 处切分
		if !unicode.IsUpper(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1])) {
			return string(runes[:i]), string(runes[i:])
		}
	}
	return "", word
}

func sorted(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}

// keysOf 返回排序后的 map 键
func keysOf[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
