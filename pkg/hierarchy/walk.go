package hierarchy

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dlclark/regexp2"
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/glesirok/apicmd/pkg/path"
)

// rawEntry 是只按常量片段建立的中间树
type rawEntry struct {
	children     map[string]*rawEntry
	operationIDs map[string]struct{}
}

func newRawEntry() *rawEntry {
	return &rawEntry{
		children:     map[string]*rawEntry{},
		operationIDs: map[string]struct{}{},
	}
}

// child 返回（必要时创建）指定片段的子节点
func (r *rawEntry) child(segment string) *rawEntry {
	c, ok := r.children[segment]
	if !ok {
		c = newRawEntry()
		r.children[segment] = c
	}
	return c
}

func (r *rawEntry) sortedIDs() []string {
	return keysOf(r.operationIDs)
}

func (r *rawEntry) sortedKeys() []string {
	return keysOf(r.children)
}

// walkResult 是遍历 OpenAPI 路径的产物
type walkResult struct {
	root         *rawEntry
	operationIDs []string
	segments     []string
}

// walker 遍历 OpenAPI 文档中的路径并建立中间树
type walker struct {
	prefix string
	ignore []*regexp2.Regexp
	logger *log.Logger
}

// walk 遍历所有以 prefix 开头的路径，把 operationId 挂到常量片段对应的节点上
// 前缀不匹配、解析为空、没有 operationId 的条目直接跳过
func (w *walker) walk(paths map[string]*openapi3.PathItem) (*walkResult, error) {
	root := newRawEntry()
	ids := map[string]struct{}{}
	segments := map[string]struct{}{}

	for _, template := range keysOf(paths) {
		rest, ok := strings.CutPrefix(template, w.prefix)
		if !ok {
			w.logger.Debug("skip path outside prefix", "path", template)
			continue
		}

		p, ok := path.Parse(rest)
		if !ok {
			w.logger.Debug("skip empty path", "path", template)
			continue
		}

		item := paths[template]
		if item == nil {
			continue
		}

		entry := root
		for _, segment := range p.Constants() {
			entry = entry.child(segment)
			segments[segment] = struct{}{}
		}

		for method, op := range item.Operations() {
			if op == nil || op.OperationID == "" {
				w.logger.Debug("skip operation without id", "method", method, "path", template)
				continue
			}

			ignored, err := w.ignored(op.OperationID)
			if err != nil {
				return nil, err
			}
			if ignored {
				w.logger.Debug("skip ignored operation", "operation", op.OperationID)
				continue
			}

			entry.operationIDs[op.OperationID] = struct{}{}
			ids[op.OperationID] = struct{}{}
		}
	}

	return &walkResult{
		root:         root,
		operationIDs: keysOf(ids),
		segments:     keysOf(segments),
	}, nil
}

func (w *walker) ignored(operationID string) (bool, error) {
	for _, re := range w.ignore {
		matched, err := re.MatchString(operationID)
		if err != nil {
			return false, fmt.Errorf("match ignore pattern %q: %w", re.String(), err)
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}
