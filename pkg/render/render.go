// Package render 把层级转换成 cobra 命令树
package render

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/spf13/cobra"

	"github.com/glesirok/apicmd/pkg/hierarchy"
)

// OperationAnnotation 是叶子命令上记录 operationId 的注解键
const OperationAnnotation = "operationId"

// RunFunc 在执行某个动词命令时调用
type RunFunc func(cmd *cobra.Command, operationID string, args []string) error

// ErrNameClash 表示同一层下两个子命令的名字或别名相同
var ErrNameClash = errors.New("command name clash")

// Command 生成名为 use 的根命令，每个节点一个子命令，每个动词一个叶子命令
func Command(use string, h *hierarchy.Hierarchy, run RunFunc) (*cobra.Command, error) {
	root := &cobra.Command{
		Use:   use,
		Short: "Commands derived from the API description",
		Args:  cobra.NoArgs,
		RunE:  help,
	}

	names := map[string]string{}
	for _, key := range h.Keys() {
		cmd, err := entryCommand([]string{key}, h.Entries[key], run)
		if err != nil {
			return nil, err
		}
		if err := claim(names, cmd, "entry "+key); err != nil {
			return nil, fmt.Errorf("%s: %w", use, err)
		}
		root.AddCommand(cmd)
	}

	return root, nil
}

// entryCommand 递归生成节点命令，命名优先使用实体名
func entryCommand(keys []string, e *hierarchy.Entry, run RunFunc) (*cobra.Command, error) {
	key := keys[len(keys)-1]
	name := strcase.ToLowerCamel(e.Name(key))

	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Operations on %s", name),
		Args:  cobra.NoArgs,
		RunE:  help,
	}
	if name != key {
		cmd.Aliases = []string{key}
	}

	// 动词和子节点共用同一层命令名
	names := map[string]string{}
	for _, verb := range e.VerbNames() {
		leaf := verbCommand(verb, e.Verbs[verb], run)
		if err := claim(names, leaf, "verb "+verb); err != nil {
			return nil, fmt.Errorf("%s: %w", strings.Join(keys, "."), err)
		}
		cmd.AddCommand(leaf)
	}

	for _, childKey := range e.Keys() {
		child, err := entryCommand(append(slices.Clone(keys), childKey), e.Entries[childKey], run)
		if err != nil {
			return nil, err
		}
		if err := claim(names, child, "entry "+childKey); err != nil {
			return nil, fmt.Errorf("%s: %w", strings.Join(keys, "."), err)
		}
		cmd.AddCommand(child)
	}

	return cmd, nil
}

// claim 登记命令名和别名，owner 用于错误信息
func claim(names map[string]string, cmd *cobra.Command, owner string) error {
	for _, name := range append([]string{cmd.Name()}, cmd.Aliases...) {
		if existing, ok := names[name]; ok {
			return fmt.Errorf("%w: %q used by both %s and %s", ErrNameClash, name, existing, owner)
		}
		names[name] = owner
	}
	return nil
}

func verbCommand(verb, operationID string, run RunFunc) *cobra.Command {
	return &cobra.Command{
		Use:         verb,
		Short:       fmt.Sprintf("Run %s", operationID),
		Annotations: map[string]string{OperationAnnotation: operationID},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, operationID, args)
		},
	}
}

func help(cmd *cobra.Command, _ []string) error {
	return cmd.Help()
}
