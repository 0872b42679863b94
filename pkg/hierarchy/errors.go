package hierarchy

import (
	"errors"
	"fmt"
	"strings"
)

// ErrVerbCollision 表示同一实体下两个不同的 operationId 声明了同一个动词
var ErrVerbCollision = errors.New("verb collision")

// VerbCollisionError 记录冲突发生的位置
type VerbCollisionError struct {
	Keys     []string
	Verb     string
	Existing string
	Incoming string
}

func (e *VerbCollisionError) Error() string {
	return fmt.Sprintf("%s: verb %q at %s claimed by both %q and %q",
		ErrVerbCollision, e.Verb, location(e.Keys), e.Existing, e.Incoming)
}

func (e *VerbCollisionError) Unwrap() error {
	return ErrVerbCollision
}

func location(keys []string) string {
	if len(keys) == 0 {
		return "<root>"
	}
	return strings.Join(keys, ".")
}
