package saga

import (
	"errors"
	"fmt"
)

// Kind 对步骤错误进行分类，驱动重试与补偿决策。
type Kind int

// 错误分类常量。
const (
	// KindInternal 表示未分类的内部错误，不可重试。
	KindInternal Kind = iota
	// KindTransient 表示依赖方瞬时故障（超时/限流），可按策略重试。
	KindTransient
	// KindConflict 表示竞争失败（如并发抢占同一池条目），可有限重试。
	KindConflict
	// KindNotFound 表示预期资源缺失（一致性被破坏），不可重试，直接补偿。
	KindNotFound
	// KindTimeout 表示整个 Run 超出墙钟预算，致命且不做内联补偿。
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// Error 携带错误分类与发生步骤，在引擎内部传递。
type Error struct {
	Step string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("saga %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("saga step %s (%s): %v", e.Step, e.Kind, e.Err)
}

// Unwrap 支持 errors.Is/As 链式匹配。
func (e *Error) Unwrap() error { return e.Err }

// Mark 以指定分类包装错误。
func Mark(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Transient 标记瞬时错误。
func Transient(err error) error { return Mark(KindTransient, err) }

// Conflict 标记竞争冲突错误。
func Conflict(err error) error { return Mark(KindConflict, err) }

// NotFound 标记资源缺失错误。
func NotFound(err error) error { return Mark(KindNotFound, err) }

// KindOf 返回错误的分类，未标记的错误归为 KindInternal。
func KindOf(err error) Kind {
	var sagaErr *Error
	if errors.As(err, &sagaErr) {
		return sagaErr.Kind
	}
	return KindInternal
}

var (
	// ErrRunTimeout 表示 Run 超出墙钟预算。
	ErrRunTimeout = errors.New("saga: run budget exceeded")
	// ErrCompensationFailed 表示补偿链在重试耗尽后仍失败，需要人工对账。
	ErrCompensationFailed = errors.New("saga: compensation failed")
)
