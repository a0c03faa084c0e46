package errors

import (
	"errors"
	"fmt"
)

// ── 错误分类 ──
// 业务错误统一包装为 *AppError，Kind 取以下哨兵值之一，调用方通过 errors.Is 判断分类

var (
	// ErrNotFound 资源不存在（或不属于调用方所在中心）
	ErrNotFound = errors.New("资源不存在")
	// ErrInvalidConfiguration 配置错误：班级未设置课表、星期名称无法识别等
	ErrInvalidConfiguration = errors.New("配置无效")
	// ErrConflict 与现有数据冲突
	ErrConflict = errors.New("数据冲突")
	// ErrValidation 输入格式错误
	ErrValidation = errors.New("参数校验失败")
	// ErrDuplicate 存储层唯一约束冲突，由 Repository 翻译
	ErrDuplicate = errors.New("记录已存在")
)

// AppError 携带实体与字段信息的业务错误
type AppError struct {
	Kind    error
	Entity  string
	Field   string
	ID      string
	Message string
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	switch {
	case e.ID != "":
		return fmt.Sprintf("%s: %s (%s=%s)", e.Kind, e.Message, e.Entity, e.ID)
	case e.Field != "":
		return fmt.Sprintf("%s: %s (field=%s)", e.Kind, e.Message, e.Field)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// Unwrap 使 errors.Is(err, ErrNotFound) 等判断成立
func (e *AppError) Unwrap() error { return e.Kind }

// NotFound 构造资源不存在错误
func NotFound(entity, id, message string) *AppError {
	return &AppError{Kind: ErrNotFound, Entity: entity, ID: id, Message: message}
}

// InvalidConfiguration 构造配置错误
func InvalidConfiguration(field, message string) *AppError {
	return &AppError{Kind: ErrInvalidConfiguration, Field: field, Message: message}
}

// Conflict 构造冲突错误
func Conflict(entity, id, message string) *AppError {
	return &AppError{Kind: ErrConflict, Entity: entity, ID: id, Message: message}
}

// Validation 构造校验错误
func Validation(field, message string) *AppError {
	return &AppError{Kind: ErrValidation, Field: field, Message: message}
}

// As 提取错误链中的 *AppError
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
