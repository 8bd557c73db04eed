package core

import (
	"errors"
	"fmt"
	"strings"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 提供错误代码（Code）、模块（Module）和消息（Message）
//   - 具体错误（MissingFeatureError 等）都可以通过 AsDomainError 转换为 DomainError
//   - 支持错误检查函数（IsXXX），内部使用 errors.As，兼容 %w 包装
type DomainError struct {
	Code    string // 错误代码（如 "MISSING_FEATURE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "feature", "rank", "model"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound        = "NOT_FOUND"
	ErrorCodeNotSupported    = "NOT_SUPPORTED"
	ErrorCodeInvalidInput    = "INVALID_INPUT"
	ErrorCodeMissingFeature  = "MISSING_FEATURE"
	ErrorCodeUnparsableInput = "UNPARSABLE_INPUT"
	ErrorCodeRankComputation = "RANK_COMPUTATION"
	ErrorCodeModelInference  = "MODEL_INFERENCE"
)

// 模块名称常量
const (
	ModuleStore   = "store"
	ModuleFeature = "feature"
	ModuleRank    = "rank"
	ModuleModel   = "model"
	ModuleIngest  = "ingest"
)

// MissingFeatureError 表示派生出的向量或上传表格缺少模型需要的特征。
// 对单个请求总是致命的；Features 列出全部缺失项以便排查。
type MissingFeatureError struct {
	Features []string
}

func NewMissingFeatureError(features []string) *MissingFeatureError {
	return &MissingFeatureError{Features: features}
}

func (e *MissingFeatureError) Error() string {
	return fmt.Sprintf("missing required features: [%s]", strings.Join(e.Features, ", "))
}

func (e *MissingFeatureError) Domain() *DomainError {
	return NewDomainError(ModuleFeature, ErrorCodeMissingFeature, e.Error())
}

// UnparsableInputError 表示字段无法转换为期望的类型。
// 有默认值的字段会回退到默认值，只有没有默认值的必填字段（如 track）才会返回该错误。
type UnparsableInputError struct {
	Field string
	Value string
	Cause error
}

func (e *UnparsableInputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("unparsable %s %q: %v", e.Field, e.Value, e.Cause)
	}
	return fmt.Sprintf("unparsable %s %q", e.Field, e.Value)
}

func (e *UnparsableInputError) Unwrap() error { return e.Cause }

func (e *UnparsableInputError) Domain() *DomainError {
	return NewDomainError(ModuleIngest, ErrorCodeUnparsableInput, e.Error())
}

// RankComputationError 表示同伴排名计算失败。
// Deriver 会在本地恢复（rank = 1），不会向上传播。
type RankComputationError struct {
	Reason string
	Cause  error
}

func (e *RankComputationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rank computation: %s: %v", e.Reason, e.Cause)
	}
	return "rank computation: " + e.Reason
}

func (e *RankComputationError) Unwrap() error { return e.Cause }

func (e *RankComputationError) Domain() *DomainError {
	return NewDomainError(ModuleRank, ErrorCodeRankComputation, e.Error())
}

// ModelInferenceError 包装模型推理过程中的底层错误，对该请求是致命的。
type ModelInferenceError struct {
	Model string
	Cause error
}

func (e *ModelInferenceError) Error() string {
	return fmt.Sprintf("model %s inference: %v", e.Model, e.Cause)
}

func (e *ModelInferenceError) Unwrap() error { return e.Cause }

func (e *ModelInferenceError) Domain() *DomainError {
	return NewDomainError(ModuleModel, ErrorCodeModelInference, e.Error())
}

// Store 错误定义
var (
	ErrStoreNotFound     = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")
	ErrStoreNotSupported = NewDomainError(ModuleStore, ErrorCodeNotSupported, "store: operation not supported")
)

// AsDomainError 把任意领域错误转换为 DomainError；非领域错误返回 nil。
func AsDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	var d interface{ Domain() *DomainError }
	if errors.As(err, &d) {
		return d.Domain()
	}
	return nil
}

// IsMissingFeature 检查错误是否为 MissingFeatureError
func IsMissingFeature(err error) bool {
	var target *MissingFeatureError
	return errors.As(err, &target)
}

// IsUnparsableInput 检查错误是否为 UnparsableInputError
func IsUnparsableInput(err error) bool {
	var target *UnparsableInputError
	return errors.As(err, &target)
}

// IsRankComputation 检查错误是否为 RankComputationError
func IsRankComputation(err error) bool {
	var target *RankComputationError
	return errors.As(err, &target)
}

// IsModelInference 检查错误是否为 ModelInferenceError
func IsModelInference(err error) bool {
	var target *ModelInferenceError
	return errors.As(err, &target)
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if de := AsDomainError(err); de != nil {
		return de.Code == ErrorCodeNotFound
	}
	return false
}
