// Package model は、アプリケーションのデータモデル定義を提供します。
package model

import (
	"errors"
	"fmt"
)

// センチネルエラー - リソースが見つからない場合
var (
	ErrNotFound       = errors.New("not found")
	ErrLotNotFound    = fmt.Errorf("lot %w", ErrNotFound)
	ErrSampleNotFound = fmt.Errorf("sample %w", ErrNotFound)
)

// ErrCodeSpaceExhausted は未使用のコードを生成できなかった場合のエラーです。
var ErrCodeSpaceExhausted = errors.New("no unused code available")

// ValidationError はバリデーションエラーを表す型
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError はValidationErrorを生成するヘルパー関数
func NewValidationError(msg string) error {
	return &ValidationError{Message: msg}
}

// FormatError は検索文字列の形式が不正な場合のエラーです。
type FormatError struct {
	Input   string
	Message string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid code %q: %s", e.Input, e.Message)
}

// CorruptError は保存データの行を分類できない場合のエラーです。
// Line は1始まりの行番号（ヘッダー行を含む）です。
type CorruptError struct {
	Line    int
	Message string
}

func (e *CorruptError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("corrupt store at line %d: %s", e.Line, e.Message)
	}
	return "corrupt store: " + e.Message
}
