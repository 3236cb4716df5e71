// Package model は、アプリケーションのデータモデル定義を提供します。
package model

import (
	"errors"
	"strings"
	"time"
)

// Sample はロットに属するサンプルを表すモデルです。
type Sample struct {
	LotCode    string    `json:"lot_code"`    // 所属ロットのコード
	SerialCode string    `json:"serial_code"` // ロット内の4桁シリアル
	FullCode   string    `json:"full_code"`   // ロットコード+シリアルの12桁コード
	Name       string    `json:"name"`        // サンプル名
	Notes      string    `json:"notes"`       // 観察メモ
	Active     bool      `json:"active"`      // アクティブフラグ
	CreatedAt  time.Time `json:"created_at"`  // 登録日時
}

// NewSample は新しいSampleインスタンスを作成します。
// メモは空、アクティブフラグはfalseで初期化されます。
func NewSample(lotCode LotCode, serial SerialCode, name string, createdAt time.Time) (*Sample, error) {
	name = NormalizeNewlines(strings.TrimSpace(name))
	if name == "" {
		return nil, NewValidationError("sample name cannot be empty")
	}
	s := &Sample{
		LotCode:    lotCode.String(),
		SerialCode: serial.String(),
		FullCode:   JoinFullCode(lotCode, serial).String(),
		Name:       name,
		Notes:      "",
		Active:     false,
		CreatedAt:  createdAt,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadSample は保存済みのSampleインスタンスを作成します。
func LoadSample(lotCode, serialCode, fullCode, name, notes string, active bool, createdAt time.Time) (*Sample, error) {
	s := &Sample{
		LotCode:    lotCode,
		SerialCode: serialCode,
		FullCode:   fullCode,
		Name:       name,
		Notes:      notes,
		Active:     active,
		CreatedAt:  createdAt,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// HasSerialCode はサンプルとして分類できるかを返します。
// ロットとサンプルの区別は保存された種別ではなくシリアルの有無で行います。
func HasSerialCode(serialCode string) bool {
	return serialCode != ""
}

// Validate はサンプルのデータバリデーションを行います。
func (s *Sample) Validate() error {
	if s.LotCode == "" {
		return errors.New("lot code is required")
	}
	if !HasSerialCode(s.SerialCode) {
		return errors.New("serial code is required")
	}
	if s.FullCode != s.LotCode+s.SerialCode {
		return errors.New("full code must be lot code followed by serial code")
	}
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("sample name is required")
	}
	if s.CreatedAt.IsZero() {
		return errors.New("created_at is required")
	}
	return nil
}
