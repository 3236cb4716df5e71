// Package model は、アプリケーションのデータモデル定義を提供します。
package model

import (
	"errors"
	"strings"
)

// Lot はサンプルをまとめるロットを表すモデルです。
type Lot struct {
	LotCode string `json:"lot_code"` // 8桁のロットコード
	Name    string `json:"name"`     // ロット名
}

// NewLot は新しいLotインスタンスを作成します。
// 名前は前後の空白を取り除いた上で検証されます。
func NewLot(lotCode LotCode, name string) (*Lot, error) {
	name = NormalizeNewlines(strings.TrimSpace(name))
	if name == "" {
		return nil, NewValidationError("lot name cannot be empty")
	}
	lot := &Lot{
		LotCode: lotCode.String(),
		Name:    name,
	}
	if err := lot.Validate(); err != nil {
		return nil, err
	}
	return lot, nil
}

// LoadLot は保存済みのLotインスタンスを作成します。
func LoadLot(lotCode, name string) (*Lot, error) {
	lot := &Lot{
		LotCode: lotCode,
		Name:    name,
	}
	if err := lot.Validate(); err != nil {
		return nil, err
	}
	return lot, nil
}

// Validate はロットのデータバリデーションを行います。
func (l *Lot) Validate() error {
	if l.LotCode == "" {
		return errors.New("lot code is required")
	}
	if strings.TrimSpace(l.Name) == "" {
		return errors.New("lot name is required")
	}
	return nil
}
