// Package store は、ロットとサンプルの保持と永続化機能を提供します。
package store

import (
	"context"

	"github.com/stsysd/lotbook/model"
)

// Backend はロットとサンプルを永続化する保存先のインターフェースです。
// 並び順は保存順を維持しなければなりません。
type Backend interface {
	// Load は保存されているすべてのロットとサンプルを読み込みます。
	Load(ctx context.Context) ([]*model.Lot, []*model.Sample, error)
	// AppendLot はロットを1行だけ末尾に追記します。
	AppendLot(ctx context.Context, lot *model.Lot) error
	// AppendSample はサンプルを1行だけ末尾に追記します。
	AppendSample(ctx context.Context, sample *model.Sample) error
	// Rewrite は全ロット、続けて全サンプルの順で保存先全体を書き直します。
	Rewrite(ctx context.Context, lots []*model.Lot, samples []*model.Sample) error
	// Close は保存先を閉じます。
	Close() error
}
