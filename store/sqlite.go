package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stsysd/lotbook/db"
	"github.com/stsysd/lotbook/model"
)

// sqliteFileName はデータディレクトリ内のSQLiteファイル名です。
const sqliteFileName = "lotbook.db"

// SQLiteBackend はSQLiteを使用したBackendの実装です。
// ロットとサンプルはCSVと同じ列構成でentriesテーブルに保存されます。
type SQLiteBackend struct {
	conn    *sql.DB
	queries *db.Queries
}

// NewSQLiteBackend は新しいSQLiteBackendを作成します。
func NewSQLiteBackend(dataDir string, migrate func(*sql.DB) error) (*SQLiteBackend, error) {
	// データディレクトリの作成（存在しない場合）
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, sqliteFileName)

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	// マイグレーションの実行
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteBackend{
		conn:    conn,
		queries: db.New(conn),
	}, nil
}

// Load はentriesテーブルを保存順に読み込みます。
func (b *SQLiteBackend) Load(ctx context.Context) ([]*model.Lot, []*model.Sample, error) {
	entries, err := b.queries.ListEntries(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list entries: %w", err)
	}

	var lots []*model.Lot
	var samples []*model.Sample
	for _, entry := range entries {
		kind, lot, sample, msg := entryRow(entry).decode()
		if msg != "" {
			return nil, nil, &model.CorruptError{Line: int(entry.Seq), Message: msg}
		}
		switch kind {
		case kindLot:
			lots = append(lots, lot)
		case kindSample:
			samples = append(samples, sample)
		}
	}
	return lots, samples, nil
}

// AppendLot はロットを1行挿入します。
func (b *SQLiteBackend) AppendLot(ctx context.Context, lot *model.Lot) error {
	return b.queries.CreateEntry(ctx, entryParams(lotRow(lot)))
}

// AppendSample はサンプルを1行挿入します。
func (b *SQLiteBackend) AppendSample(ctx context.Context, sample *model.Sample) error {
	return b.queries.CreateEntry(ctx, entryParams(sampleRow(sample)))
}

// Rewrite はトランザクション内で全行を削除し、ロット、サンプルの順に挿入し直します。
func (b *SQLiteBackend) Rewrite(ctx context.Context, lots []*model.Lot, samples []*model.Sample) error {
	// トランザクションの開始
	tx, err := b.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// トランザクションをロールバックするための遅延関数
	defer func() {
		if tx != nil {
			tx.Rollback() // 成功した場合は既にnilになっているためエラーは無視
		}
	}()

	queriesWithTx := b.queries.WithTx(tx)

	if err := queriesWithTx.DeleteAllEntries(ctx); err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}
	for _, lot := range lots {
		if err := queriesWithTx.CreateEntry(ctx, entryParams(lotRow(lot))); err != nil {
			return fmt.Errorf("failed to insert lot %s: %w", lot.LotCode, err)
		}
	}
	for _, sample := range samples {
		if err := queriesWithTx.CreateEntry(ctx, entryParams(sampleRow(sample))); err != nil {
			return fmt.Errorf("failed to insert sample %s: %w", sample.FullCode, err)
		}
	}

	// トランザクションのコミット
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil // コミットが成功したのでnilにして遅延関数でのロールバックを防ぐ

	return nil
}

// Close はデータベース接続を閉じます。
func (b *SQLiteBackend) Close() error {
	return b.conn.Close()
}

func entryParams(r row) db.CreateEntryParams {
	var active int64
	if r.active == "True" {
		active = 1
	}
	return db.CreateEntryParams{
		CreatedAt:  r.datetime,
		LotCode:    r.lot,
		SerialCode: r.serial,
		FullCode:   r.fullCode,
		Name:       r.name,
		Notes:      r.notes,
		Active:     active,
	}
}

func entryRow(e db.Entry) row {
	r := row{
		datetime: e.CreatedAt,
		lot:      e.LotCode,
		serial:   e.SerialCode,
		fullCode: e.FullCode,
		name:     e.Name,
		notes:    e.Notes,
	}
	// ロット行はアクティブ列を持たない
	if model.HasSerialCode(e.SerialCode) {
		r.active = formatActive(e.Active != 0)
	}
	return r
}
