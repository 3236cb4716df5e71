// Package db はSQLiteバックエンドのスキーマとクエリを提供します。
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

// schema/ 以下のファイルがentriesテーブルの履歴です。
// ロット行とサンプル行はserial_codeが空かどうかで区別し、seqが保存順を表します。
//
//go:embed schema/*.sql
var embedMigrations embed.FS

// Migrate はentriesテーブルを最新のスキーマにします。適用済みの場合は何もしません。
func Migrate(conn *sql.DB) error {
	// サーバーとCLIが同じファイルを開いてもSQLITE_BUSYで即失敗しないようにする
	if _, err := conn.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	schema, err := fs.Sub(embedMigrations, "schema")
	if err != nil {
		return fmt.Errorf("failed to open embedded schema: %w", err)
	}

	// Providerはgooseのパッケージ状態を変更しない
	provider, err := goose.NewProvider(goose.DialectSQLite3, conn, schema)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	if _, err := provider.Up(context.Background()); err != nil {
		return fmt.Errorf("failed to migrate entries table: %w", err)
	}

	return nil
}
