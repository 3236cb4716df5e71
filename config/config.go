// Package config はアプリケーション設定を管理します。
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// ストアのバックエンド種別
const (
	DriverCSV    = "csv"
	DriverSQLite = "sqlite"
)

// ErrAPIKeyNotSet はAPIキーが未設定の場合のエラーです。
var ErrAPIKeyNotSet = errors.New("LOTBOOK_API_KEY is not set")

// Config はアプリケーション全体の設定を保持します。
type Config struct {
	// データディレクトリのパス
	DataDir string

	// ストアのバックエンド (csv または sqlite)
	StoreDriver string

	// CSVファイル名 (DataDirからの相対)
	CSVFile string

	// HTTPサーバーのポート
	Port string

	// API認証キー
	APIKey string

	// ログレベル (debug, info, warn, error)
	LogLevel string
}

// NewConfig は環境変数から設定を読み込み、Configインスタンスを生成します。
// カレントディレクトリに .env があれば先に読み込みます。既存の環境変数は上書きしません。
func NewConfig() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv は .env を読まずに環境変数だけから設定を生成します。
func FromEnv() *Config {
	return &Config{
		DataDir:     getenv("LOTBOOK_DATA_DIR", filepath.Join(".", "data")),
		StoreDriver: strings.ToLower(getenv("LOTBOOK_STORE_DRIVER", DriverCSV)),
		CSVFile:     getenv("LOTBOOK_CSV_FILE", "lots_and_samples.csv"),
		Port:        getenv("LOTBOOK_SERVER_PORT", "8080"),
		APIKey:      os.Getenv("LOTBOOK_API_KEY"),
		LogLevel:    strings.ToLower(getenv("LOTBOOK_LOG_LEVEL", "info")),
	}
}

// Validate は設定値の整合性を検証します。
// APIキーはサーバー起動時にのみ必要なため、ここでは検証しません。
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverCSV, DriverSQLite:
	default:
		return fmt.Errorf("unknown store driver %q: use %q or %q", c.StoreDriver, DriverCSV, DriverSQLite)
	}
	if c.StoreDriver == DriverCSV && strings.TrimSpace(c.CSVFile) == "" {
		return fmt.Errorf("LOTBOOK_CSV_FILE must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("LOTBOOK_DATA_DIR must not be empty")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// RequireAPIKey はAPIキーが設定されていることを確認します。
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return ErrAPIKeyNotSet
	}
	return nil
}

// Level はLogLevelをslog.Levelに変換します。
func (c *Config) Level() (slog.Level, error) {
	switch c.LogLevel {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", c.LogLevel)
}

// NewLogger は設定されたレベルのテキストロガーを生成します。
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
