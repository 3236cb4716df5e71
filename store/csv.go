package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stsysd/lotbook/model"
)

// CSVBackend は区切りテキストファイル1つを保存先とするBackendの実装です。
type CSVBackend struct {
	path string
}

// NewCSVBackend は新しいCSVBackendを作成します。
// ファイルが存在しないか空の場合は、ヘッダーと起動行を書き込みます。
func NewCSVBackend(dataDir, fileName string) (*CSVBackend, error) {
	// データディレクトリの作成（存在しない場合）
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	b := &CSVBackend{path: filepath.Join(dataDir, fileName)}
	if err := b.bootstrap(time.Now()); err != nil {
		return nil, err
	}
	return b, nil
}

// Path は保存先ファイルのパスを返します。
func (b *CSVBackend) Path() string {
	return b.path
}

func (b *CSVBackend) bootstrap(now time.Time) error {
	f, err := os.OpenFile(b.path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open store file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat store file: %w", err)
	}
	if info.Size() > 0 {
		return nil
	}

	w := newCSVWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.Write(bootstrapRow(now).fields()); err != nil {
		return fmt.Errorf("failed to write bootstrap row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	return f.Sync()
}

// Load はファイル全体を読み込み、行をロットとサンプルに分類します。
func (b *CSVBackend) Load(ctx context.Context) ([]*model.Lot, []*model.Sample, error) {
	f, err := os.Open(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)

	// ヘッダー行の検証
	got, err := r.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, toCorruptError(err)
	}
	if !matchHeader(got) {
		return nil, nil, &model.CorruptError{Line: 1, Message: "unexpected header: " + strings.Join(got, ",")}
	}

	var lots []*model.Lot
	var samples []*model.Sample
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, toCorruptError(err)
		}
		line, _ := r.FieldPos(0)

		kind, lot, sample, msg := rowFromFields(fields).decode()
		if msg != "" {
			return nil, nil, &model.CorruptError{Line: line, Message: msg}
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

// AppendLot はロット行をファイル末尾に追記します。
func (b *CSVBackend) AppendLot(ctx context.Context, lot *model.Lot) error {
	return b.appendRow(lotRow(lot))
}

// AppendSample はサンプル行をファイル末尾に追記します。
func (b *CSVBackend) AppendSample(ctx context.Context, sample *model.Sample) error {
	return b.appendRow(sampleRow(sample))
}

func (b *CSVBackend) appendRow(r row) error {
	f, err := os.OpenFile(b.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open store file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat store file: %w", err)
	}

	w := newCSVWriter(f)
	// 外部で空にされたファイルにはヘッダーから書き直す
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if err := w.Write(r.fields()); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	return f.Sync()
}

// Rewrite はヘッダー、全ロット、全サンプルの順で一時ファイルへ書き出し、
// 元のファイルを置き換えます。
func (b *CSVBackend) Rewrite(ctx context.Context, lots []*model.Lot, samples []*model.Sample) (err error) {
	dir, base := filepath.Split(b.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	// 失敗した場合は一時ファイルを残さない
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	w := newCSVWriter(tmp)
	if err = w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, lot := range lots {
		if err = w.Write(lotRow(lot).fields()); err != nil {
			return fmt.Errorf("failed to write lot %s: %w", lot.LotCode, err)
		}
	}
	for _, sample := range samples {
		if err = w.Write(sampleRow(sample).fields()); err != nil {
			return fmt.Errorf("failed to write sample %s: %w", sample.FullCode, err)
		}
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("failed to chmod temporary file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err = os.Rename(tmpPath, b.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

// Close はCSVBackendでは何もしません。
func (b *CSVBackend) Close() error {
	return nil
}

func newCSVWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	return cw
}

func matchHeader(got []string) bool {
	if len(got) != len(header) {
		return false
	}
	for i, h := range header {
		cell := got[i]
		if i == 0 {
			cell = strings.TrimPrefix(cell, "\ufeff")
		}
		if strings.TrimSpace(cell) != h {
			return false
		}
	}
	return true
}

func toCorruptError(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &model.CorruptError{Line: parseErr.Line, Message: parseErr.Err.Error()}
	}
	return fmt.Errorf("failed to read store file: %w", err)
}
