package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/stsysd/lotbook/model"
)

// defaultMaxAttempts はコード生成で未使用のコードを探す最大試行回数です。
const defaultMaxAttempts = 1000

// Store はロットとサンプルのメモリ上の一覧を所有し、
// 変更をBackendへ反映します。Backendに触れるのはStoreだけです。
type Store struct {
	mu          sync.RWMutex
	backend     Backend
	lots        []*model.Lot
	samples     []*model.Sample
	generate    model.CodeGenerator
	now         func() time.Time
	logger      *slog.Logger
	maxAttempts int
}

// Option はStoreの設定を変更します。
type Option func(*Store)

// WithCodeGenerator はコード生成関数を差し替えます。
func WithCodeGenerator(gen model.CodeGenerator) Option {
	return func(s *Store) { s.generate = gen }
}

// WithClock は現在時刻の取得関数を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger はロガーを設定します。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithMaxAttempts はコード生成の最大試行回数を設定します。
func WithMaxAttempts(n int) Option {
	return func(s *Store) { s.maxAttempts = n }
}

// New はBackendから全件を読み込んだStoreを作成します。
func New(ctx context.Context, backend Backend, opts ...Option) (*Store, error) {
	s := &Store{
		backend:     backend,
		generate:    model.RandomCode,
		now:         time.Now,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, _, err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Load は保存先を全件読み直し、メモリ上の一覧を置き換えます。
// 書き込みを挟まなければ何度呼んでも同じ結果を返します。
func (s *Store) Load(ctx context.Context) ([]*model.Lot, []*model.Sample, error) {
	// 読み込み中の追記を読み落とさないよう、読み込みから置き換えまでロックを保持する
	s.mu.Lock()
	defer s.mu.Unlock()

	lots, samples, err := s.backend.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load store: %w", err)
	}
	s.lots = lots
	s.samples = samples
	s.logger.Debug("store loaded", "lots", len(lots), "samples", len(samples))
	return cloneLots(s.lots), cloneSamples(s.samples), nil
}

// CreateLot は新しいロットを作成し、保存先の末尾に追記します。
func (s *Store) CreateLot(ctx context.Context, name string) (*model.Lot, error) {
	if strings.TrimSpace(name) == "" {
		return nil, model.NewValidationError("lot name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := s.newLotCode()
	if err != nil {
		return nil, err
	}
	lot, err := model.NewLot(code, name)
	if err != nil {
		return nil, err
	}

	// 保存に成功した場合のみメモリへ反映する
	if err := s.backend.AppendLot(ctx, lot); err != nil {
		return nil, fmt.Errorf("failed to append lot: %w", err)
	}
	s.lots = append(s.lots, lot)

	s.logger.Info("lot created", "lot_code", lot.LotCode, "name", lot.Name)
	return cloneLot(lot), nil
}

// CreateSample は既存ロットに新しいサンプルを作成し、保存先の末尾に追記します。
func (s *Store) CreateSample(ctx context.Context, lotCode, name string) (*model.Sample, error) {
	if strings.TrimSpace(name) == "" {
		return nil, model.NewValidationError("sample name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lot := s.findLot(lotCode)
	if lot == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrLotNotFound, lotCode)
	}
	// findLot が見つけたロットのコードは生成時に検証済み
	code, err := model.NewLotCode(lot.LotCode)
	if err != nil {
		return nil, fmt.Errorf("lot %s has a malformed code: %w", lot.LotCode, err)
	}

	serial, err := s.newSerialCode(code)
	if err != nil {
		return nil, err
	}
	sample, err := model.NewSample(code, serial, name, s.now().Truncate(time.Second))
	if err != nil {
		return nil, err
	}

	if err := s.backend.AppendSample(ctx, sample); err != nil {
		return nil, fmt.Errorf("failed to append sample: %w", err)
	}
	s.samples = append(s.samples, sample)

	s.logger.Info("sample created", "full_code", sample.FullCode, "name", sample.Name)
	return cloneSample(sample), nil
}

// SampleUpdate はサンプルの部分更新です。nilのフィールドは現在の値を保持します。
type SampleUpdate struct {
	Notes  *string
	Active *bool
}

// UpdateSample はサンプルのメモとアクティブフラグを更新し、保存先全体を書き直します。
// メモの改行はLFに揃えて保存されます。
// 書き直しに失敗した場合、メモリ上の変更は元に戻されます。
func (s *Store) UpdateSample(ctx context.Context, fullCode, notes string, active bool) (*model.Sample, error) {
	return s.PatchSample(ctx, fullCode, SampleUpdate{Notes: &notes, Active: &active})
}

// PatchSample は指定されたフィールドだけを書き込みロックの中で更新します。
// 現在値の読み取りと更新の間に他の更新が割り込むことはありません。
func (s *Store) PatchSample(ctx context.Context, fullCode string, update SampleUpdate) (*model.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample := s.findSampleByFullCode(fullCode)
	if sample == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrSampleNotFound, fullCode)
	}

	prevNotes, prevActive := sample.Notes, sample.Active
	if update.Notes != nil {
		sample.Notes = model.NormalizeNewlines(*update.Notes)
	}
	if update.Active != nil {
		sample.Active = *update.Active
	}

	if err := s.backend.Rewrite(ctx, s.lots, s.samples); err != nil {
		sample.Notes, sample.Active = prevNotes, prevActive
		return nil, fmt.Errorf("failed to rewrite store: %w", err)
	}

	s.logger.Info("sample updated", "full_code", sample.FullCode, "active", sample.Active)
	return cloneSample(sample), nil
}

// Import は別の保存先の内容で、この保存先とメモリ上の一覧を置き換えます。
func (s *Store) Import(ctx context.Context, src Backend) (int, int, error) {
	lots, samples, err := src.Load(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load import source: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Rewrite(ctx, lots, samples); err != nil {
		return 0, 0, fmt.Errorf("failed to rewrite store: %w", err)
	}
	s.lots = lots
	s.samples = samples

	s.logger.Info("store imported", "lots", len(lots), "samples", len(samples))
	return len(lots), len(samples), nil
}

// Lots はすべてのロットを保存順で返します。
func (s *Store) Lots() []*model.Lot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneLots(s.lots)
}

// SampleCount は保持しているサンプルの件数を返します。
func (s *Store) SampleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}

// FindLot はロットコードに一致するロットを返します。
func (s *Store) FindLot(lotCode string) (*model.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lot := s.findLot(lotCode)
	if lot == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrLotNotFound, lotCode)
	}
	return cloneLot(lot), nil
}

// FindLotByName は名前に一致する最初のロットを返します。
func (s *Store) FindLotByName(name string) (*model.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, lot := range s.lots {
		if lot.Name == name {
			return cloneLot(lot), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", model.ErrLotNotFound, name)
}

// FindSamplesByLot はロットに属するサンプルを登録順で返します。
// 該当がない場合は空のスライスを返します。
func (s *Store) FindSamplesByLot(lotCode string) []*model.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	samples := []*model.Sample{}
	for _, sample := range s.samples {
		if sample.LotCode == lotCode {
			samples = append(samples, cloneSample(sample))
		}
	}
	return samples
}

// FindSampleByFullCode はフルコードに完全一致するサンプルを返します。
func (s *Store) FindSampleByFullCode(fullCode string) (*model.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sample := s.findSampleByFullCode(fullCode)
	if sample == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrSampleNotFound, fullCode)
	}
	return cloneSample(sample), nil
}

// FindSampleBySerial はシリアルに一致する最初のサンプルを返します。
// lotCode が空の場合はすべてのロットから探します。
func (s *Store) FindSampleBySerial(lotCode, serialCode string) (*model.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sample := range s.samples {
		if sample.SerialCode != serialCode {
			continue
		}
		if lotCode != "" && sample.LotCode != lotCode {
			continue
		}
		return cloneSample(sample), nil
	}
	return nil, fmt.Errorf("%w: serial %s", model.ErrSampleNotFound, serialCode)
}

// FindSampleByName はロット内で名前に一致する最初のサンプルを返します。
func (s *Store) FindSampleByName(lotCode, name string) (*model.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sample := range s.samples {
		if sample.LotCode == lotCode && sample.Name == name {
			return cloneSample(sample), nil
		}
	}
	return nil, fmt.Errorf("%w: %q in lot %s", model.ErrSampleNotFound, name, lotCode)
}

// Close は保存先を閉じます。
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) findLot(lotCode string) *model.Lot {
	for _, lot := range s.lots {
		if lot.LotCode == lotCode {
			return lot
		}
	}
	return nil
}

func (s *Store) findSampleByFullCode(fullCode string) *model.Sample {
	for _, sample := range s.samples {
		if sample.FullCode == fullCode {
			return sample
		}
	}
	return nil
}

// newLotCode は未使用のロットコードを生成します。
func (s *Store) newLotCode() (model.LotCode, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code, err := model.NewLotCode(s.generate(model.LotCodeLength))
		if err != nil {
			return model.LotCode{}, fmt.Errorf("code generator: %w", err)
		}
		if s.findLot(code.String()) == nil {
			return code, nil
		}
		s.logger.Debug("lot code collision", "lot_code", code.String(), "attempt", attempt)
	}
	return model.LotCode{}, fmt.Errorf("lot code: %w", model.ErrCodeSpaceExhausted)
}

// newSerialCode はロット内で未使用のシリアルを生成します。
func (s *Store) newSerialCode(lot model.LotCode) (model.SerialCode, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		serial, err := model.NewSerialCode(s.generate(model.SerialCodeLength))
		if err != nil {
			return model.SerialCode{}, fmt.Errorf("code generator: %w", err)
		}
		fullCode := model.JoinFullCode(lot, serial)
		if s.findSampleByFullCode(fullCode.String()) == nil {
			return serial, nil
		}
		s.logger.Debug("serial code collision", "full_code", fullCode.String(), "attempt", attempt)
	}
	return model.SerialCode{}, fmt.Errorf("serial code in lot %s: %w", lot, model.ErrCodeSpaceExhausted)
}

func cloneLot(l *model.Lot) *model.Lot {
	c := *l
	return &c
}

func cloneSample(s *model.Sample) *model.Sample {
	c := *s
	return &c
}

func cloneLots(lots []*model.Lot) []*model.Lot {
	out := make([]*model.Lot, 0, len(lots))
	for _, l := range lots {
		out = append(out, cloneLot(l))
	}
	return out
}

func cloneSamples(samples []*model.Sample) []*model.Sample {
	out := make([]*model.Sample, 0, len(samples))
	for _, s := range samples {
		out = append(out, cloneSample(s))
	}
	return out
}
