package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stsysd/lotbook/model"
	"github.com/stsysd/lotbook/store"
)

func setupResolver(t *testing.T) (*Resolver, *store.Store) {
	t.Helper()
	backend, err := store.NewCSVBackend(t.TempDir(), "lots_and_samples.csv")
	if err != nil {
		t.Fatalf("Failed to create CSV backend: %v", err)
	}

	codes := []string{"11111111", "22222222", "0001", "0002", "0003"}
	i := 0
	s, err := store.New(context.Background(), backend,
		store.WithCodeGenerator(func(int) string {
			code := codes[i]
			i++
			return code
		}),
		store.WithClock(func() time.Time { return time.Date(2025, 5, 21, 14, 30, 0, 0, time.Local) }),
	)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	ctx := context.Background()
	lotA, _ := s.CreateLot(ctx, "Batch A")
	lotB, _ := s.CreateLot(ctx, "Batch B")
	s.CreateSample(ctx, lotA.LotCode, "A-1")                  // 111111110001
	s.CreateSample(ctx, lotB.LotCode, "B-1")                  // 222222220002
	s.CreateSample(ctx, lotA.LotCode, "A-2")                  // 111111110003
	s.UpdateSample(ctx, "111111110003", "stored notes", true) // A-2 is active

	return NewResolver(s), s
}

func TestResolve(t *testing.T) {
	resolver, _ := setupResolver(t)

	tests := []struct {
		name        string
		input       string
		lotName     string
		sampleName  string
		active      bool
		description string
	}{
		{
			name:        "Full code",
			input:       "111111110001",
			lotName:     "Batch A",
			sampleName:  "A-1",
			active:      false,
			description: "フルコードでサンプルと所属ロットを解決できること",
		},
		{
			name:        "Full code takes stored active flag",
			input:       "111111110003",
			lotName:     "Batch A",
			sampleName:  "A-2",
			active:      true,
			description: "フルコード検索ではサンプル自身のフラグを返すこと",
		},
		{
			name:        "Legacy row",
			input:       "2025-05-21 14:30:00,22222222,0002,222222220002,B-1,,True",
			lotName:     "Batch B",
			sampleName:  "B-1",
			active:      true,
			description: "旧形式の行からロット名・サンプル名・フラグを返すこと",
		},
		{
			name:        "Legacy row takes pasted flag",
			input:       "2025-05-21 14:30:00,11111111,0003,111111110003,A-2,,False",
			lotName:     "Batch A",
			sampleName:  "A-2",
			active:      false,
			description: "旧形式では貼り付けた行のフラグを返すこと",
		},
		{
			name:        "Legacy row with serial from another lot",
			input:       ",11111111,0002,,,,True",
			lotName:     "Batch A",
			sampleName:  "B-1",
			active:      true,
			description: "ロットとシリアルは個別に解決されること",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := resolver.Resolve(tt.input)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tt.description, err)
			}
			if result.Lot.Name != tt.lotName {
				t.Errorf("%s: expected lot %s, got %s", tt.description, tt.lotName, result.Lot.Name)
			}
			if result.Sample.Name != tt.sampleName {
				t.Errorf("%s: expected sample %s, got %s", tt.description, tt.sampleName, result.Sample.Name)
			}
			if result.Active != tt.active {
				t.Errorf("%s: expected active %v, got %v", tt.description, tt.active, result.Active)
			}
		})
	}
}

func TestResolveErrors(t *testing.T) {
	resolver, _ := setupResolver(t)

	tests := []struct {
		name        string
		input       string
		target      error
		format      bool
		description string
	}{
		{"Unknown full code", "111111119999", model.ErrSampleNotFound, false, "存在しないフルコードはNotFoundになること"},
		{"Short code", "1111", nil, true, "12桁でないコードはFormatErrorになること"},
		{"Six fields", "2025-05-21 14:30:00,11111111,0001,111111110001,A-1,", nil, true, "6フィールドはFormatErrorになること"},
		{"Unknown legacy lot", ",99999999,0001,,,,True", model.ErrLotNotFound, false, "存在しないロットはNotFoundになること"},
		{"Unknown legacy serial", ",11111111,9999,,,,True", model.ErrSampleNotFound, false, "存在しないシリアルはNotFoundになること"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.Resolve(tt.input)
			if tt.format {
				var formatErr *model.FormatError
				if !errors.As(err, &formatErr) {
					t.Errorf("%s: expected FormatError, got %v", tt.description, err)
				}
				return
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("%s: expected %v, got %v", tt.description, tt.target, err)
			}
		})
	}
}

// TestResolveOrphanSample は所属ロットが存在しないサンプルの検索を確認します。
func TestResolveOrphanSample(t *testing.T) {
	lookup := fakeLookup{
		samples: map[string]*model.Sample{
			"333333330001": {LotCode: "33333333", SerialCode: "0001", FullCode: "333333330001", Name: "orphan"},
		},
	}
	_, err := NewResolver(lookup).Resolve("333333330001")
	if !errors.Is(err, model.ErrLotNotFound) {
		t.Errorf("Expected ErrLotNotFound, got %v", err)
	}
}

func TestResolveDoesNotMutate(t *testing.T) {
	resolver, s := setupResolver(t)
	before := s.FindSamplesByLot("11111111")

	if _, err := resolver.Resolve(",11111111,0001,,,,True"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after := s.FindSamplesByLot("11111111")
	for i := range before {
		if before[i].Active != after[i].Active || before[i].Notes != after[i].Notes {
			t.Errorf("Expected sample %s to be unchanged", before[i].FullCode)
		}
	}
}

type fakeLookup struct {
	lots    map[string]*model.Lot
	samples map[string]*model.Sample
}

func (f fakeLookup) FindLot(lotCode string) (*model.Lot, error) {
	if lot, ok := f.lots[lotCode]; ok {
		return lot, nil
	}
	return nil, model.ErrLotNotFound
}

func (f fakeLookup) FindSampleByFullCode(fullCode string) (*model.Sample, error) {
	if sample, ok := f.samples[fullCode]; ok {
		return sample, nil
	}
	return nil, model.ErrSampleNotFound
}

func (f fakeLookup) FindSampleBySerial(lotCode, serialCode string) (*model.Sample, error) {
	for _, sample := range f.samples {
		if sample.SerialCode == serialCode && (lotCode == "" || sample.LotCode == lotCode) {
			return sample, nil
		}
	}
	return nil, model.ErrSampleNotFound
}
