package model

import (
	"errors"
	"testing"
	"time"
)

func mustLotCode(t *testing.T, s string) LotCode {
	t.Helper()
	code, err := NewLotCode(s)
	if err != nil {
		t.Fatalf("Failed to create lot code: %v", err)
	}
	return code
}

func mustSerialCode(t *testing.T, s string) SerialCode {
	t.Helper()
	code, err := NewSerialCode(s)
	if err != nil {
		t.Fatalf("Failed to create serial code: %v", err)
	}
	return code
}

// TestNewLot tests the NewLot constructor
func TestNewLot(t *testing.T) {
	lot, err := NewLot(mustLotCode(t, "12345678"), "  Batch A ")
	if err != nil {
		t.Fatalf("Failed to create lot: %v", err)
	}
	if lot.LotCode != "12345678" {
		t.Errorf("Expected lot code 12345678, got %s", lot.LotCode)
	}
	// 前後の空白は取り除かれること
	if lot.Name != "Batch A" {
		t.Errorf("Expected name %q, got %q", "Batch A", lot.Name)
	}
}

// TestNewLotBlankName tests that NewLot rejects blank names with a ValidationError
func TestNewLotBlankName(t *testing.T) {
	for _, name := range []string{"", "   ", "\t\n"} {
		_, err := NewLot(mustLotCode(t, "12345678"), name)
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("Expected ValidationError for name %q, got %v", name, err)
		}
	}
}

func TestLoadLot(t *testing.T) {
	if _, err := LoadLot("12345678", "Batch A"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := LoadLot("", "Batch A"); err == nil {
		t.Error("Expected error for empty lot code, got nil")
	}
	if _, err := LoadLot("12345678", ""); err == nil {
		t.Error("Expected error for empty name, got nil")
	}
}

// TestNewSample tests the NewSample constructor
func TestNewSample(t *testing.T) {
	createdAt := time.Date(2025, 5, 21, 14, 30, 0, 0, time.Local)
	sample, err := NewSample(mustLotCode(t, "12345678"), mustSerialCode(t, "0042"), "Vial 1", createdAt)
	if err != nil {
		t.Fatalf("Failed to create sample: %v", err)
	}
	if sample.FullCode != "123456780042" {
		t.Errorf("Expected full code 123456780042, got %s", sample.FullCode)
	}
	if sample.Notes != "" || sample.Active {
		t.Errorf("Expected empty notes and inactive sample, got %q / %v", sample.Notes, sample.Active)
	}
	if !sample.CreatedAt.Equal(createdAt) {
		t.Errorf("Expected CreatedAt %v, got %v", createdAt, sample.CreatedAt)
	}

	_, err = NewSample(mustLotCode(t, "12345678"), mustSerialCode(t, "0042"), " ", createdAt)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("Expected ValidationError for blank name, got %v", err)
	}
}

// TestSampleValidate tests the Validate method
func TestSampleValidate(t *testing.T) {
	valid := func() *Sample {
		return &Sample{
			LotCode:    "12345678",
			SerialCode: "0042",
			FullCode:   "123456780042",
			Name:       "Vial 1",
			CreatedAt:  time.Date(2025, 5, 21, 14, 30, 0, 0, time.Local),
		}
	}

	tests := []struct {
		name        string
		mutate      func(s *Sample)
		expectError bool
		description string
	}{
		{"Valid sample", func(s *Sample) {}, false, "正常なサンプルは検証をパスすること"},
		{"Missing lot", func(s *Sample) { s.LotCode = "" }, true, "ロットコードが空の場合はエラーになること"},
		{"Missing serial", func(s *Sample) { s.SerialCode = "" }, true, "シリアルが空の場合はエラーになること"},
		{"Mismatched full code", func(s *Sample) { s.FullCode = "876543210042" }, true, "フルコードが一致しない場合はエラーになること"},
		{"Empty name", func(s *Sample) { s.Name = "" }, true, "名前が空の場合はエラーになること"},
		{"Zero CreatedAt", func(s *Sample) { s.CreatedAt = time.Time{} }, true, "登録日時がゼロ値の場合はエラーになること"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := s.Validate()
			if tt.expectError && err == nil {
				t.Errorf("%s: expected error but got nil", tt.description)
			}
			if !tt.expectError && err != nil {
				t.Errorf("%s: unexpected error: %v", tt.description, err)
			}
		})
	}
}

func TestNotFoundErrors(t *testing.T) {
	if !errors.Is(ErrLotNotFound, ErrNotFound) {
		t.Error("Expected ErrLotNotFound to wrap ErrNotFound")
	}
	if !errors.Is(ErrSampleNotFound, ErrNotFound) {
		t.Error("Expected ErrSampleNotFound to wrap ErrNotFound")
	}
	if errors.Is(ErrLotNotFound, ErrSampleNotFound) {
		t.Error("Expected lot and sample not found errors to be distinct")
	}
}
