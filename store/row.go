package store

import (
	"strings"
	"time"

	"github.com/stsysd/lotbook/model"
)

// timeLayout は保存ファイル上の日時の形式です。
const timeLayout = "2006-01-02 15:04:05"

// header は保存ファイルの列見出しです。
var header = []string{"datetime", "Lot", "Serial", "FullCode", "Name", "Notes", "Active"}

type rowKind int

const (
	kindBootstrap rowKind = iota
	kindLot
	kindSample
)

// row は保存ファイルの1行をそのまま保持します。
type row struct {
	datetime string
	lot      string
	serial   string
	fullCode string
	name     string
	notes    string
	active   string
}

func rowFromFields(fields []string) row {
	return row{
		datetime: fields[0],
		lot:      fields[1],
		serial:   fields[2],
		fullCode: fields[3],
		name:     fields[4],
		notes:    fields[5],
		active:   fields[6],
	}
}

func lotRow(l *model.Lot) row {
	return row{lot: l.LotCode, name: l.Name}
}

func sampleRow(s *model.Sample) row {
	return row{
		datetime: s.CreatedAt.In(time.Local).Format(timeLayout),
		lot:      s.LotCode,
		serial:   s.SerialCode,
		fullCode: s.FullCode,
		name:     s.Name,
		notes:    s.Notes,
		active:   formatActive(s.Active),
	}
}

func bootstrapRow(now time.Time) row {
	return row{datetime: now.In(time.Local).Format(timeLayout)}
}

func (r row) fields() []string {
	return []string{r.datetime, r.lot, r.serial, r.fullCode, r.name, r.notes, r.active}
}

func formatActive(active bool) string {
	if active {
		return "True"
	}
	return "False"
}

// decode は行をロット・サンプル・起動行のいずれかに分類します。
// 分類できない場合は理由を表すメッセージを返します。
func (r row) decode() (rowKind, *model.Lot, *model.Sample, string) {
	// シリアルなし・ロットなし：日時だけの起動行のみ許可
	if r.lot == "" && !model.HasSerialCode(r.serial) {
		if r.fullCode != "" || r.name != "" || r.notes != "" || r.active != "" {
			return 0, nil, nil, "row has neither lot nor serial code"
		}
		return kindBootstrap, nil, nil, ""
	}

	// シリアルなし：ロット
	if !model.HasSerialCode(r.serial) {
		lot, err := model.LoadLot(r.lot, r.name)
		if err != nil {
			return 0, nil, nil, "invalid lot: " + err.Error()
		}
		return kindLot, lot, nil, ""
	}

	// シリアルあり：サンプル
	if r.datetime == "" {
		return 0, nil, nil, "sample datetime is required"
	}
	createdAt, err := time.ParseInLocation(timeLayout, strings.TrimSpace(r.datetime), time.Local)
	if err != nil {
		return 0, nil, nil, "invalid sample datetime: " + r.datetime
	}
	var active bool
	switch r.active {
	case "True":
		active = true
	case "False":
		active = false
	default:
		return 0, nil, nil, "invalid active flag: " + r.active
	}
	sample, err := model.LoadSample(r.lot, r.serial, r.fullCode, r.name, r.notes, active, createdAt)
	if err != nil {
		return 0, nil, nil, "invalid sample: " + err.Error()
	}
	return kindSample, nil, sample, ""
}
