// Package source 从本地文件读取数据行与字段映射。
//
// 行文件可以是 JSON/YAML 数组，每项为 {recordId, fields} 或扁平对象；
// 也可以是带表头的 CSV，表头即字段名。
package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ByLCY/postergen/poster"
)

// ErrInvalidRows 表示行数据结构无法识别。
var ErrInvalidRows = errors.New("无法识别的数据行")

// 扁平对象中可作为记录 id 的键，按顺序查找。
var idKeys = []string{"recordId", "record_id", "id"}

// LoadRows 按扩展名读取数据行，.csv 按 CSV 解析。
func LoadRows(path string) ([]poster.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开数据文件失败: %w", err)
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ParseCSV(f)
	}
	return ParseRows(f, poster.FormatFromPath(path))
}

// ParseRows 解析 JSON/YAML 数据行。顶层可以是数组，也可以是带 records 字段的对象。
func ParseRows(r io.Reader, format poster.Format) ([]poster.Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取数据失败: %w", err)
	}
	var raw any
	if err := poster.Decode(data, format, &raw); err != nil {
		return nil, err
	}
	if obj, ok := raw.(map[string]any); ok {
		if records, ok := obj["records"]; ok {
			raw = records
		}
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: 顶层必须是数组", ErrInvalidRows)
	}
	rows := make([]poster.Row, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: 第 %d 项不是对象", ErrInvalidRows, i+1)
		}
		rows = append(rows, toRow(obj, i))
	}
	return rows, nil
}

func toRow(obj map[string]any, index int) poster.Row {
	fields := obj
	if nested, ok := obj["fields"].(map[string]any); ok {
		fields = nested
	}
	id := stringID(obj)
	if id == "" {
		id = defaultID(index)
	}
	return poster.Row{RecordID: id, Fields: fields}
}

func stringID(obj map[string]any) string {
	for _, key := range idKeys {
		switch v := obj[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case fmt.Stringer:
			return v.String()
		}
	}
	return ""
}

func defaultID(index int) string { return "row-" + strconv.Itoa(index+1) }

// ParseCSV 解析带表头的 CSV。空单元格不写入字段，从而按“缺失”处理。
func ParseCSV(r io.Reader) ([]poster.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("解析 CSV 失败: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	rows := make([]poster.Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		fields := make(map[string]any, len(header))
		for col, name := range header {
			if col < len(rec) && rec[col] != "" {
				fields[name] = rec[col]
			}
		}
		id := stringID(fields)
		if id == "" {
			id = defaultID(i)
		}
		rows = append(rows, poster.Row{RecordID: id, Fields: fields})
	}
	return rows, nil
}

// LoadMappings 读取字段映射文件，文件为映射数组。
func LoadMappings(path string) (*poster.Mappings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("打开映射文件失败: %w", err)
	}
	return ParseMappings(bytes.NewReader(data), poster.FormatFromPath(path))
}

// ParseMappings 解析字段映射。elementId 为空的项会被拒绝。
func ParseMappings(r io.Reader, format poster.Format) (*poster.Mappings, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取映射失败: %w", err)
	}
	var list []poster.FieldMapping
	if err := poster.Decode(data, format, &list); err != nil {
		return nil, err
	}
	for i, fm := range list {
		if fm.ElementID == "" {
			return nil, fmt.Errorf("第 %d 个映射缺少 elementId", i+1)
		}
	}
	return poster.NewMappings(list...), nil
}
