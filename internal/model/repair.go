// Package model 定义核心数据模型
//
// repair.go 实现结构修复：生成式后端容易混淆 comparison 与 table
// 两种块的 rows 形态，入库/出库前在原始 JSON 层面做确定性纠正，
// 比重新生成更便宜也更可靠。
package model

import (
	"fmt"
	"strconv"
)

// RepairDocument 修复原始文章 JSON 中已知的形态错误
//
// 在类型化解码之前对 map 形式的文档执行两条规则：
//
//  1. comparison 块的 rows 若为纯数组（table 形态），
//     把首元素转为 label、其余转为 values；
//     已是 {label, values} 对象的行保持不动。
//  2. table 块若没有 headers 且首行是长度 ≥2 的数组，
//     视为误标的 comparison：改写 type，合成 "Column N" 占位列头
//     （长度为行宽 - 1），并按规则 1 转换所有行。
//
// 修复是幂等的：对已修复的文档重复执行不产生任何变化。
// 原地修改并返回同一个 map。
func RepairDocument(doc map[string]interface{}) map[string]interface{} {
	if doc == nil {
		return doc
	}
	sections, ok := doc["sections"].([]interface{})
	if !ok {
		return doc
	}
	for _, s := range sections {
		section, ok := s.(map[string]interface{})
		if !ok {
			continue
		}
		content, ok := section["content"].([]interface{})
		if !ok {
			continue
		}
		for _, b := range content {
			block, ok := b.(map[string]interface{})
			if !ok {
				continue
			}
			repairBlock(block)
		}
	}
	return doc
}

// repairBlock 修复单个内容块
func repairBlock(block map[string]interface{}) {
	blockType, _ := block["type"].(string)

	switch blockType {
	case "comparison":
		if rows, ok := block["rows"].([]interface{}); ok {
			block["rows"] = fixComparisonRows(rows)
		}

	case "table":
		rows, ok := block["rows"].([]interface{})
		if !ok || len(rows) == 0 {
			return
		}
		if hasHeaders(block) {
			return
		}
		first, ok := rows[0].([]interface{})
		if !ok || len(first) < 2 {
			return
		}
		// 无列头且行宽 ≥2：按误标的 comparison 处理
		block["type"] = "comparison"
		columns := make([]interface{}, len(first)-1)
		for i := range columns {
			columns[i] = "Column " + strconv.Itoa(i+1)
		}
		block["columns"] = columns
		block["rows"] = fixComparisonRows(rows)
	}
}

// hasHeaders 判断块是否带有非空 headers
func hasHeaders(block map[string]interface{}) bool {
	headers, ok := block["headers"].([]interface{})
	return ok && len(headers) > 0
}

// fixComparisonRows 将行统一为 {label, values} 对象形态
func fixComparisonRows(rows []interface{}) []interface{} {
	fixed := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		switch r := row.(type) {
		case []interface{}:
			// table 形态：首元素为 label，其余为 values
			if len(r) == 0 {
				fixed = append(fixed, map[string]interface{}{"label": "", "values": []interface{}{}})
				continue
			}
			values := make([]interface{}, 0, len(r)-1)
			for _, v := range r[1:] {
				values = append(values, stringify(v))
			}
			fixed = append(fixed, map[string]interface{}{
				"label":  stringify(r[0]),
				"values": values,
			})
		case map[string]interface{}:
			// 已是对象形态，保持不动
			fixed = append(fixed, r)
		default:
			fixed = append(fixed, map[string]interface{}{
				"label":  stringify(row),
				"values": []interface{}{},
			})
		}
	}
	return fixed
}

// stringify 将任意 JSON 标量转为字符串
func stringify(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}
