package model

import (
	"encoding/json"
	"fmt"
)

// DecodeArticleJSON 解码文章 JSON：先在 map 层执行结构修复，再做类型化解码
//
// 生成式后端的输出和存量存储记录都可能带有旧的行形态，
// 所有入口统一走这条路径，保证读到的文章总是修复后的形态。
// 调用方按需再调 Validate。
func DecodeArticleJSON(data []byte) (*ArticleData, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse article json: %w", err)
	}

	RepairDocument(raw)

	repaired, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("re-encode repaired article: %w", err)
	}

	var article ArticleData
	if err := json.Unmarshal(repaired, &article); err != nil {
		return nil, fmt.Errorf("decode article: %w", err)
	}
	return &article, nil
}
