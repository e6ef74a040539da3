// Package model 定义核心数据模型
//
// article.go 包含结构化文章的数据模型，与前端渲染器的类型定义一一对应：
//   - ArticleData → ArticleSection → ContentBlock 三层树形结构
//   - ContentBlock 以 type 字段区分约 20 种内容块变体
//   - Columns / Rows 两个联合类型处理交换格式中的多态字段
//
// 校验规则见 Validate：各变体必填字段 + 受限字符串字段的枚举成员检查。
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// BlockType 内容块类型标签
type BlockType string

const (
	BlockParagraph  BlockType = "paragraph"
	BlockQuote      BlockType = "quote"
	BlockCallout    BlockType = "callout"
	BlockList       BlockType = "list"
	BlockGrid       BlockType = "grid"
	BlockImage      BlockType = "image"
	BlockStat       BlockType = "stat"
	BlockTags       BlockType = "tags"
	BlockTimeline   BlockType = "timeline"
	BlockComparison BlockType = "comparison"
	BlockTable      BlockType = "table"
	BlockCode       BlockType = "code"
	BlockAccordion  BlockType = "accordion"
	BlockSteps      BlockType = "steps"
	BlockProgress   BlockType = "progress"
	BlockHighlight  BlockType = "highlight"
	BlockDefinition BlockType = "definition"
	BlockProsCons   BlockType = "proscons"
	BlockVideo      BlockType = "video"
	BlockDivider    BlockType = "divider"
	BlockLinkCard   BlockType = "linkcard"
	BlockRating     BlockType = "rating"
)

// blockTypes 合法的内容块类型集合
var blockTypes = map[BlockType]bool{
	BlockParagraph: true, BlockQuote: true, BlockCallout: true,
	BlockList: true, BlockGrid: true, BlockImage: true, BlockStat: true,
	BlockTags: true, BlockTimeline: true, BlockComparison: true,
	BlockTable: true, BlockCode: true, BlockAccordion: true,
	BlockSteps: true, BlockProgress: true, BlockHighlight: true,
	BlockDefinition: true, BlockProsCons: true, BlockVideo: true,
	BlockDivider: true, BlockLinkCard: true, BlockRating: true,
}

// ============================================================================
// 条目类型（Items 字段的元素）
// ============================================================================

// StatItem 统计数据条目
type StatItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Trend string `json:"trend,omitempty"` // up | down | flat
	Note  string `json:"note,omitempty"`
}

// GridItem 网格卡片条目
type GridItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon,omitempty"`
}

// TimelineItem 时间线条目
type TimelineItem struct {
	Title string `json:"title"`
	Time  string `json:"time,omitempty"`
	Desc  string `json:"desc,omitempty"`
}

// AccordionItem 折叠面板条目
type AccordionItem struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// StepItem 步骤条目
type StepItem struct {
	Title string `json:"title"`
	Desc  string `json:"desc,omitempty"`
}

// ProgressItem 进度条条目，Value 为 0-100 的百分比
type ProgressItem struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// DefinitionItem 术语定义条目
type DefinitionItem struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// ComparisonRow 对比表行：label 为行名，values 与列头一一对应
type ComparisonRow struct {
	Label  string   `json:"label"`
	Values []string `json:"values"`
}

// ============================================================================
// 联合类型
// ============================================================================

// Columns 列配置联合类型：
// grid/stat 块为列数（JSON 数字），comparison 块为列头名（JSON 字符串数组）
type Columns struct {
	Count  int
	Labels []string
}

// UnmarshalJSON 按首字节区分数字与数组两种形态
func (c *Columns) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '[' {
		return json.Unmarshal(data, &c.Labels)
	}
	return json.Unmarshal(data, &c.Count)
}

// MarshalJSON 输出原始形态
func (c Columns) MarshalJSON() ([]byte, error) {
	if c.Labels != nil {
		return json.Marshal(c.Labels)
	}
	return json.Marshal(c.Count)
}

// Rows 行数据联合类型：
// comparison 块为 ComparisonRow 对象数组，table 块为字符串二维数组。
// 两种形态互斥，由块的 type 决定哪种有意义。
type Rows struct {
	Comparison []ComparisonRow
	Cells      [][]string
}

// UnmarshalJSON 按首个元素的形态区分对象行与单元格行
func (r *Rows) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	first := bytes.TrimSpace(raw[0])
	if len(first) > 0 && first[0] == '{' {
		return json.Unmarshal(data, &r.Comparison)
	}
	return json.Unmarshal(data, &r.Cells)
}

// MarshalJSON 输出原始形态
func (r Rows) MarshalJSON() ([]byte, error) {
	if r.Comparison != nil {
		return json.Marshal(r.Comparison)
	}
	if r.Cells != nil {
		return json.Marshal(r.Cells)
	}
	return []byte("[]"), nil
}

// ============================================================================
// 文章结构
// ============================================================================

// ContentBlock 内容块
//
// 以 Type 字段区分变体；各变体只使用自己的字段子集，
// 扁平结构仅为保持交换格式（JSON）的序列化兼容。
type ContentBlock struct {
	Type BlockType `json:"type"`

	// 通用字段
	ID    string `json:"id,omitempty"`
	Text  string `json:"text,omitempty"`
	Title string `json:"title,omitempty"`

	// quote
	Author string `json:"author,omitempty"`

	// callout: info | warning | success
	Variant string `json:"variant,omitempty"`

	// list: bullet | check | number
	Style string `json:"style,omitempty"`

	// list/tags/grid/stat/timeline/accordion/steps/progress/definition
	// 元素类型随块类型变化，校验时按类型解码
	Items json.RawMessage `json:"items,omitempty"`

	// grid/stat 的列数或 comparison 的列头
	Columns *Columns `json:"columns,omitempty"`

	// image/video
	Src     string `json:"src,omitempty"`
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`
	Poster  string `json:"poster,omitempty"`

	// table
	Headers []string `json:"headers,omitempty"`

	// comparison/table
	Rows *Rows `json:"rows,omitempty"`

	// code
	Code     string `json:"code,omitempty"`
	Language string `json:"language,omitempty"`

	// proscons
	Pros []string `json:"pros,omitempty"`
	Cons []string `json:"cons,omitempty"`

	// linkcard
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`

	// rating
	Value *float64 `json:"value,omitempty"`
	Max   *float64 `json:"max,omitempty"`
	Label string   `json:"label,omitempty"`
}

// ArticleSection 文章章节
type ArticleSection struct {
	Title   string         `json:"title"`
	Content []ContentBlock `json:"content"`
}

// ArticleMeta 文章元信息
type ArticleMeta struct {
	Author   string `json:"author,omitempty"`
	Date     string `json:"date,omitempty"`
	ReadTime string `json:"readTime,omitempty"`
}

// ArticleData 结构化文章，流水线的最终产物
type ArticleData struct {
	Title    string           `json:"title"`
	Subtitle string           `json:"subtitle,omitempty"`
	Meta     *ArticleMeta     `json:"meta,omitempty"`
	Sections []ArticleSection `json:"sections"`
}

// ============================================================================
// 校验
// ============================================================================

// Validate 校验文章结构的完整性
//
// 校验内容：标题与章节非空、各内容块变体的必填字段、
// 受限字符串字段（style/variant/trend）的枚举成员、
// comparison 与 table 的行形态约束。
// 校验失败与解析失败是两类错误，由调用方区分。
func (a *ArticleData) Validate() error {
	if a.Title == "" {
		return fmt.Errorf("article title is required")
	}
	if len(a.Sections) == 0 {
		return fmt.Errorf("article must have at least one section")
	}
	for si, section := range a.Sections {
		if section.Title == "" {
			return fmt.Errorf("section %d: title is required", si)
		}
		for bi := range section.Content {
			if err := section.Content[bi].Validate(); err != nil {
				return fmt.Errorf("section %d block %d: %w", si, bi, err)
			}
		}
	}
	return nil
}

// Validate 校验单个内容块
func (b *ContentBlock) Validate() error {
	if b.Type == "" {
		return fmt.Errorf("block type is required")
	}
	if !blockTypes[b.Type] {
		return fmt.Errorf("unknown block type %q", b.Type)
	}

	switch b.Type {
	case BlockParagraph, BlockHighlight:
		if b.Text == "" {
			return fmt.Errorf("%s: text is required", b.Type)
		}

	case BlockQuote:
		if b.Text == "" {
			return fmt.Errorf("quote: text is required")
		}

	case BlockCallout:
		if b.Text == "" {
			return fmt.Errorf("callout: text is required")
		}
		if !oneOf(b.Variant, "", "info", "warning", "success") {
			return fmt.Errorf("callout: invalid variant %q", b.Variant)
		}

	case BlockList:
		if !oneOf(b.Style, "", "bullet", "check", "number") {
			return fmt.Errorf("list: invalid style %q", b.Style)
		}
		items, err := decodeItems[string](b.Items)
		if err != nil || len(items) == 0 {
			return fmt.Errorf("list: items must be a non-empty string array")
		}

	case BlockTags:
		items, err := decodeItems[string](b.Items)
		if err != nil || len(items) == 0 {
			return fmt.Errorf("tags: items must be a non-empty string array")
		}

	case BlockGrid:
		items, err := decodeItems[GridItem](b.Items)
		if err != nil || len(items) == 0 {
			return fmt.Errorf("grid: items must be a non-empty array of {title, description}")
		}
		for _, it := range items {
			if it.Title == "" {
				return fmt.Errorf("grid: item title is required")
			}
		}

	case BlockImage:
		if b.Src == "" {
			return fmt.Errorf("image: src is required")
		}
		if b.Alt == "" {
			return fmt.Errorf("image: alt is required")
		}

	case BlockStat:
		items, err := decodeItems[StatItem](b.Items)
		if err != nil || len(items) == 0 {
			return fmt.Errorf("stat: items must be a non-empty array of {label, value}")
		}
		for _, it := range items {
			if it.Label == "" || it.Value == "" {
				return fmt.Errorf("stat: item label and value are required")
			}
			if !oneOf(it.Trend, "", "up", "down", "flat") {
				return fmt.Errorf("stat: invalid trend %q", it.Trend)
			}
		}

	case BlockTimeline:
		items, err := decodeItems[TimelineItem](b.Items)
		if err != nil || len(items) == 0 {
			return fmt.Errorf("timeline: items must be a non-empty array of {title}")
		}
		for _, it := range items {
			if it.Title == "" {
				return fmt.Errorf("timeline: item title is required")
			}
		}

	case BlockComparison:
		if b.Columns == nil || len(b.Columns.Labels) == 0 {
			return fmt.Errorf("comparison: columns must be a string array")
		}
		if b.Rows == nil || b.Rows.Comparison == nil {
			return fmt.Errorf("comparison: rows must be an array of {label, values}")
		}

	case BlockTable:
		if b.Rows == nil || b.Rows.Cells == nil {
			return fmt.Errorf("table: rows must be an array of string arrays")
		}

	case BlockCode:
		if b.Code == "" {
			return fmt.Errorf("code: code is required")
		}

	case BlockAccordion:
		items, err := decodeItems[AccordionItem](b.Items)
		if err != nil || len(items) == 0 {
			return fmt.Errorf("accordion: items must be a non-empty array of {title, content}")
		}
		for _, it := range items {
			if it.Title == "" {
				return fmt.Errorf("accordion: item title is required")
			}
		}

	case BlockSteps:
		items, err := decodeItems[StepItem](b.Items)
		if err != nil || len(items) == 0 {
			return fmt.Errorf("steps: items must be a non-empty array of {title}")
		}
		for _, it := range items {
			if it.Title == "" {
				return fmt.Errorf("steps: item title is required")
			}
		}

	case BlockProgress:
		items, err := decodeItems[ProgressItem](b.Items)
		if err != nil || len(items) == 0 {
			return fmt.Errorf("progress: items must be a non-empty array of {label, value}")
		}
		for _, it := range items {
			if it.Label == "" {
				return fmt.Errorf("progress: item label is required")
			}
			if it.Value < 0 || it.Value > 100 {
				return fmt.Errorf("progress: value %.1f out of range [0, 100]", it.Value)
			}
		}

	case BlockDefinition:
		items, err := decodeItems[DefinitionItem](b.Items)
		if err != nil || len(items) == 0 {
			return fmt.Errorf("definition: items must be a non-empty array of {term, definition}")
		}
		for _, it := range items {
			if it.Term == "" {
				return fmt.Errorf("definition: item term is required")
			}
		}

	case BlockProsCons:
		if len(b.Pros) == 0 && len(b.Cons) == 0 {
			return fmt.Errorf("proscons: at least one of pros/cons is required")
		}

	case BlockVideo:
		if b.Src == "" {
			return fmt.Errorf("video: src is required")
		}

	case BlockLinkCard:
		if b.URL == "" {
			return fmt.Errorf("linkcard: url is required")
		}
		if b.Title == "" {
			return fmt.Errorf("linkcard: title is required")
		}

	case BlockRating:
		if b.Value == nil {
			return fmt.Errorf("rating: value is required")
		}
		max := 5.0
		if b.Max != nil {
			max = *b.Max
		}
		if *b.Value < 0 || *b.Value > max {
			return fmt.Errorf("rating: value %.1f out of range [0, %.1f]", *b.Value, max)
		}

	case BlockDivider:
		// 无必填字段
	}
	return nil
}

// decodeItems 将 Items 原始 JSON 解码为指定元素类型
func decodeItems[T any](raw json.RawMessage) ([]T, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("items missing")
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// oneOf 判断 s 是否属于候选集合
func oneOf(s string, candidates ...string) bool {
	for _, c := range candidates {
		if s == c {
			return true
		}
	}
	return false
}
