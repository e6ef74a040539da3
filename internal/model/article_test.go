package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestArticleDecode 测试完整文章 JSON 解码
func TestArticleDecode(t *testing.T) {
	raw := `{
		"title": "测试文章",
		"subtitle": "副标题",
		"meta": {"author": "作者", "date": "2025-01-01", "readTime": "5 分钟"},
		"sections": [{
			"title": "第一章",
			"content": [
				{"type": "paragraph", "text": "这是一段文字"},
				{"type": "stat", "items": [{"label": "用户数", "value": "10万+", "trend": "up"}], "columns": 2},
				{"type": "comparison", "columns": ["方案A", "方案B"],
				 "rows": [{"label": "价格", "values": ["免费", "付费"]}]},
				{"type": "table", "headers": ["列1", "列2"], "rows": [["a", "b"]]}
			]
		}]
	}`

	var article ArticleData
	require.NoError(t, json.Unmarshal([]byte(raw), &article))
	require.NoError(t, article.Validate())

	blocks := article.Sections[0].Content
	require.Len(t, blocks, 4)

	// stat 的 columns 是数字形态
	assert.Equal(t, 2, blocks[1].Columns.Count)

	// comparison 的 columns 是标签形态，rows 是对象形态
	assert.Equal(t, []string{"方案A", "方案B"}, blocks[2].Columns.Labels)
	require.NotNil(t, blocks[2].Rows)
	assert.Equal(t, "价格", blocks[2].Rows.Comparison[0].Label)

	// table 的 rows 是单元格形态
	require.NotNil(t, blocks[3].Rows)
	assert.Equal(t, [][]string{{"a", "b"}}, blocks[3].Rows.Cells)
}

// TestArticleRoundTrip 测试编码后再解码保持形态
func TestArticleRoundTrip(t *testing.T) {
	article := ArticleData{
		Title: "标题",
		Sections: []ArticleSection{{
			Title: "章节",
			Content: []ContentBlock{
				{
					Type:    BlockComparison,
					Columns: &Columns{Labels: []string{"A", "B"}},
					Rows:    &Rows{Comparison: []ComparisonRow{{Label: "速度", Values: []string{"快", "慢"}}}},
				},
				{
					Type: BlockTable,
					Rows: &Rows{Cells: [][]string{{"1", "2"}}},
				},
			},
		}},
	}

	data, err := json.Marshal(&article)
	require.NoError(t, err)

	var decoded ArticleData
	require.NoError(t, json.Unmarshal(data, &decoded))

	blocks := decoded.Sections[0].Content
	assert.Equal(t, []string{"A", "B"}, blocks[0].Columns.Labels)
	assert.Equal(t, "速度", blocks[0].Rows.Comparison[0].Label)
	assert.Equal(t, [][]string{{"1", "2"}}, blocks[1].Rows.Cells)
}

// TestBlockValidate 测试各变体的必填字段与枚举约束
func TestBlockValidate(t *testing.T) {
	items := func(s string) json.RawMessage { return json.RawMessage(s) }
	val := func(f float64) *float64 { return &f }

	tests := []struct {
		name    string
		block   ContentBlock
		wantErr bool
	}{
		{"段落", ContentBlock{Type: BlockParagraph, Text: "正文"}, false},
		{"段落缺正文", ContentBlock{Type: BlockParagraph}, true},
		{"缺类型", ContentBlock{Text: "x"}, true},
		{"未知类型", ContentBlock{Type: "banner", Text: "x"}, true},
		{"引用", ContentBlock{Type: BlockQuote, Text: "引文", Author: "某人"}, false},
		{"提示框", ContentBlock{Type: BlockCallout, Text: "提示", Variant: "info"}, false},
		{"提示框非法变体", ContentBlock{Type: BlockCallout, Text: "提示", Variant: "danger"}, true},
		{"列表", ContentBlock{Type: BlockList, Items: items(`["a","b"]`), Style: "bullet"}, false},
		{"列表非法样式", ContentBlock{Type: BlockList, Items: items(`["a"]`), Style: "roman"}, true},
		{"列表条目形态错误", ContentBlock{Type: BlockList, Items: items(`[{"title":"x"}]`)}, true},
		{"图片", ContentBlock{Type: BlockImage, Src: "https://a/b.png", Alt: "图"}, false},
		{"图片缺alt", ContentBlock{Type: BlockImage, Src: "https://a/b.png"}, true},
		{"统计非法趋势", ContentBlock{Type: BlockStat, Items: items(`[{"label":"x","value":"1","trend":"sideways"}]`)}, true},
		{"对比表", ContentBlock{
			Type:    BlockComparison,
			Columns: &Columns{Labels: []string{"A"}},
			Rows:    &Rows{Comparison: []ComparisonRow{{Label: "l", Values: []string{"v"}}}},
		}, false},
		{"对比表缺列头", ContentBlock{
			Type: BlockComparison,
			Rows: &Rows{Comparison: []ComparisonRow{{Label: "l"}}},
		}, true},
		{"对比表行形态错误", ContentBlock{
			Type:    BlockComparison,
			Columns: &Columns{Labels: []string{"A"}},
			Rows:    &Rows{Cells: [][]string{{"a", "b"}}},
		}, true},
		{"表格", ContentBlock{Type: BlockTable, Rows: &Rows{Cells: [][]string{{"a"}}}}, false},
		{"表格行形态错误", ContentBlock{
			Type: BlockTable,
			Rows: &Rows{Comparison: []ComparisonRow{{Label: "l"}}},
		}, true},
		{"代码", ContentBlock{Type: BlockCode, Code: "fmt.Println(1)", Language: "go"}, false},
		{"折叠面板", ContentBlock{Type: BlockAccordion, Items: items(`[{"title":"Q","content":"A"}]`)}, false},
		{"步骤", ContentBlock{Type: BlockSteps, Items: items(`[{"title":"第一步"}]`)}, false},
		{"进度越界", ContentBlock{Type: BlockProgress, Items: items(`[{"label":"x","value":120}]`)}, true},
		{"优缺点", ContentBlock{Type: BlockProsCons, Pros: []string{"快"}}, false},
		{"优缺点全空", ContentBlock{Type: BlockProsCons}, true},
		{"视频", ContentBlock{Type: BlockVideo, Src: "https://a/v.mp4"}, false},
		{"分隔线", ContentBlock{Type: BlockDivider}, false},
		{"链接卡片", ContentBlock{Type: BlockLinkCard, URL: "https://a", Title: "t"}, false},
		{"链接卡片缺标题", ContentBlock{Type: BlockLinkCard, URL: "https://a"}, true},
		{"评分", ContentBlock{Type: BlockRating, Value: val(4.5)}, false},
		{"评分越界", ContentBlock{Type: BlockRating, Value: val(6)}, true},
		{"评分自定义上限", ContentBlock{Type: BlockRating, Value: val(8), Max: val(10)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.block.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestArticleValidate 测试文章级校验
func TestArticleValidate(t *testing.T) {
	t.Run("缺标题", func(t *testing.T) {
		a := ArticleData{Sections: []ArticleSection{{Title: "s"}}}
		assert.Error(t, a.Validate())
	})

	t.Run("无章节", func(t *testing.T) {
		a := ArticleData{Title: "t"}
		assert.Error(t, a.Validate())
	})

	t.Run("坏块定位", func(t *testing.T) {
		a := ArticleData{
			Title: "t",
			Sections: []ArticleSection{{
				Title:   "s",
				Content: []ContentBlock{{Type: BlockParagraph}},
			}},
		}
		err := a.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "section 0 block 0")
	})
}

// TestTaskInvariant 测试任务终态字段互斥
func TestTaskInvariant(t *testing.T) {
	article := &ArticleData{Title: "t", Sections: []ArticleSection{{Title: "s"}}}

	tests := []struct {
		name string
		task Task
		ok   bool
	}{
		{"pending 两者皆空", Task{Status: TaskStatusPending}, true},
		{"processing 带结果", Task{Status: TaskStatusProcessing, Result: article}, false},
		{"completed 带结果", Task{Status: TaskStatusCompleted, Result: article}, true},
		{"completed 缺结果", Task{Status: TaskStatusCompleted}, false},
		{"completed 带错误", Task{Status: TaskStatusCompleted, Result: article, Error: "x"}, false},
		{"failed 带错误", Task{Status: TaskStatusFailed, Error: "提示"}, true},
		{"failed 缺错误", Task{Status: TaskStatusFailed}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.task.CheckInvariant())
		})
	}
}

// TestTaskStatusHelpers 测试状态辅助方法
func TestTaskStatusHelpers(t *testing.T) {
	assert.True(t, TaskStatusCompleted.IsTerminal())
	assert.True(t, TaskStatusFailed.IsTerminal())
	assert.False(t, TaskStatusPending.IsTerminal())
	assert.False(t, TaskStatusProcessing.IsTerminal())

	assert.True(t, TaskStatusPending.IsValid())
	assert.False(t, TaskStatus("queued").IsValid())
}
