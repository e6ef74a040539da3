package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MuserQuantity/infographic-article-renderer/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient 启动一个固定回复的假 chat completions 服务
func newTestClient(t *testing.T, reply string) (*Client, *chatRequest) {
	t.Helper()
	var lastReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&lastReq))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return NewClient(config.LLMConfig{
		BaseURL: srv.URL + "/v1",
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
	}), &lastReq
}

const validArticleJSON = `{
	"title": "示例文章",
	"subtitle": "副标题",
	"sections": [{
		"title": "第一节",
		"content": [
			{"type": "paragraph", "text": "一段内容"},
			{"type": "list", "items": ["甲", "乙"], "style": "bullet"}
		]
	}]
}`

func TestStructure(t *testing.T) {
	c, lastReq := newTestClient(t, validArticleJSON)

	article, err := c.Structure(context.Background(), "# 原文\n\n正文。", true)
	require.NoError(t, err)
	assert.Equal(t, "示例文章", article.Title)
	require.Len(t, article.Sections, 1)
	assert.Len(t, article.Sections[0].Content, 2)

	// 请求参数
	assert.Equal(t, "gpt-4o-mini", lastReq.Model)
	assert.InDelta(t, 0.3, lastReq.Temperature, 1e-9)
	require.NotNil(t, lastReq.ResponseFormat)
	assert.Equal(t, "json_object", lastReq.ResponseFormat.Type)
	require.Len(t, lastReq.Messages, 2)
	assert.Contains(t, lastReq.Messages[0].Content, "翻译为中文")
	assert.Contains(t, lastReq.Messages[1].Content, "# 原文")
}

func TestStructureKeepOriginalLanguage(t *testing.T) {
	c, lastReq := newTestClient(t, validArticleJSON)

	_, err := c.Structure(context.Background(), "text", false)
	require.NoError(t, err)
	assert.Contains(t, lastReq.Messages[0].Content, "保持文章的原始语言")
	assert.NotContains(t, lastReq.Messages[0].Content, "翻译为中文")
}

func TestStructureRepairsComparisonRows(t *testing.T) {
	// 后端把 comparison 的 rows 输出成了 table 形态
	malformed := `{
		"title": "对比",
		"sections": [{
			"title": "方案对比",
			"content": [{
				"type": "comparison",
				"columns": ["方案A", "方案B"],
				"rows": [["价格", "免费", "付费"]]
			}]
		}]
	}`
	c, _ := newTestClient(t, malformed)

	article, err := c.Structure(context.Background(), "text", true)
	require.NoError(t, err)

	block := article.Sections[0].Content[0]
	require.NotNil(t, block.Rows)
	require.Len(t, block.Rows.Comparison, 1)
	assert.Equal(t, "价格", block.Rows.Comparison[0].Label)
	assert.Equal(t, []string{"免费", "付费"}, block.Rows.Comparison[0].Values)
}

func TestStructureParseFailure(t *testing.T) {
	c, _ := newTestClient(t, "抱歉，我无法完成这个任务。")

	_, err := c.Structure(context.Background(), "text", true)
	require.Error(t, err)
	var structErr *StructureError
	require.ErrorAs(t, err, &structErr)
	assert.Equal(t, "parse", structErr.Reason)
}

func TestStructureValidateFailure(t *testing.T) {
	// 合法 JSON 但缺少 sections
	c, _ := newTestClient(t, `{"title": "空文章", "sections": []}`)

	_, err := c.Structure(context.Background(), "text", true)
	require.Error(t, err)
	var structErr *StructureError
	require.ErrorAs(t, err, &structErr)
	assert.Equal(t, "validate", structErr.Reason)
}

func TestStructureEmptyResponse(t *testing.T) {
	c, _ := newTestClient(t, "")

	_, err := c.Structure(context.Background(), "text", true)
	require.Error(t, err)
	var structErr *StructureError
	require.ErrorAs(t, err, &structErr)
	assert.Equal(t, "empty", structErr.Reason)
}

func TestStructureBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "rate limit exceeded"},
		})
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"})
	_, err := c.Structure(context.Background(), "text", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
	var structErr *StructureError
	require.ErrorAs(t, err, &structErr)
	assert.Equal(t, "backend", structErr.Reason)
}

func TestTranslateError(t *testing.T) {
	c, lastReq := newTestClient(t, "网页抓取超时了，请稍后重试。")

	msg, err := c.TranslateError(context.Background(), "Crawl failed: net::ERR_TIMED_OUT after 120s")
	require.NoError(t, err)
	assert.Equal(t, "网页抓取超时了，请稍后重试。", msg)

	// 错误改写不使用 JSON 约束
	assert.Nil(t, lastReq.ResponseFormat)
	assert.True(t, strings.Contains(lastReq.Messages[1].Content, "ERR_TIMED_OUT"))
}
