package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/MuserQuantity/infographic-article-renderer/internal/model"
)

// StructureError 内容结构化失败
//
// Reason 取值：backend（请求后端失败）、empty（后端空响应）、
// parse（响应不是合法 JSON）、validate（修复后仍未通过 Schema 校验）。
type StructureError struct {
	Reason string
	Err    error
}

func (e *StructureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("structure content (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("structure content (%s)", e.Reason)
}

func (e *StructureError) Unwrap() error {
	return e.Err
}

// Structure 把正文 Markdown 转换为结构化文章
//
// translate 为 true 时要求输出翻译为中文，否则保持原文语言。
// 解析前先执行结构修复（见 model.DecodeArticleJSON），修复后再做校验。
// 解析或校验失败不重试。
func (c *Client) Structure(ctx context.Context, markdown string, translate bool) (*model.ArticleData, error) {
	instruction := systemPrompt
	if translate {
		instruction += translateInstruction
	} else {
		instruction += keepOriginalInstruction
	}

	content, err := c.chatCompletion(ctx, []chatMessage{
		{Role: "system", Content: instruction},
		{Role: "user", Content: "请将以下文章内容转换为结构化JSON格式：\n\n" + markdown},
	}, 0.3, true)
	if err != nil {
		return nil, &StructureError{Reason: "backend", Err: err}
	}
	if strings.TrimSpace(content) == "" {
		return nil, &StructureError{Reason: "empty", Err: fmt.Errorf("llm returned empty response")}
	}

	article, err := model.DecodeArticleJSON([]byte(content))
	if err != nil {
		return nil, &StructureError{Reason: "parse", Err: err}
	}
	if err := article.Validate(); err != nil {
		return nil, &StructureError{Reason: "validate", Err: err}
	}
	return article, nil
}

// TranslateError 把技术错误改写为一句面向用户的简短中文提示
func (c *Client) TranslateError(ctx context.Context, technicalError string) (string, error) {
	content, err := c.chatCompletion(ctx, []chatMessage{
		{Role: "system", Content: translateErrorPrompt},
		{Role: "user", Content: technicalError},
	}, 0.3, false)
	if err != nil {
		return "", err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("llm returned empty translation")
	}
	return content, nil
}
