package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
)

// genericUserMessage 所有翻译手段都失败时的兜底提示
const genericUserMessage = "处理过程中发生错误，请稍后重试"

// translationRule 技术错误片段到用户提示的映射，按序匹配，先命中先用
type translationRule struct {
	fragment string
	message  string
}

var translationRules = []translationRule{
	{"ERR_NAME_NOT_RESOLVED", "无法解析该网页地址，请检查链接是否正确"},
	{"ERR_CONNECTION_REFUSED", "目标网站拒绝连接，请稍后重试"},
	{"ERR_CONNECTION_TIMED_OUT", "连接目标网站超时，请稍后重试"},
	{"net::ERR_", "无法访问该网页，请检查链接后重试"},
	{"context deadline exceeded", "处理超时，请稍后重试"},
	{"Client.Timeout", "处理超时，请稍后重试"},
	{"connection refused", "服务暂时不可用，请稍后重试"},
	{"no such host", "无法解析该网页地址，请检查链接是否正确"},
	{"too short or empty", "未能从该网页提取到有效内容，请更换链接"},
	{"no content container", "未能从该网页提取到有效内容，请更换链接"},
	{"unexpected page status", "目标网页无法正常访问，请检查链接后重试"},
	{"crawl failed", "网页抓取失败，请检查链接是否可以正常访问"},
	{"crawl service", "网页抓取服务暂时不可用，请稍后重试"},
	{"empty response", "内容生成服务暂时异常，请稍后重试"},
	{"structure content (parse)", "内容解析失败，请稍后重试"},
	{"structure content (validate)", "文章结构化失败，请尝试其他内容"},
	{"rate limit", "请求过于频繁，请稍后重试"},
	{"structure content (backend)", "内容生成服务暂时不可用，请稍后重试"},
	{"llm backend", "内容生成服务暂时不可用，请稍后重试"},
	{"pocketbase: status 401", "存储服务认证失败，请稍后重试"},
	{"pocketbase: status 403", "存储服务认证失败，请稍后重试"},
	{"pocketbase: status", "存储服务暂时不可用，请稍后重试"},
}

// errorTranslator 把技术错误改写为简短中文提示的兜底通道
type errorTranslator interface {
	TranslateError(ctx context.Context, technicalError string) (string, error)
}

// translateError 将内部错误转换为面向用户的提示。
// 规则表未命中时调用生成式后端改写一次，仍失败则使用通用提示。
// 结尾附加 8 位关联码，便于对照服务端日志。
func translateError(ctx context.Context, translator errorTranslator, taskErr error) string {
	technical := taskErr.Error()
	code := correlationID()
	log.Printf("[Pipeline] task error code=%s detail=%s", code, technical)

	message := ""
	for _, rule := range translationRules {
		if strings.Contains(technical, rule.fragment) {
			message = rule.message
			break
		}
	}

	if message == "" && translator != nil {
		translated, err := translator.TranslateError(ctx, technical)
		if err != nil {
			log.Printf("[Pipeline] error translation fallback failed code=%s: %v", code, err)
		} else {
			message = strings.TrimSpace(translated)
		}
	}
	if message == "" {
		message = genericUserMessage
	}

	return fmt.Sprintf("%s（错误码 %s）", message, code)
}

// correlationID 生成 8 位十六进制关联码
func correlationID() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(b[:])
}
