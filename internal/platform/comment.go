package platform

import (
	"math/rand"
	"strings"
)

// 评论模板池，账号可用自定义 prompt 作为开头
var commentTemplates = []string{
	"Great insights, thanks for sharing!",
	"Really useful perspective here.",
	"This resonates a lot with my own experience.",
	"Well said, saving this one.",
	"Appreciate you putting this together.",
	"Solid points, especially the last one.",
}

// GenerateComment 合成一条评论文本。prompt 为空时直接取模板
func GenerateComment(prompt string) string {
	t := commentTemplates[rand.Intn(len(commentTemplates))]
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return t
	}
	return prompt + " " + t
}
