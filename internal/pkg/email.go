package pkg

import (
	"crypto/tls"
	"fmt"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func SendEmail(cfg SMTPConfig, to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	return d.DialAndSend(m)
}

// RunFinishedHTML 完成通知正文：24 小时后发给帖子作者
func RunFinishedHTML(postURL, status string, count int64) string {
	return fmt.Sprintf(`<p>您好，</p><p>您提交的帖子 <a href="%s">%s</a> 的互动任务已结束，状态：<b>%s</b>，成功互动 <b>%d</b> 次。</p>`,
		postURL, postURL, status, count)
}
