package main

import (
	"context"
	"log"
	"os"

	"Pod_Pulse/internal/model"
	"Pod_Pulse/internal/pkg"
	"Pod_Pulse/internal/platform"
	"Pod_Pulse/internal/repository/mysql"
	"Pod_Pulse/internal/repository/redis"
	"Pod_Pulse/internal/router"
	"Pod_Pulse/internal/service"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	dsn := getenv("MYSQL_DSN", "user:password@tcp(127.0.0.1:3306)/podpulse?charset=utf8mb4&parseTime=True")
	if err := mysql.InitDB(dsn); err != nil {
		panic(err)
	}
	defer mysql.Close()

	// 连接redis
	if err := redis.Init(getenv("REDIS_ADDR", "127.0.0.1:6379"), os.Getenv("REDIS_PASSWORD"), 0); err != nil {
		panic(err)
	}
	defer redis.Close()

	// 自动建表（开发阶段 OK）
	mysql.DB.AutoMigrate(
		&model.User{},
		&model.Pod{},
		&model.PodMember{},
		&model.Account{},
		&model.Post{},
		&model.EngagementRun{},
		&model.Engagement{},
		&model.ScheduledTask{},
		&model.EngagementOutbox{},
	)

	client := platform.NewClient(os.Getenv("PLATFORM_BASE_URL"), os.Getenv("PLATFORM_TOKEN"))

	smtp := pkg.SMTPConfig{
		Host:     getenv("SMTP_HOST", "smtp.example.com"),
		Port:     587,
		Username: os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     getenv("SMTP_FROM", "NoReply <no-reply@example.com>"),
	}

	engagements := service.NewEngagementService()
	selector := service.NewSelectorService()
	reconciler := service.NewReconcileService(client, smtp)
	orchestrator := service.NewOrchestrator(selector, client, engagements, reconciler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 重启后把中断的 run 重新排队
	if err := orchestrator.ResumeInterrupted(ctx); err != nil {
		log.Printf("resume interrupted runs: %v", err)
	}
	go orchestrator.Run(ctx)

	// outbox 投递：kafka 没配就先打日志
	sender := service.LogSender
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		producer, err := pkg.NewKafkaProducer(pkg.KafkaConfig{
			Brokers: []string{brokers},
			Topic:   getenv("KAFKA_TOPIC", "engagement-events"),
		})
		if err != nil {
			panic(err)
		}
		defer producer.Close()
		sender = service.KafkaSender(producer)
	}
	go service.NewOutboxRelayer(sender).Run(ctx)

	// Gin
	r := router.InitRouter()
	if err := r.Run(":8080"); err != nil {
		return
	}
}
