package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthDeps are the connections the health check pings. Nil entries are
// reported as not configured.
type HealthDeps struct {
	AppName   string
	Env       string
	Postgres  *gorm.DB
	Redis     redis.UniversalClient
	MQConn    *amqp.Connection
	StartedAt time.Time
}

type HealthHandler struct {
	deps HealthDeps
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(deps HealthDeps) *HealthHandler {
	return &HealthHandler{deps: deps}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	postgresStatus := h.checkPostgres(ctx)
	redisStatus := h.checkRedis(ctx)
	rmqStatus := h.checkRabbitMQ()

	allOK := postgresStatus.OK && redisStatus.OK && rmqStatus.OK
	statusCode := http.StatusOK
	if !allOK {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"app":        h.deps.AppName,
		"env":        h.deps.Env,
		"ok":         allOK,
		"uptime_sec": int(time.Since(h.deps.StartedAt).Seconds()),
		"dependencies": gin.H{
			"postgres": postgresStatus,
			"redis":    redisStatus,
			"rabbitmq": rmqStatus,
		},
	})
}

func (h *HealthHandler) checkPostgres(ctx context.Context) dependencyStatus {
	if h.deps.Postgres == nil {
		return dependencyStatus{OK: false, Message: "not configured"}
	}
	sqlDB, err := h.deps.Postgres.DB()
	if err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkRedis(ctx context.Context) dependencyStatus {
	if h.deps.Redis == nil {
		return dependencyStatus{OK: false, Message: "not configured"}
	}
	if err := h.deps.Redis.Ping(ctx).Err(); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkRabbitMQ() dependencyStatus {
	if h.deps.MQConn == nil {
		return dependencyStatus{OK: false, Message: "not configured"}
	}
	if h.deps.MQConn.IsClosed() {
		return dependencyStatus{OK: false, Message: "connection closed"}
	}
	return dependencyStatus{OK: true}
}
