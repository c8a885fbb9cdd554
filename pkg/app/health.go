package app

import (
	"context"
	"net/http"
	"time"

	httputil "tutorbook/pkg/http"
	"tutorbook/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const readinessTimeout = 2 * time.Second

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Cache    string `json:"cache,omitempty"`
}

// HealthHandler serves liveness and readiness. Redis is optional; a nil client is skipped.
type HealthHandler struct {
	mongoClient *mongo.Client
	redisClient *redis.Client
	log         *logger.Logger
}

func NewHealthHandler(mongoClient *mongo.Client, redisClient *redis.Client, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		mongoClient: mongoClient,
		redisClient: redisClient,
		log:         log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "error", err)
	}
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ready", Database: "ok"}
	status := http.StatusOK

	if h.mongoClient == nil {
		resp.Database = "error"
	} else if err := h.mongoClient.Ping(ctx, nil); err != nil {
		h.log.Error("Database health check failed", "error", err)
		resp.Database = "error"
	}

	if h.redisClient != nil {
		resp.Cache = "ok"
		if err := h.redisClient.Ping(ctx).Err(); err != nil {
			h.log.Error("Cache health check failed", "error", err)
			resp.Cache = "error"
		}
	}

	if resp.Database == "error" || resp.Cache == "error" {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if err := httputil.WriteJSON(w, status, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
