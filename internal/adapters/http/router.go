package http

import (
	"context"
	"net/http"

	"github.com/dkeye/Poker/internal/adapters/signal"
	"github.com/dkeye/Poker/internal/app/orch"
	"github.com/dkeye/Poker/internal/config"
	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
	"github.com/dkeye/Poker/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// RoomView is the REST representation of a room. Summary is only present
// once votes are revealed.
type RoomView struct {
	core.Snapshot
	Summary *core.Summary `json:"summary,omitempty"`
}

func SignalOptions(cfg *config.Config) signal.Options {
	opts := signal.DefaultOptions()
	if cfg.ReadLimit > 0 {
		opts.ReadLimit = cfg.ReadLimit
	}
	if cfg.PingPeriod > 0 {
		opts.PingPeriod = cfg.PingPeriod
	}
	if cfg.PongWait > 0 {
		opts.PongWait = cfg.PongWait
	}
	if cfg.WriteWait > 0 {
		opts.WriteWait = cfg.WriteWait
	}
	if cfg.SendBuffer > 0 {
		opts.SendBuffer = cfg.SendBuffer
	}
	opts.RequireName = cfg.Rules.RequireName
	opts.NotifyRejections = cfg.Rules.NotifyRejections
	return opts
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(ClientTokenMiddleware())

	limiter := signal.NewRoomRateLimiter(cfg.RateLimit.Events, cfg.RateLimit.Interval)
	ctrl := signal.NewSignalWSController(o, limiter, SignalOptions(cfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"rooms":       o.Rooms.Count(),
			"connections": o.Registry.Count(),
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")

	api := r.Group("/api")

	api.GET("/cards", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"cards": domain.Cards})
	})

	// Minting an id creates no state; the room exists once someone joins it.
	api.POST("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"room": domain.NewRoomID()})
	})

	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": o.Rooms.List()})
	})

	api.GET("/rooms/:id", func(c *gin.Context) {
		id, ok := domain.ParseRoomID(c.Param("id"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_room"})
			return
		}
		room, ok := o.Rooms.Get(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room_not_found"})
			return
		}
		snap, participants := room.View()
		view := RoomView{Snapshot: snap}
		if view.Revealed {
			sum := core.Summarize(participants)
			view.Summary = &sum
		}
		c.JSON(http.StatusOK, view)
	})

	api.GET("/ws", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("ws endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	return r
}

// WithCORS wraps h so browsers from the configured origins can reach the API.
func WithCORS(cfg *config.Config, h http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}).Handler(h)
}
