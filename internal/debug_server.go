package internal

import (
	"chat-relay/repositories"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
)

// StatsProvider returns live counters displayed next to the inspected rows.
type StatsProvider func() map[string]any

type inspectPage struct {
	Prefix string                    `json:"prefix"`
	Stats  map[string]any            `json:"stats"`
	Items  []repositories.InspectRow `json:"items"`
}

// DebugHandler serves read-only views of the database for local troubleshooting.
//
//	GET /inspect?prefix=msg:&limit=50
//	GET /stats
func DebugHandler(db *badger.DB, stats StatsProvider) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/inspect", func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "limit must be an integer"})
			return
		}
		prefix := c.DefaultQuery("prefix", "msg:")

		items, err := repositories.Inspect(db, prefix, limit)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
			return
		}
		page := inspectPage{Prefix: prefix, Stats: map[string]any{}, Items: items}
		if stats != nil {
			page.Stats = stats()
		}
		c.JSON(http.StatusOK, page)
	})

	r.GET("/stats", func(c *gin.Context) {
		lsm, vlog := db.Size()
		out := map[string]any{"lsm_bytes": lsm, "vlog_bytes": vlog}
		if stats != nil {
			for k, v := range stats() {
				out[k] = v
			}
		}
		c.JSON(http.StatusOK, out)
	})

	return r
}

// StartDebugServer listens on localhost only and stops when ctx is done.
func StartDebugServer(ctx context.Context, log *slog.Logger, db *badger.DB, port int, stats StatsProvider) {
	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           DebugHandler(db, stats),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://%s/inspect", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("Debug server stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
