package api

import (
	httpSwagger "github.com/swaggo/http-swagger"

	"go-archive-merger/internal/api/handler"
	"go-archive-merger/pkg/router"
)

func RegisterRoutes(r *router.Router, h *handler.Handler) {
	r.POST("/api/process", h.ProcessArchive)
	r.GET("/api/jobs", h.ListJobs)
	r.GET("/api/status/*", h.GetStatus)
	r.GET("/api/download/*", h.DownloadResult)

	r.GET("/swagger/*", router.HandlerFunc(httpSwagger.WrapHandler))
}
