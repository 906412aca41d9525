package server

import (
	"annopedia-backend/server/common"
	"annopedia-backend/server/handler"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const defaultMaxUploadMB = 32

type Config struct {
	Host      string
	Port      int
	DebugMode bool

	// 导入文件的大小上限，为 0 时使用 defaultMaxUploadMB
	MaxUploadMB int64
	// 为空时允许所有来源
	CORSOrigins []string
	Auth        common.AuthConfig
}

type Server struct {
	engine *gin.Engine
	config *Config
}

func New(config *Config) *Server {
	if !config.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	eng := gin.New()
	eng.Use(gin.Recovery())

	maxUploadMB := config.MaxUploadMB
	if maxUploadMB <= 0 {
		maxUploadMB = defaultMaxUploadMB
	}
	eng.MaxMultipartMemory = maxUploadMB << 20

	eng.Use(common.LogRequest)
	eng.Use(newCORS(config))

	eng.GET("/health", healthHandler)

	api := eng.Group("api")
	api.Use(common.Authenticate(&config.Auth))

	management := api.Group("management")
	{
		management.POST("/create/", handler.CreateProject)
		management.GET("/projects/list", handler.ListProjects)

		management.GET("/projects/:url", handler.GetProject)
		management.PATCH("/projects/:url", handler.UpdateProject)
		management.DELETE("/projects/:url", handler.DeleteProject)
		management.POST("/projects/:url/administrators", handler.AddAdministrator)

		management.POST("/classification/:url/category", handler.CreateCategory)
		management.DELETE("/classification/:url/category", handler.DeleteCategory)

		management.POST("/projects/:url/entries", handler.CreateEntry)
		management.GET("/projects/:url/entries", handler.ListEntries)
		management.PATCH("/projects/:url/entries/:id", handler.UpdateEntry)
		management.DELETE("/projects/:url/entries/:id", handler.DeleteEntry)
		management.GET("/projects/:url/entries/:id/history", handler.EntryHistory)
		management.GET("/projects/:url/statistics", handler.Statistics)

		management.POST("/projects/:url/import", handler.ImportSources)
		management.GET("/projects/:url/import", handler.ListSources)
		management.DELETE("/projects/:url/import/:id", handler.DeleteSource)
		management.GET("/projects/:url/import/:id/tokens", handler.SourceTokens)
		management.GET("/projects/:url/unannotated", handler.ListUnannotated)

		management.GET("/projects/:url/export", handler.Export)
		management.GET("/projects/:url/export-disagreements", handler.ExportDisagreements)
	}

	annotate := api.Group("annotate")
	{
		annotate.POST("/projects/:url", handler.InviteAnnotator)
		annotate.GET("/projects/:url/annotators", handler.ListAnnotators)
		annotate.GET("/projects/:url/resend-invite-email", handler.ResendInvite)
		annotate.PATCH("/projects/:url/annotators/:username/active", handler.ToggleAnnotatorActive)

		// 持 token 的私有标注员
		private := annotate.Group("")
		private.Use(common.RequirePrivateAnnotator)

		private.GET("/project", handler.AnnotateProject)
		private.GET("/remaining", handler.AnnotateRemaining)
		private.GET("/entries", handler.AnnotateEntries)
		private.POST("/entries", handler.AnnotateCreateEntry)
		private.PATCH("/entries/:id", handler.AnnotateUpdateEntry)
	}

	return &Server{
		engine: eng,
		config: config,
	}
}

func newCORS(config *Config) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if len(config.CORSOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = config.CORSOrigins
	}
	corsConfig.AddAllowHeaders("Authorization")
	return cors.New(corsConfig)
}

func healthHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Engine 返回路由，用于测试
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RunServer() error {
	return s.engine.Run(fmt.Sprintf("%s:%d", s.config.Host, s.config.Port))
}
