package router

import (
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"

	"job-board-go/internal/api/handler"
	"job-board-go/internal/constants"
)

// RegisterRoutes 注册全部 API 路由和上传文件的静态访问
func RegisterRoutes(h *server.Hertz, deps handler.Deps) {
	cfg := deps.Config
	authn := handler.NewAuthenticator(deps.Sessions, deps.DB, cfg.Auth.CookieName).Middleware()

	authH := handler.NewAuthHandler(deps)
	jobH := handler.NewJobHandler(deps)
	appH := handler.NewApplicationHandler(deps)
	resumeH := handler.NewResumeHandler(deps)
	recruiterH := handler.NewRecruiterHandler(deps)
	interviewH := handler.NewInterviewHandler(deps)
	notifyH := handler.NewNotificationHandler(deps)
	adminH := handler.NewAdminHandler(deps)
	healthH := handler.NewHealthHandler(deps)

	if prefix := strings.TrimRight(cfg.Upload.PublicPrefix, "/"); prefix != "" && cfg.Upload.Root != "" {
		h.StaticFS(prefix, &app.FS{
			Root:        cfg.Upload.Root,
			PathRewrite: app.NewPathSlashesStripper(strings.Count(prefix, "/")),
		})
	}

	api := h.Group("/api")
	api.GET("/health", healthH.Check)

	auth := api.Group("/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.Login)
	auth.POST("/logout", authn, authH.Logout)
	auth.GET("/me", authn, authH.Me)

	jobs := api.Group("/jobs")
	jobs.GET("", jobH.List)
	jobs.GET("/:id", jobH.Get)
	employer := []app.HandlerFunc{authn, handler.RequireRoles(constants.RoleEmployer, constants.RoleAdmin)}
	jobs.POST("", append(employer, jobH.Create)...)
	jobs.PUT("/:id", append(employer, jobH.Update)...)
	jobs.DELETE("/:id", append(employer, jobH.Delete)...)
	jobs.GET("/:id/applications", append(employer, jobH.Applications)...)

	apps := api.Group("/applications", authn)
	apps.POST("", handler.RequireRoles(constants.RoleEmployee), appH.Create)
	apps.GET("", appH.List)
	apps.GET("/:id", appH.Get)
	apps.PATCH("/:id/status", handler.RequireRoles(constants.RoleEmployer, constants.RoleAdmin), appH.UpdateStatus)
	apps.DELETE("/:id", handler.RequireRoles(constants.RoleEmployee), appH.Delete)

	resumes := api.Group("/resumes", authn)
	resumes.POST("/upload", resumeH.Upload)
	resumes.GET("", resumeH.List)
	resumes.GET("/:id", resumeH.Get)
	resumes.GET("/:id/text", resumeH.Text)
	resumes.GET("/:id/download", resumeH.Download)
	resumes.PATCH("/:id/primary", resumeH.SetPrimary)
	resumes.DELETE("/:id", resumeH.Delete)

	notifications := api.Group("/notifications", authn)
	notifications.GET("", notifyH.List)
	notifications.PATCH("/read-all", notifyH.MarkAllRead)
	notifications.PATCH("/:id/read", notifyH.MarkRead)

	recruiter := api.Group("/recruiter", authn, handler.RequireRoles(constants.RoleRecruiter))
	recruiter.GET("/profile", recruiterH.GetProfile)
	recruiter.PUT("/profile", recruiterH.UpdateProfile)
	recruiter.GET("/status", recruiterH.Status)

	approved := recruiter.Group("", handler.RequireApprovedRecruiter())
	approved.POST("/resumes/upload", recruiterH.UploadResumes)
	approved.GET("/resumes", recruiterH.ListResumes)
	approved.DELETE("/resumes/:filename", recruiterH.DeleteResume)
	approved.POST("/match", recruiterH.Match)
	approved.POST("/match/async", recruiterH.MatchAsync)
	approved.GET("/match", recruiterH.MatchRuns)
	approved.GET("/match/:id", recruiterH.MatchResult)
	approved.GET("/notifications", notifyH.List)
	approved.PATCH("/notifications/read-all", notifyH.MarkAllRead)
	approved.PATCH("/notifications/:id/read", notifyH.MarkRead)
	approved.GET("/interviews", interviewH.List)
	approved.POST("/interviews", interviewH.Create)
	approved.GET("/interviews/:id", interviewH.Get)
	approved.PUT("/interviews/:id", interviewH.Update)
	approved.DELETE("/interviews/:id", interviewH.Delete)

	admin := api.Group("/admin", authn, handler.RequireRoles(constants.RoleAdmin))
	admin.GET("/recruiters", adminH.ListRecruiters)
	admin.PATCH("/recruiters/:id/approve", adminH.Approve)
	admin.PATCH("/recruiters/:id/reject", adminH.Reject)
}
