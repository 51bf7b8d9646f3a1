package handler

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"

	"job-board-go/internal/constants"
	"job-board-go/internal/storage/models"
)

const (
	contextKeyToken = "session_token"
	contextKeyUser  = "current_user"
)

// UserLoader 按ID加载用户
type UserLoader interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Authenticator 会话令牌校验
type Authenticator struct {
	sessions   SessionStore
	users      UserLoader
	cookieName string
}

// NewAuthenticator 创建会话校验器
func NewAuthenticator(sessions SessionStore, users UserLoader, cookieName string) *Authenticator {
	return &Authenticator{sessions: sessions, users: users, cookieName: cookieName}
}

// Middleware 要求请求携带有效会话。
// 令牌取自 Authorization: Bearer，没有时回退到会话cookie。
func (a *Authenticator) Middleware() app.HandlerFunc {
	auth := keyauth.New(
		keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
		keyauth.WithContextKey(contextKeyToken),
		keyauth.WithValidator(a.validate),
		keyauth.WithSuccessHandler(func(ctx context.Context, c *app.RequestContext) {
			c.Next(ctx)
		}),
		keyauth.WithErrorHandler(func(ctx context.Context, c *app.RequestContext, err error) {
			writeError(c, consts.StatusUnauthorized, "未登录或会话已过期")
		}),
	)
	return func(ctx context.Context, c *app.RequestContext) {
		if len(c.GetHeader("Authorization")) == 0 && a.cookieName != "" {
			if token := c.Cookie(a.cookieName); len(token) > 0 {
				c.Request.Header.Set("Authorization", "Bearer "+string(token))
			}
		}
		auth(ctx, c)
	}
}

func (a *Authenticator) validate(ctx context.Context, c *app.RequestContext, token string) (bool, error) {
	userID, err := a.sessions.GetSession(ctx, strings.TrimSpace(token))
	if err != nil {
		return false, err
	}
	user, err := a.users.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	c.Set(contextKeyUser, user)
	return true, nil
}

// currentUser 取出中间件放入的当前用户
func currentUser(c *app.RequestContext) *models.User {
	v, ok := c.Get(contextKeyUser)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// RequireRoles 只允许指定角色访问
func RequireRoles(roles ...string) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		user := currentUser(c)
		if user == nil {
			writeError(c, consts.StatusUnauthorized, "未登录或会话已过期")
			return
		}
		for _, r := range roles {
			if user.Role == r {
				c.Next(ctx)
				return
			}
		}
		writeError(c, consts.StatusForbidden, "当前角色无权访问")
	}
}

// RequireApprovedRecruiter 招聘者需通过审核
func RequireApprovedRecruiter() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		user := currentUser(c)
		if user == nil || user.Role != constants.RoleRecruiter {
			writeError(c, consts.StatusForbidden, "当前角色无权访问")
			return
		}
		if user.RecruiterProfile == nil || user.RecruiterProfile.ApprovalStatus != constants.ApprovalApproved {
			writeError(c, consts.StatusForbidden, "招聘者账号尚未通过审核")
			return
		}
		c.Next(ctx)
	}
}
