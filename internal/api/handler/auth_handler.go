package handler

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"job-board-go/internal/config"
	"job-board-go/internal/constants"
	"job-board-go/internal/logger"
	"job-board-go/internal/storage"
	"job-board-go/internal/storage/models"
)

const minPasswordLength = 6

// AuthHandler 注册、登录、登出
type AuthHandler struct {
	cfg      *config.Config
	db       *storage.MySQL
	sessions SessionStore
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(d Deps) *AuthHandler {
	return &AuthHandler{cfg: d.Config, db: d.DB, sessions: d.Sessions}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	CompanyName string `json:"companyName"`
	Agency      string `json:"agency"`
	Phone       string `json:"phone"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse 登录成功返回令牌和用户
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// Register 创建账号，招聘者同时创建待审核资料
func (h *AuthHandler) Register(ctx context.Context, c *app.RequestContext) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(c, consts.StatusBadRequest, "邮箱格式不正确")
		return
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		writeError(c, consts.StatusBadRequest, "密码至少6位")
		return
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = constants.RoleEmployee
	}
	if role != constants.RoleEmployee && role != constants.RoleEmployer && role != constants.RoleRecruiter {
		writeError(c, consts.StatusBadRequest, "不支持的角色: "+req.Role)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cfg.Auth.BcryptCost)
	if err != nil {
		writeErr(ctx, c, err)
		return
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
		Role:         role,
		CompanyName:  strings.TrimSpace(req.CompanyName),
	}
	var profile *models.RecruiterProfile
	if role == constants.RoleRecruiter {
		profile = &models.RecruiterProfile{
			Agency:          strings.TrimSpace(req.Agency),
			Phone:           strings.TrimSpace(req.Phone),
			Specializations: models.StringsToJSON(nil),
		}
	}

	if err := h.db.CreateUser(ctx, user, profile); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(c, consts.StatusConflict, "该邮箱已注册")
			return
		}
		writeErr(ctx, c, err)
		return
	}

	logger.Info().Str("user_id", user.ID).Str("role", role).Msg("新用户注册")
	c.JSON(consts.StatusCreated, utils.H{"user": user})
}

// Login 校验密码并创建会话
func (h *AuthHandler) Login(ctx context.Context, c *app.RequestContext) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.db.GetUserByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		writeErr(ctx, c, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(c, consts.StatusUnauthorized, "邮箱或密码错误")
		return
	}

	ttl := config.GetDuration(h.cfg.Auth.SessionTTL, 7*24*time.Hour)
	token := uuid.NewString()
	if err := h.sessions.CreateSession(ctx, token, user.ID, ttl); err != nil {
		writeErr(ctx, c, err)
		return
	}

	c.SetCookie(h.cfg.Auth.CookieName, token, int(ttl.Seconds()), "/", "", protocol.CookieSameSiteLaxMode, false, true)
	c.JSON(consts.StatusOK, LoginResponse{Token: token, ExpiresAt: time.Now().Add(ttl), User: user})
}

// Logout 删除当前会话
func (h *AuthHandler) Logout(ctx context.Context, c *app.RequestContext) {
	if token := c.GetString(contextKeyToken); token != "" {
		if err := h.sessions.DeleteSession(ctx, token); err != nil {
			writeErr(ctx, c, err)
			return
		}
	}
	c.SetCookie(h.cfg.Auth.CookieName, "", -1, "/", "", protocol.CookieSameSiteLaxMode, false, true)
	c.JSON(consts.StatusOK, utils.H{"success": true})
}

// Me 返回当前用户
func (h *AuthHandler) Me(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{"user": currentUser(c)})
}
