package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"job-board-go/internal/storage"
)

// NotificationHandler 站内通知
type NotificationHandler struct {
	db *storage.MySQL
}

// NewNotificationHandler 创建通知处理器
func NewNotificationHandler(d Deps) *NotificationHandler {
	return &NotificationHandler{db: d.DB}
}

// List 当前用户的通知，?unread=true 只看未读
func (h *NotificationHandler) List(ctx context.Context, c *app.RequestContext) {
	unreadOnly := c.Query("unread") == "true"
	list, unread, err := h.db.ListNotifications(ctx, currentUser(c).ID, unreadOnly, queryInt(c, "limit", 0))
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"notifications": list, "unreadCount": unread})
}

// MarkRead 标记单条已读
func (h *NotificationHandler) MarkRead(ctx context.Context, c *app.RequestContext) {
	if err := h.db.MarkNotificationRead(ctx, currentUser(c).ID, c.Param("id")); err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"success": true})
}

// MarkAllRead 全部标记已读
func (h *NotificationHandler) MarkAllRead(ctx context.Context, c *app.RequestContext) {
	n, err := h.db.MarkAllNotificationsRead(ctx, currentUser(c).ID)
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"success": true, "updated": n})
}
