package handler

import (
	"context"
	"sort"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const healthCheckTimeout = 3 * time.Second

// HealthHandler 依赖健康检查
type HealthHandler struct {
	checks map[string]HealthCheck
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(d Deps) *HealthHandler {
	return &HealthHandler{checks: d.Checks}
}

// Check 逐项检查依赖；mysql 不可用时返回503，其他依赖只标记为 degraded
func (h *HealthHandler) Check(ctx context.Context, c *app.RequestContext) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	code := consts.StatusOK
	components := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			components[name] = err.Error()
			if name == "mysql" {
				status = "down"
				code = consts.StatusServiceUnavailable
			} else if status == "ok" {
				status = "degraded"
			}
			continue
		}
		components[name] = "ok"
	}
	c.JSON(code, utils.H{
		"status":     status,
		"components": components,
		"time":       time.Now().UTC().Format(time.RFC3339),
	})
}
