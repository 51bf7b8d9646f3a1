package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.opentelemetry.io/otel/trace"

	"job-board-go/internal/constants"
	"job-board-go/internal/logger"
	"job-board-go/internal/parser"
	"job-board-go/internal/processor"
	"job-board-go/internal/storage"
	"job-board-go/internal/tracing"
)

var (
	errForbidden = errors.New("没有权限执行该操作")
	errBadInput  = errors.New("请求参数不合法")
)

// writeError 输出 {"error": msg} 并中止后续处理
func writeError(c *app.RequestContext, status int, msg string) {
	c.AbortWithStatusJSON(status, utils.H{"error": msg})
}

// writeErr 按错误类型映射状态码，5xx 只记录日志不暴露细节
func writeErr(ctx context.Context, c *app.RequestContext, err error) {
	status := statusFor(err)
	tracing.RecordHTTPError(trace.SpanFromContext(ctx), err, status)
	msg := err.Error()
	if status >= consts.StatusInternalServerError {
		logger.Ctx(ctx).Error().Err(err).
			Str("method", string(c.Method())).
			Str("path", string(c.Path())).
			Msg("请求处理失败")
		msg = "服务器内部错误"
	}
	writeError(c, status, msg)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errForbidden):
		return consts.StatusForbidden
	case errors.Is(err, errUploadTooLarge):
		return consts.StatusRequestEntityTooLarge
	case errors.Is(err, errUploadUnsupported):
		return consts.StatusUnsupportedMediaType
	case errors.Is(err, errBadInput),
		errors.Is(err, errUploadMissing),
		errors.Is(err, processor.ErrJobDescriptionTooShort),
		errors.Is(err, processor.ErrInvalidRecruiterDir):
		return consts.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, processor.ErrMatchRunNotFound):
		return consts.StatusNotFound
	case errors.Is(err, storage.ErrDuplicate):
		return consts.StatusConflict
	}

	switch parser.KindOf(err) {
	case parser.KindNotFound:
		return consts.StatusNotFound
	case parser.KindTooLarge:
		return consts.StatusRequestEntityTooLarge
	case parser.KindUnsupportedFormat:
		return consts.StatusUnsupportedMediaType
	case parser.KindEmpty, parser.KindParseFailed, parser.KindInsufficientContent:
		return consts.StatusUnprocessableEntity
	}
	return consts.StatusInternalServerError
}

// bindJSON 解析请求体，失败时直接返回400
func bindJSON(c *app.RequestContext, v interface{}) bool {
	if err := c.BindJSON(v); err != nil {
		writeError(c, consts.StatusBadRequest, "请求体不是合法的JSON: "+err.Error())
		return false
	}
	return true
}

// queryInt 读取整数查询参数，缺省或非法时返回 def
func queryInt(c *app.RequestContext, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func pageParams(c *app.RequestContext) (page, pageSize int) {
	page = queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize = queryInt(c, "pageSize", constants.DefaultPageSize)
	if pageSize < 1 {
		pageSize = constants.DefaultPageSize
	}
	if pageSize > constants.MaxPageSize {
		pageSize = constants.MaxPageSize
	}
	return page, pageSize
}
