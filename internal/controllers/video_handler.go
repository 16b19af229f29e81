package controllers

import (
	"context"
	nethttp "net/http"
	"strconv"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/bionicotaku/lingo-services-media/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-media/internal/services"
)

// maxUploadMemory 限制 multipart 表单驻留内存的部分，超出写入临时文件。
const maxUploadMemory = 32 << 20

// VideoHandler 负责视频生命周期与状态查询的 HTTP 接口。
type VideoHandler struct {
	*BaseHandler

	commands *services.VideoCommandService
	queries  *services.VideoQueryService
	statuses *services.StatusQueryService
}

// NewVideoHandler 构造视频 Handler。
func NewVideoHandler(
	commands *services.VideoCommandService,
	queries *services.VideoQueryService,
	statuses *services.StatusQueryService,
	base *BaseHandler,
) *VideoHandler {
	if base == nil {
		base = NewBaseHandler(HandlerTimeouts{})
	}
	return &VideoHandler{
		BaseHandler: base,
		commands:    commands,
		queries:     queries,
		statuses:    statuses,
	}
}

// RegisterRoutes 挂载 /v1 路由。
func (h *VideoHandler) RegisterRoutes(srv *http.Server) {
	r := srv.Route("/v1")
	r.POST("/videos", h.uploadVideo)
	r.POST("/videos/youtube", h.addYouTubeVideo)
	r.GET("/videos", h.listVideos)
	r.GET("/videos/{id}", h.getVideo)
	r.PATCH("/videos/{id}", h.updateVideo)
	r.DELETE("/videos/{id}", h.deleteVideo)
	r.POST("/videos/{id}/retry", h.retryProcessing)
	r.GET("/videos/{id}/status", h.latestStatus)
	r.GET("/videos/{id}/status/history", h.statusHistory)
	r.GET("/videos/{id}/download", h.downloadLink)
}

// run 统一处理 Metadata 注入、超时与中间件链，fn 返回响应 DTO。
func (h *VideoHandler) run(ctx http.Context, kind HandlerType, code int, fn func(context.Context) (any, error)) error {
	meta := h.ExtractMetadata(ctx.Request().Header)
	next := ctx.Middleware(func(c context.Context, _ any) (any, error) {
		c = InjectHandlerMetadata(c, meta)
		c, cancel := h.WithTimeout(c, kind)
		defer cancel()
		return fn(c)
	})
	out, err := next(ctx, nil)
	if err != nil {
		return err
	}
	return ctx.Result(code, out)
}

func (h *VideoHandler) uploadVideo(ctx http.Context) error {
	req := ctx.Request()
	if err := req.ParseMultipartForm(maxUploadMemory); err != nil {
		return errors.BadRequest(services.ReasonVideoInvalid, "invalid multipart form: "+err.Error())
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		return errors.BadRequest(services.ReasonVideoInvalid, "missing file part")
	}
	defer file.Close()

	input := services.UploadVideoInput{
		Title:       req.FormValue("title"),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	}
	if desc := req.FormValue("description"); desc != "" {
		input.Description = &desc
	}
	if raw := req.FormValue("isDownloadable"); raw != "" {
		downloadable, parseErr := strconv.ParseBool(raw)
		if parseErr != nil {
			return errors.BadRequest(services.ReasonVideoInvalid, "invalid isDownloadable value")
		}
		input.IsDownloadable = downloadable
	}

	return h.run(ctx, HandlerTypeCommand, nethttp.StatusCreated, func(c context.Context) (any, error) {
		view, err := h.commands.UploadVideo(c, input)
		if err != nil {
			return nil, err
		}
		return dto.NewVideoResponse(view), nil
	})
}

func (h *VideoHandler) addYouTubeVideo(ctx http.Context) error {
	var req dto.AddYouTubeVideoRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.BadRequest(services.ReasonVideoInvalid, "invalid request body")
	}
	input := services.AddYouTubeVideoInput{
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
	}
	return h.run(ctx, HandlerTypeCommand, nethttp.StatusCreated, func(c context.Context) (any, error) {
		view, err := h.commands.AddYouTubeVideo(c, input)
		if err != nil {
			return nil, err
		}
		return dto.NewVideoResponse(view), nil
	})
}

func (h *VideoHandler) listVideos(ctx http.Context) error {
	query := ctx.Query()
	typeFilter, err := dto.ParseTypeFilter(query.Get("type"))
	if err != nil {
		return errors.BadRequest(services.ReasonVideoInvalid, err.Error())
	}
	input := services.ListVideosInput{
		PageToken:  query.Get("page_token"),
		TypeFilter: typeFilter,
	}
	if raw := query.Get("limit"); raw != "" {
		limit, parseErr := strconv.ParseInt(raw, 10, 32)
		if parseErr != nil {
			return errors.BadRequest(services.ReasonVideoInvalid, "invalid limit value")
		}
		input.Limit = int32(limit)
	}
	return h.run(ctx, HandlerTypeQuery, nethttp.StatusOK, func(c context.Context) (any, error) {
		page, err := h.queries.ListMyVideos(c, input)
		if err != nil {
			return nil, err
		}
		return dto.NewListVideosResponse(page), nil
	})
}

func (h *VideoHandler) getVideo(ctx http.Context) error {
	videoID, err := dto.ParseVideoID(ctx.Vars().Get("id"))
	if err != nil {
		return errors.BadRequest(services.ReasonVideoInvalid, err.Error())
	}
	return h.run(ctx, HandlerTypeQuery, nethttp.StatusOK, func(c context.Context) (any, error) {
		view, err := h.queries.GetVideo(c, videoID)
		if err != nil {
			return nil, err
		}
		return dto.NewVideoResponse(view), nil
	})
}

func (h *VideoHandler) updateVideo(ctx http.Context) error {
	videoID, err := dto.ParseVideoID(ctx.Vars().Get("id"))
	if err != nil {
		return errors.BadRequest(services.ReasonVideoInvalid, err.Error())
	}
	var req dto.UpdateVideoRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.BadRequest(services.ReasonVideoInvalid, "invalid request body")
	}
	input := services.UpdateVideoInput{
		VideoID:        videoID,
		Title:          req.Title,
		Description:    req.Description,
		IsDownloadable: req.IsDownloadable,
	}
	return h.run(ctx, HandlerTypeCommand, nethttp.StatusOK, func(c context.Context) (any, error) {
		view, err := h.commands.UpdateVideo(c, input)
		if err != nil {
			return nil, err
		}
		return dto.NewVideoResponse(view), nil
	})
}

func (h *VideoHandler) deleteVideo(ctx http.Context) error {
	videoID, err := dto.ParseVideoID(ctx.Vars().Get("id"))
	if err != nil {
		return errors.BadRequest(services.ReasonVideoInvalid, err.Error())
	}
	return h.run(ctx, HandlerTypeCommand, nethttp.StatusNoContent, func(c context.Context) (any, error) {
		if err := h.commands.DeleteVideo(c, videoID); err != nil {
			return nil, err
		}
		return nil, nil
	})
}

func (h *VideoHandler) retryProcessing(ctx http.Context) error {
	videoID, err := dto.ParseVideoID(ctx.Vars().Get("id"))
	if err != nil {
		return errors.BadRequest(services.ReasonVideoInvalid, err.Error())
	}
	return h.run(ctx, HandlerTypeCommand, nethttp.StatusOK, func(c context.Context) (any, error) {
		view, err := h.commands.RetryProcessing(c, videoID)
		if err != nil {
			return nil, err
		}
		return dto.NewVideoResponse(view), nil
	})
}

func (h *VideoHandler) latestStatus(ctx http.Context) error {
	videoID, err := dto.ParseVideoID(ctx.Vars().Get("id"))
	if err != nil {
		return errors.BadRequest(services.ReasonVideoInvalid, err.Error())
	}
	return h.run(ctx, HandlerTypeQuery, nethttp.StatusOK, func(c context.Context) (any, error) {
		view, err := h.statuses.GetLatestStatus(c, videoID)
		if err != nil {
			return nil, err
		}
		return dto.NewStatusResponse(view), nil
	})
}

func (h *VideoHandler) statusHistory(ctx http.Context) error {
	videoID, err := dto.ParseVideoID(ctx.Vars().Get("id"))
	if err != nil {
		return errors.BadRequest(services.ReasonVideoInvalid, err.Error())
	}
	return h.run(ctx, HandlerTypeQuery, nethttp.StatusOK, func(c context.Context) (any, error) {
		entries, err := h.statuses.ListStatusHistory(c, videoID)
		if err != nil {
			return nil, err
		}
		return dto.NewStatusHistoryResponse(entries), nil
	})
}

func (h *VideoHandler) downloadLink(ctx http.Context) error {
	videoID, err := dto.ParseVideoID(ctx.Vars().Get("id"))
	if err != nil {
		return errors.BadRequest(services.ReasonVideoInvalid, err.Error())
	}
	return h.run(ctx, HandlerTypeQuery, nethttp.StatusOK, func(c context.Context) (any, error) {
		link, err := h.queries.GetDownloadLink(c, videoID)
		if err != nil {
			return nil, err
		}
		return dto.NewDownloadLinkResponse(link), nil
	})
}
