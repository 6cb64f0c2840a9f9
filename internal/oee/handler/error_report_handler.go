package handler

import (
	"strings"

	"github.com/bitfantasy/nimo-oee/internal/oee/service"
	"github.com/gin-gonic/gin"
)

// 上传图片大小上限
const maxImageSize = 10 << 20

type ErrorReportHandler struct {
	svc *service.ErrorReportService
}

func NewErrorReportHandler(svc *service.ErrorReportService) *ErrorReportHandler {
	return &ErrorReportHandler{svc: svc}
}

// Create POST /error-reports
func (h *ErrorReportHandler) Create(c *gin.Context) {
	var req service.CreateErrorReportInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	r, err := h.svc.AddErrorReport(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, r)
}

// Get GET /error-reports/:id
func (h *ErrorReportHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	r, err := h.svc.GetErrorReport(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, r)
}

// Update PUT /error-reports/:id，操作人取当前登录用户
func (h *ErrorReportHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateErrorReportInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	r, err := h.svc.UpdateErrorReport(c.Request.Context(), id, &req, GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, r)
}

// AddImage POST /error-reports/:id/images
// multipart 上传文件到对象存储，JSON 登记已有图片地址
func (h *ErrorReportHandler) AddImage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			BadRequest(c, "请上传图片文件")
			return
		}
		if fileHeader.Size > maxImageSize {
			BadRequest(c, "图片不能超过10MB")
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			InternalError(c, "读取上传文件失败: "+err.Error())
			return
		}
		defer file.Close()

		img, err := h.svc.UploadErrorImage(c.Request.Context(), id, GetUserID(c),
			c.PostForm("role"), c.PostForm("description"),
			fileHeader.Filename, file, fileHeader.Size, fileHeader.Header.Get("Content-Type"))
		if err != nil {
			RespondError(c, err)
			return
		}
		Created(c, img)
		return
	}

	var req service.AddErrorImageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	img, err := h.svc.AddErrorImage(c.Request.Context(), id, &req, GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, img)
}
