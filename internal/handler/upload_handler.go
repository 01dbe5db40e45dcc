package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quillpress/internal/service"
)

// ListMedia 获取媒体库列表
func (a *API) ListMedia(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"media": a.media.List(c.Request.Context())})
}

// UploadMedia 处理图片上传请求，返回的 location 字段供编辑器插入图片
func (a *API) UploadMedia(c *gin.Context) {
	upload, err := readUpload(c, "file")
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "file is too large")
			return
		}
		respondError(c, http.StatusBadRequest, "invalid upload")
		return
	}
	if upload == nil {
		respondError(c, http.StatusBadRequest, "no file provided")
		return
	}

	item, err := a.media.Upload(c.Request.Context(), *upload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMediaType),
			errors.Is(err, service.ErrMediaUnreadable),
			errors.Is(err, service.ErrMediaEmpty):
			respondError(c, http.StatusBadRequest, err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "failed to store file")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"location": item.URL, "media": item})
}

// DeleteMedia 删除媒体文件
func (a *API) DeleteMedia(c *gin.Context) {
	if err := a.media.Delete(c.Request.Context(), c.Param("name")); err != nil {
		switch {
		case errors.Is(err, service.ErrMediaNotFound):
			respondError(c, http.StatusNotFound, "media not found")
		case errors.Is(err, service.ErrInvalidMediaName):
			respondError(c, http.StatusBadRequest, "invalid media name")
		default:
			respondError(c, http.StatusInternalServerError, "failed to delete media")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "media deleted"})
}
