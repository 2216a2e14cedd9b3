package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"machinery-backend/internal/service"
)

// UploadDocument handles POST /api/machines/:id/documents (multipart field "file").
func (h *Handler) UploadDocument(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, errorResponse{Error: errorBody{
				Code: "too_large", Message: fmt.Sprintf("file exceeds %d bytes", h.maxUpload),
			}})
			return
		}
		badRequest(c, "file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer file.Close()

	doc, err := h.svc.Documents.Upload(c.Request.Context(), actor(c), id, service.Upload{
		Kind:        c.PostForm("kind"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// ListDocuments handles GET /api/machines/:id/documents.
func (h *Handler) ListDocuments(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	docs, err := h.svc.Documents.List(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// DownloadDocument handles GET /api/documents/:id.
func (h *Handler) DownloadDocument(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	doc, body, err := h.svc.Documents.Open(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer body.Close()

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, doc.Size, contentType, body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", doc.FileName),
	})
}
