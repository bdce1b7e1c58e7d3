package handler

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/docrankhq/docrank/internal/pkg/errcode"
	"github.com/docrankhq/docrank/internal/pkg/response"
	"github.com/docrankhq/docrank/internal/service"
)

type FileHandler struct {
	files *service.FileService
}

func NewFileHandler(files *service.FileService) *FileHandler {
	return &FileHandler{files: files}
}

func (h *FileHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	files, err := h.files.List(c.Request.Context(), getUserID(c), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": files})
}

// ChatFiles lists the retrieval history of every file a chat has surfaced.
func (h *FileHandler) ChatFiles(c *gin.Context) {
	records, err := h.files.ListChatProvenance(c.Request.Context(), getUserID(c), c.Param("chat_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": records})
}

// Provenance returns the retrieval history of one file within one chat.
// With ?format=html the stored markdown summaries come back rendered.
func (h *FileHandler) Provenance(c *gin.Context) {
	record, err := h.files.GetProvenance(c.Request.Context(), getUserID(c), c.Param("chat_id"), c.Param("file_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	if c.Query("format") != "html" {
		response.Success(c, record)
		return
	}
	rendered := make([]string, 0, len(record.QueryRelatedMetadata))
	for _, entry := range record.QueryRelatedMetadata {
		html, err := service.RenderMarkdown(entry.Metadata.Summary)
		if err != nil {
			response.Error(c, errcode.ErrInternal, "failed to render summary")
			return
		}
		rendered = append(rendered, html)
	}
	response.Success(c, gin.H{"provenance": record, "summaries_html": rendered})
}

// Content streams the original file bytes from the configured store.
func (h *FileHandler) Content(c *gin.Context) {
	rc, file, err := h.files.OpenContent(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	defer rc.Close()
	c.Header("Content-Type", "application/octet-stream")
	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		c.Abort()
	}
}
