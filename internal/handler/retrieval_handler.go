package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/docrankhq/docrank/internal/pkg/errcode"
	"github.com/docrankhq/docrank/internal/pkg/response"
	"github.com/docrankhq/docrank/internal/search"
	"github.com/docrankhq/docrank/internal/service"
)

type RetrievalHandler struct {
	stream *service.StreamService
}

func NewRetrievalHandler(stream *service.StreamService) *RetrievalHandler {
	return &RetrievalHandler{stream: stream}
}

type retrieveRequest struct {
	Query          string   `json:"query"`
	FileIDs        []string `json:"file_ids"`
	SequenceNumber int      `json:"sequence_number"`
	Backend        string   `json:"backend"`
}

// Retrieve streams the per-file relevance assessment for one chat turn.
// The body is plain text in the chat wire format, flushed incrementally.
func (h *RetrievalHandler) Retrieve(c *gin.Context) {
	var req retrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	fileIDs := req.FileIDs
	// "all" searches the whole corpus instead of explicit candidates.
	if len(fileIDs) == 1 && fileIDs[0] == "all" {
		fileIDs = nil
	}
	sreq := &service.RetrieveRequest{
		UserID:         getUserID(c),
		ChatID:         c.Param("chat_id"),
		Query:          req.Query,
		FileIDs:        fileIDs,
		SequenceNumber: req.SequenceNumber,
		Backend:        search.Backend(req.Backend),
	}
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	if err := h.stream.RetrieveAndStream(c.Request.Context(), sreq, c.Writer); err != nil {
		h.streamError(c, err)
	}
}

func (h *RetrievalHandler) streamError(c *gin.Context, err error) {
	// Before the first byte this is a normal API error. After it, the
	// transcript already reached the client, so append a terminal error
	// line and cut the stream.
	if !c.Writer.Written() {
		handleError(c, err)
		return
	}
	fmt.Fprintf(c.Writer, "\n\n**Error**: %s\n", err.Error())
	c.Writer.Flush()
	c.Abort()
}
