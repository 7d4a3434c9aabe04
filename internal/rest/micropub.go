package rest

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/dfryer1193/micropub/blog/application"
	"github.com/dfryer1193/micropub/blog/domain"
	"github.com/dfryer1193/micropub/internal/middleware"
	"github.com/gin-gonic/gin"
)

const defaultMaxUploadSize = 32 << 20

// MicropubHandler serves the Micropub and media endpoints.
type MicropubHandler struct {
	service       *application.MicropubService
	info          application.ServerInfo
	verifier      middleware.TokenVerifier
	maxUploadSize int64
}

func NewMicropubHandler(service *application.MicropubService, info application.ServerInfo, verifier middleware.TokenVerifier) *MicropubHandler {
	return &MicropubHandler{
		service:       service,
		info:          info,
		verifier:      verifier,
		maxUploadSize: defaultMaxUploadSize,
	}
}

// Query answers GET /micropub?q=...
func (h *MicropubHandler) Query(c *gin.Context) {
	resp, err := h.info.Query(c.Query("q"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Post handles create, delete and undelete requests.
func (h *MicropubHandler) Post(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		middleware.AbortWithError(c, domain.NewError(domain.KindInvalidRequest, "could not read request body"))
		return
	}

	req, err := application.NormalizeRequest(c.GetHeader("Content-Type"), body)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	result, err := h.service.Handle(c.Request.Context(), req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	switch result.Outcome {
	case application.OutcomeCreated:
		c.Header("Location", result.URL)
		c.Status(http.StatusAccepted)
	default:
		c.Status(http.StatusNoContent)
	}
}

// UploadMedia stores the multipart "file" field and answers 201 with its URL.
func (h *MicropubHandler) UploadMedia(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)

	header, err := c.FormFile("file")
	if err != nil {
		middleware.AbortWithError(c, domain.NewError(domain.KindInvalidRequest, "a multipart file field named 'file' is required"))
		return
	}

	content, err := readUpload(header)
	if err != nil {
		middleware.AbortWithError(c, domain.NewError(domain.KindInvalidRequest, "could not read uploaded file: %v", err))
		return
	}

	url, err := h.service.UploadMedia(c.Request.Context(), header.Filename, content)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.Header("Location", url)
	c.Status(http.StatusCreated)
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}
