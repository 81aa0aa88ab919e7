package handler

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/wlc-ormoc/registrar-api/internal/middleware"
	"github.com/wlc-ormoc/registrar-api/internal/models"
	"github.com/wlc-ormoc/registrar-api/internal/service"
	appErrors "github.com/wlc-ormoc/registrar-api/pkg/errors"
	"github.com/wlc-ormoc/registrar-api/pkg/response"
)

// DocumentHandler exposes enrollment document endpoints.
type DocumentHandler struct {
	documents *service.DocumentService
}

// NewDocumentHandler constructs DocumentHandler.
func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// Upload godoc
// @Summary Upload a document for an enrollment
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param type formData string true "Document type"
// @Param file formData file true "Document file"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{id}/documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "a file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	// Admin uploads skip the ownership check.
	userID := claims.UserID
	if claims.Role == models.RoleAdmin {
		userID = ""
	}

	doc, err := h.documents.Upload(c.Request.Context(), userID, c.Param("id"), c.PostForm("type"), fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// List godoc
// @Summary List an enrollment's documents
// @Tags Documents
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{id}/documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	userID := claims.UserID
	if claims.Role == models.RoleAdmin {
		userID = ""
	}

	docs, err := h.documents.List(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}

type reviewDocumentRequest struct {
	Status models.DocumentStatus `json:"status" binding:"required"`
}

// Review godoc
// @Summary Verify or reject a document
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body reviewDocumentRequest true "Review payload"
// @Success 204
// @Security BearerAuth
// @Router /documents/{id}/review [put]
func (h *DocumentHandler) Review(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req reviewDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.documents.Review(c.Request.Context(), claims.UserID, c.Param("id"), req.Status); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SignedURL godoc
// @Summary Issue a time-limited download token for a document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/url [get]
func (h *DocumentHandler) SignedURL(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	userID := claims.UserID
	if claims.Role == models.RoleAdmin {
		userID = ""
	}

	download, err := h.documents.SignedURL(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, download, nil)
}

// Download godoc
// @Summary Download a document with a signed token
// @Tags Documents
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Router /documents/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "a download token is required"))
		return
	}

	doc, path, err := h.documents.ResolveToken(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.FileAttachment(path, doc.DocumentType+filepath.Ext(doc.FilePath))
}
