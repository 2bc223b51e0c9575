package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/alimgiray/devfolio/internal/services"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExportHandler struct {
	exportService *services.ExportService
}

func NewExportHandler(exportService *services.ExportService) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
	}
}

// Profiles downloads the gallery as an xlsx workbook
func (h *ExportHandler) Profiles(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")

	// buffered so a failure can still produce a JSON error
	var buf bytes.Buffer
	if err := h.exportService.WriteGallery(c.Request.Context(), &buf); err != nil {
		writeError(c, err)
		return
	}

	filename := fmt.Sprintf("profiles-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
