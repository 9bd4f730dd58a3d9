package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vapter/vaptord/internal/apierr"
)

// ScanDetail is 1:1 with Scan and never created directly by a client (it's
// populated by the nmap-result derivation in patchScan), so both routes
// below key on scan_id rather than the row's own id.

func (s *Server) listScanDetails(c *gin.Context) {
	scanID := c.Query("scan_id")
	if scanID == "" {
		c.Error(apierr.Validation("scan_id query parameter is required"))
		return
	}
	detail, err := s.store.ScanDetails().GetByScanID(c.Request.Context(), scanID)
	if err != nil {
		c.Error(mapStoreErr(err, "scan_detail"))
		return
	}
	c.JSON(http.StatusOK, []any{detail})
}

func (s *Server) getScanDetail(c *gin.Context) {
	detail, err := s.store.ScanDetails().GetByScanID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(mapStoreErr(err, "scan_detail"))
		return
	}
	c.JSON(http.StatusOK, detail)
}
