package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vapter/vaptord/internal/apierr"
	"github.com/vapter/vaptord/internal/models"
)

func (s *Server) listFingerprintDetails(c *gin.Context) {
	p := parseListParams(c, []string{"scan_id", "target_id", "protocol"})
	details, err := s.store.FingerprintDetails().List(c.Request.Context(), p)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (s *Server) createFingerprintDetail(c *gin.Context) {
	var f models.FingerprintDetail
	if err := c.ShouldBindJSON(&f); err != nil {
		c.Error(apierr.Validation("invalid request body: %s", err))
		return
	}
	if f.ID == "" {
		f = *models.NewFingerprintDetail(f.ScanID, f.TargetID, f.Port, f.Protocol)
	}
	if err := f.Validate(); err != nil {
		c.Error(apierr.Validation("%s", err))
		return
	}
	if err := s.store.FingerprintDetails().Create(c.Request.Context(), &f); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

// bulkCreateFingerprintDetails implements POST /fingerprint-details/bulk_create
// — the fingerprint worker's batched upload at the end of its bounded
// port-probe pool (§4.3 step 6).
func (s *Server) bulkCreateFingerprintDetails(c *gin.Context) {
	var details []*models.FingerprintDetail
	if err := c.ShouldBindJSON(&details); err != nil {
		c.Error(apierr.Validation("invalid request body: %s", err))
		return
	}
	for _, f := range details {
		if f.ID == "" {
			f.ID = models.NewFingerprintDetail(f.ScanID, f.TargetID, f.Port, f.Protocol).ID
		}
		if err := f.Validate(); err != nil {
			c.Error(apierr.Validation("%s", err))
			return
		}
	}
	if err := s.store.FingerprintDetails().BulkCreate(c.Request.Context(), details); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, details)
}

func (s *Server) getFingerprintDetail(c *gin.Context) {
	f, err := s.store.FingerprintDetails().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(mapStoreErr(err, "fingerprint_detail"))
		return
	}
	c.JSON(http.StatusOK, f)
}

func (s *Server) deleteFingerprintDetail(c *gin.Context) {
	if err := s.store.FingerprintDetails().SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(mapStoreErr(err, "fingerprint_detail"))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) fingerprintDetailsByScan(c *gin.Context) {
	scanID := c.Query("scan_id")
	if scanID == "" {
		c.Error(apierr.Validation("scan_id query parameter is required"))
		return
	}
	details, err := s.store.FingerprintDetails().ListByScan(c.Request.Context(), scanID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (s *Server) fingerprintDetailsByTarget(c *gin.Context) {
	targetID := c.Query("target_id")
	if targetID == "" {
		c.Error(apierr.Validation("target_id query parameter is required"))
		return
	}
	details, err := s.store.FingerprintDetails().ListByTarget(c.Request.Context(), targetID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (s *Server) fingerprintServiceSummary(c *gin.Context) {
	targetID := c.Query("target_id")
	if targetID == "" {
		c.Error(apierr.Validation("target_id query parameter is required"))
		return
	}
	summary, err := s.store.FingerprintDetails().ServiceSummary(c.Request.Context(), targetID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
