package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vapter/vaptord/internal/apierr"
	"github.com/vapter/vaptord/internal/models"
	"github.com/vapter/vaptord/internal/store"
)

func (s *Server) listTargets(c *gin.Context) {
	p := parseListParams(c, []string{"customer_id", "address", "display_name"})
	targets, err := s.store.Targets().List(c.Request.Context(), p)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, targets)
}

func (s *Server) createTarget(c *gin.Context) {
	var req createTargetRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if err := models.ValidateAddress(req.Address); err != nil {
		c.Error(apierr.Validation("%s", err))
		return
	}
	target := models.NewTarget(req.CustomerID, req.DisplayName, req.Address)
	if err := s.store.Targets().Create(c.Request.Context(), target); err != nil {
		c.Error(mapStoreErr(err, "target"))
		return
	}
	c.JSON(http.StatusCreated, target)
}

func (s *Server) getTarget(c *gin.Context) {
	target, err := s.store.Targets().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(mapStoreErr(err, "target"))
		return
	}
	c.JSON(http.StatusOK, target)
}

func (s *Server) updateTarget(c *gin.Context) {
	id := c.Param("id")
	target, err := s.store.Targets().Get(c.Request.Context(), id)
	if err != nil {
		c.Error(mapStoreErr(err, "target"))
		return
	}
	var req updateTargetRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if req.DisplayName != nil {
		target.DisplayName = *req.DisplayName
	}
	if req.Address != nil {
		if err := models.ValidateAddress(*req.Address); err != nil {
			c.Error(apierr.Validation("%s", err))
			return
		}
		target.Address = *req.Address
	}
	if err := s.store.Targets().Update(c.Request.Context(), target); err != nil {
		c.Error(mapStoreErr(err, "target"))
		return
	}
	c.JSON(http.StatusOK, target)
}

func (s *Server) deleteTarget(c *gin.Context) {
	if err := s.store.Targets().SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(mapStoreErr(err, "target"))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) targetScans(c *gin.Context) {
	scans, err := s.store.Scans().List(c.Request.Context(), store.ListParams{
		Filters: map[string]any{"target_id": c.Param("id")},
		Limit:   500,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, scans)
}

// createScanForTarget implements POST /targets/{id}/scan: creates a Scan
// and hands it to the dispatcher, which validates scope, enforces the
// one-non-terminal-scan-per-target invariant, and publishes the initial
// nmap stage request.
func (s *Server) createScanForTarget(c *gin.Context) {
	var req createScanRequest
	if !s.bindJSON(c, &req) {
		return
	}
	scan, err := s.dispatcher.Create(c.Request.Context(), c.Param("id"), req.ScanTypeID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, scan)
}
