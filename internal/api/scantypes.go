package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vapter/vaptord/internal/apierr"
	"github.com/vapter/vaptord/internal/models"
)

func (s *Server) listScanTypes(c *gin.Context) {
	p := parseListParams(c, []string{"name"})
	types, err := s.store.ScanTypes().List(c.Request.Context(), p)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, types)
}

func (s *Server) createScanType(c *gin.Context) {
	var req createScanTypeRequest
	if !s.bindJSON(c, &req) {
		return
	}
	st := models.NewScanType(req.Name)
	st.OnlyDiscovery = req.OnlyDiscovery
	st.ConsiderAlive = req.ConsiderAlive
	st.BeQuiet = req.BeQuiet
	st.PortListID = req.PortListID
	st.PluginFingerprint = req.PluginFingerprint
	st.PluginVulnEngine = req.PluginVulnEngine
	st.PluginWeb = req.PluginWeb
	st.PluginVulnLookup = req.PluginVulnLookup
	st.Description = req.Description
	if err := st.Validate(); err != nil {
		c.Error(apierr.Validation("%s", err))
		return
	}
	if err := s.store.ScanTypes().Create(c.Request.Context(), st); err != nil {
		c.Error(mapStoreErr(err, "scan_type"))
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (s *Server) getScanType(c *gin.Context) {
	st, err := s.store.ScanTypes().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(mapStoreErr(err, "scan_type"))
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) updateScanType(c *gin.Context) {
	id := c.Param("id")
	st, err := s.store.ScanTypes().Get(c.Request.Context(), id)
	if err != nil {
		c.Error(mapStoreErr(err, "scan_type"))
		return
	}
	var req updateScanTypeRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if req.Name != nil {
		st.Name = *req.Name
	}
	if req.OnlyDiscovery != nil {
		st.OnlyDiscovery = *req.OnlyDiscovery
	}
	if req.ConsiderAlive != nil {
		st.ConsiderAlive = *req.ConsiderAlive
	}
	if req.BeQuiet != nil {
		st.BeQuiet = *req.BeQuiet
	}
	if req.PortListID != nil {
		st.PortListID = req.PortListID
	}
	if req.PluginFingerprint != nil {
		st.PluginFingerprint = *req.PluginFingerprint
	}
	if req.PluginVulnEngine != nil {
		st.PluginVulnEngine = *req.PluginVulnEngine
	}
	if req.PluginWeb != nil {
		st.PluginWeb = *req.PluginWeb
	}
	if req.PluginVulnLookup != nil {
		st.PluginVulnLookup = *req.PluginVulnLookup
	}
	if req.Description != nil {
		st.Description = *req.Description
	}
	if err := st.Validate(); err != nil {
		c.Error(apierr.Validation("%s", err))
		return
	}
	if err := s.store.ScanTypes().Update(c.Request.Context(), st); err != nil {
		c.Error(mapStoreErr(err, "scan_type"))
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) deleteScanType(c *gin.Context) {
	if err := s.store.ScanTypes().SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(mapStoreErr(err, "scan_type"))
		return
	}
	c.Status(http.StatusNoContent)
}
