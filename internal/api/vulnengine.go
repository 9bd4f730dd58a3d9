package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) listVulnEngineResults(c *gin.Context) {
	p := parseListParams(c, []string{"scan_id", "target_id", "external_status"})
	results, err := s.store.VulnEngineResults().List(c.Request.Context(), p)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (s *Server) getVulnEngineResult(c *gin.Context) {
	result, err := s.store.VulnEngineResults().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(mapStoreErr(err, "vuln_engine_result"))
		return
	}
	c.JSON(http.StatusOK, result)
}
