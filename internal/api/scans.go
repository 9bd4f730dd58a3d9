package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vapter/vaptord/internal/apierr"
	"github.com/vapter/vaptord/internal/derive"
	"github.com/vapter/vaptord/internal/models"
	"github.com/vapter/vaptord/internal/store"
)

func (s *Server) listScans(c *gin.Context) {
	p := parseListParams(c, []string{"target_id", "scan_type_id", "status"})
	scans, err := s.store.Scans().List(c.Request.Context(), p)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, scans)
}

func (s *Server) scanStatistics(c *gin.Context) {
	stats, err := s.store.Scans().Statistics(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) getScan(c *gin.Context) {
	scan, err := s.store.Scans().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(mapStoreErr(err, "scan"))
		return
	}
	c.JSON(http.StatusOK, scan)
}

func (s *Server) deleteScan(c *gin.Context) {
	if err := s.store.Scans().SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(mapStoreErr(err, "scan"))
		return
	}
	c.Status(http.StatusNoContent)
}

// patchScan is the worker result-upload endpoint: a body of
// {"parsed_<module>_results": <value>} merges <value> into
// Scan.parsed_results[<module>]. Setting parsed_nmap_results additionally
// triggers the port-scan → ScanDetail derivation (§6): <value> must be the
// raw nmap XML document as a string.
func (s *Server) patchScan(c *gin.Context) {
	id := c.Param("id")

	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		c.Error(apierr.Validation("invalid request body: %s", err))
		return
	}

	var nmapXML []byte
	scan, err := s.store.Scans().MergeParsedResults(c.Request.Context(), id, func(scan *models.Scan) error {
		for key, raw := range body {
			module, ok := strings.CutPrefix(key, "parsed_")
			if !ok {
				continue
			}
			module, ok = strings.CutSuffix(module, "_results")
			if !ok {
				continue
			}
			var value any
			if err := json.Unmarshal(raw, &value); err != nil {
				return apierr.Validation("%s: %s", key, err)
			}
			scan.ParsedResults[models.Module(module)] = value

			if models.Module(module) == models.ModuleNmap {
				xmlDoc, ok := value.(string)
				if !ok {
					return apierr.Validation("parsed_nmap_results must be the raw nmap XML document as a string")
				}
				nmapXML = []byte(xmlDoc)
			}
		}
		return nil
	})
	if err != nil {
		c.Error(mapStoreErr(err, "scan"))
		return
	}

	if nmapXML != nil {
		if err := s.deriveScanDetail(c, id, nmapXML); err != nil {
			c.Error(err)
			return
		}
	}

	c.JSON(http.StatusOK, scan)
}

func (s *Server) deriveScanDetail(c *gin.Context, scanID string, xmlDoc []byte) error {
	openPorts, osGuess, err := derive.PortScan(xmlDoc)
	if err != nil {
		return apierr.Validation("parsing nmap result: %s", err)
	}
	detail, err := s.store.ScanDetails().GetByScanID(c.Request.Context(), scanID)
	if err != nil {
		if err != store.ErrNotFound {
			return err
		}
		detail = models.NewScanDetail(scanID)
	}
	detail.OpenPorts = openPorts
	detail.OSGuess = osGuess
	return s.store.ScanDetails().Upsert(c.Request.Context(), detail)
}

func (s *Server) restartScan(c *gin.Context) {
	scan, err := s.dispatcher.Restart(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, scan)
}

func (s *Server) cancelScan(c *gin.Context) {
	if err := s.dispatcher.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// completeReport implements POST /scans/{id}/report — the report-worker's
// terminal call. Report generation is non-fatal (§4.4): a non-empty
// "error" field still completes the scan, it just skips persisting a path.
func (s *Server) completeReport(c *gin.Context) {
	var req completeReportRequest
	if !s.bindJSON(c, &req) {
		return
	}
	var reportErr error
	if req.Error != "" {
		reportErr = apierr.Upstream(nil, "%s", req.Error)
	}
	if err := s.dispatcher.CompleteReport(c.Request.Context(), c.Param("id"), req.ReportPath, reportErr); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) patchVulnEngineProgress(c *gin.Context) {
	scanID := c.Param("id")
	var req vulnEngineProgressRequest
	if !s.bindJSON(c, &req) {
		return
	}

	if _, err := s.store.VulnEngineResults().GetByScanID(c.Request.Context(), scanID); err != nil {
		if err != store.ErrNotFound {
			c.Error(err)
			return
		}
		scan, err := s.store.Scans().Get(c.Request.Context(), scanID)
		if err != nil {
			c.Error(mapStoreErr(err, "scan"))
			return
		}
		v := models.NewVulnEngineResult(scanID, scan.TargetID)
		v.Progress = req.Progress
		v.ExternalStatus = req.ExternalStatus
		if err := s.store.VulnEngineResults().Create(c.Request.Context(), v); err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, v)
		return
	}

	if err := s.store.VulnEngineResults().UpdateProgress(c.Request.Context(), scanID, req.Progress, req.ExternalStatus); err != nil {
		c.Error(mapStoreErr(err, "vuln_engine_result"))
		return
	}
	c.Status(http.StatusOK)
}

// submitVulnEngineResult implements POST /scans/{id}/vuln-engine-results:
// parses the uploaded report to populate vulnerability_count (§6) and
// writes the final record, creating it first if no progress update ever
// arrived for this scan.
func (s *Server) submitVulnEngineResult(c *gin.Context) {
	scanID := c.Param("id")
	var req vulnEngineResultRequest
	if !s.bindJSON(c, &req) {
		return
	}

	count, err := derive.VulnReport([]byte(req.FullReport))
	if err != nil {
		c.Error(apierr.Validation("parsing vuln-engine report: %s", err))
		return
	}

	reportFormat := models.ReportFormat(req.ReportFormat)
	if reportFormat == "" {
		reportFormat = models.ReportFormatXML
	}
	completedAt := time.Now()

	existing, err := s.store.VulnEngineResults().GetByScanID(c.Request.Context(), scanID)
	if err != nil {
		if err != store.ErrNotFound {
			c.Error(err)
			return
		}
		scan, err := s.store.Scans().Get(c.Request.Context(), scanID)
		if err != nil {
			c.Error(mapStoreErr(err, "scan"))
			return
		}
		v := models.NewVulnEngineResult(scanID, scan.TargetID)
		v.ExternalTaskID = req.ExternalTaskID
		v.ExternalReportID = req.ExternalReportID
		v.ExternalTargetID = req.ExternalTargetID
		v.ExternalStatus = "Done"
		v.Progress = 100
		v.ReportFormat = reportFormat
		v.FullReport = req.FullReport
		v.VulnerabilityCount = count
		v.CompletedAt = &completedAt
		if err := v.Validate(); err != nil {
			c.Error(apierr.Validation("%s", err))
			return
		}
		if err := s.store.VulnEngineResults().Create(c.Request.Context(), v); err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, v)
		return
	}

	if err := s.store.VulnEngineResults().SubmitResult(c.Request.Context(), scanID, reportFormat, req.FullReport, count, completedAt); err != nil {
		c.Error(mapStoreErr(err, "vuln_engine_result"))
		return
	}
	existing.ReportFormat = reportFormat
	existing.FullReport = req.FullReport
	existing.VulnerabilityCount = count
	existing.Progress = 100
	existing.ExternalStatus = "Done"
	existing.CompletedAt = &completedAt
	c.JSON(http.StatusOK, existing)
}
