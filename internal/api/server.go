// Package api is the REST control surface (C5): a gin router exposing the
// resource collections and custom endpoints of §4.5 over the store and
// dispatcher. Handlers are grouped one file per resource, following
// r3e-network-service_layer/cmd/gateway's handler-file-per-domain layout,
// adapted from that repo's net/http+gorilla/mux handlers into gin's
// Context/Engine/HandlerFunc idiom.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/vapter/vaptord/internal/pipeline"
	"github.com/vapter/vaptord/internal/store"
)

// Server holds every dependency the resource handlers need.
type Server struct {
	store      *store.Store
	dispatcher *pipeline.Dispatcher
	validate   *validator.Validate
	log        *logrus.Entry
}

// New constructs a Server.
func New(st *store.Store, dispatcher *pipeline.Dispatcher, log *logrus.Entry) *Server {
	return &Server{
		store:      st,
		dispatcher: dispatcher,
		validate:   validator.New(),
		log:        log,
	}
}

// Router builds the gin engine with every route under /api/orchestrator.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Use(gin.Recovery(), requestLogger(s.log), errorMapper())

	root := r.Group("/api/orchestrator")

	customers := root.Group("/customers")
	{
		customers.GET("", s.listCustomers)
		customers.POST("", s.createCustomer)
		customers.GET("/:id", s.getCustomer)
		customers.PATCH("/:id", s.updateCustomer)
		customers.DELETE("/:id", s.deleteCustomer)
		customers.GET("/:id/targets", s.customerTargets)
		customers.GET("/:id/scans", s.customerScans)
		customers.GET("/:id/statistics", s.customerStatistics)
	}

	portLists := root.Group("/port-lists")
	{
		portLists.GET("", s.listPortLists)
		portLists.POST("", s.createPortList)
		portLists.GET("/:id", s.getPortList)
		portLists.PATCH("/:id", s.updatePortList)
		portLists.DELETE("/:id", s.deletePortList)
	}

	scanTypes := root.Group("/scan-types")
	{
		scanTypes.GET("", s.listScanTypes)
		scanTypes.POST("", s.createScanType)
		scanTypes.GET("/:id", s.getScanType)
		scanTypes.PATCH("/:id", s.updateScanType)
		scanTypes.DELETE("/:id", s.deleteScanType)
	}

	targets := root.Group("/targets")
	{
		targets.GET("", s.listTargets)
		targets.POST("", s.createTarget)
		targets.GET("/:id", s.getTarget)
		targets.PATCH("/:id", s.updateTarget)
		targets.DELETE("/:id", s.deleteTarget)
		targets.GET("/:id/scans", s.targetScans)
		targets.POST("/:id/scan", s.createScanForTarget)
	}

	scans := root.Group("/scans")
	{
		scans.GET("", s.listScans)
		scans.GET("/statistics", s.scanStatistics)
		scans.GET("/:id", s.getScan)
		scans.PATCH("/:id", s.patchScan)
		scans.DELETE("/:id", s.deleteScan)
		scans.POST("/:id/restart", s.restartScan)
		scans.POST("/:id/cancel", s.cancelScan)
		scans.POST("/:id/report", s.completeReport)
		scans.PATCH("/:id/vuln-engine-progress", s.patchVulnEngineProgress)
		scans.POST("/:id/vuln-engine-results", s.submitVulnEngineResult)
	}

	scanDetails := root.Group("/scan-details")
	{
		scanDetails.GET("", s.listScanDetails)
		scanDetails.GET("/:id", s.getScanDetail)
	}

	fingerprints := root.Group("/fingerprint-details")
	{
		fingerprints.GET("", s.listFingerprintDetails)
		fingerprints.POST("", s.createFingerprintDetail)
		fingerprints.POST("/bulk_create", s.bulkCreateFingerprintDetails)
		fingerprints.GET("/by_scan", s.fingerprintDetailsByScan)
		fingerprints.GET("/by_target", s.fingerprintDetailsByTarget)
		fingerprints.GET("/service_summary", s.fingerprintServiceSummary)
		fingerprints.GET("/:id", s.getFingerprintDetail)
		fingerprints.DELETE("/:id", s.deleteFingerprintDetail)
	}

	vulnEngine := root.Group("/vuln-engine-results")
	{
		vulnEngine.GET("", s.listVulnEngineResults)
		vulnEngine.GET("/:id", s.getVulnEngineResult)
	}

	return r
}
