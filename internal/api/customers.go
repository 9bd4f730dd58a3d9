package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vapter/vaptord/internal/apierr"
	"github.com/vapter/vaptord/internal/models"
	"github.com/vapter/vaptord/internal/store"
)

func (s *Server) listCustomers(c *gin.Context) {
	p := parseListParams(c, []string{"name", "email"})
	customers, err := s.store.Customers().List(c.Request.Context(), p)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (s *Server) createCustomer(c *gin.Context) {
	var req createCustomerRequest
	if !s.bindJSON(c, &req) {
		return
	}
	customer := models.NewCustomer(req.Name, req.Email)
	customer.Phone = req.Phone
	customer.Contact = req.Contact
	customer.Notes = req.Notes
	if err := s.store.Customers().Create(c.Request.Context(), customer); err != nil {
		c.Error(mapStoreErr(err, "customer"))
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (s *Server) getCustomer(c *gin.Context) {
	customer, err := s.store.Customers().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(mapStoreErr(err, "customer"))
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (s *Server) updateCustomer(c *gin.Context) {
	id := c.Param("id")
	customer, err := s.store.Customers().Get(c.Request.Context(), id)
	if err != nil {
		c.Error(mapStoreErr(err, "customer"))
		return
	}
	var req updateCustomerRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if req.Name != nil {
		customer.Name = *req.Name
	}
	if req.Email != nil {
		customer.Email = *req.Email
	}
	if req.Phone != nil {
		customer.Phone = *req.Phone
	}
	if req.Contact != nil {
		customer.Contact = *req.Contact
	}
	if req.Notes != nil {
		customer.Notes = *req.Notes
	}
	if err := s.store.Customers().Update(c.Request.Context(), customer); err != nil {
		c.Error(mapStoreErr(err, "customer"))
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (s *Server) deleteCustomer(c *gin.Context) {
	if err := s.store.Customers().SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(mapStoreErr(err, "customer"))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) customerTargets(c *gin.Context) {
	targets, err := s.store.Targets().List(c.Request.Context(), store.ListParams{
		Filters: map[string]any{"customer_id": c.Param("id")},
		Limit:   500,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, targets)
}

// customerScans aggregates scans across every target belonging to the
// customer. There is no customer_id column on scans, so this composes
// TargetRepo.List with a per-target ScanRepo.List rather than a single
// query — acceptable at the per-customer target counts this system
// expects.
func (s *Server) customerScans(c *gin.Context) {
	scans, err := s.scansForCustomer(c, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, scans)
}

func (s *Server) customerStatistics(c *gin.Context) {
	scans, err := s.scansForCustomer(c, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	stats := map[models.ScanStatus]int{}
	for _, scan := range scans {
		stats[scan.Status]++
	}
	c.JSON(http.StatusOK, gin.H{"total_scans": len(scans), "by_status": stats})
}

func (s *Server) scansForCustomer(c *gin.Context, customerID string) ([]*models.Scan, error) {
	targets, err := s.store.Targets().List(c.Request.Context(), store.ListParams{
		Filters: map[string]any{"customer_id": customerID},
		Limit:   500,
	})
	if err != nil {
		return nil, err
	}
	var scans []*models.Scan
	for _, t := range targets {
		ts, err := s.store.Scans().List(c.Request.Context(), store.ListParams{
			Filters: map[string]any{"target_id": t.ID},
			Limit:   500,
		})
		if err != nil {
			return nil, err
		}
		scans = append(scans, ts...)
	}
	return scans, nil
}

// mapStoreErr turns a store sentinel error into the matching apierr kind,
// naming the resource in the message. Errors already typed via apierr
// (e.g. from the dispatcher) pass through unchanged.
func mapStoreErr(err error, resource string) error {
	switch err {
	case store.ErrNotFound:
		return apierr.NotFound("%s not found", resource)
	case store.ErrConflict:
		return apierr.Conflict("%s violates a uniqueness constraint", resource)
	default:
		return err
	}
}
