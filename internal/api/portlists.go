package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vapter/vaptord/internal/apierr"
	"github.com/vapter/vaptord/internal/models"
)

func (s *Server) listPortLists(c *gin.Context) {
	p := parseListParams(c, []string{"name"})
	lists, err := s.store.PortLists().List(c.Request.Context(), p)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, lists)
}

func (s *Server) createPortList(c *gin.Context) {
	var req createPortListRequest
	if !s.bindJSON(c, &req) {
		return
	}
	pl := models.NewPortList(req.Name, req.TCPPorts, req.UDPPorts, req.Description)
	if err := pl.Validate(); err != nil {
		c.Error(apierr.Validation("%s", err))
		return
	}
	if err := s.store.PortLists().Create(c.Request.Context(), pl); err != nil {
		c.Error(mapStoreErr(err, "port_list"))
		return
	}
	c.JSON(http.StatusCreated, pl)
}

func (s *Server) getPortList(c *gin.Context) {
	pl, err := s.store.PortLists().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(mapStoreErr(err, "port_list"))
		return
	}
	c.JSON(http.StatusOK, pl)
}

func (s *Server) updatePortList(c *gin.Context) {
	id := c.Param("id")
	pl, err := s.store.PortLists().Get(c.Request.Context(), id)
	if err != nil {
		c.Error(mapStoreErr(err, "port_list"))
		return
	}
	var req updatePortListRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if req.Name != nil {
		pl.Name = *req.Name
	}
	if req.TCPPorts != nil {
		pl.TCPPorts = *req.TCPPorts
	}
	if req.UDPPorts != nil {
		pl.UDPPorts = *req.UDPPorts
	}
	if req.Description != nil {
		pl.Description = *req.Description
	}
	if err := pl.Validate(); err != nil {
		c.Error(apierr.Validation("%s", err))
		return
	}
	if err := s.store.PortLists().Update(c.Request.Context(), pl); err != nil {
		c.Error(mapStoreErr(err, "port_list"))
		return
	}
	c.JSON(http.StatusOK, pl)
}

func (s *Server) deletePortList(c *gin.Context) {
	if err := s.store.PortLists().SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(mapStoreErr(err, "port_list"))
		return
	}
	c.Status(http.StatusNoContent)
}
