package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mazzegi/docfacade/wire"
)

func (s *Server) handleAdd(c *gin.Context) {
	var req wire.AddRequest
	if !bind(c, &req) {
		return
	}
	ref, err := s.backend.AddDoc(c.Request.Context(), req.Collection, req.Data)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.AddReply{Ref: ref})
}

func (s *Server) docRequest(c *gin.Context) (wire.DocRequest, bool) {
	var req wire.DocRequest
	if !bind(c, &req) {
		return req, false
	}
	if err := req.Ref.Validate(); err != nil {
		abort(c, err)
		return req, false
	}
	return req, true
}

func (s *Server) handleGet(c *gin.Context) {
	req, ok := s.docRequest(c)
	if !ok {
		return
	}
	snap, err := s.backend.GetDoc(c.Request.Context(), req.Ref)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleSet(c *gin.Context) {
	req, ok := s.docRequest(c)
	if !ok {
		return
	}
	if err := s.backend.SetDoc(c.Request.Context(), req.Ref, req.Data, req.Merge); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (s *Server) handleUpdate(c *gin.Context) {
	req, ok := s.docRequest(c)
	if !ok {
		return
	}
	if err := s.backend.UpdateDoc(c.Request.Context(), req.Ref, req.Data); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (s *Server) handleDelete(c *gin.Context) {
	req, ok := s.docRequest(c)
	if !ok {
		return
	}
	if err := s.backend.DeleteDoc(c.Request.Context(), req.Ref); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (s *Server) handleQuery(c *gin.Context) {
	var q wire.QueryRequest
	if !bind(c, &q) {
		return
	}
	qs, err := s.backend.RunQuery(c.Request.Context(), q.Query)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.FromQuerySnapshot(qs))
}

func (s *Server) handleFunction(c *gin.Context) {
	args, err := c.GetRawData()
	if err != nil {
		abort(c, err)
		return
	}
	res, err := s.functions.CallFunction(c.Request.Context(), c.Param("name"), args)
	if err != nil {
		abort(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", res)
}
