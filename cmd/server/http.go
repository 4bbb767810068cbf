package main

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
)

// Router exposes the same actions as the TCP protocol over HTTP:
//
//	POST /api/v1/:action   body is the action's args, reply is a Response
//	GET  /api/v1/databases lists the open database names
//
// When authentication is enabled every route needs an
// "Authorization: Bearer <JWT>" header.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	if s.authRequired() {
		v1.Use(s.verifyHeaderToken)
	}
	{
		v1.GET("/databases", s.listDatabases)
		v1.POST("/:action", s.postAction)
	}
	return router
}

func (s *Server) verifyHeaderToken(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
			Success: false,
			Type:    "auth",
			Error:   "authentication required: send Authorization: Bearer <token>",
		})
		return
	}

	result := s.authConfig.validateJWT(token)
	if result.err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Type: "auth", Error: result.err.Error()})
		return
	}
	c.Set("identity", result.identity)
	c.Next()
}

func (s *Server) listDatabases(c *gin.Context) {
	c.JSON(http.StatusOK, replyResponse(Request{Action: "databases"}, nil, s.instance.Names()))
}

func (s *Server) postAction(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	req := Request{Action: c.Param("action"), Args: body}
	resp := s.Dispatch(req)

	status := http.StatusOK
	if !resp.Success && strings.HasPrefix(resp.Error, "unknown action") {
		status = http.StatusNotFound
	}
	c.JSON(status, resp)
}

// StartHTTP serves Router on addr until StopHTTP is called.
func (s *Server) StartHTTP(addr string) error {
	gin.SetMode(gin.ReleaseMode)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	glog.Infof("Server.StartHTTP: Listening on %s", addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Errorf("Server.StartHTTP: %v", err)
		}
	}()
	return nil
}

// StopHTTP shuts the HTTP front end down, waiting for in-flight requests.
func (s *Server) StopHTTP(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
