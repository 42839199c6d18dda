// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/xelfe/geekcraft/internal/auth"
	"github.com/xelfe/geekcraft/internal/game"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success  bool   `json:"success"`
	Token    string `json:"token"`
	Username string `json:"username"`
}

type submitRequest struct {
	Code string `json:"code"`
}

type runRequest struct {
	RunID string `json:"run_id"`
}

// errCode extracts the oops error code, or "" for plain errors.
func errCode(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Code()
	}
	return ""
}

// bindJSON decodes the request body and writes the failure response
// itself. The body limit guard surfaces here for chunked uploads, since
// MaxBytesReader only fails once the handler reads past the cap.
func (s *Server) bindJSON(c *gin.Context, out any) bool {
	err := c.ShouldBindJSON(out)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, response{
			Success: false,
			Message: "Request body too large",
		})
		return false
	}

	c.JSON(http.StatusBadRequest, response{
		Success: false,
		Message: "Invalid request body",
	})
	return false
}

// serverError logs the cause and answers with a generic message.
func (s *Server) serverError(c *gin.Context, operation string, err error) {
	s.logger.Error("request failed", "operation", operation, "error", err)
	if errors.Is(err, auth.ErrUnavailable) {
		s.metrics.RecordStoreError(operation)
	}
	c.JSON(http.StatusInternalServerError, response{
		Success: false,
		Message: "Internal server error",
	})
}

func (s *Server) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if !s.bindJSON(c, &req) {
		return
	}

	err := s.authService.Register(c.Request.Context(), req.Username, req.Password)
	if err == nil {
		s.metrics.RecordAuthAttempt("register", "success")
		c.JSON(http.StatusOK, response{Success: true, Message: "Registration successful"})
		return
	}

	switch errCode(err) {
	case "AUTH_INVALID_USERNAME", "AUTH_INVALID_PASSWORD":
		s.metrics.RecordAuthAttempt("register", "failure")
		// Validation messages are written for clients and safe to return.
		c.JSON(http.StatusBadRequest, response{Success: false, Message: err.Error()})
	case "AUTH_USERNAME_TAKEN":
		s.metrics.RecordAuthAttempt("register", "failure")
		c.JSON(http.StatusConflict, response{Success: false, Message: "Username already taken"})
	default:
		s.metrics.RecordAuthAttempt("register", "error")
		s.serverError(c, "register", err)
	}
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if !s.bindJSON(c, &req) {
		return
	}

	session, err := s.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err == nil {
		s.metrics.RecordAuthAttempt("login", "success")
		c.JSON(http.StatusOK, loginResponse{
			Success:  true,
			Token:    session.Token,
			Username: session.Username,
		})
		return
	}

	if errCode(err) == "AUTH_INVALID_CREDENTIALS" {
		s.metrics.RecordAuthAttempt("login", "failure")
		c.JSON(http.StatusUnauthorized, response{
			Success: false,
			Message: "Invalid username or password",
		})
		return
	}

	s.metrics.RecordAuthAttempt("login", "error")
	s.serverError(c, "login", err)
}

func (s *Server) handleLogout(c *gin.Context) {
	token, _ := bearerToken(c.GetHeader("Authorization"))

	if err := s.authService.Logout(c.Request.Context(), token); err != nil {
		s.metrics.RecordAuthAttempt("logout", "error")
		s.serverError(c, "logout", err)
		return
	}

	s.metrics.RecordAuthAttempt("logout", "success")
	c.JSON(http.StatusOK, response{Success: true, Message: "Logged out"})
}

func (s *Server) handleSubmit(c *gin.Context) {
	username, err := Username(c)
	if err != nil {
		s.serverError(c, "submit", err)
		return
	}

	var req submitRequest
	if !s.bindJSON(c, &req) {
		return
	}

	s.sandbox.Submit(username, req.Code)
	c.JSON(http.StatusOK, response{Success: true, Message: "Code submitted"})
}

func (s *Server) handlePlayers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"players": s.sandbox.Players()})
}

func (s *Server) handleGameState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tick":    s.world.Tick(),
		"players": s.sandbox.Players(),
	})
}

func (s *Server) handleGenerateZone(c *gin.Context) {
	username, err := Username(c)
	if err != nil {
		s.serverError(c, "generate_zone", err)
		return
	}

	zoneID := s.world.GeneratePlayerZone(username)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Zone generated",
		"zone_id": zoneID,
	})
}

func (s *Server) handleListZones(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"zone_ids": s.world.ZoneIDs(),
	})
}

func (s *Server) handleGetZone(c *gin.Context) {
	zone, ok := s.world.Zone(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, response{Success: false, Message: "Zone not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "zone": zone})
}

func (s *Server) handleStartRun(c *gin.Context) {
	var req runRequest
	if !s.bindJSON(c, &req) {
		return
	}

	run, err := s.campaigns.StartRun(req.RunID)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Run started",
			"run_id":  run.RunID,
		})
		return
	}

	switch errCode(err) {
	case "CAMPAIGN_INVALID_RUN_ID":
		c.JSON(http.StatusBadRequest, response{Success: false, Message: err.Error()})
	case "CAMPAIGN_RUN_EXISTS":
		c.JSON(http.StatusConflict, response{Success: false, Message: "Run already exists"})
	default:
		s.serverError(c, "start_run", err)
	}
}

func (s *Server) handleStopRun(c *gin.Context) {
	var req runRequest
	if !s.bindJSON(c, &req) {
		return
	}

	err := s.campaigns.StopRun(req.RunID)
	if errors.Is(err, game.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, response{Success: false, Message: "Run not found"})
		return
	}
	if err != nil {
		s.serverError(c, "stop_run", err)
		return
	}
	c.JSON(http.StatusOK, response{Success: true, Message: "Run stopped"})
}

func (s *Server) handleSaveRun(c *gin.Context) {
	var req runRequest
	if !s.bindJSON(c, &req) {
		return
	}

	err := s.campaigns.SaveRun(req.RunID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, response{Success: true, Message: "Run saved"})
	case errors.Is(err, game.ErrRunNotFound):
		c.JSON(http.StatusNotFound, response{Success: false, Message: "Run not found"})
	case errCode(err) == "CAMPAIGN_INVALID_RUN_ID":
		c.JSON(http.StatusBadRequest, response{Success: false, Message: err.Error()})
	default:
		s.serverError(c, "save_run", err)
	}
}

func (s *Server) handleLoadRun(c *gin.Context) {
	var req runRequest
	if !s.bindJSON(c, &req) {
		return
	}

	run, err := s.campaigns.LoadRun(req.RunID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "run": run})
	case errors.Is(err, game.ErrRunNotFound):
		c.JSON(http.StatusNotFound, response{Success: false, Message: "Save not found"})
	case errCode(err) == "CAMPAIGN_INVALID_RUN_ID":
		c.JSON(http.StatusBadRequest, response{Success: false, Message: err.Error()})
	default:
		s.serverError(c, "load_run", err)
	}
}

func (s *Server) handleRunState(c *gin.Context) {
	runID := c.Query("run_id")
	if runID == "" {
		c.JSON(http.StatusBadRequest, response{Success: false, Message: "run_id is required"})
		return
	}

	run, err := s.campaigns.RunState(runID)
	if errors.Is(err, game.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, response{Success: false, Message: "Run not found"})
		return
	}
	if err != nil {
		s.serverError(c, "run_state", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "run": run})
}

func (s *Server) handleListSaves(c *gin.Context) {
	saves, err := s.campaigns.ListSaves()
	if err != nil {
		s.serverError(c, "list_saves", err)
		return
	}
	if saves == nil {
		saves = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "saves": saves})
}
