package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/joshuamtm/compas-navigator/internal/provider"
	"github.com/joshuamtm/compas-navigator/internal/report"
	"github.com/joshuamtm/compas-navigator/pkg/security"
	"github.com/joshuamtm/compas-navigator/pkg/session"
	"github.com/joshuamtm/compas-navigator/pkg/stage"
)

// SessionResponse is the API view of a session.
type SessionResponse struct {
	ID              string                         `json:"id"`
	Stage           stage.Stage                    `json:"stage"`
	StageTitle      string                         `json:"stageTitle"`
	HistoryLength   int                            `json:"historyLength"`
	StartedAt       time.Time                      `json:"startedAt"`
	CompletedStages []stage.Stage                  `json:"completedStages"`
	StageData       map[stage.Stage]map[string]any `json:"stageData"`
	Artifacts       []session.Artifact             `json:"artifacts,omitempty"`
}

// ChatRequest is one user turn.
type ChatRequest struct {
	Message string `json:"message"`
}

// ArtifactRequest registers an uploaded file with a session.
type ArtifactRequest struct {
	Filename    string `json:"filename"`
	StorageRef  string `json:"storageRef"`
	Owner       string `json:"owner"`
	Sensitivity string `json:"sensitivity"`
	Source      string `json:"source"`
	Size        int64  `json:"size"`
}

func sessionResponse(snap session.Snapshot) SessionResponse {
	resp := SessionResponse{
		ID:            snap.ID,
		Stage:         snap.Stage,
		StageTitle:    snap.Stage.Title(),
		HistoryLength: len(snap.History),
		StartedAt:     snap.Metrics.StartedAt,
		StageData:     make(map[stage.Stage]map[string]any, len(snap.StageData)),
	}
	for _, s := range stage.All() {
		record, ok := snap.StageData[s]
		if !ok {
			continue
		}
		if record.Completed {
			resp.CompletedStages = append(resp.CompletedStages, s)
		}
		if len(record.Fields) > 0 {
			resp.StageData[s] = record.Fields
		}
	}
	for _, a := range snap.Artifacts {
		if !a.Removed {
			resp.Artifacts = append(resp.Artifacts, a)
		}
	}
	return resp
}

// createSession starts a new coaching session.
// POST /api/v1/sessions
func (s *Server) createSession(c echo.Context) error {
	snap, err := s.engine.CreateSession(c.Request().Context())
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, sessionResponse(snap))
}

// listSessions returns all live session IDs.
// GET /api/v1/sessions
func (s *Server) listSessions(c echo.Context) error {
	ids, err := s.engine.ListSessions(c.Request().Context())
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string][]string{"sessions": ids})
}

// getSession returns the current state of one session.
// GET /api/v1/sessions/:id
func (s *Server) getSession(c echo.Context) error {
	snap, err := s.engine.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, sessionResponse(snap))
}

// deleteSession removes a session.
// DELETE /api/v1/sessions/:id
func (s *Server) deleteSession(c echo.Context) error {
	id := c.Param("id")
	if err := s.engine.DeleteSession(c.Request().Context(), id); err != nil {
		return s.mapError(c, err)
	}
	if s.limiter != nil {
		s.limiter.Forget(id)
	}
	return c.NoContent(http.StatusNoContent)
}

// chat submits one user turn and returns the coach's response.
// POST /api/v1/sessions/:id/chat
func (s *Server) chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := security.ValidateMessage(req.Message); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if s.limiter != nil && !s.limiter.Allow(c.Param("id")) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
	}

	result, err := s.engine.SubmitTurn(c.Request().Context(), c.Param("id"), req.Message)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// getReport renders the session's markdown report.
// GET /api/v1/sessions/:id/report
func (s *Server) getReport(c echo.Context) error {
	snap, err := s.engine.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.mapError(c, err)
	}

	rendered := report.Render(snap)
	if c.QueryParam("format") == "markdown" {
		return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(rendered))
	}
	return c.JSON(http.StatusOK, map[string]string{"report": rendered})
}

// addArtifact registers an uploaded artifact with a session.
// POST /api/v1/sessions/:id/artifacts
func (s *Server) addArtifact(c echo.Context) error {
	var req ArtifactRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := security.ValidateFilename(req.Filename); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	artifactID, err := s.engine.AddArtifact(c.Request().Context(), c.Param("id"), session.Artifact{
		Filename:    req.Filename,
		StorageRef:  req.StorageRef,
		Owner:       req.Owner,
		Sensitivity: req.Sensitivity,
		Source:      req.Source,
		Size:        req.Size,
	})
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"artifactId": artifactID})
}

// mapError translates engine errors onto HTTP statuses: unknown session is
// 404, collaborator outage is 502, everything else is 500.
func (s *Server) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, provider.ErrUnavailable):
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "completion service unavailable"})
	default:
		log.Printf("request failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
