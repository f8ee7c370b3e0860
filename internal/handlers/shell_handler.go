package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/elearning-service/internal/services"
	"github.com/SAP-F-2025/elearning-service/internal/utils"
)

const shellKeepAlive = 25 * time.Second

// ShellHandler streams the application shell's top-level view over server-sent events
type ShellHandler struct {
	BaseHandler
	shellService services.ShellService
	keepAlive    time.Duration
}

func NewShellHandler(shellService services.ShellService, logger utils.Logger) *ShellHandler {
	return &ShellHandler{
		BaseHandler:  NewBaseHandler(logger),
		shellService: shellService,
		keepAlive:    shellKeepAlive,
	}
}

// Stream opens a reconciler for the session and streams its views until the client goes away
// @Summary Shell view stream
// @Tags shell
// @Produce text/event-stream
// @Param session_id query string false "Session ID, also accepted as X-Session-ID"
// @Param fragment query string false "URL fragment the page was opened with"
// @Success 200 {string} string "event stream of shell, view and clear-fragment events"
// @Router /shell/stream [get]
func (h *ShellHandler) Stream(c *gin.Context) {
	sessionID := sessionIDFrom(c, c.Query("session_id"))

	shell, err := h.shellService.Open(c.Request.Context(), sessionID, c.Query("fragment"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	defer h.shellService.Close(shell.ID)

	h.LogRequest(c, "Shell stream opened", "shell_id", shell.ID, "session_id", shell.SessionID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header(sessionHeader, shell.SessionID)

	c.SSEvent("shell", gin.H{
		"shell_id":   shell.ID,
		"session_id": shell.SessionID,
	})

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-shell.Reconciler.Done():
			return false
		case view := <-shell.Reconciler.Updates():
			c.SSEvent("view", view)
			return true
		case <-shell.Location.Cleared():
			c.SSEvent("clear-fragment", gin.H{"shell_id": shell.ID})
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().UTC().Unix())
			return true
		}
	})

	h.LogRequest(c, "Shell stream closed", "shell_id", shell.ID)
}

// Continue acknowledges the email-confirmation screen
// @Summary Continue past confirmation
// @Tags shell
// @Produce json
// @Param id path string true "Shell ID"
// @Success 200 {object} session.ViewState
// @Failure 404 {object} ErrorResponse
// @Router /shell/{id}/continue [post]
func (h *ShellHandler) Continue(c *gin.Context) {
	view, err := h.shellService.Continue(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SignOut signs the shell's session out and returns the resulting view
// @Summary Sign out from the shell
// @Tags shell
// @Produce json
// @Param id path string true "Shell ID"
// @Success 200 {object} session.ViewState
// @Failure 404 {object} ErrorResponse
// @Router /shell/{id}/signout [post]
func (h *ShellHandler) SignOut(c *gin.Context) {
	view, err := h.shellService.SignOut(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
