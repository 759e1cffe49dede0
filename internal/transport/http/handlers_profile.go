package httptransport

import (
	"encoding/json"
	"net/http"

	"authhub/internal/identity/models"
)

// handleGetProfile returns the current user with their linked auth methods.
func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	session := GetSession(r.Context())

	user, err := h.identity.GetUserWithAuths(r.Context(), session.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		// The account was deleted while the session was still live.
		writeErrorStatus(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleUpdatePreferences merges a partial preferences update into the
// current user and refreshes the session copy.
func (h *Handler) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	session := GetSession(r.Context())

	var patch models.PreferencesPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := h.identity.UpdatePreferences(r.Context(), session.UserID, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.sessions.UpdateUserData(r.Context(), session.ID, *user); err != nil {
		h.logger.Warn("failed to refresh session user data", "error", err, "session_id", session.ID)
	}
	writeJSON(w, http.StatusOK, user)
}

// handleUpdateProfile merges a partial profile update into the current user
// and refreshes the session copy.
func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	session := GetSession(r.Context())

	var patch models.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := h.identity.UpdateProfile(r.Context(), session.UserID, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.sessions.UpdateUserData(r.Context(), session.ID, *user); err != nil {
		h.logger.Warn("failed to refresh session user data", "error", err, "session_id", session.ID)
	}
	writeJSON(w, http.StatusOK, user)
}

// handleListSessions lists the user's active sessions, most recently used
// first, flagging the one making the request.
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	session := GetSession(r.Context())

	summaries, err := h.sessions.ActiveSessionsForUser(r.Context(), session.UserID, session.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": summaries})
}
