package http

import (
	"net/http"

	"receiptbook/internal/session"
)

type avatarRequest struct {
	Avatar string `json:"avatar"`
}

type passwordRequest struct {
	Current string `json:"current_password"`
	Next    string `json:"new_password"`
}

func (s *Server) handleUpdateAvatar(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}

	var req avatarRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.accounts.UpdateAvatar(r.Context(), sess.Username, req.Avatar); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "avatar updated"})
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}

	var req passwordRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.accounts.UpdatePassword(r.Context(), sess.Username, req.Current, req.Next); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

func (s *Server) handlePurgeAccount(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodDelete) {
		return
	}

	result, err := s.accounts.Purge(r.Context(), sess.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "account purged",
		"rows_removed": result.RowsRemoved,
		"queued":       result.Queued,
	})
}

// adminPurgeRequest names the account another user's purge targets.
type adminPurgeRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleAdminPurge(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if !s.accounts.IsAdmin(sess.Username) {
		writeErrorMessage(w, http.StatusForbidden, "admin access required")
		return
	}

	var req adminPurgeRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if s.accounts.IsAdmin(req.Username) {
		writeErrorMessage(w, http.StatusBadRequest, "the admin account cannot be purged")
		return
	}

	result, err := s.accounts.Purge(r.Context(), req.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "account purged",
		"username":     result.Username,
		"rows_removed": result.RowsRemoved,
		"queued":       result.Queued,
	})
}

func (s *Server) handlePruneDuplicates(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if !s.accounts.IsAdmin(sess.Username) {
		writeErrorMessage(w, http.StatusForbidden, "admin access required")
		return
	}

	removed, queued, err := s.accounts.RequestPrune(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"duplicates_removed": removed,
		"queued":             queued,
	})
}
