package http

import (
	"io"
	"net/http"

	"receiptbook/internal/core"
	"receiptbook/internal/ingest"
	"receiptbook/internal/session"
)

// maxReceiptSize caps uploaded receipt images at 10 MiB.
const maxReceiptSize = 10 << 20

type extractResponse struct {
	Drafts []core.DraftRow `json:"drafts"`
}

type saveRequest struct {
	Drafts []core.DraftRow `json:"drafts"`
}

type rejectedRow struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type saveResponse struct {
	Saved    int           `json:"saved"`
	Rejected []rejectedRow `json:"rejected"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	if err := r.ParseMultipartForm(maxReceiptSize); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "expected multipart form with a 'receipt' file")
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "missing 'receipt' file")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxReceiptSize))
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "failed reading upload")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(image)
	}

	drafts, err := s.receipts.Extract(r.Context(), image, mimeType)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, extractResponse{Drafts: drafts})
}

func (s *Server) handleSaveReceipt(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req saveRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.receipts.Save(r.Context(), sess.Username, req.Drafts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, saveResponse{
		Saved:    result.Saved,
		Rejected: toRejectedRows(result.Rejected),
	})
}

func toRejectedRows(rejected []ingest.Rejected) []rejectedRow {
	rows := make([]rejectedRow, 0, len(rejected))
	for _, rej := range rejected {
		reason := ""
		if rej.Err != nil {
			reason = rej.Err.Error()
		}
		rows = append(rows, rejectedRow{
			Index:  rej.Index,
			Name:   rej.Name,
			Reason: reason,
		})
	}
	return rows
}
