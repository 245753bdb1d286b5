package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/receipt"
)

const (
	maxUploadSize = 10 << 20
	imageField    = "image"
)

func (s *Server) importSession(w http.ResponseWriter, r *http.Request, op string) (*receipt.Session, bool) {
	if s.svc.Importer == nil {
		unavailable(w, "receipt import")
		return nil, false
	}
	sess, err := s.svc.Importer.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, r, op, err)
		return nil, false
	}
	return sess, true
}

// handleOpenImport stores the uploaded image in a new session and runs the
// first scan. A failed scan still answers 201: the session records the failure
// and can be rescanned.
func (s *Server) handleOpenImport(w http.ResponseWriter, r *http.Request) {
	if s.svc.Importer == nil {
		unavailable(w, "receipt import")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, r, log.OpCreate, fmt.Errorf("%w: invalid multipart upload: %v", core.ErrValidation, err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	categoryID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("category_id")), 10, 64)
	if err != nil || categoryID <= 0 {
		writeError(w, r, log.OpCreate, core.ErrNoCategory)
		return
	}
	if _, err := s.svc.Categories.Get(r.Context(), categoryID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			err = fmt.Errorf("%w: %d", core.ErrUnknownCategory, categoryID)
		}
		writeError(w, r, log.OpCreate, err)
		return
	}

	file, _, err := r.FormFile(imageField)
	if err != nil {
		writeError(w, r, log.OpCreate, fmt.Errorf("%w: missing %s file", core.ErrValidation, imageField))
		return
	}
	defer file.Close()
	image, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, log.OpCreate, fmt.Errorf("%w: read upload: %v", core.ErrValidation, err))
		return
	}

	sess, err := s.svc.Importer.Open(image, categoryID)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	// Recognizer failures are recorded on the session.
	_ = s.svc.Importer.Scan(r.Context(), sess)

	NewJSONResponse().
		Status(http.StatusCreated).
		Location("/api/imports/" + sess.ID()).
		Data(toImport(sess.Snapshot())).
		Write(w)
}

func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.importSession(w, r, log.OpRead)
	if !ok {
		return
	}
	NewJSONResponse().Data(toImport(sess.Snapshot())).Write(w)
}

func (s *Server) handleDiscardImport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.importSession(w, r, log.OpDelete)
	if !ok {
		return
	}
	s.svc.Importer.Discard(sess.ID())
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleScanImport re-runs recognition. Like the first scan, a recognizer
// failure is reported through the session status rather than the HTTP status.
func (s *Server) handleScanImport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.importSession(w, r, log.OpScan)
	if !ok {
		return
	}
	if err := s.svc.Importer.Scan(r.Context(), sess); err != nil && sess.Status() != receipt.StatusFailed {
		writeError(w, r, log.OpScan, err)
		return
	}
	NewJSONResponse().Data(toImport(sess.Snapshot())).Write(w)
}

func (s *Server) handleEditDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.importSession(w, r, log.OpUpdate)
	if !ok {
		return
	}
	index, err := pathIndex(r, "index")
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	var req draftRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	if err := sess.EditDraft(index, sanitizeInput(req.Title), core.Money(req.Amount)); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(toImport(sess.Snapshot())).Write(w)
}

func (s *Server) handleRemoveDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.importSession(w, r, log.OpDelete)
	if !ok {
		return
	}
	index, err := pathIndex(r, "index")
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if err := sess.RemoveDraft(index); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Data(toImport(sess.Snapshot())).Write(w)
}

func (s *Server) handleCommitImport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.importSession(w, r, log.OpCommit)
	if !ok {
		return
	}
	created, err := s.svc.Importer.Commit(r.Context(), sess, s.svc.Transactions)
	if err != nil {
		writeError(w, r, log.OpCommit, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Data(commitResponse{Import: toImport(sess.Snapshot()), Transactions: toTransactions(created)}).
		Write(w)
}
