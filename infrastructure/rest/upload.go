package rest

import (
	"chat-relay/domain/mimetypes"
	"chat-relay/errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/mux"
)

// multipartOverhead leaves room for the form boundaries around the file.
const multipartOverhead = 1 << 20

type attachmentResponse struct {
	StoredName   string `json:"storedName"`
	OriginalName string `json:"originalName"`
	SizeBytes    int64  `json:"sizeBytes"`
	MimeType     string `json:"mimeType"`
}

// uploadAttachment stores the "file" form field and returns the metadata a
// client then sends along with send-message. The type is sniffed from the
// content, the declared Content-Type is ignored.
func (s *Server) uploadAttachment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, errors.ErrFileTooLarge)
			return
		}
		writeError(w, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err))
		return
	}
	defer file.Close()

	if header.Size > s.MaxUploadBytes {
		writeError(w, errors.ErrFileTooLarge)
		return
	}

	detected, err := mimetype.DetectReader(file)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err))
		return
	}
	if !mimetypes.IsAllowed(detected.String()) || !mimetypes.ExtensionMatches(header.Filename, detected.String()) {
		s.log.Debug("Attachment rejected", "file", header.Filename, "mime", detected.String())
		writeError(w, errors.ErrFileTypeRejected)
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		writeError(w, errors.Storage(err))
		return
	}

	storedName, size, err := s.Files.Save(header.Filename, file)
	if err != nil {
		s.log.Error("Attachment not stored", "user_id", identity(r).UserID, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, attachmentResponse{
		StoredName:   storedName,
		OriginalName: filepath.Base(header.Filename),
		SizeBytes:    size,
		MimeType:     string(mimetypes.Normalize(detected.String())),
	})
}

func (s *Server) downloadAttachment(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["storedName"]
	f, err := s.Files.Open(name)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidAttachment) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "attachment not found"})
			return
		}
		writeError(w, err)
		return
	}
	defer f.Close()

	modTime := time.Time{}
	if info, err := f.Stat(); err == nil {
		modTime = info.ModTime()
	}
	http.ServeContent(w, r, name, modTime, f)
}
