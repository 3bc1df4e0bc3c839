package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/gabriel-vasile/mimetype"

	"jojo/internal/verification/service"
	dErrors "jojo/pkg/domain-errors"
)

var (
	imageTypes    = []string{"image/jpeg", "image/png", "image/webp"}
	documentTypes = []string{"image/jpeg", "image/png", "image/webp", "application/pdf"}
)

// parseMultipart keeps up to one file in memory and spills the rest to disk.
func (h *Handler) parseMultipart(r *http.Request) error {
	if err := r.ParseMultipartForm(h.uploadLimit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return dErrors.New(dErrors.CodeBadRequest, "request body too large")
		}
		return dErrors.New(dErrors.CodeBadRequest, "request must be multipart/form-data")
	}
	return nil
}

func cleanupMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// readFile loads one uploaded file and checks its size and sniffed type.
// The client-declared Content-Type is ignored. Returns nil, nil when an
// optional field is absent.
func (h *Handler) readFile(r *http.Request, field string, allowed []string, required bool) (*service.File, error) {
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		if required {
			return nil, dErrors.NewField(field, field+" is required")
		}
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.NewField(field, "could not read "+field)
	}
	defer f.Close()

	if header.Size > h.uploadLimit {
		return nil, dErrors.NewField(field, fmt.Sprintf("%s exceeds the %d MB limit", field, h.uploadLimit>>20))
	}
	data, err := io.ReadAll(io.LimitReader(f, h.uploadLimit+1))
	if err != nil {
		return nil, dErrors.NewField(field, "could not read "+field)
	}
	if int64(len(data)) > h.uploadLimit {
		return nil, dErrors.NewField(field, fmt.Sprintf("%s exceeds the %d MB limit", field, h.uploadLimit>>20))
	}
	if len(data) == 0 {
		return nil, dErrors.NewField(field, field+" is empty")
	}

	mtype := mimetype.Detect(data)
	i := slices.IndexFunc(allowed, mtype.Is)
	if i < 0 {
		return nil, dErrors.NewField(field, fmt.Sprintf("%s must be one of %v, got %s", field, allowed, mtype.String()))
	}
	return &service.File{Data: data, ContentType: allowed[i]}, nil
}

func codeOf(err error) dErrors.Code {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return dErrors.CodeInternal
}
