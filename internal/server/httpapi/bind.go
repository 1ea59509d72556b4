package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/filex"
)

const (
	maxJSONBody      = 16 << 10
	maxMultipartBody = 10 << 20
	multipartMemory  = 1 << 20
)

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// formValues returns the string fields of a JSON object body or an
// url-encoded form. An empty body yields no fields.
func formValues(r *http.Request) (url.Values, error) {
	if !isJSON(r) {
		if err := r.ParseForm(); err != nil {
			return nil, badBody(err)
		}
		return r.PostForm, nil
	}

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return url.Values{}, nil
		}
		return nil, badBody(err)
	}

	vals := url.Values{}
	for k, v := range raw {
		if s, ok := v.(string); ok {
			vals.Set(k, s)
		}
	}
	return vals, nil
}

func badBody(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return err
	}
	return common.WrapError(common.ErrValidation, err, "Invalid request body")
}

// multipartUpload is a parsed multipart request whose files were staged in
// a temporary directory.
type multipartUpload struct {
	r      *http.Request
	values url.Values
	paths  []string
}

// parseMultipart reads a multipart form. Other bodies are accepted too and
// simply carry no files.
func parseMultipart(r *http.Request) (*multipartUpload, error) {
	err := r.ParseMultipartForm(multipartMemory)
	switch {
	case err == nil:
		return &multipartUpload{r: r, values: url.Values(r.MultipartForm.Value)}, nil
	case errors.Is(err, http.ErrNotMultipart):
		vals, err := formValues(r)
		if err != nil {
			return nil, err
		}
		return &multipartUpload{r: r, values: vals}, nil
	default:
		return nil, badBody(err)
	}
}

// save stages the file of field in dir and returns its path, or "" when
// the field is absent.
func (m *multipartUpload) save(field, dir string) (string, error) {
	if m.r.MultipartForm == nil {
		return "", nil
	}
	f, hdr, err := m.r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", badBody(err)
	}
	defer f.Close()

	path, err := filex.SaveTemp(dir, hdr.Filename, f)
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", field, err)
	}
	m.paths = append(m.paths, path)
	return path, nil
}

func (m *multipartUpload) value(field string) string {
	return m.values.Get(field)
}

// cleanup removes staged files the uploader did not consume and the
// multipart spill files.
func (m *multipartUpload) cleanup() {
	for _, p := range m.paths {
		_ = filex.Remove(p)
	}
	if m.r.MultipartForm != nil {
		_ = m.r.MultipartForm.RemoveAll()
	}
}
