package client

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gennadis/facultydash/internal/session"
	"github.com/pkg/errors"
)

// MaterialList is the server copy of a context's materials
type MaterialList struct {
	Files []string `json:"files"`
	URLs  []string `json:"urls"`
}

// Upload is one file to send to upload-material
type Upload struct {
	Name string
	Data []byte
}

// ReadUpload loads a file from disk
func ReadUpload(path string) (Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Upload{}, errors.Wrapf(err, "failed to read %s", path)
	}
	return Upload{Name: filepath.Base(path), Data: data}, nil
}

type contextPayload struct {
	CourseID string `json:"course_id"`
	Division string `json:"division"`
}

func newContextPayload(sc session.Context) contextPayload {
	return contextPayload{CourseID: sc.CourseID, Division: sc.Division}
}

func contextQuery(sc session.Context) url.Values {
	q := url.Values{}
	q.Set("course_id", sc.CourseID)
	q.Set("division", sc.Division)
	return q
}

// ListMaterials fetches the authoritative material list of a context
func (c *Client) ListMaterials(ctx context.Context, sc session.Context) (*MaterialList, error) {
	list := MaterialList{}
	r := request{op: "list-materials", method: http.MethodGet, path: "/list-materials", query: contextQuery(sc)}
	if err := c.do(ctx, r, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// UploadMaterials posts files as one multipart request
func (c *Client) UploadMaterials(ctx context.Context, sc session.Context, uploads []Upload) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, u := range uploads {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, quoteEscaper.Replace(u.Name)))
		h.Set("Content-Type", mimetype.Detect(u.Data).String())
		part, err := w.CreatePart(h)
		if err != nil {
			return errors.Wrapf(err, "failed to add %s to upload", u.Name)
		}
		if _, err := part.Write(u.Data); err != nil {
			return errors.Wrapf(err, "failed to add %s to upload", u.Name)
		}
	}
	if err := w.WriteField("course_id", sc.CourseID); err != nil {
		return errors.Wrap(err, "failed to build upload form")
	}
	if err := w.WriteField("division", sc.Division); err != nil {
		return errors.Wrap(err, "failed to build upload form")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "failed to build upload form")
	}

	r := request{
		op:          "upload-material",
		method:      http.MethodPost,
		path:        "/upload-material",
		body:        &buf,
		contentType: w.FormDataContentType(),
	}
	return c.do(ctx, r, nil)
}

// AddURL registers a reference URL for a context
func (c *Client) AddURL(ctx context.Context, sc session.Context, link string) error {
	payload := struct {
		URL string `json:"url"`
		contextPayload
	}{URL: link, contextPayload: newContextPayload(sc)}

	r, err := jsonRequest("add-url", http.MethodPost, "/add-url", payload)
	if err != nil {
		return err
	}
	return c.do(ctx, r, nil)
}

// RemoveMaterial deletes one file or URL, addressed by its source string
func (c *Client) RemoveMaterial(ctx context.Context, sc session.Context, source string) error {
	q := contextQuery(sc)
	q.Set("source", source)
	r := request{op: "remove-material", method: http.MethodDelete, path: "/remove-material", query: q}
	return c.do(ctx, r, nil)
}

// ClearMaterial purges materials and derived artifacts of a context
func (c *Client) ClearMaterial(ctx context.Context, sc session.Context) error {
	r, err := jsonRequest("clear-material", http.MethodPost, "/clear-material", newContextPayload(sc))
	if err != nil {
		return err
	}
	return c.do(ctx, r, nil)
}
