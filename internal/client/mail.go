package client

import (
	"context"
	"net/http"

	"github.com/gennadis/facultydash/internal/artifact"
)

// EmailRequest is the email-material payload. Summary is encoded as null
// when it is not included.
type EmailRequest struct {
	CourseID  string            `json:"course_id"`
	Divisions []string          `json:"divisions"`
	Subject   string            `json:"subject"`
	Message   string            `json:"message"`
	Summary   *artifact.Summary `json:"summary"`
	Filenames []string          `json:"filenames"`
	URLs      []string          `json:"urls"`
}

type emailResponse struct {
	Sent int `json:"sent"`
}

// EmailMaterial asks the backend to mail the students; returns how many were notified
func (c *Client) EmailMaterial(ctx context.Context, req EmailRequest) (int, error) {
	r, err := jsonRequest("email-material", http.MethodPost, "/email-material", req)
	if err != nil {
		return 0, err
	}
	resp := emailResponse{}
	if err := c.do(ctx, r, &resp); err != nil {
		return 0, err
	}
	return resp.Sent, nil
}
