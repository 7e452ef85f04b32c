package client

import (
	"context"
	"net/http"

	"github.com/gennadis/facultydash/internal/artifact"
	"github.com/gennadis/facultydash/internal/chat"
	"github.com/gennadis/facultydash/internal/session"
)

func (c *Client) GenerateSummary(ctx context.Context, sc session.Context) (*artifact.Summary, error) {
	r, err := jsonRequest("generate-summary", http.MethodPost, "/generate-summary", newContextPayload(sc))
	if err != nil {
		return nil, err
	}
	summary := artifact.Summary{}
	if err := c.do(ctx, r, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) GeneratePlan(ctx context.Context, sc session.Context) (*artifact.Plan, error) {
	r, err := jsonRequest("generate-session-plan", http.MethodPost, "/generate-session-plan", newContextPayload(sc))
	if err != nil {
		return nil, err
	}
	plan := artifact.Plan{}
	if err := c.do(ctx, r, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

type chatRequest struct {
	Question string         `json:"question"`
	History  []chat.Message `json:"history"`
	contextPayload
}

type chatResponse struct {
	Answer string `json:"answer"`
}

// Chat asks one question with the prior transcript as history
func (c *Client) Chat(ctx context.Context, sc session.Context, question string, history []chat.Message) (string, error) {
	if history == nil {
		history = []chat.Message{}
	}
	payload := chatRequest{Question: question, History: history, contextPayload: newContextPayload(sc)}
	r, err := jsonRequest("chat", http.MethodPost, "/chat", payload)
	if err != nil {
		return "", err
	}
	resp := chatResponse{}
	if err := c.do(ctx, r, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}
