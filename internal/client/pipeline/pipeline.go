// Package pipeline executes authenticated API operations: it attaches the
// bearer token, classifies the response and, on a first 401, renews the
// token through the session and replays the operation once.
package pipeline

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/incidentdesk/internal/client/client"
	"github.com/dmitrijs2005/incidentdesk/internal/logging"
)

const maxAttempts = 2

// Session is the part of session.Manager the pipeline depends on.
type Session interface {
	CurrentCredentials() (token string, gen uint64)
	RenewToken(ctx context.Context, stale string, gen uint64) (string, error)
}

// Operation is one logical API call. Body is fixed before the first attempt
// and replayed unchanged.
type Operation struct {
	Method string
	Path   string
	Body   []byte
}

func Get(path string) Operation {
	return Operation{Method: http.MethodGet, Path: path}
}

func Post(path string, body []byte) Operation {
	return Operation{Method: http.MethodPost, Path: path, Body: body}
}

func Patch(path string, body []byte) Operation {
	return Operation{Method: http.MethodPatch, Path: path, Body: body}
}

type Pipeline struct {
	doer    client.Doer
	session Session
	log     logging.Logger
}

func New(doer client.Doer, session Session, log logging.Logger) *Pipeline {
	return &Pipeline{doer: doer, session: session, log: log}
}

// Execute runs op and returns its 2xx response. Failures are
// *client.RequestError values; a 401 on the replay is terminal.
func (p *Pipeline) Execute(ctx context.Context, op Operation) (*client.Response, error) {
	token, gen := p.session.CurrentCredentials()
	if token == "" {
		return nil, client.NotAuthenticatedError(nil)
	}

	for attempt := 1; ; attempt++ {
		resp, err := p.doer.Do(ctx, client.Request{Method: op.Method, Path: op.Path, Body: op.Body, Token: token})
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusUnauthorized {
			if rerr := client.ErrorFromResponse(resp); rerr != nil {
				return nil, rerr
			}
			return resp, nil
		}

		if attempt == maxAttempts {
			p.log.Warn(ctx, "rejected after token refresh", "method", op.Method, "path", op.Path)
			return nil, client.ErrorFromResponse(resp)
		}

		token, err = p.session.RenewToken(ctx, token, gen)
		if err != nil {
			return nil, err
		}
		p.log.Debug(ctx, "replaying with renewed token", "method", op.Method, "path", op.Path)
	}
}

// Execute runs op through p and decodes the body with decode. Decoder
// failures become KindDecoding errors.
func Execute[T any](ctx context.Context, p *Pipeline, op Operation, decode func([]byte) (T, error)) (T, error) {
	var zero T

	resp, err := p.Execute(ctx, op)
	if err != nil {
		return zero, err
	}

	v, err := decode(resp.Body)
	if err != nil {
		p.log.Warn(ctx, "response does not match schema", "method", op.Method, "path", op.Path, "error", err)
		return zero, client.DecodingError(resp.StatusCode, err)
	}
	return v, nil
}
