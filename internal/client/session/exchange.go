package session

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/incidentdesk/internal/client/client"
	"github.com/dmitrijs2005/incidentdesk/internal/client/codec"
	"github.com/dmitrijs2005/incidentdesk/internal/client/models"
	"github.com/dmitrijs2005/incidentdesk/internal/common"
)

// exchangeLogin posts the credentials and decodes the token response. The
// returned profile is nil when the response does not embed one.
func (m *Manager) exchangeLogin(ctx context.Context, username, password string) (models.Credentials, *models.UserProfile, error) {
	body, err := codec.EncodeLogin(username, password)
	if err != nil {
		return models.Credentials{}, nil, client.InvalidRequestError(err)
	}

	resp, err := m.doer.Do(ctx, client.Request{Method: http.MethodPost, Path: common.PathToken, Body: body})
	if err != nil {
		return models.Credentials{}, nil, err
	}

	switch {
	case resp.OK():
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return models.Credentials{}, nil, client.InvalidCredentialsError(resp.StatusCode, resp.Detail())
	case resp.StatusCode == http.StatusBadRequest:
		// Field errors on username/password are a form problem; anything else
		// (detail, non_field_errors) is the server refusing the credentials.
		fields, err := codec.DecodeValidationErrors(resp.Body)
		if err == nil && (fields["username"] != nil || fields["password"] != nil) {
			return models.Credentials{}, nil, client.ValidationError(resp.StatusCode, fields)
		}
		return models.Credentials{}, nil, client.InvalidCredentialsError(resp.StatusCode, resp.Detail())
	default:
		return models.Credentials{}, nil, client.ErrorFromResponse(resp)
	}

	creds, profile, err := codec.DecodeLogin(resp.Body)
	if err != nil {
		m.log.Warn(ctx, "malformed token response", "status", resp.StatusCode, "error", err)
		return models.Credentials{}, nil, client.DecodingError(resp.StatusCode, err)
	}
	return creds, profile, nil
}

// exchangeRefresh trades the refresh token for a new access token.
func (m *Manager) exchangeRefresh(ctx context.Context, refreshToken string) (string, error) {
	body, err := codec.EncodeRefresh(refreshToken)
	if err != nil {
		return "", client.InvalidRequestError(err)
	}

	resp, err := m.doer.Do(ctx, client.Request{Method: http.MethodPost, Path: common.PathTokenRefresh, Body: body})
	if err != nil {
		return "", err
	}
	if rerr := client.ErrorFromResponse(resp); rerr != nil {
		return "", rerr
	}

	access, err := codec.DecodeRefresh(resp.Body)
	if err != nil {
		m.log.Warn(ctx, "malformed refresh response", "status", resp.StatusCode, "error", err)
		return "", client.DecodingError(resp.StatusCode, err)
	}
	return access, nil
}

// fetchProfile reads the current user with token in a single call to the
// configured profile path.
func (m *Manager) fetchProfile(ctx context.Context, token string) (models.UserProfile, error) {
	resp, err := m.doer.Do(ctx, client.Request{Method: http.MethodGet, Path: m.profilePath, Token: token})
	if err != nil {
		return models.UserProfile{}, err
	}
	if rerr := client.ErrorFromResponse(resp); rerr != nil {
		return models.UserProfile{}, rerr
	}

	p, err := codec.DecodeProfile(resp.Body)
	if err != nil {
		m.log.Warn(ctx, "malformed profile response", "status", resp.StatusCode, "error", err)
		return models.UserProfile{}, client.DecodingError(resp.StatusCode, err)
	}
	return p, nil
}
