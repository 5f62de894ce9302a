package codec

import (
	"encoding/json"
	"errors"

	"github.com/dmitrijs2005/incidentdesk/internal/client/models"
)

type loginRequestWire struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequestWire struct {
	Refresh string `json:"refresh"`
}

type tokenResponseWire struct {
	Access   string `json:"access"`
	Refresh  string `json:"refresh,omitempty"`
	UserID   *int64 `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	UserRole string `json:"user_role,omitempty"`
}

type profileWire struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role"`
}

func EncodeLogin(username, password string) ([]byte, error) {
	return json.Marshal(loginRequestWire{Username: username, Password: password})
}

func DecodeLoginRequest(data []byte) (username, password string, err error) {
	var w loginRequestWire
	if err := json.Unmarshal(data, &w); err != nil {
		return "", "", decodingError("login request", err)
	}
	return w.Username, w.Password, nil
}

func EncodeRefresh(refreshToken string) ([]byte, error) {
	return json.Marshal(refreshRequestWire{Refresh: refreshToken})
}

func DecodeRefreshRequest(data []byte) (string, error) {
	var w refreshRequestWire
	if err := json.Unmarshal(data, &w); err != nil {
		return "", decodingError("refresh request", err)
	}
	return w.Refresh, nil
}

// DecodeLogin parses a token response. The profile is non-nil only when the
// response embeds user_id, username and user_role.
func DecodeLogin(data []byte) (models.Credentials, *models.UserProfile, error) {
	var w tokenResponseWire
	if err := json.Unmarshal(data, &w); err != nil {
		return models.Credentials{}, nil, decodingError("token response", err)
	}
	if w.Access == "" {
		return models.Credentials{}, nil, decodingError("token response", errors.New("missing access token"))
	}
	creds := models.Credentials{AccessToken: w.Access, RefreshToken: w.Refresh}

	if w.UserID == nil || w.Username == "" || w.UserRole == "" {
		return creds, nil, nil
	}
	role, err := models.ParseRole(w.UserRole)
	if err != nil {
		return models.Credentials{}, nil, decodingError("token response", err)
	}
	return creds, &models.UserProfile{ID: *w.UserID, Username: w.Username, Role: role}, nil
}

// EncodeLoginResponse renders a token response; profile may be nil.
func EncodeLoginResponse(creds models.Credentials, profile *models.UserProfile) ([]byte, error) {
	w := tokenResponseWire{Access: creds.AccessToken, Refresh: creds.RefreshToken}
	if profile != nil {
		id := profile.ID
		w.UserID = &id
		w.Username = profile.Username
		w.UserRole = string(profile.Role)
	}
	return json.Marshal(w)
}

// DecodeRefresh returns the new access token of a refresh response.
func DecodeRefresh(data []byte) (string, error) {
	var w tokenResponseWire
	if err := json.Unmarshal(data, &w); err != nil {
		return "", decodingError("refresh response", err)
	}
	if w.Access == "" {
		return "", decodingError("refresh response", errors.New("missing access token"))
	}
	return w.Access, nil
}

func EncodeRefreshResponse(access string) ([]byte, error) {
	return json.Marshal(tokenResponseWire{Access: access})
}

func DecodeProfile(data []byte) (models.UserProfile, error) {
	var w profileWire
	if err := json.Unmarshal(data, &w); err != nil {
		return models.UserProfile{}, decodingError("user profile", err)
	}
	if w.Username == "" {
		return models.UserProfile{}, decodingError("user profile", errors.New("missing username"))
	}
	role, err := models.ParseRole(w.Role)
	if err != nil {
		return models.UserProfile{}, decodingError("user profile", err)
	}
	return models.UserProfile{
		ID:        w.ID,
		Username:  w.Username,
		Email:     w.Email,
		FirstName: w.FirstName,
		LastName:  w.LastName,
		Role:      role,
	}, nil
}

func EncodeProfile(p models.UserProfile) ([]byte, error) {
	return json.Marshal(profileWire{
		ID:        p.ID,
		Username:  p.Username,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Role:      string(p.Role),
	})
}
