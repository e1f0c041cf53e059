package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// TokenPair is an access/refresh token couple as issued by the server.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Session identifies a signed-in user plus their tokens.
type Session struct {
	UserID string `json:"userId"`
	TokenPair
}

// Register creates a user account.
func (s *HTTPStore) Register(ctx context.Context, login, password string) error {
	body, _ := json.Marshal(map[string]string{"login": login, "password": password})
	respBody, status, err := s.doOnce(ctx, http.MethodPost, s.baseURL+"/v1/auth/register", body)
	if err != nil {
		return err
	}
	return statusToErr(status, respBody)
}

// Login exchanges credentials for a session.
func (s *HTTPStore) Login(ctx context.Context, login, password string) (Session, error) {
	body, _ := json.Marshal(map[string]string{"login": login, "password": password})
	respBody, status, err := s.doOnce(ctx, http.MethodPost, s.baseURL+"/v1/auth/login", body)
	if err != nil {
		return Session{}, err
	}
	if err := statusToErr(status, respBody); err != nil {
		return Session{}, err
	}

	var sess Session
	if err := json.Unmarshal(respBody, &sess); err != nil {
		return Session{}, fmt.Errorf("decoding login response: %w", err)
	}
	return sess, nil
}

// PresignImagePut asks the server for a one-shot upload URL for a product
// image, returning the storage key to record on the product.
func (s *HTTPStore) PresignImagePut(ctx context.Context) (key, uploadURL string, err error) {
	respBody, err := s.do(ctx, http.MethodPost, s.baseURL+"/v1/images/presign-put", nil)
	if err != nil {
		return "", "", err
	}

	var out struct {
		Key string `json:"key"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", "", fmt.Errorf("decoding presign response: %w", err)
	}
	return out.Key, out.URL, nil
}

// PresignImageGet resolves a stored image key into a one-shot download URL.
func (s *HTTPStore) PresignImageGet(ctx context.Context, key string) (string, error) {
	u := s.baseURL + "/v1/images/presign-get?key=" + url.QueryEscape(key)
	respBody, err := s.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("decoding presign response: %w", err)
	}
	return out.URL, nil
}
