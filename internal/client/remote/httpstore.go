package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sultumov/allergyTracker/internal/common"
	"github.com/sultumov/allergyTracker/internal/logging"
)

// TokenStore persists the auth token pair between runs. Implemented by the
// local cache store.
type TokenStore interface {
	Tokens(ctx context.Context) (access, refresh string)
	SetTokens(ctx context.Context, access, refresh string) error
}

// HTTPStore talks to the document-store server over REST for point
// operations and websocket for live subscriptions. It transparently
// refreshes an expired access token once per call, mirroring what the
// remote SDK did in the mobile app.
type HTTPStore struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
	log     logging.Logger
}

func NewHTTPStore(baseURL string, tokens TokenStore, log logging.Logger) *HTTPStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
		log:     log,
	}
}

type apiError struct {
	Error string `json:"error"`
}

func (s *HTTPStore) docURL(path string) string {
	return s.baseURL + "/v1/docs/" + path
}

// do performs one authenticated request, retrying a single time after a
// token refresh when the server reports an expired access token.
func (s *HTTPStore) do(ctx context.Context, method, rawURL string, body []byte) ([]byte, error) {
	respBody, status, err := s.doOnce(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized && s.isExpired(respBody) {
		if rerr := s.refreshTokens(ctx); rerr != nil {
			return nil, common.ErrNotAuthenticated
		}
		respBody, status, err = s.doOnce(ctx, method, rawURL, body)
		if err != nil {
			return nil, err
		}
	}

	if err := statusToErr(status, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

func (s *HTTPStore) doOnce(ctx context.Context, method, rawURL string, body []byte) ([]byte, int, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if access, _ := s.tokens.Tokens(ctx); access != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+access)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	return b, resp.StatusCode, nil
}

func (s *HTTPStore) isExpired(body []byte) bool {
	var e apiError
	if err := json.Unmarshal(body, &e); err != nil {
		return false
	}
	return e.Error == common.ErrTokenExpired.Error()
}

func (s *HTTPStore) refreshTokens(ctx context.Context) error {
	_, refresh := s.tokens.Tokens(ctx)
	if refresh == "" {
		return common.ErrNotAuthenticated
	}

	body, _ := json.Marshal(map[string]string{"refreshToken": refresh})
	respBody, status, err := s.doOnce(ctx, http.MethodPost, s.baseURL+"/v1/auth/refresh", body)
	if err != nil {
		return err
	}
	if err := statusToErr(status, respBody); err != nil {
		return err
	}

	var tok TokenPair
	if err := json.Unmarshal(respBody, &tok); err != nil {
		return fmt.Errorf("decoding refresh response: %w", err)
	}
	return s.tokens.SetTokens(ctx, tok.AccessToken, tok.RefreshToken)
}

func statusToErr(status int, body []byte) error {
	switch {
	case status < 300:
		return nil
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return common.ErrNotAuthenticated
	case status == http.StatusNotFound:
		return common.ErrNotFound
	case status >= 500:
		return common.ErrUnavailable
	default:
		var e apiError
		_ = json.Unmarshal(body, &e)
		if e.Error != "" {
			return fmt.Errorf("remote rejected request: %s", e.Error)
		}
		return fmt.Errorf("remote rejected request: status %d", status)
	}
}

// Get implements Store.
func (s *HTTPStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return s.do(ctx, http.MethodGet, s.docURL(path), nil)
}

// Set implements Store.
func (s *HTTPStore) Set(ctx context.Context, path string, value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding document for %s: %w", path, err)
	}
	_, err = s.do(ctx, http.MethodPut, s.docURL(path), body)
	return err
}

// Update implements Store.
func (s *HTTPStore) Update(ctx context.Context, path string, fields map[string]any) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding fields for %s: %w", path, err)
	}
	_, err = s.do(ctx, http.MethodPatch, s.docURL(path), body)
	return err
}

// Delete implements Store.
func (s *HTTPStore) Delete(ctx context.Context, path string) error {
	_, err := s.do(ctx, http.MethodDelete, s.docURL(path), nil)
	return err
}

// QueryModifiedSince implements Store.
func (s *HTTPStore) QueryModifiedSince(ctx context.Context, path string, since int64) (Snapshot, error) {
	u := s.docURL(path) + "?modifiedSince=" + strconv.FormatInt(since, 10)
	body, err := s.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot for %s: %w", path, err)
	}
	return snap, nil
}

// Subscribe implements Store. The server sends the current snapshot on
// attach and a fresh one after every mutation under the path.
func (s *HTTPStore) Subscribe(ctx context.Context, path string) (Subscription, error) {
	wsURL := strings.Replace(s.baseURL, "http", "ws", 1) +
		"/v1/watch?path=" + url.QueryEscape(path)

	h := http.Header{}
	if access, _ := s.tokens.Tokens(ctx); access != "" {
		h.Set(common.AuthorizationHeaderName, "Bearer "+access)
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, 10*time.Second)
	defer cancelDial()

	conn, resp, err := websocket.Dial(dialCtx, wsURL, &websocket.DialOptions{HTTPHeader: h})
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, common.ErrNotAuthenticated
		}
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &wsSubscription{
		conn:    conn,
		cancel:  cancel,
		updates: make(chan Snapshot),
	}
	sub.wg.Add(1)
	go sub.readLoop(subCtx, s.log, path)
	return sub, nil
}

type wsSubscription struct {
	conn    *websocket.Conn
	cancel  context.CancelFunc
	updates chan Snapshot
	wg      sync.WaitGroup
	once    sync.Once
}

func (w *wsSubscription) Updates() <-chan Snapshot { return w.updates }

func (w *wsSubscription) readLoop(ctx context.Context, log logging.Logger, path string) {
	defer w.wg.Done()
	defer close(w.updates)

	for {
		var snap Snapshot
		if err := wsjson.Read(ctx, w.conn, &snap); err != nil {
			if ctx.Err() == nil {
				log.Warn(ctx, "watch feed closed by remote", "path", path, "error", err)
			}
			return
		}
		select {
		case w.updates <- snap:
		case <-ctx.Done():
			return
		}
	}
}

// Close unregisters the listener. It does not return until the read loop
// has stopped, so no emission can follow it.
func (w *wsSubscription) Close() error {
	w.once.Do(func() {
		w.cancel()
		_ = w.conn.Close(websocket.StatusNormalClosure, "unsubscribe")
		w.wg.Wait()
	})
	return nil
}

// Ping probes server reachability; used by the connectivity gate.
func (s *HTTPStore) Ping(ctx context.Context) error {
	_, status, err := s.doOnce(ctx, http.MethodGet, s.baseURL+"/v1/ping", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return common.ErrUnavailable
	}
	return nil
}
