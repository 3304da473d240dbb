package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/loomworks/stitchsync/internal/config"
	"github.com/loomworks/stitchsync/internal/logger"
	"github.com/loomworks/stitchsync/models"
)

type httpDesignAPI struct {
	client *resty.Client
	logger *logger.Logger

	mu        sync.RWMutex
	token     string
	accountID string
}

// NewHTTPDesignAPI builds the HTTP implementation of [RemoteDesignAPI] from
// the API config section. The bearer token, if configured, is installed
// immediately.
func NewHTTPDesignAPI(cfg config.API, log *logger.Logger) (RemoteDesignAPI, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("api base url is required")
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.RequestTimeout)

	h := &httpDesignAPI{client: cli, logger: log}
	if cfg.Token != "" {
		h.SetToken(cfg.Token)
	}
	return h, nil
}

func (h *httpDesignAPI) SetToken(token string) {
	token = strings.TrimSpace(token)
	accountID, err := parseAccountIDFromJWT(token)
	if err != nil {
		h.logger.Warn().Err(err).
			Str("func", "httpDesignAPI.SetToken").
			Msg("token has no parsable subject claim")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
	h.accountID = accountID
}

func (h *httpDesignAPI) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// AccountID returns the subject claim of the installed bearer token, or an
// empty string when no token is set.
func (h *httpDesignAPI) AccountID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.accountID
}

func (h *httpDesignAPI) CreateDesign(ctx context.Context, req models.CreateDesignRequest) (models.ServerDesign, error) {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/designs")
	if err != nil {
		return models.ServerDesign{}, fmt.Errorf("%w: create design request: %w", ErrNetwork, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.ServerDesign{}, err
	}

	var sd models.ServerDesign
	if err = json.Unmarshal(resp.Body(), &sd); err != nil {
		return models.ServerDesign{}, fmt.Errorf("decode create design response: %w", err)
	}
	return sd, nil
}

func (h *httpDesignAPI) UpdateDesign(ctx context.Context, serverID string, req models.UpdateDesignRequest) (models.ServerDesign, error) {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Put("/api/designs/" + serverID)
	if err != nil {
		return models.ServerDesign{}, fmt.Errorf("%w: update design request: %w", ErrNetwork, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.ServerDesign{}, err
	}

	var sd models.ServerDesign
	if err = json.Unmarshal(resp.Body(), &sd); err != nil {
		return models.ServerDesign{}, fmt.Errorf("decode update design response: %w", err)
	}
	return sd, nil
}

func (h *httpDesignAPI) DeleteDesign(ctx context.Context, serverID string) error {
	resp, err := h.authedRequest(ctx).Delete("/api/designs/" + serverID)
	if err != nil {
		return fmt.Errorf("%w: delete design request: %w", ErrNetwork, err)
	}

	return mapHTTPError(resp)
}

func (h *httpDesignAPI) GetDesign(ctx context.Context, serverID string) (models.ServerDesign, error) {
	resp, err := h.authedRequest(ctx).Get("/api/designs/" + serverID)
	if err != nil {
		return models.ServerDesign{}, fmt.Errorf("%w: get design request: %w", ErrNetwork, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.ServerDesign{}, err
	}

	var sd models.ServerDesign
	if err = json.Unmarshal(resp.Body(), &sd); err != nil {
		return models.ServerDesign{}, fmt.Errorf("decode get design response: %w", err)
	}
	return sd, nil
}

func (h *httpDesignAPI) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}

func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))
	bodyLower := strings.ToLower(body)

	switch {
	case resp.StatusCode() == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode() == http.StatusConflict || strings.Contains(bodyLower, "version conflict"):
		return ErrVersionConflict
	case resp.StatusCode() == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode() == http.StatusBadRequest || resp.StatusCode() == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrValidation, body)
	case resp.StatusCode() >= http.StatusInternalServerError:
		return fmt.Errorf("%w: http %d: %s", ErrNetwork, resp.StatusCode(), body)
	}

	if body == "" {
		body = http.StatusText(resp.StatusCode())
	}
	return fmt.Errorf("http %d: %s", resp.StatusCode(), body)
}

func parseAccountIDFromJWT(tokenString string) (string, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}

	return claims.GetSubject()
}
