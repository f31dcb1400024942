package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/go-refsync/internal/config"
	"github.com/MKhiriev/go-refsync/internal/logger"
	"github.com/MKhiriev/go-refsync/internal/utils"
	"github.com/MKhiriev/go-refsync/models"
)

// Request and response headers of the API.
const (
	HeaderAPIVersion          = "Zotero-API-Version"
	HeaderAPIKey              = "Zotero-API-Key"
	HeaderIfModifiedSince     = "If-Modified-Since-Version"
	HeaderIfUnmodifiedSince   = "If-Unmodified-Since-Version"
	HeaderLastModifiedVersion = "Last-Modified-Version"
	HeaderTraceID             = "X-Trace-ID"
)

type httpAPIClient struct {
	client   *utils.HTTPClient
	validate *validator.Validate
	logger   *logger.Logger
}

// NewHTTPAPIClient constructs the resty implementation of [APIClient].
//
// Returns an error if adapterCfg.BaseURL is empty or cannot be parsed as a
// valid URL.
func NewHTTPAPIClient(adapterCfg config.Adapter, appCfg config.App, logger *logger.Logger) (APIClient, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter base url: %w", err)
	}

	client := utils.NewHTTPClient(baseURL, adapterCfg.RequestTimeout)
	if adapterCfg.APIVersion > 0 {
		client.SetHeader(HeaderAPIVersion, strconv.Itoa(adapterCfg.APIVersion))
	}
	if appCfg.APIKey != "" {
		client.SetHeader(HeaderAPIKey, appCfg.APIKey)
	}

	return &httpAPIClient{client: client, validate: validator.New(), logger: logger}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

func (h *httpAPIClient) GetSettings(ctx context.Context, lib models.Library, since int64) (models.SettingsResult, error) {
	req := h.client.R().SetContext(ctx)
	if since > 0 {
		req.SetQueryParam("since", strconv.FormatInt(since, 10)).
			SetHeader(HeaderIfModifiedSince, strconv.FormatInt(since, 10))
	}

	resp, err := h.do(req, http.MethodGet, lib.Prefix()+"/settings")
	if err != nil {
		return models.SettingsResult{}, err
	}

	result := models.SettingsResult{Settings: make(map[string]models.RemoteSetting)}
	if result.LibraryVersion, err = libraryVersion(resp); err != nil {
		return models.SettingsResult{}, err
	}
	if err = decodeBody(resp, &result.Settings); err != nil {
		return models.SettingsResult{}, err
	}

	return result, nil
}

func (h *httpAPIClient) GetVersions(ctx context.Context, lib models.Library, objectType models.ObjectType, opts VersionsOptions) (models.VersionsResult, error) {
	if objectType == models.ObjectSetting || !objectType.Valid() {
		return models.VersionsResult{}, fmt.Errorf("%w: %q has no manifest", ErrUnsupportedType, objectType)
	}

	q := url.Values{}
	q.Set("format", "versions")
	if opts.Since > 0 {
		q.Set("since", strconv.FormatInt(opts.Since, 10))
	}
	if opts.SinceTime != nil {
		q.Set("sincetime", strconv.FormatInt(opts.SinceTime.Unix(), 10))
	}
	if opts.IncludeTrashed {
		q.Set("includeTrashed", "1")
	}

	path := lib.Prefix() + "/" + objectType.Plural()
	if opts.TopOnly {
		path += "/top"
	}

	resp, err := h.do(h.client.R().SetContext(ctx).SetQueryParamsFromValues(q), http.MethodGet, path)
	if err != nil {
		return models.VersionsResult{}, err
	}

	result := models.VersionsResult{Versions: make(map[string]int64)}
	if result.LibraryVersion, err = libraryVersion(resp); err != nil {
		return models.VersionsResult{}, err
	}
	if err = decodeBody(resp, &result.Versions); err != nil {
		return models.VersionsResult{}, err
	}

	return result, nil
}

func (h *httpAPIClient) GetObjects(ctx context.Context, lib models.Library, objectType models.ObjectType, keys []string) ([]models.RemoteObject, int64, error) {
	if objectType == models.ObjectSetting || !objectType.Valid() {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedType, objectType)
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set(objectType.KeyParam(), strings.Join(keys, ","))
	if objectType == models.ObjectItem {
		q.Set("includeTrashed", "1")
	}

	resp, err := h.do(h.client.R().SetContext(ctx).SetQueryParamsFromValues(q), http.MethodGet, lib.Prefix()+"/"+objectType.Plural())
	if err != nil {
		return nil, 0, err
	}

	version, err := libraryVersion(resp)
	if err != nil {
		return nil, 0, err
	}

	var objects []models.RemoteObject
	if err = decodeBody(resp, &objects); err != nil {
		return nil, 0, err
	}
	for i := range objects {
		if err = h.validate.Struct(objects[i]); err != nil {
			return nil, 0, fmt.Errorf("%w: object %d: %w", ErrMalformedResponse, i, err)
		}
	}

	return objects, version, nil
}

func (h *httpAPIClient) GetDeleted(ctx context.Context, lib models.Library, since int64) (models.DeletedResult, error) {
	req := h.client.R().SetContext(ctx).SetQueryParam("since", strconv.FormatInt(since, 10))

	resp, err := h.do(req, http.MethodGet, lib.Prefix()+"/deleted")
	if err != nil {
		return models.DeletedResult{}, err
	}

	var result models.DeletedResult
	if result.LibraryVersion, err = libraryVersion(resp); err != nil {
		return models.DeletedResult{}, err
	}
	if err = decodeBody(resp, &result); err != nil {
		return models.DeletedResult{}, err
	}

	return result, nil
}

func (h *httpAPIClient) UploadSettings(ctx context.Context, lib models.Library, settings map[string]models.ObjectData, ifUnmodifiedSince int64) (int64, error) {
	req := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(HeaderIfUnmodifiedSince, strconv.FormatInt(ifUnmodifiedSince, 10)).
		SetBody(settings)

	resp, err := h.do(req, http.MethodPost, lib.Prefix()+"/settings")
	if err != nil {
		return 0, err
	}

	return libraryVersion(resp)
}

func (h *httpAPIClient) UploadObjects(ctx context.Context, lib models.Library, objectType models.ObjectType, objects []models.ObjectData, ifUnmodifiedSince int64) (models.WriteResponse, error) {
	if objectType == models.ObjectSetting || !objectType.Valid() {
		return models.WriteResponse{}, fmt.Errorf("%w: %q", ErrUnsupportedType, objectType)
	}

	req := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(HeaderIfUnmodifiedSince, strconv.FormatInt(ifUnmodifiedSince, 10)).
		SetBody(objects)

	resp, err := h.do(req, http.MethodPost, lib.Prefix()+"/"+objectType.Plural())
	if err != nil {
		return models.WriteResponse{}, err
	}

	var result models.WriteResponse
	if result.LibraryVersion, err = libraryVersion(resp); err != nil {
		return models.WriteResponse{}, err
	}
	if err = decodeBody(resp, &result); err != nil {
		return models.WriteResponse{}, err
	}
	for idx, obj := range result.Successful {
		if err = h.validate.Struct(obj); err != nil {
			return models.WriteResponse{}, fmt.Errorf("%w: successful[%s]: %w", ErrMalformedResponse, idx, err)
		}
	}

	return result, nil
}

func (h *httpAPIClient) DeleteObjects(ctx context.Context, lib models.Library, objectType models.ObjectType, keys []string, ifUnmodifiedSince int64) (int64, error) {
	if !objectType.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, objectType)
	}

	req := h.client.R().
		SetContext(ctx).
		SetHeader(HeaderIfUnmodifiedSince, strconv.FormatInt(ifUnmodifiedSince, 10)).
		SetQueryParam(objectType.KeyParam(), strings.Join(keys, ","))

	resp, err := h.do(req, http.MethodDelete, lib.Prefix()+"/"+objectType.Plural())
	if err != nil {
		return 0, err
	}

	return libraryVersion(resp)
}

// do executes req and maps both transport and status errors.
func (h *httpAPIClient) do(req *resty.Request, method, path string) (*resty.Response, error) {
	log := logger.FromContext(req.Context())

	// the server tags its request log with the pass id
	if passID, ok := utils.GetPassIDFromContext(req.Context()); ok {
		req.SetHeader(HeaderTraceID, passID)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		log.Err(err).
			Str("func", "httpAPIClient.do").
			Str("method", method).
			Str("path", path).
			Msg("request failed")
		return nil, mapTransportError(fmt.Errorf("%s %s: %w", method, path, err))
	}

	if err = mapHTTPError(resp); err != nil {
		log.Debug().
			Str("func", "httpAPIClient.do").
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode()).
			Err(err).
			Msg("request returned error status")
		return nil, err
	}

	return resp, nil
}

func libraryVersion(resp *resty.Response) (int64, error) {
	raw := resp.Header().Get(HeaderLastModifiedVersion)
	if raw == "" {
		return 0, fmt.Errorf("%w: missing %s header", ErrMalformedResponse, HeaderLastModifiedVersion)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: invalid %s header %q", ErrMalformedResponse, HeaderLastModifiedVersion, raw)
	}
	return v, nil
}

func decodeBody(resp *resty.Response, v any) error {
	body := resp.Body()
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}
