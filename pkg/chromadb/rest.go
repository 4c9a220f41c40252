package chromadb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/papercomputeco/kbase/pkg/chromadb/store"
)

const (
	apiPrefix       = "/api/v2"
	collectionsPath = apiPrefix + "/tenants/" + store.DefaultTenant + "/databases/" + store.DefaultDatabase + "/collections"
)

// heartbeatResponse mirrors Chroma's heartbeat body.
type heartbeatResponse struct {
	NanosecondHeartbeat int64 `json:"nanosecond heartbeat"`
}

// restAPI implements API against a server's REST interface.
type restAPI struct {
	baseURL    string
	httpClient *http.Client
}

func newRESTAPI(baseURL string, httpClient *http.Client) *restAPI {
	return &restAPI{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (r *restAPI) Heartbeat(ctx context.Context) (int64, error) {
	var hb heartbeatResponse
	if err := r.do(ctx, http.MethodGet, apiPrefix+"/heartbeat", nil, &hb); err != nil {
		return 0, err
	}
	return hb.NanosecondHeartbeat, nil
}

func (r *restAPI) Version(ctx context.Context) (string, error) {
	var v string
	if err := r.do(ctx, http.MethodGet, apiPrefix+"/version", nil, &v); err != nil {
		return "", err
	}
	return v, nil
}

func (r *restAPI) ListCollections(ctx context.Context) ([]*CollectionModel, error) {
	var cols []*CollectionModel
	if err := r.do(ctx, http.MethodGet, collectionsPath, nil, &cols); err != nil {
		return nil, err
	}
	return cols, nil
}

func (r *restAPI) CreateCollection(ctx context.Context, req *CreateCollectionRequest) (*CollectionModel, error) {
	var col CollectionModel
	if err := r.do(ctx, http.MethodPost, collectionsPath, req, &col); err != nil {
		return nil, err
	}
	return &col, nil
}

func (r *restAPI) GetCollection(ctx context.Context, nameOrID string) (*CollectionModel, error) {
	var col CollectionModel
	if err := r.do(ctx, http.MethodGet, collectionPath(nameOrID, ""), nil, &col); err != nil {
		return nil, err
	}
	return &col, nil
}

func (r *restAPI) DeleteCollection(ctx context.Context, nameOrID string) error {
	return r.do(ctx, http.MethodDelete, collectionPath(nameOrID, ""), nil, nil)
}

func (r *restAPI) Add(ctx context.Context, collectionID string, req *AddRequest) error {
	return r.do(ctx, http.MethodPost, collectionPath(collectionID, "add"), req, nil)
}

func (r *restAPI) Upsert(ctx context.Context, collectionID string, req *AddRequest) error {
	return r.do(ctx, http.MethodPost, collectionPath(collectionID, "upsert"), req, nil)
}

func (r *restAPI) Query(ctx context.Context, collectionID string, req *QueryRequest) (*QueryResponse, error) {
	var resp QueryResponse
	if err := r.do(ctx, http.MethodPost, collectionPath(collectionID, "query"), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *restAPI) Get(ctx context.Context, collectionID string, req *GetRequest) (*GetResponse, error) {
	if req == nil {
		req = &GetRequest{}
	}
	var resp GetResponse
	if err := r.do(ctx, http.MethodPost, collectionPath(collectionID, "get"), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *restAPI) Delete(ctx context.Context, collectionID string, req *DeleteRequest) error {
	return r.do(ctx, http.MethodPost, collectionPath(collectionID, "delete"), req, nil)
}

func (r *restAPI) Count(ctx context.Context, collectionID string) (int, error) {
	var n int
	if err := r.do(ctx, http.MethodGet, collectionPath(collectionID, "count"), nil, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// Close is a no-op: the HTTP client doesn't require explicit cleanup.
func (r *restAPI) Close() error {
	return nil
}

func collectionPath(nameOrID, action string) string {
	p := collectionsPath + "/" + url.PathEscape(nameOrID)
	if action != "" {
		p += "/" + action
	}
	return p
}

// do sends a JSON request and decodes a JSON response into out when out is
// non-nil. Error bodies are translated into the package's sentinel errors.
func (r *restAPI) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling %s request: %w", path, err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var er ErrorResponse
	_ = json.Unmarshal(body, &er)

	msg := er.Message
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}

	sentinel := errorForKind(er.Error)
	if sentinel == nil {
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("%w: %s", sentinel, strings.TrimPrefix(msg, sentinel.Error()+": "))
}

func errorForKind(kind string) error {
	switch kind {
	case kindNotFound:
		return ErrCollectionNotFound
	case kindUniqueViolation:
		return ErrCollectionExists
	case kindDuplicateID:
		return ErrDuplicateID
	case kindInvalidDim:
		return ErrDimensionMismatch
	case kindInvalidArgument:
		return ErrInvalidArgument
	}
	return nil
}
