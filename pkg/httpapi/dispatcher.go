package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/devicelab-dev/unified-runner/pkg/core"
	"github.com/devicelab-dev/unified-runner/pkg/logger"
)

// Request describes one API call. Endpoint may hold {name} placeholders
// that are filled from PathParams.
type Request struct {
	BaseURL    string
	Endpoint   string
	Method     string
	PathParams map[string]string
	Headers    map[string]string
	Query      map[string]string
	Payload    interface{}
	Files      map[string]string // form field -> file path
}

type handler func(r *resty.Request, url string, req Request) (*resty.Response, error)

var handlers = map[string]handler{
	http.MethodGet:    doGet,
	http.MethodPost:   doPost,
	http.MethodPut:    doPut,
	http.MethodPatch:  doPatch,
	http.MethodDelete: doDelete,
}

// Dispatcher sends Requests through an HTTP session.
type Dispatcher struct {
	Client  *resty.Client
	Timeout time.Duration // zero means no timeout
}

// NewDispatcher returns a Dispatcher over client.
func NewDispatcher(client *resty.Client) *Dispatcher {
	return &Dispatcher{Client: client}
}

// Dispatch fills the endpoint placeholders and sends req with the handler
// for its verb. The verb is matched case-insensitively.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*resty.Response, error) {
	if d == nil || d.Client == nil {
		return nil, core.ErrNoHTTPSession
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	h, ok := handlers[method]
	if !ok {
		return nil, core.ErrUnsupportedMethod.WithMessagef("unsupported HTTP method: %s", req.Method)
	}

	endpoint := req.Endpoint
	if len(req.PathParams) > 0 || placeholderRe.MatchString(endpoint) {
		logger.Debug("before replacement: %s, path params: %v", endpoint, req.PathParams)
		var err error
		endpoint, err = ExpandPath(endpoint, req.PathParams)
		if err != nil {
			logger.Error("missing path parameter: %v", err)
			return nil, err
		}
		logger.Debug("after replacement: %s", endpoint)
	}

	url := req.BaseURL + endpoint
	logger.Info("%s %s headers=%t params=%t payload=%t", method, url,
		len(req.Headers) > 0, len(req.Query) > 0, req.Payload != nil)

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	r := d.Client.R().SetContext(ctx)
	if len(req.Headers) > 0 {
		r.SetHeaders(req.Headers)
	}

	resp, err := h(r, url, req)
	if err != nil {
		logger.Error("%s request to %s failed: %v", method, url, err)
		return resp, errors.Wrapf(core.ErrRequestFailed.WithCause(err), "%s %s", method, url)
	}
	logger.Info("%s %s -> %d", method, url, resp.StatusCode())
	return resp, nil
}

var placeholderRe = regexp.MustCompile(`\{([^{}]*)\}`)

// ExpandPath replaces each {name} in endpoint with params[name]. Every
// placeholder is replaced once; a missing key fails with
// core.ErrMissingPathParam.
func ExpandPath(endpoint string, params map[string]string) (string, error) {
	var missing string
	out := placeholderRe.ReplaceAllStringFunc(endpoint, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := params[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return m
		}
		return v
	})
	if missing != "" {
		return "", core.ErrMissingPathParam.
			WithMessagef("missing path parameter: %q", missing).
			WithDetails(map[string]interface{}{"key": missing, "endpoint": endpoint})
	}
	return out, nil
}

func doGet(r *resty.Request, url string, req Request) (*resty.Response, error) {
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	return r.Get(url)
}

func doPost(r *resty.Request, url string, req Request) (*resty.Response, error) {
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if len(req.Files) > 0 {
		form, err := formFields(req.Payload)
		if err != nil {
			return nil, err
		}
		r.SetFormData(form)
		r.SetFiles(req.Files)
		return r.Post(url)
	}
	if req.Payload != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Payload)
	}
	return r.Post(url)
}

func doPut(r *resty.Request, url string, req Request) (*resty.Response, error) {
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if req.Payload != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Payload)
	}
	return r.Put(url)
}

func doPatch(r *resty.Request, url string, req Request) (*resty.Response, error) {
	if len(req.Query) > 0 {
		logger.Warn("PATCH %s: query parameters are not sent with PATCH requests", url)
	}
	if req.Payload != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Payload)
	}
	return r.Patch(url)
}

func doDelete(r *resty.Request, url string, req Request) (*resty.Response, error) {
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if req.Payload != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Payload)
	}
	return r.Delete(url)
}

// formFields flattens a multipart payload into string form fields.
func formFields(payload interface{}) (map[string]string, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case map[string]string:
		return p, nil
	case map[string]interface{}:
		out := make(map[string]string, len(p))
		for k, v := range p {
			out[k] = fmt.Sprint(v)
		}
		return out, nil
	default:
		return nil, errors.Errorf("multipart payload must be a map, got %T", payload)
	}
}
