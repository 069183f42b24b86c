package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/piponger/pkg/config"
	"github.com/carverauto/piponger/pkg/models"
)

const (
	registerTimeout = 5 * time.Second
	requestTimeout  = 10 * time.Second
)

// BaseURL joins a node's protocol, address and port, e.g. http://10.0.1.5:5003.
func BaseURL(protocol, address string, port int) string {
	if protocol == "" {
		protocol = "http://"
	}

	if !strings.HasSuffix(protocol, "://") {
		protocol += "://"
	}

	return protocol + address + ":" + strconv.Itoa(port)
}

// HTTPClient is a thin JSON client carrying the cluster's basic credentials.
type HTTPClient struct {
	http *http.Client
	auth config.AuthConfig
}

// New creates an HTTPClient.
func New(auth config.AuthConfig) *HTTPClient {
	return &HTTPClient{
		http: &http.Client{
			Timeout: requestTimeout,
		},
		auth: auth,
	}
}

// StartSession asks the pinger at baseURL to start measuring.
func (c *HTTPClient) StartSession(
	ctx context.Context, baseURL string, req *models.StartSessionRequest) (*models.StartSessionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var resp models.StartSessionResponse
	if err := c.postJSON(ctx, baseURL+PathStartSession, req, &resp); err != nil {
		return nil, err
	}

	if resp.Result != models.ResultSuccess {
		return &resp, fmt.Errorf("%w: %s", ErrRemoteFailure, resp.Msg)
	}

	return &resp, nil
}

// RequestServer asks the ponger at baseURL for a fresh measurement server
// and returns its port.
func (c *HTTPClient) RequestServer(ctx context.Context, baseURL string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var resp models.ServerResponse
	if err := c.postJSON(ctx, baseURL+PathIperfServer, struct{}{}, &resp); err != nil {
		return 0, err
	}

	if resp.Result != models.ResultSuccess {
		return 0, fmt.Errorf("%w: %s", ErrRemoteFailure, resp.Msg)
	}

	return resp.Port, nil
}

// MasterClient talks to one master.
type MasterClient struct {
	*HTTPClient
	baseURL string
}

// NewMaster creates a client for the master at ep.
func NewMaster(ep config.Endpoint, auth config.AuthConfig) *MasterClient {
	return &MasterClient{
		HTTPClient: New(auth),
		baseURL:    BaseURL(ep.Protocol, ep.Address, ep.Port),
	}
}

// Register adds or refreshes this node in the master's pool for role.
func (m *MasterClient) Register(ctx context.Context, role models.Role, req models.RegisterRequest) error {
	var path string

	switch role {
	case models.RolePinger:
		path = PathRegisterPinger
	case models.RolePonger:
		path = PathRegisterPonger
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedRole, role)
	}

	ctx, cancel := context.WithTimeout(ctx, registerTimeout)
	defer cancel()

	var resp models.Response
	if err := m.postJSON(ctx, m.baseURL+path, req, &resp); err != nil {
		return err
	}

	return checkResult(resp)
}

// Report delivers a session's compiled measurements.
func (m *MasterClient) Report(ctx context.Context, req *models.ReportRequest) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var resp models.Response
	if err := m.postJSON(ctx, m.baseURL+PathReportResult, req, &resp); err != nil {
		return err
	}

	return checkResult(resp)
}

func checkResult(resp models.Response) error {
	if resp.Result != models.ResultSuccess {
		return fmt.Errorf("%w: %s", ErrRemoteFailure, resp.Msg)
	}

	return nil
}

func (c *HTTPClient) postJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	if c.auth.Username != "" {
		req.SetBasicAuth(c.auth.Username, c.auth.Password)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)

		msg := strings.TrimSpace(string(body))
		if msg != "" {
			return fmt.Errorf("%w: %s: %s", ErrRequestFailed, res.Status, msg)
		}

		return fmt.Errorf("%w: %s", ErrRequestFailed, res.Status)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(res.Body).Decode(out)
}
