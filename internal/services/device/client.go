package device

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/solder/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP timeout for device requests.
	DefaultTimeout = 30 * time.Second

	// DefaultOTATimeout covers the device downloading and flashing the image.
	DefaultOTATimeout = 60 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 5
)

// Client talks to a device's local HTTP surface. Devices expose
// /ota/update, /changeVar, and / on plain HTTP port 80.
type Client struct {
	httpClient *http.Client
	otaClient  *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithOTATimeout sets the timeout for OTA trigger requests.
func WithOTATimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.otaClient = &http.Client{Timeout: timeout}
	}
}

// WithTimeout sets the timeout for regular device requests.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a new device client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		otaClient:  &http.Client{Timeout: DefaultOTATimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// baseURL normalizes a device address into an http base URL
func baseURL(deviceAddr string) string {
	addr := strings.TrimSpace(deviceAddr)
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return strings.TrimRight(addr, "/")
}

// TriggerOTA asks the device to pull and flash the firmware at firmwareURL.
// The device responds before flashing completes; a 200 means the update was
// accepted, not that it succeeded.
func (c *Client) TriggerOTA(ctx context.Context, deviceAddr, firmwareURL string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := fmt.Sprintf("%s/ota/update?url=%s", baseURL(deviceAddr), url.QueryEscape(firmwareURL))

	if c.logger != nil {
		c.logger.Info().
			Str("device", deviceAddr).
			Str("firmware_url", firmwareURL).
			Msg("Triggering OTA update")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create OTA request: %w", err)
	}

	resp, err := c.otaClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to contact device: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("OTA trigger failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}

// SetVariables mutates firmware globals through the device's /changeVar
// endpoint. The device reports one plain-text status line per variable;
// results are returned in name order.
func (c *Client) SetVariables(ctx context.Context, deviceAddr string, vars map[string]string) ([]models.VariableUpdateResult, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("no variables to set")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	for name, value := range vars {
		params.Set(name, value)
	}
	reqURL := fmt.Sprintf("%s/changeVar?%s", baseURL(deviceAddr), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to contact device: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read device response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("variable update failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return parseChangeVarResponse(string(body), vars), nil
}

// parseChangeVarResponse maps the device's per-line status report onto the
// requested variable names. Lines look like:
//
//	 - ledDelay updated successfully
//	 - missing FAILED (not found or type mismatch)
func parseChangeVarResponse(body string, vars map[string]string) []models.VariableUpdateResult {
	updated := make(map[string]bool, len(vars))
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		for name := range vars {
			if strings.HasPrefix(line, name+" ") {
				updated[name] = strings.Contains(line, "updated successfully")
			}
		}
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]models.VariableUpdateResult, 0, len(names))
	for _, name := range names {
		results = append(results, models.VariableUpdateResult{
			Name:    name,
			Updated: updated[name],
		})
	}
	return results
}

// Ping probes device reachability with a GET against the device root
func (c *Client) Ping(ctx context.Context, deviceAddr string) *models.DeviceStatus {
	status := &models.DeviceStatus{
		Address:   deviceAddr,
		CheckedAt: time.Now(),
	}

	if err := c.limiter.Wait(ctx); err != nil {
		status.Error = err.Error()
		return status
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL(deviceAddr)+"/", nil)
	if err != nil {
		status.Error = err.Error()
		return status
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	status.Latency = time.Since(start)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	status.Online = resp.StatusCode < 500
	if !status.Online {
		status.Error = fmt.Sprintf("device returned status %d", resp.StatusCode)
	}
	return status
}

// LocalIP returns the outbound interface address devices can reach this
// host on. The UDP dial never sends a packet; it only resolves routing.
func LocalIP() string {
	conn, err := net.Dial("udp", "10.255.255.255:1")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()

	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}
