package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

const (
	userAgent       = "mcp-auth-gateway"
	maxResponseBody = 4 << 20
)

var ErrUpstream = errors.New("upstream request failed")

// doJSON sends req and decodes a 2xx JSON body into out.
func doJSON(client *http.Client, service string, req *http.Request, out any) error {
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUpstream, service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUpstream, service, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().
			Str("service", service).
			Int("status", resp.StatusCode).
			Msg("tool upstream rejected request")
		return fmt.Errorf("%w: %s returned %d", ErrUpstream, service, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUpstream, service, err)
	}
	return nil
}
