package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// UserAgent is sent with every outbound provider request.
const UserAgent = "heimdall/1.0"

const maxErrorBody = 512

// GetJSON issues a GET to rawURL with params merged into its query and
// decodes the JSON body into v. Non-2xx answers become a StatusError and an
// undecodable body a ShapeError; transport errors are returned as is.
func GetJSON(ctx context.Context, httpc *http.Client, rawURL string, params url.Values, v any) error {
	if httpc == nil {
		httpc = http.DefaultClient
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return ConfigErrorf("invalid provider url %q: %v", rawURL, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, val := range vs {
				q.Add(k, val)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ShapeError{Detail: "decode body", Err: err}
	}
	return nil
}
