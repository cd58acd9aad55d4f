package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	giga "github.com/dogecoinfoundation/gigaspend/pkg"
)

// interface guard ensures Client implements giga.Submitter
var _ giga.Submitter = Client{}

// NewClient returns a giga.Submitter that POSTs envelopes to the
// settlement service. Each call is a single attempt.
func NewClient(config giga.Config) Client {
	timeout := time.Duration(config.Settlement.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return Client{
		url:  strings.TrimRight(config.Settlement.URL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

type Client struct {
	url  string
	http *http.Client
}

func (c Client) Submit(ctx context.Context, envelope []byte, groupID string) (giga.SubmitResult, error) {
	target := fmt.Sprintf("%s/tx?group=%s", c.url, url.QueryEscape(groupID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(envelope))
	if err != nil {
		return giga.SubmitResult{}, fmt.Errorf("settlement request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if ctx.Err() != nil {
		return giga.SubmitResult{}, giga.NotSentError{Err: ctx.Err()}
	}

	// a request that was never completely written cannot have settled
	var written atomic.Bool
	trace := &httptrace.ClientTrace{
		WroteRequest: func(info httptrace.WroteRequestInfo) {
			if info.Err == nil {
				written.Store(true)
			}
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(ctx, trace))
	res, err := c.http.Do(req)
	if err != nil {
		if !written.Load() {
			return giga.SubmitResult{}, giga.NotSentError{Err: fmt.Errorf("settlement transport: %v", err)}
		}
		return giga.SubmitResult{}, fmt.Errorf("settlement transport: %v", err)
	}
	// we MUST read all of res.Body and call res.Close,
	// otherwise the underlying connection cannot be re-used.
	defer res.Body.Close()
	resBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return giga.SubmitResult{}, fmt.Errorf("settlement read response: %v", err)
	}
	var result giga.SubmitResult
	jsonErr := json.Unmarshal(resBytes, &result)
	if res.StatusCode != http.StatusOK {
		// the service explains rejections in the body when it can
		if jsonErr == nil && result.Error != "" {
			result.Success = false
			return result, nil
		}
		return giga.SubmitResult{}, fmt.Errorf("settlement status code: %s", res.Status)
	}
	if jsonErr != nil {
		return giga.SubmitResult{}, fmt.Errorf("settlement unmarshal response: %v | %s", jsonErr, string(resBytes))
	}
	if result.Success && result.TXID == "" {
		return giga.SubmitResult{}, fmt.Errorf("settlement accepted without a txid")
	}
	return result, nil
}
