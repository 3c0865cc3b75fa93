package enforcer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/snc-qos/admission-core/pkg/logger"
)

// updatePayload is the JSON body posted to the enforcer for a priority
// update.
type updatePayload struct {
	DstAddr  string `json:"dstAddr"`
	SrcAddr  string `json:"srcAddr"`
	Priority int    `json:"priority"`
}

// removePayload is the JSON body posted to the enforcer for a removal.
type removePayload struct {
	DstAddr string `json:"dstAddr"`
	SrcAddr string `json:"srcAddr"`
}

// HTTPEnforcer posts priority updates and removals to each flow's
// enforcerAddr over HTTP+JSON, the transport this repo substitutes for the
// original ONC RPC NetEnforcer client (spec.md §1 marks the wire protocol
// out of scope). A single attempt is made per call; failures are logged,
// never retried — the admission verdict has already been returned by the
// time this runs.
type HTTPEnforcer struct {
	client *http.Client
}

// NewHTTPEnforcer returns an HTTPEnforcer with a bounded per-call timeout.
func NewHTTPEnforcer() *HTTPEnforcer {
	return &HTTPEnforcer{client: &http.Client{Timeout: 5 * time.Second}}
}

func (e *HTTPEnforcer) Update(ctx context.Context, enforcerAddr, dstAddr, srcAddr string, priority int) error {
	body, err := json.Marshal(updatePayload{DstAddr: dstAddr, SrcAddr: srcAddr, Priority: priority})
	if err != nil {
		return fmt.Errorf("marshal update payload: %w", err)
	}
	return e.post(ctx, enforcerAddr+"/update", body)
}

func (e *HTTPEnforcer) Remove(ctx context.Context, enforcerAddr, dstAddr, srcAddr string) error {
	body, err := json.Marshal(removePayload{DstAddr: dstAddr, SrcAddr: srcAddr})
	if err != nil {
		return fmt.Errorf("marshal remove payload: %w", err)
	}
	return e.post(ctx, enforcerAddr+"/remove", body)
}

func (e *HTTPEnforcer) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build enforcer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		logger.Warn("enforcer call failed", "url", url, "error", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warn("enforcer returned non-2xx status", "url", url, "status_code", resp.StatusCode)
		return fmt.Errorf("enforcer %s returned status %d", url, resp.StatusCode)
	}
	return nil
}
