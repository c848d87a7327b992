//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	enterrors "github.com/weaviate/seqalloc/entities/errors"
	"github.com/weaviate/seqalloc/entities/sequence"
	usesequence "github.com/weaviate/seqalloc/usecases/sequence"
)

const (
	pathSequencesSuper = "/sequences/super"
	pathSequencesMeta  = "/sequences/meta"
)

type allocateRequest struct {
	Space string `json:"space"`
	Width uint64 `json:"width,omitempty"`
}

type allocateResponse struct {
	Space string `json:"space"`
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

type errorResponse struct {
	Error string   `json:"error"`
	Kinds []string `json:"kinds"`
}

// SequenceClient requests ranges from a remote allocation server. It
// implements the Remote of the sequence client.
type SequenceClient struct {
	client  *http.Client
	baseURL *url.URL
	logger  logrus.FieldLogger

	initialBackOff time.Duration
	maxBackOff     time.Duration
	maxRetries     uint64
}

// NewSequenceClient creates a client of the server at serverURL. A nil
// client uses http.DefaultClient.
func NewSequenceClient(serverURL string, client *http.Client, logger logrus.FieldLogger) (*SequenceClient, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server url %q must contain scheme and host", serverURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &SequenceClient{
		client:         client,
		baseURL:        u,
		logger:         logger.WithField("component", "sequence_http_client"),
		initialBackOff: defaultInitialBackOff,
		maxBackOff:     defaultMaxBackOff,
		maxRetries:     defaultMaxRetries,
	}, nil
}

// AllocateSuper asks the server for a super range of space. A zero width
// lets the server pick the width.
func (c *SequenceClient) AllocateSuper(ctx context.Context, space string, width uint64) (sequence.Range, error) {
	return c.allocate(ctx, pathSequencesSuper, allocateRequest{Space: space, Width: width})
}

// AllocateMeta asks the server for a range of the normal width of space.
func (c *SequenceClient) AllocateMeta(ctx context.Context, space string) (sequence.Range, error) {
	return c.allocate(ctx, pathSequencesMeta, allocateRequest{Space: space})
}

func (c *SequenceClient) allocate(ctx context.Context, path string, req allocateRequest) (sequence.Range, error) {
	rc := usesequence.NewRequestContext(req.Space)
	buf := rc.Buffer()
	if err := json.NewEncoder(buf).Encode(req); err != nil {
		return sequence.Range{}, fmt.Errorf("%w: marshal request: %w", sequence.ErrRemoteAllocation, err)
	}
	payload := buf.Bytes()
	u := c.baseURL.JoinPath(path)

	var granted sequence.Range
	attempt := 0
	op := func() error {
		attempt++
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("new request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")

		body, statusCode, err := c.do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}

		if statusCode != http.StatusOK {
			err := statusErr(statusCode, body)
			if statusCode == http.StatusServiceUnavailable || enterrors.IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		var res allocateResponse
		if err := json.Unmarshal(body, &res); err != nil {
			return backoff.Permanent(fmt.Errorf("unmarshal response: %w", err))
		}
		granted = sequence.Range{Space: res.Space, Start: res.Start, End: res.End}
		return nil
	}
	notify := func(err error, next time.Duration) {
		c.logger.WithFields(rc.Fields()).
			WithField("action", "sequence_remote_retry").
			WithField("attempt", attempt).
			WithField("next", next).
			WithError(err).Warn("remote allocation failed, retrying")
	}

	b := newExponentialBackoff(ctx, c.initialBackOff, c.maxBackOff, c.maxRetries)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return sequence.Range{}, fmt.Errorf("%w: %s space %q: %w", sequence.ErrRemoteAllocation, path, req.Space, err)
	}
	return granted, nil
}

func (c *SequenceClient) do(req *http.Request) (body []byte, statusCode int, err error) {
	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("make request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err = io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, httpResp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	return body, httpResp.StatusCode, nil
}

// statusErr translates a failure response back into the errors of the
// server. Without error kinds in the body only the status is interpreted.
func statusErr(statusCode int, body []byte) error {
	msg := trim(body)
	var res errorResponse
	if err := json.Unmarshal(body, &res); err == nil && res.Error != "" {
		msg = res.Error
		if cause := sequence.FromKinds(res.Kinds); cause != nil {
			return fmt.Errorf("status %d (%s): %w", statusCode, msg, cause)
		}
	}

	var cause error
	switch statusCode {
	case http.StatusNotFound:
		cause = sequence.ErrUnknownSpace
	case http.StatusRequestTimeout:
		cause = context.Canceled
	case http.StatusServiceUnavailable:
		cause = errors.New("server unavailable")
	default:
		cause = errors.New("unexpected status")
	}
	return fmt.Errorf("status %d (%s): %w", statusCode, msg, cause)
}

func trim(body []byte) string {
	return strings.TrimSpace(string(body))
}
