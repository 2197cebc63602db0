// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_transcript

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	internal_type "github.com/rapidaai/mimic/internal/trainer/type"
	"github.com/rapidaai/mimic/pkg/commons"
)

// Fetcher retrieves and parses word-level transcripts. Fetch failures are
// degraded to an empty sequence: target audio must stay playable with zero
// transcript data, so a missing transcript is never a hard error here.
type Fetcher struct {
	logger commons.Logger
	client *resty.Client
}

// NewFetcher creates a transcript fetcher with a shared resty client.
func NewFetcher(logger commons.Logger) *Fetcher {
	client := resty.New().
		SetTimeout(15 * time.Second).
		SetHeader("Accept", "text/csv, text/plain")
	return &Fetcher{logger: logger, client: client}
}

// Fetch downloads and parses the transcript at url, returning an empty
// sequence on any transport or content failure.
func (f *Fetcher) Fetch(ctx context.Context, url string) []internal_type.TimeStamp {
	text, err := f.fetchText(ctx, url)
	if err != nil {
		f.logger.Warnf("transcript: %v, continuing without transcript", err)
		return nil
	}
	return Parse(f.logger, text)
}

func (f *Fetcher) fetchText(ctx context.Context, url string) (string, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", &internal_type.LoadError{URL: url, Err: err}
	}
	if resp.IsError() {
		return "", &internal_type.LoadError{
			URL: url,
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode()),
		}
	}
	return resp.String(), nil
}
