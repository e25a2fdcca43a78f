/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package backend is the HTTP boundary to the image generation service. The service
// is opaque: given a request it eventually returns an image URL or fails.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"comicpanel/internal/domain"
	applog "comicpanel/internal/log"
)

var (
	ErrRateLimited     = errors.New("backend: rate limit exceeded, try again later")
	ErrPaymentRequired = errors.New("backend: payment required, add credits to the workspace")
	ErrNoImage         = errors.New("backend: no image generated")
)

const (
	elementPath     = "/functions/v1/generate-comic-element"
	expressionsPath = "/functions/v1/generate-facial-expressions"
)

// Client is a minimal HTTP client for the generation functions.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new backend client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// ElementRequest asks for one image layer.
type ElementRequest struct {
	ElementType      string `json:"elementType"`
	Description      string `json:"description"`
	ArtStyle         string `json:"art_style"`
	Transparent      bool   `json:"transparent"`
	CharacterDetails string `json:"character_details,omitempty"`
}

// ElementResult is the generated image reference.
type ElementResult struct {
	ImageURL    string `json:"imageUrl"`
	ElementType string `json:"elementType"`
}

// ExpressionRequest asks for a set of facial expression variants of one character.
type ExpressionRequest struct {
	CharacterDetails string `json:"character_details"`
	ArtStyle         string `json:"art_style"`
	BaseDescription  string `json:"base_description"`
}

// Expression is one generated face variant.
type Expression struct {
	Expression      string `json:"expression"`
	ImageURL        string `json:"imageUrl"`
	FullDescription string `json:"fullDescription"`
}

// WireType maps an element kind onto the service's element type names.
func WireType(k domain.Kind) string { return strings.ReplaceAll(string(k), "-", "_") }

// NewElementRequest fills a request the way the editor does: everything but
// backgrounds is generated on a transparent canvas.
func NewElementRequest(k domain.Kind, description, artStyle, characterDetails string) ElementRequest {
	return ElementRequest{
		ElementType:      WireType(k),
		Description:      description,
		ArtStyle:         artStyle,
		Transparent:      k != domain.KindBackground,
		CharacterDetails: characterDetails,
	}
}

// GenerateElement requests one image layer.
func (c *Client) GenerateElement(ctx context.Context, req ElementRequest) (ElementResult, error) {
	var res ElementResult
	if err := c.postJSON(ctx, elementPath, req, &res); err != nil {
		return ElementResult{}, err
	}
	if res.ImageURL == "" {
		return ElementResult{}, ErrNoImage
	}
	return res, nil
}

// GenerateExpressions requests face variants. Variants the service failed to produce are absent.
func (c *Client) GenerateExpressions(ctx context.Context, req ExpressionRequest) ([]Expression, error) {
	var env struct {
		Expressions []Expression `json:"expressions"`
	}
	if err := c.postJSON(ctx, expressionsPath, req, &env); err != nil {
		return nil, err
	}
	if env.Expressions == nil {
		return nil, ErrNoImage
	}
	return env.Expressions, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, dest any) error {
	l := applog.WithOperation(applog.WithComponent("backend"), "post").With(slog.String("path", path))
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		l.Warn("request failed", slog.Any("err", err))
		return err
	}
	defer resp.Body.Close()
	l.Debug("response", slog.Int("status", resp.StatusCode), slog.Duration("took", time.Since(start)))
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusPaymentRequired:
		return ErrPaymentRequired
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("server %s %s: %s", http.MethodPost, u.Path, serverMessage(resp))
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// serverMessage prefers the {"error": "..."} body the functions send.
func serverMessage(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		return e.Error
	}
	return resp.Status
}
