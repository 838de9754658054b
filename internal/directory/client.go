// Package directory talks to the member directory service that owns the
// committee roster. The bot reads the roster at the start of a quiz dialogue
// and writes updated selection counters back after publishing a poll.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/clic-epfl/clicbot/internal/config"
	"github.com/clic-epfl/clicbot/internal/logger"
)

const (
	requestTimeout = 10 * time.Second

	membersPath = "/items/association_memberships?fields=member.id,member.surname,member.poll_count"
	updatePath  = "/items/members/%d"
)

// Member is one committee member as held by the directory: a display name and
// the number of times they were picked as the quiz answer.
type Member struct {
	ID        int    `json:"id"`
	Name      string `json:"surname"`
	PollCount int    `json:"poll_count"`
}

// Client fetches and updates the committee roster.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *slog.Logger
}

// New builds a directory client from configuration. The HTTP client should be
// one with retry support, such as telegram.BuildHTTPClient.
func New(cfg config.DirectoryConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: cfg.URL,
		token:   cfg.Token,
		http:    httpClient,
		log:     logger.Component("service.roster"),
	}
}

type listResponse struct {
	Data []struct {
		Member Member `json:"member"`
	} `json:"data"`
}

// Members fetches the current committee roster.
func (c *Client) Members(ctx context.Context) ([]Member, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+membersPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build roster request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch roster: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch roster: unexpected status %s", resp.Status)
	}

	var decoded listResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}

	members := make([]Member, 0, len(decoded.Data))
	for _, entry := range decoded.Data {
		members = append(members, entry.Member)
	}

	c.log.LogAttrs(ctx, slog.LevelDebug, "roster.fetched",
		slog.String("status", "ok"),
		slog.Int("count", len(members)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return members, nil
}

// SaveMembers writes updated poll counters back to the directory, one request
// per member, concurrently. Individual failures are logged and not aggregated;
// callers must not assume completion by the time this returns a response to
// the user.
func (c *Client) SaveMembers(ctx context.Context, members []Member) {
	var wg sync.WaitGroup
	for _, m := range members {
		wg.Add(1)
		go func(m Member) {
			defer wg.Done()
			if err := c.updateMember(ctx, m); err != nil {
				c.log.LogAttrs(ctx, slog.LevelError, "roster.update",
					slog.String("status", "fail"),
					slog.String("target", m.Name),
					slog.String("err", err.Error()),
				)
			}
		}(m)
	}
	wg.Wait()
}

func (c *Client) updateMember(ctx context.Context, m Member) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]int{"poll_count": m.PollCount})
	if err != nil {
		return fmt.Errorf("encode member update: %w", err)
	}
	url := c.baseURL + fmt.Sprintf(updatePath, m.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build member update: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("update member: unexpected status %s", resp.Status)
	}
	return nil
}
