// Package aniskip looks up community-submitted opening timestamps on AniSkip.
// It is the fallback intro source for anime episodes the media server has no
// intro data for.
package aniskip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kinema-cli/kinema/log"
	"github.com/kinema-cli/kinema/network"
	"github.com/kinema-cli/kinema/session"
	"github.com/samber/mo"
)

const DefaultBaseURL = "https://api.aniskip.com/v1/skip-times"

// Client queries AniSkip.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a client against the public API.
func New() *Client {
	return &Client{BaseURL: DefaultBaseURL, HTTP: network.Client}
}

type apiResponse struct {
	Found   bool `json:"found"`
	Results []struct {
		Interval struct {
			StartTime float64 `json:"start_time"`
			EndTime   float64 `json:"end_time"`
		} `json:"interval"`
		SkipType string `json:"skip_type"`
	} `json:"results"`
}

// Opening returns the opening of episode of the MyAnimeList entry malID.
// Service outages and unknown episodes yield None, not an error.
func (c *Client) Opening(ctx context.Context, malID, episode int) (mo.Option[session.IntroWindow], error) {
	none := mo.None[session.IntroWindow]()

	url := fmt.Sprintf("%s/%d/%d?types=op", c.BaseURL, malID, episode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return none, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return none, ctx.Err()
		}
		log.Warnf("aniskip API request failed: %v", err)
		return none, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warnf("aniskip API returned status %d", resp.StatusCode)
		return none, nil
	}

	var data apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return none, fmt.Errorf("parse aniskip response: %w", err)
	}

	if !data.Found {
		return none, nil
	}

	for _, result := range data.Results {
		if result.SkipType != "op" {
			continue
		}

		w := session.IntroWindow{Start: result.Interval.StartTime, End: result.Interval.EndTime}
		if w.Valid() {
			return mo.Some(w), nil
		}
	}

	return none, nil
}
