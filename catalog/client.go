// Package catalog talks to the media server: item metadata, track lists, intro
// windows, next-episode lookups and playback reporting.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kinema-cli/kinema/aniskip"
	"github.com/kinema-cli/kinema/constant"
	"github.com/kinema-cli/kinema/history"
	"github.com/kinema-cli/kinema/log"
	"github.com/kinema-cli/kinema/network"
	"github.com/kinema-cli/kinema/session"
	"github.com/kinema-cli/kinema/stream"
	"github.com/kinema-cli/kinema/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// ErrNotFound is returned when the server does not know the requested resource.
var ErrNotFound = errors.New("not found")

// StatusError is any other non-success response.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
}

// Client is one authenticated connection to the media server.
type Client struct {
	BaseURL  string
	UserID   string
	Token    string
	DeviceID string

	// AniSkip is consulted for anime episodes without server intro data. Nil disables it.
	AniSkip *aniskip.Client

	http   *http.Client
	items  *cacher[string, Item]
	intros *cacher[string, introRecord]
}

// New builds a client. An empty token is fine for Authenticate.
func New(baseURL, userID, token, deviceID string) *Client {
	c := &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		UserID:   userID,
		Token:    token,
		DeviceID: deviceID,
		items:    newCacher[string, Item](filepath.Join(where.Cache(), "items.json"), time.Hour),
		intros:   newCacher[string, introRecord](where.Intros(), 30*24*time.Hour),
	}

	c.http = network.NewAuthorized(c.authorization())
	return c
}

func (c *Client) authorization() string {
	device, err := os.Hostname()
	if err != nil || device == "" {
		device = constant.Kinema
	}
	return stream.AuthorizationHeader(constant.ClientName, device, c.DeviceID, constant.Version, c.Token)
}

// Resolver returns a stream resolver bound to this server.
func (c *Client) Resolver(profile stream.Profile) *stream.Resolver {
	return stream.NewResolver(c.BaseURL, profile)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	return nil
}

// Authenticate logs in by name and returns the session token.
func (c *Client) Authenticate(ctx context.Context, username, password string) (AuthResult, error) {
	var res AuthResult
	err := c.do(ctx, http.MethodPost, "/Users/AuthenticateByName", nil, map[string]string{
		"Username": username,
		"Pw":       password,
	}, &res)
	if err != nil {
		return res, fmt.Errorf("authenticate: %w", err)
	}
	return res, nil
}

// Item fetches one item with its media sources.
func (c *Client) Item(ctx context.Context, id string) (Item, error) {
	if cached, ok := c.items.Get(id).Get(); ok {
		return cached, nil
	}

	var item Item
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/Users/%s/Items/%s", c.UserID, id), nil, nil, &item); err != nil {
		return item, err
	}

	if err := c.items.Set(id, item); err != nil {
		log.Warnf("cache item %s: %s", id, err)
	}

	return item, nil
}

// Tracks returns the track list of an item's first media source.
func (c *Client) Tracks(ctx context.Context, id string) (session.Tracks, error) {
	item, err := c.Item(ctx, id)
	if err != nil {
		return nil, err
	}
	return item.Tracks(), nil
}

// Title formats an item for display: "Series S01E02" and the episode name for
// episodes, the item name otherwise.
func Title(item Item) (title, subtitle string) {
	if !item.IsEpisode() {
		return item.Name, ""
	}

	return fmt.Sprintf("%s S%02dE%02d", item.SeriesName, item.ParentIndexNumber, item.IndexNumber), item.Name
}

// Descriptor builds the session descriptor for an item. The resume position
// comes from the server, or from local history when the server has none.
func (c *Client) Descriptor(ctx context.Context, id string, resume bool) (session.Descriptor, error) {
	item, err := c.Item(ctx, id)
	if err != nil {
		return session.Descriptor{}, err
	}

	title, subtitle := Title(item)
	d := session.Descriptor{
		ItemID:      item.ID,
		AccessToken: c.Token,
		Title:       title,
		Subtitle:    subtitle,
		Tracks:      mo.Some(item.Tracks()),
	}

	if len(item.MediaSources) > 0 && item.MediaSources[0].ID != "" {
		d.MediaSourceID = mo.Some(item.MediaSources[0].ID)
	}

	if resume {
		d.StartPosition = c.resumePosition(item)
	}

	return d, nil
}

func (c *Client) resumePosition(item Item) float64 {
	if item.UserData.PlaybackPositionTicks > 0 && !item.UserData.Played {
		return Seconds(item.UserData.PlaybackPositionTicks)
	}

	pos, err := history.Resume(item.ID)
	if err != nil {
		log.Warnf("history lookup: %s", err)
		return 0
	}

	return pos.OrElse(0)
}

// IntroWindow returns the opening of an episode, asking the server first and
// AniSkip second. Misses are cached too.
func (c *Client) IntroWindow(ctx context.Context, id string) (mo.Option[session.IntroWindow], error) {
	if rec, ok := c.intros.Get(id).Get(); ok {
		if rec.Found {
			return mo.Some(rec.Intro), nil
		}
		return mo.None[session.IntroWindow](), nil
	}

	window, err := c.lookupIntro(ctx, id)
	if err != nil {
		return window, err
	}

	rec := introRecord{Found: window.IsPresent(), Intro: window.OrEmpty()}
	if err := c.intros.Set(id, rec); err != nil {
		log.Warnf("cache intro %s: %s", id, err)
	}

	return window, nil
}

func (c *Client) lookupIntro(ctx context.Context, id string) (mo.Option[session.IntroWindow], error) {
	none := mo.None[session.IntroWindow]()

	var res introResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/Episode/%s/IntroTimestamps/v1", id), nil, nil, &res)
	switch {
	case err == nil:
		w := session.IntroWindow{Start: res.IntroStart, End: res.IntroEnd}
		if res.Valid && w.Valid() {
			return mo.Some(w), nil
		}
	case !errors.Is(err, ErrNotFound):
		return none, err
	}

	if c.AniSkip == nil {
		return none, nil
	}

	item, err := c.Item(ctx, id)
	if err != nil {
		return none, err
	}

	malID, ok := myAnimeListID(item)
	if !ok || item.IndexNumber <= 0 {
		return none, nil
	}

	return c.AniSkip.Opening(ctx, malID, item.IndexNumber)
}

func myAnimeListID(item Item) (int, bool) {
	raw, ok := lo.FindKeyBy(item.ProviderIDs, func(k, _ string) bool {
		return strings.EqualFold(k, "MyAnimeList")
	})
	if !ok {
		return 0, false
	}

	id, err := strconv.Atoi(item.ProviderIDs[raw])
	return id, err == nil
}

// NextEpisode returns the episode after item in its series, if any.
func (c *Client) NextEpisode(ctx context.Context, item Item) (mo.Option[session.Handoff], error) {
	none := mo.None[session.Handoff]()
	if !item.IsEpisode() {
		return none, nil
	}

	query := url.Values{
		"UserId":      {c.UserID},
		"StartItemId": {item.ID},
		"Limit":       {"2"},
	}

	var res itemsResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/Shows/%s/Episodes", item.SeriesID), query, nil, &res); err != nil {
		return none, err
	}

	if len(res.Items) < 2 || res.Items[0].ID != item.ID {
		return none, nil
	}

	next := res.Items[1]
	title, _ := Title(next)
	return mo.Some(session.Handoff{ItemID: next.ID, Title: title}), nil
}

// ReportStart tells the server playback began.
func (c *Client) ReportStart(ctx context.Context, r PlaybackReport) error {
	return c.do(ctx, http.MethodPost, "/Sessions/Playing", nil, r, nil)
}

// ReportProgress sends the current position.
func (c *Client) ReportProgress(ctx context.Context, r PlaybackReport) error {
	return c.do(ctx, http.MethodPost, "/Sessions/Playing/Progress", nil, r, nil)
}

// ReportStopped tells the server playback ended at r.PositionTicks.
func (c *Client) ReportStopped(ctx context.Context, r PlaybackReport) error {
	return c.do(ctx, http.MethodPost, "/Sessions/Playing/Stopped", nil, r, nil)
}
