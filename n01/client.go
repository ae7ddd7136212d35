// Package n01 is the HTTP client for the n01darts tournament API.
package n01

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goldenstat/goldenstat/importer"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client implements importer.Source and importer.LeagueSource against the
// live API. The tournament and league endpoints live under different roots.
type Client struct {
	tournamentBase string
	leagueBase     string
	hc             *http.Client
}

// New builds a client. Pass the tournament API root (".../n01/tournament")
// and the league API root (".../n01/league").
func New(tournamentBase, leagueBase string) *Client {
	return &Client{
		tournamentBase: tournamentBase,
		leagueBase:     leagueBase,
		hc:             &http.Client{Timeout: 30 * time.Second},
	}
}

// Tournament fetches the full bracket and result data for one tdid.
func (c *Client) Tournament(ctx context.Context, tdid string) (*importer.TournamentData, error) {
	u := fmt.Sprintf("%s/n01_tournament.php?cmd=get_data&tdid=%s", c.tournamentBase, url.QueryEscape(tdid))
	var data importer.TournamentData
	if err := c.getJSON(ctx, u, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// SetData fetches the throw-level detail for one tmid. The API answers with
// an empty array for matches it has no detail for.
func (c *Client) SetData(ctx context.Context, tmid string) ([]importer.SetData, error) {
	u := fmt.Sprintf("%s/n01_online_t.php?cmd=get_setdata&tmid=%s", c.tournamentBase, url.QueryEscape(tmid))
	var sets []importer.SetData
	if err := c.getJSON(ctx, u, &sets); err != nil {
		return nil, err
	}
	return sets, nil
}

// seasonQuery is the filter the league endpoint expects. Status 40 means
// completed.
type seasonQuery struct {
	Skip      int    `json:"skip"`
	Count     int    `json:"count"`
	Keyword   string `json:"keyword"`
	Status    []int  `json:"status"`
	Sort      string `json:"sort"`
	SortOrder int    `json:"sort_order"`
}

// SeasonList lists a league's completed tournaments, newest first.
func (c *Client) SeasonList(ctx context.Context, lgid string) ([]importer.SeasonTournament, error) {
	u := fmt.Sprintf("%s/n01_league.php?cmd=get_season_list&lgid=%s", c.leagueBase, url.QueryEscape(lgid))
	body, err := json.Marshal(seasonQuery{
		Count:     500,
		Status:    []int{40},
		Sort:      "date",
		SortOrder: -1,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}
	// On errors the endpoint answers a JSON object instead of a list.
	var list []importer.SeasonTournament
	if err := json.Unmarshal(raw, &list); err != nil {
		var apiErr map[string]any
		if jsonErr := json.Unmarshal(raw, &apiErr); jsonErr == nil {
			return nil, fmt.Errorf("league %s: api error: %v", lgid, apiErr)
		}
		return nil, fmt.Errorf("league %s: decode: %w", lgid, err)
	}
	return list, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	raw, err := c.do(req)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %s", req.URL.Path, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// The API rejects requests without browser-like headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}
