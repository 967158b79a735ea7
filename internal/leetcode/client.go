// Package leetcode fetches public profile and contest ratings from the LeetCode GraphQL API.
package leetcode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/portfolio-site/portfolio-api/internal/model"
)

// DefaultEndpoint is the public LeetCode GraphQL endpoint.
const DefaultEndpoint = "https://leetcode.com/graphql"

// ErrUserNotFound is returned when LeetCode has no such user.
var ErrUserNotFound = errors.New("leetcode: user not found")

const profileQuery = `
query getUserProfile($username: String!) {
  matchedUser(username: $username) {
    username
    profile {
      ranking
    }
  }
  userContestRanking(username: $username) {
    rating
    globalRanking
    totalParticipants
    topPercentage
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type profileResponse struct {
	Data struct {
		MatchedUser *struct {
			Username string `json:"username"`
			Profile  *struct {
				Ranking *int `json:"ranking"`
			} `json:"profile"`
		} `json:"matchedUser"`
		UserContestRanking *struct {
			Rating            *float64 `json:"rating"`
			GlobalRanking     *int     `json:"globalRanking"`
			TotalParticipants *int     `json:"totalParticipants"`
			TopPercentage     *float64 `json:"topPercentage"`
		} `json:"userContestRanking"`
	} `json:"data"`
}

// Client queries the LeetCode GraphQL API.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a client for endpoint, defaulting to DefaultEndpoint.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Rating returns the public ranking and contest rating for username.
func (c *Client) Rating(ctx context.Context, username string) (*model.LeetCodeRating, error) {
	body, err := json.Marshal(graphQLRequest{
		Query:     profileQuery,
		Variables: map[string]any{"username": username},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", "https://leetcode.com")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("leetcode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("LeetCode API returned %d", resp.StatusCode)
	}

	var parsed profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode leetcode response: %w", err)
	}

	user := parsed.Data.MatchedUser
	if user == nil {
		return nil, ErrUserNotFound
	}

	rating := &model.LeetCodeRating{
		Success:  true,
		Username: user.Username,
	}
	if user.Profile != nil {
		rating.Ranking = user.Profile.Ranking
	}
	if cr := parsed.Data.UserContestRanking; cr != nil {
		rating.ContestRating = cr.Rating
		rating.GlobalRanking = cr.GlobalRanking
		rating.TotalParticipants = cr.TotalParticipants
		rating.TopPercentage = cr.TopPercentage
	}
	return rating, nil
}
