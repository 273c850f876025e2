package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmylchreest/usercheck/internal/httpclient"
	"github.com/jmylchreest/usercheck/internal/models"
)

// GitHubDriver checks GitHub's users API directly rather than scraping
// the profile page, so followers/following counts come back as typed
// integers (§4.F, spec scenario S5).
type GitHubDriver struct {
	Deps  Deps
	Token string // optional, raises GitHub's unauthenticated rate limit
}

func (g GitHubDriver) Check(ctx context.Context, username string, p models.Provider) models.Result {
	start := time.Now()
	url := fmt.Sprintf("https://api.github.com/users/%s", username)

	headers := map[string]string{"Accept": "application/vnd.github+json"}
	if g.Token != "" {
		headers["Authorization"] = "Bearer " + g.Token
	}
	reqProvider := p
	reqProvider.Headers = headers

	fr := g.Deps.fetch(ctx, "GET", url, reqProvider, httpclient.MaxJSONBodyBytes)
	result := models.Result{Provider: p.Name, URL: url, HTTPStatus: fr.statusCode}

	if fr.transport != nil {
		result.Status = models.StatusError
		result.Error = fr.transport.Error()
		result.ElapsedMs = time.Since(start).Milliseconds()
		return result
	}

	switch fr.statusCode {
	case 404:
		result.Status = models.StatusNotFound
	case 403:
		result.Status = models.StatusBlocked
		result.Error = "rate_limited"
	case 200:
		var body struct {
			Name      string `json:"name"`
			Bio       string `json:"bio"`
			AvatarURL string `json:"avatar_url"`
			Followers int    `json:"followers"`
			Following int    `json:"following"`
			CreatedAt string `json:"created_at"`
		}
		if err := json.Unmarshal(fr.body, &body); err != nil {
			result.Status = models.StatusUnknown
			result.Error = "parse error"
		} else {
			result.Status = models.StatusFound
			result.Profile = models.Profile{
				DisplayName: body.Name,
				Bio:         body.Bio,
				AvatarURL:   body.AvatarURL,
				Followers:   intPtr(body.Followers),
				Following:   intPtr(body.Following),
				CreatedAt:   body.CreatedAt,
			}
		}
	default:
		result.Status = models.StatusUnknown
	}

	result.ElapsedMs = time.Since(start).Milliseconds()
	return result
}

// RedditDriver checks Reddit's public .json about endpoint, which
// avoids the HTML interstitials Reddit shows to unauthenticated
// scrapers on the human-facing profile page (§4.F).
type RedditDriver struct {
	Deps Deps
}

func (r RedditDriver) Check(ctx context.Context, username string, p models.Provider) models.Result {
	start := time.Now()
	url := fmt.Sprintf("https://www.reddit.com/user/%s/about.json", username)

	fr := r.Deps.fetch(ctx, "GET", url, p, httpclient.MaxJSONBodyBytes)
	result := models.Result{Provider: p.Name, URL: url, HTTPStatus: fr.statusCode}

	if fr.transport != nil {
		result.Status = models.StatusError
		result.Error = fr.transport.Error()
		result.ElapsedMs = time.Since(start).Milliseconds()
		return result
	}

	switch fr.statusCode {
	case 404:
		result.Status = models.StatusNotFound
	case 429:
		result.Status = models.StatusBlocked
		result.Error = "rate_limited"
	case 200:
		var body struct {
			Data struct {
				Name         string `json:"name"`
				IconImg      string `json:"icon_img"`
				SubredditObj struct {
					PublicDescription string `json:"public_description"`
				} `json:"subreddit"`
				TotalKarma int   `json:"total_karma"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		}
		if err := json.Unmarshal(fr.body, &body); err != nil || body.Data.Name == "" {
			result.Status = models.StatusNotFound
		} else {
			result.Status = models.StatusFound
			result.Profile = models.Profile{
				DisplayName: body.Data.Name,
				AvatarURL:   body.Data.IconImg,
				Bio:         body.Data.SubredditObj.PublicDescription,
				Subscribers: intPtr(body.Data.TotalKarma),
			}
		}
	default:
		result.Status = models.StatusUnknown
	}

	result.ElapsedMs = time.Since(start).Milliseconds()
	return result
}

// HIBPDriver checks Have I Been Pwned's breach API for an account
// (email or username-derived identifier), mapping it into the same
// {found, not_found, blocked, error} vocabulary as any other provider
// (§1 "Breach-data provider response parsing beyond treating it as one
// more provider implementation" — explicitly in-scope as a driver).
type HIBPDriver struct {
	Deps  Deps
	Token string
}

func (h HIBPDriver) Check(ctx context.Context, username string, p models.Provider) models.Result {
	start := time.Now()
	url := fmt.Sprintf("https://haveibeenpwned.com/api/v3/breachedaccount/%s", username)

	reqProvider := p
	if h.Token != "" {
		reqProvider.Headers = map[string]string{"hibp-api-key": h.Token}
	}

	fr := h.Deps.fetch(ctx, "GET", url, reqProvider, httpclient.MaxJSONBodyBytes)
	result := models.Result{Provider: p.Name, URL: url, HTTPStatus: fr.statusCode}

	if fr.transport != nil {
		result.Status = models.StatusError
		result.Error = fr.transport.Error()
		result.ElapsedMs = time.Since(start).Milliseconds()
		return result
	}

	switch fr.statusCode {
	case 404:
		result.Status = models.StatusNotFound
	case 401:
		result.Status = models.StatusBlocked
		result.Error = "api_key_required"
	case 429:
		result.Status = models.StatusBlocked
		result.Error = "rate_limited"
	case 200:
		var breaches []struct {
			Name string `json:"Name"`
		}
		if err := json.Unmarshal(fr.body, &breaches); err != nil {
			result.Status = models.StatusUnknown
		} else {
			result.Status = models.StatusFound
			result.Profile = models.Profile{
				Bio: fmt.Sprintf("%d known breach(es)", len(breaches)),
			}
		}
	default:
		result.Status = models.StatusUnknown
	}

	result.ElapsedMs = time.Since(start).Milliseconds()
	return result
}

func intPtr(n int) *int { return &n }
