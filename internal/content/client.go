// Package content talks to the headless CMS that hosts subtopic videos and
// quiz questions.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/p-n-ai/pai-quest/internal/catalog"
)

// Client fetches subtopic content from a Strapi-style REST API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a CMS client. token may be empty for public CMS instances.
func NewClient(baseURL, token string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("CMS base URL is required (LEARN_CMS_URL)")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

type cmsVideo struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	VideoURL string `json:"video_url"`
	Duration int    `json:"duration"`
}

type cmsQuiz struct {
	ID        int               `json:"id"`
	Questions []cmsQuizQuestion `json:"questions"`
}

type cmsQuizQuestion struct {
	Question      string `json:"question"`
	OptionA       string `json:"optionA"`
	OptionB       string `json:"optionB"`
	OptionC       string `json:"optionC"`
	OptionD       string `json:"optionD"`
	CorrectOption string `json:"correctOption"`
	Explanation   string `json:"explanation"`
}

// FetchVideos returns the videos of the subtopic with the given CMS id, in CMS order.
func (c *Client) FetchVideos(ctx context.Context, contentID int) ([]catalog.Video, error) {
	var resp listResponse[cmsVideo]
	if err := c.list(ctx, "videos", contentID, &resp); err != nil {
		return nil, err
	}

	videos := make([]catalog.Video, 0, len(resp.Data))
	for i, v := range resp.Data {
		title := v.Title
		if title == "" {
			title = fmt.Sprintf("Video %d", i+1)
		}
		videos = append(videos, catalog.Video{
			ID:       fmt.Sprintf("video-%d", v.ID),
			Title:    title,
			URL:      v.VideoURL,
			Duration: v.Duration,
			Order:    i,
		})
	}
	return videos, nil
}

// FetchQuestions returns every question of every quiz attached to the subtopic.
func (c *Client) FetchQuestions(ctx context.Context, contentID int) ([]catalog.Question, error) {
	var resp listResponse[cmsQuiz]
	if err := c.list(ctx, "quizzes", contentID, &resp); err != nil {
		return nil, err
	}

	var questions []catalog.Question
	for _, quiz := range resp.Data {
		for i, q := range quiz.Questions {
			correct := catalog.OptionIndex(q.CorrectOption)
			if correct < 0 {
				correct = 0
			}
			questions = append(questions, catalog.Question{
				ID:          fmt.Sprintf("question-%d-%d", quiz.ID, i),
				Prompt:      q.Question,
				Options:     []string{q.OptionA, q.OptionB, q.OptionC, q.OptionD},
				Correct:     correct,
				Explanation: q.Explanation,
			})
		}
	}
	return questions, nil
}

func (c *Client) list(ctx context.Context, collection string, contentID int, out any) error {
	q := url.Values{
		"filters[subtopic][id][$eq]": {strconv.Itoa(contentID)},
		"populate":                   {"*"},
	}
	endpoint := fmt.Sprintf("%s/api/%s?%s", c.baseURL, collection, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating CMS request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s for subtopic %d: %w", collection, contentID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("CMS API error %d for %s: %s", resp.StatusCode, collection, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding CMS %s response: %w", collection, err)
	}
	return nil
}
