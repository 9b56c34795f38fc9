package services

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"travelsync/internal/config"
	"travelsync/internal/models"
)

var (
	ErrAIUnavailable = errors.New("ai provider request failed")
	ErrEmptyPlan     = errors.New("ai provider returned an empty plan")
)

const planCacheTTL = 24 * time.Hour

// AIService talks to an OpenAI-compatible chat completions endpoint.
// The base URL and HTTP client are injectable so tests can point it at
// a local server.
type AIService struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	cache      *RedisService
}

func NewAIService(cfg *config.OpenAIConfig, cache *RedisService) *AIService {
	return &AIService{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache,
	}
}

// Wire types for the chat completions API.

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// generatedPlan is the structured reply we ask the model for.
type generatedPlan struct {
	Days []generatedDay `json:"days"`
}

type generatedDay struct {
	Day        int                  `json:"day"`
	Location   string               `json:"location"`
	Latitude   float64              `json:"latitude"`
	Longitude  float64              `json:"longitude"`
	Activities []generatedActivity `json:"activities"`
}

type generatedActivity struct {
	Name            string `json:"name"`
	Category        string `json:"category"`
	TimeOfDay       string `json:"time_of_day"`
	DurationMinutes int    `json:"duration_minutes"`
	Notes           string `json:"notes"`
}

// GeneratePlan asks the model for a structured day-by-day plan and maps
// it onto our location/activity entities. Replies are cached by request
// hash; regenerating the same trip is free.
func (s *AIService) GeneratePlan(ctx context.Context, req *models.GenerateItineraryRequest) ([]models.Location, error) {
	cacheKey := planCacheKey(req)

	if s.cache != nil {
		var cached []models.Location
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil && len(cached) > 0 {
			slog.Debug("plan cache hit", "destination", req.Destination)
			return cached, nil
		}
	}

	reply, err := s.complete(ctx, planPrompt(req))
	if err != nil {
		return nil, err
	}

	plan, err := parsePlan(reply)
	if err != nil {
		return nil, err
	}

	locations := planToLocations(plan)
	if len(locations) == 0 {
		return nil, ErrEmptyPlan
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, locations, planCacheTTL); err != nil {
			slog.Warn("failed to cache generated plan", "error", err)
		}
	}

	return locations, nil
}

// Summarize produces a short narrative for an optimized itinerary. A
// provider failure degrades to an empty summary rather than failing
// the optimization.
func (s *AIService) Summarize(ctx context.Context, itinerary *models.Itinerary) string {
	prompt := fmt.Sprintf(
		"Write two sentences summarizing this %d-day trip to %s titled %q. Plain text only.",
		itinerary.Days, itinerary.Destination, itinerary.Title,
	)
	reply, err := s.complete(ctx, prompt)
	if err != nil {
		slog.Warn("summary generation failed", "itineraryID", itinerary.ID, "error", err)
		return ""
	}
	return strings.TrimSpace(reply)
}

// StreamPlan streams raw completion text chunks to fn as they arrive.
func (s *AIService) StreamPlan(ctx context.Context, req *models.GenerateItineraryRequest, fn func(chunk string) error) error {
	body, err := json.Marshal(chatRequest{
		Model:    s.model,
		Messages: []chatMessage{{Role: "user", Content: planPrompt(req)}},
		Stream:   true,
	})
	if err != nil {
		return err
	}

	resp, err := s.post(ctx, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			return nil
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		if err := fn(chunk.Choices[0].Delta.Content); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (s *AIService) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    s.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	resp, err := s.post(ctx, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrAIUnavailable, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrAIUnavailable)
	}
	return parsed.Choices[0].Message.Content, nil
}

func (s *AIService) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d: %s", ErrAIUnavailable, resp.StatusCode, string(msg))
	}
	return resp, nil
}

func planPrompt(req *models.GenerateItineraryRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan a %d-day trip to %s.", req.Days, req.Destination)
	if len(req.Interests) > 0 {
		fmt.Fprintf(&b, " The traveler is interested in: %s.", strings.Join(req.Interests, ", "))
	}
	if req.Budget != "" {
		fmt.Fprintf(&b, " Budget level: %s.", req.Budget)
	}
	b.WriteString(` Reply with JSON only, shaped as {"days":[{"day":1,"location":"...","latitude":0,"longitude":0,` +
		`"activities":[{"name":"...","category":"sightseeing|food|museum|outdoors|shopping|nightlife",` +
		`"time_of_day":"morning|afternoon|evening","duration_minutes":60,"notes":"..."}]}]}`)
	return b.String()
}

// parsePlan tolerates models that wrap the JSON in a markdown fence.
func parsePlan(reply string) (*generatedPlan, error) {
	cleaned := strings.TrimSpace(reply)
	if idx := strings.Index(cleaned, "{"); idx > 0 {
		cleaned = cleaned[idx:]
	}
	if idx := strings.LastIndex(cleaned, "}"); idx >= 0 && idx < len(cleaned)-1 {
		cleaned = cleaned[:idx+1]
	}

	var plan generatedPlan
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return nil, fmt.Errorf("%w: unparseable plan: %v", ErrAIUnavailable, err)
	}
	return &plan, nil
}

func planToLocations(plan *generatedPlan) []models.Location {
	locations := make([]models.Location, 0, len(plan.Days))
	for _, day := range plan.Days {
		loc := models.Location{
			Name:      day.Location,
			Day:       day.Day,
			Latitude:  day.Latitude,
			Longitude: day.Longitude,
		}
		for i, act := range day.Activities {
			loc.Activities = append(loc.Activities, models.Activity{
				Name:       act.Name,
				Category:   act.Category,
				TimeOfDay:  act.TimeOfDay,
				Position:   i,
				DurationMi: act.DurationMinutes,
				Notes:      act.Notes,
			})
		}
		locations = append(locations, loc)
	}
	return locations
}

func planCacheKey(req *models.GenerateItineraryRequest) string {
	data, _ := json.Marshal(req)
	sum := sha256.Sum256(data)
	return "ai:plan:" + hex.EncodeToString(sum[:])
}
