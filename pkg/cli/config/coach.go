package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/urfave/cli/v3"

	"github.com/everlift-app/everlift/pkg/service/coach"
	"github.com/everlift-app/everlift/pkg/utils/logging"
)

// Coach holds CLI flags for the coaching backend
type Coach struct {
	mode          string
	baseURL       string
	coachName     string
	timeout       time.Duration
	geminiProject string
	geminiRegion  string
}

// Flags returns CLI flags for coach backend configuration
func (c *Coach) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "coach-backend",
			Usage:       "Coach backend type (remote or local)",
			Value:       "remote",
			Sources:     cli.EnvVars("EVERLIFT_COACH_BACKEND"),
			Destination: &c.mode,
		},
		&cli.StringFlag{
			Name:        "coach-url",
			Usage:       "Base URL of the remote coaching backend (required when using remote backend)",
			Sources:     cli.EnvVars("EVERLIFT_COACH_URL"),
			Destination: &c.baseURL,
		},
		&cli.StringFlag{
			Name:        "coach-name",
			Usage:       "Coach persona identifier forwarded to the backend",
			Value:       "default",
			Sources:     cli.EnvVars("EVERLIFT_COACH_NAME"),
			Destination: &c.coachName,
		},
		&cli.DurationFlag{
			Name:        "coach-timeout",
			Usage:       "Per-request timeout for the remote backend",
			Value:       30 * time.Second,
			Sources:     cli.EnvVars("EVERLIFT_COACH_TIMEOUT"),
			Destination: &c.timeout,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for the local Gemini-backed coach",
			Sources:     cli.EnvVars("EVERLIFT_GEMINI_PROJECT"),
			Destination: &c.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for the local Gemini-backed coach",
			Value:       "us-central1",
			Sources:     cli.EnvVars("EVERLIFT_GEMINI_LOCATION"),
			Destination: &c.geminiRegion,
		},
	}
}

// CoachName returns the configured coach persona identifier
func (c *Coach) CoachName() string {
	return c.coachName
}

// LogAttrs returns log attributes for the coach configuration
func (c *Coach) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("mode", c.mode),
		slog.String("base_url", c.baseURL),
		slog.String("coach", c.coachName),
	}
}

// Configure builds the coach backend from the configured flags. The local
// backend runs the deterministic coaching loop in-process, optionally over a
// Gemini client for free-form replies.
func (c *Coach) Configure(ctx context.Context) (coach.Backend, error) {
	switch c.mode {
	case "remote":
		if c.baseURL == "" {
			return nil, goerr.New("coach-url is required when using remote backend")
		}
		logging.Default().Info("Using remote coach backend", "base_url", c.baseURL)
		return coach.NewClient(c.baseURL, coach.WithTimeout(c.timeout)), nil

	case "local":
		var llm gollem.LLMClient
		if c.geminiProject != "" {
			client, err := gemini.New(ctx, c.geminiProject, c.geminiRegion)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to create Gemini client")
			}
			llm = client
			logging.Default().Info("Using local coach backend with Gemini",
				"project_id", c.geminiProject,
				"location", c.geminiRegion,
			)
		} else {
			logging.Default().Info("Using local coach backend (canned replies only)")
		}
		return coach.NewLocal(llm), nil

	default:
		return nil, goerr.New("invalid coach backend", goerr.V("backend", c.mode))
	}
}
