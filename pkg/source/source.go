package source

import (
	"fmt"
	"log"
	"time"

	"github.com/xhad/ragchat/internal/types"
)

const (
	KindWikipedia = "wikipedia"
	KindWebsite   = "website"
	KindDirectory = "directory"
)

// Config selects and configures one document source.
type Config struct {
	Kind string

	// wikipedia
	Topics       []string
	WikipediaURL string

	// website
	BaseURL           string
	MaxDepth          int
	IgnorePatterns    []string
	AllowedExtensions []string

	// directory
	Dir string

	RateLimit  float64 // requests per second
	Timeout    time.Duration
	Logger     *log.Logger
	OnProgress func(item string)
}

// New builds the source named by config.Kind. An empty kind selects
// Wikipedia.
func New(config Config) (types.Source, error) {
	switch config.Kind {
	case "", KindWikipedia:
		return NewWikipedia(WikipediaConfig{
			Topics:     config.Topics,
			BaseURL:    config.WikipediaURL,
			RateLimit:  config.RateLimit,
			Timeout:    config.Timeout,
			Logger:     config.Logger,
			OnProgress: config.OnProgress,
		}), nil
	case KindWebsite:
		website, err := NewWebsite(WebsiteConfig{
			BaseURL:           config.BaseURL,
			MaxDepth:          config.MaxDepth,
			RateLimit:         config.RateLimit,
			IgnorePatterns:    config.IgnorePatterns,
			AllowedExtensions: config.AllowedExtensions,
			Timeout:           config.Timeout,
			Logger:            config.Logger,
			OnProgress:        config.OnProgress,
		})
		if err != nil {
			return nil, err
		}
		return website, nil
	case KindDirectory:
		directory, err := NewDirectory(DirectoryConfig{
			Dir:        config.Dir,
			Logger:     config.Logger,
			OnProgress: config.OnProgress,
		})
		if err != nil {
			return nil, err
		}
		return directory, nil
	default:
		return nil, types.Configf("source", "unknown source kind %q", config.Kind)
	}
}

func loggerOrDefault(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.Default()
	}
	return logger
}

func statusError(status int, target string) error {
	return fmt.Errorf("received status code %d for URL: %s", status, target)
}
