package fetchimg

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/caffeineduck/fetchimg/fetch"
	"github.com/caffeineduck/fetchimg/naming"
	"github.com/caffeineduck/fetchimg/store"
)

// DefaultDir is where images are saved, relative to the working directory.
const DefaultDir = "Fetched_Images"

type Config struct {
	Dir  string
	HTTP fetch.Config
}

func DefaultConfig() Config {
	return Config{
		Dir: DefaultDir,
		HTTP: fetch.Config{
			MaxBodySize:    fetch.DefaultMaxBodySize,
			MaxURLLength:   fetch.DefaultMaxURLLength,
			RequestTimeout: fetch.DefaultRequestTimeout,
			UserAgent:      fetch.DefaultUserAgent,
		},
	}
}

// Result describes a saved image.
type Result struct {
	URL string
	// FinalURL is where the image was served from after redirects.
	FinalURL    string
	Path        string
	Name        string
	Size        int64
	ContentType string
	// Format, Width and Height are filled in when the payload decodes as a
	// known raster format. They are informational only.
	Format   string
	Width    int
	Height   int
	Duration time.Duration
}

// Run downloads rawURL and saves it into cfg.Dir. Nothing is written to
// disk, not even the directory, unless the download succeeds.
func Run(ctx context.Context, rawURL string, cfg Config) (Result, error) {
	start := time.Now()
	log := zerolog.Ctx(ctx)

	if cfg.Dir == "" {
		cfg.Dir = DefaultDir
	}

	rawURL = strings.TrimSpace(rawURL)
	if _, err := fetch.ParseURL(rawURL, cfg.HTTP.MaxURLLength); err != nil {
		return Result{}, invalidInput(err)
	}

	log.Debug().Str("url", rawURL).Msg("Fetching")
	payload, err := fetch.New(cfg.HTTP).Get(ctx, rawURL)
	if err != nil {
		return Result{}, network(err)
	}
	log.Debug().
		Int("status", payload.Status).
		Str("content_type", payload.ContentType).
		Int("bytes", len(payload.Body)).
		Msg("Fetched")

	if !payload.IsImage() {
		log.Warn().Str("content_type", payload.ContentType).Msg("Response is not labelled as an image, saving anyway")
	}

	dir, err := store.Open(cfg.Dir)
	if err != nil {
		return Result{}, fileSystem(err)
	}

	candidate := naming.Resolve(rawURL, payload.ContentType)
	name, err := dir.Unique(candidate)
	if err != nil {
		return Result{}, fileSystem(err)
	}
	if name != candidate {
		log.Debug().Str("wanted", candidate).Str("chosen", name).Msg("Filename taken, using suffix")
	}

	path, err := dir.Save(name, payload.Body)
	if err != nil {
		return Result{}, fileSystem(err)
	}

	result := Result{
		URL:         rawURL,
		FinalURL:    payload.URL,
		Path:        path,
		Name:        name,
		Size:        int64(len(payload.Body)),
		ContentType: payload.ContentType,
		Duration:    time.Since(start),
	}
	result.Format, result.Width, result.Height = probe(payload.Body)

	log.Debug().Str("path", path).Dur("duration", result.Duration).Msg("Saved")
	return result, nil
}
