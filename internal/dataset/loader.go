package dataset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/climsips/internal/config"
)

// Loader reads bundles from local files or http(s) URLs. Sources ending in .zst are
// zstd-compressed. Loaded bundles are memoized in the loader's cache.
type Loader struct {
	client *resty.Client
	cache  *Cache
}

func NewLoader(cfg config.DataEnvConfig) *Loader {
	retry := retryablehttp.NewClient()
	retry.RetryMax = cfg.HTTPRetries
	retry.HTTPClient.Timeout = cfg.HTTPTimeout
	retry.RetryWaitMin = 500 * time.Millisecond
	retry.RetryWaitMax = 10 * time.Second
	retry.Logger = nil

	client := resty.NewWithClient(retry.StandardClient()).
		SetHeader("Accept", "application/json").
		SetHeader("Accept-Encoding", "zstd")

	return &Loader{
		client: client,
		cache:  NewCache(cfg.CacheSize),
	}
}

func (l *Loader) Cache() *Cache {
	return l.cache
}

// Load returns the validated bundle at source.
func (l *Loader) Load(ctx context.Context, source string) (*Bundle, error) {
	if b, ok := l.cache.Get(source); ok {
		log.Debug().Str("source", source).Msg("bundle served from cache")
		return b, nil
	}

	data, err := l.read(ctx, source)
	if err != nil {
		return nil, err
	}
	b, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	log.Info().
		Str("source", source).
		Int("members", b.Len()).
		Str("ensemble", b.Ensemble).
		Str("season_region", b.SeasonRegion).
		Msg("bundle loaded")
	l.cache.Put(source, b)
	return b, nil
}

// LoadPredictors reads a predictor file from source. Predictor files are not cached.
func (l *Loader) LoadPredictors(ctx context.Context, source string) (*PredictorFile, error) {
	data, err := l.read(ctx, source)
	if err != nil {
		return nil, err
	}
	pf, err := DecodePredictors(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return pf, nil
}

func (l *Loader) read(ctx context.Context, source string) ([]byte, error) {
	var (
		data       []byte
		compressed = strings.HasSuffix(source, ".zst")
		err        error
	)

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		resp, err := l.client.R().SetContext(ctx).Get(source)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", source, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("fetch %s returned status %d", source, resp.StatusCode())
		}
		data = resp.Body()
		if strings.Contains(strings.ToLower(resp.Header().Get("Content-Encoding")), "zstd") {
			compressed = true
		}
	} else {
		data, err = os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", source, err)
		}
	}

	if !compressed {
		return data, nil
	}

	r, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zstd: failed to create reader: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("zstd: failed to decompress %s: %w", source, err)
	}
	return out, nil
}

// Compress zstd-encodes data, for writing .zst bundles.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("zstd: failed to create writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("zstd: failed to compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zstd: failed to finish stream: %w", err)
	}
	return buf.Bytes(), nil
}
