package papers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/scentlab/essentia/internal/common"
)

// minPDFBytes guards against error pages saved as PDFs
const minPDFBytes = 500

// Downloader fetches paper PDFs with bounded retries
type Downloader struct {
	retries   int
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	logger    arbor.ILogger
}

// NewDownloader creates a PDF downloader
func NewDownloader(config *common.PapersConfig, logger arbor.ILogger) *Downloader {
	retries := config.DownloadRetries
	if retries <= 0 {
		retries = 2
	}
	timeout := common.ParseDuration(config.DownloadTimeout, 20*time.Second)
	return &Downloader{
		retries:   retries,
		userAgent: config.UserAgent,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Every(time.Second), 3),
		logger:    logger,
	}
}

// Download fetches a PDF, retrying once on failure. A response that is
// not a PDF or is suspiciously small counts as a failure.
func (d *Downloader) Download(ctx context.Context, pdfURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= d.retries; attempt++ {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		data, err := d.fetch(ctx, pdfURL)
		if err == nil {
			return data, nil
		}
		lastErr = err

		d.logger.Warn().
			Err(err).
			Str("url", pdfURL).
			Int("attempt", attempt).
			Msg("PDF download attempt failed")

		if attempt < d.retries {
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("download failed after %d attempts: %w", d.retries, lastErr)
}

func (d *Downloader) fetch(ctx context.Context, pdfURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "application/pdf,*/*")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "pdf") && !strings.HasSuffix(pdfURL, ".pdf") {
		return nil, fmt.Errorf("unexpected content type %q", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read failed: %w", err)
	}
	if len(data) < minPDFBytes {
		return nil, fmt.Errorf("response too small (%d bytes)", len(data))
	}
	return data, nil
}
