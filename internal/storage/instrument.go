package storage

import (
	"context"
	"time"

	"github.com/audiokeep/audiokeep/internal/metrics"
)

// instrumentedProvider wraps a Provider and counts every backend operation
// by name and outcome.
type instrumentedProvider struct {
	inner Provider
}

// Instrument wraps p so its operations feed the storage operation counters.
func Instrument(p Provider) Provider {
	return &instrumentedProvider{inner: p}
}

var _ Provider = (*instrumentedProvider)(nil)

func record(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
		if IsNotFound(err) {
			status = "not_found"
		}
	}
	metrics.StorageOperationsTotal.WithLabelValues(operation, status).Inc()
}

func (p *instrumentedProvider) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	k, err := p.inner.Upload(ctx, key, data, contentType)
	record("Upload", err)
	return k, err
}

func (p *instrumentedProvider) Download(ctx context.Context, key string) ([]byte, error) {
	data, err := p.inner.Download(ctx, key)
	record("Download", err)
	return data, err
}

func (p *instrumentedProvider) SignedURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	url, err := p.inner.SignedURL(ctx, key, expiresIn)
	record("SignedURL", err)
	return url, err
}

func (p *instrumentedProvider) Delete(ctx context.Context, key string) error {
	err := p.inner.Delete(ctx, key)
	record("Delete", err)
	return err
}

func (p *instrumentedProvider) TestConnection(ctx context.Context) bool {
	ok := p.inner.TestConnection(ctx)
	status := "success"
	if !ok {
		status = "error"
	}
	metrics.StorageOperationsTotal.WithLabelValues("TestConnection", status).Inc()
	return ok
}
