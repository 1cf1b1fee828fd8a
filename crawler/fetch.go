// Package crawler implements the ingestion pipeline: periodic fetch of
// configured document sources, content-hash deduplication, object-store
// upload and metadata registration.
package crawler

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/formvn/formbot/common"
)

// Fetcher downloads source documents. Certificate-verification failures are
// retried once with verification disabled: certificates of Vietnamese
// government sites expire frequently, and skipping a source for months over
// an expired certificate is worse than fetching it insecurely. The fallback
// is per-request and logged at warn level.
type Fetcher struct {
	client         *http.Client
	insecureClient *http.Client
}

// NewFetcher creates a fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	insecureTransport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	return &Fetcher{
		client:         &http.Client{Timeout: timeout},
		insecureClient: &http.Client{Timeout: timeout, Transport: insecureTransport},
	}
}

// Fetch downloads the document at url, applying the certificate fallback
// policy. Non-2xx responses are errors.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	data, err := f.fetchWith(ctx, f.client, url)
	if err != nil && isCertificateError(err) {
		common.Logger.WithField("url", url).Warn("certificate verification failed, retrying without verification")
		return f.fetchWith(ctx, f.insecureClient, url)
	}
	return data, err
}

func (f *Fetcher) fetchWith(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", url, err)
	}
	return data, nil
}

func isCertificateError(err error) bool {
	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var invalidCert x509.CertificateInvalidError
	if errors.As(err, &invalidCert) {
		return true
	}
	var hostnameErr x509.HostnameError
	return errors.As(err, &hostnameErr)
}
