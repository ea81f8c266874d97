package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrVerificationFailed is returned when the upstream provider rejects the
// proof or the proof belongs to a different account.
var ErrVerificationFailed = errors.New("identity verification failed")

// Verifier checks a proof-of-identity against an upstream provider before
// any account is touched.
type Verifier interface {
	Verify(ctx context.Context, userID, proof string) error
}

// HTTPVerifier verifies a proof by asking the provider's profile endpoint
// who the proof belongs to and comparing the returned id with the claimed
// one.
type HTTPVerifier struct {
	endpoint string
	client   *http.Client
}

// NewHTTPVerifier creates a verifier against the given profile endpoint
func NewHTTPVerifier(endpoint string) *HTTPVerifier {
	return &HTTPVerifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify checks the proof with the upstream provider
func (v *HTTPVerifier) Verify(ctx context.Context, userID, proof string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		v.endpoint+"?access_token="+url.QueryEscape(proof), nil)
	if err != nil {
		return fmt.Errorf("failed to build verification request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("verification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ErrVerificationFailed
	}

	var profile struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return fmt.Errorf("failed to decode verification response: %w", err)
	}
	if profile.ID != userID {
		return ErrVerificationFailed
	}
	return nil
}

// Insecure accepts every proof. Development only.
type Insecure struct{}

// Verify always succeeds
func (Insecure) Verify(context.Context, string, string) error { return nil }
