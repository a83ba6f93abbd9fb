package probable

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/internal/venues"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

const authDomain = "Probable CLOB"

// Authenticate obtains the API credential triplet: it asks the venue to
// create one, and falls back to deriving the existing triplet when the
// wallet already registered. Concurrent callers share one flight.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.credentials().Complete() {
		return nil
	}

	_, err, _ := c.authGroup.Do("credentials", func() (any, error) {
		if err := c.deriveCredentials(ctx); err != nil {
			venues.AuthRefreshes.WithLabelValues(venueLabel, "failure").Inc()
			return nil, err
		}

		venues.AuthRefreshes.WithLabelValues(venueLabel, "success").Inc()

		return nil, nil
	})

	return err
}

func (c *Client) deriveCredentials(ctx context.Context) error {
	createPath := fmt.Sprintf("%s/auth/api-key/%d", apiPrefix, c.chainID)

	creds, createErr := c.requestCredentials(ctx, "create api key", http.MethodPost, createPath)
	if createErr != nil {
		// An already-registered wallet gets a validation rejection from
		// the create endpoint; the derive endpoint returns the existing
		// triplet.
		var ve *types.ValidationError
		if !errors.As(createErr, &ve) {
			return createErr
		}

		derivePath := fmt.Sprintf("%s/auth/derive-api-key/%d", apiPrefix, c.chainID)
		var deriveErr error
		creds, deriveErr = c.requestCredentials(ctx, "derive api key", http.MethodGet, derivePath)
		if deriveErr != nil {
			return deriveErr
		}
	}

	if !creds.Complete() {
		return &types.AuthError{
			Protocol: types.ProtocolProbable,
			Op:       "derive credentials",
			Err:      fmt.Errorf("venue returned an incomplete triplet"),
		}
	}

	c.setCredentials(creds)
	c.logger.Info("probable-credentials-derived", zap.String("api_key", creds.APIKey))

	return nil
}

// requestCredentials performs one L1 call: the wallet proves key
// ownership with a typed-data attestation and gets the triplet back.
func (c *Client) requestCredentials(ctx context.Context, op, method, path string) (venues.Credentials, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return venues.Credentials{}, fmt.Errorf("%s: rate limit wait: %w", op, err)
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	signature, err := c.signer.SignAuthAttestation(authDomain, timestamp, "0")
	if err != nil {
		return venues.Credentials{}, &types.AuthError{Protocol: types.ProtocolProbable, Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return venues.Credentials{}, fmt.Errorf("%s: create request: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "prophit/1.0")
	req.Header.Set("Prob_address", c.signer.Address().Hex())
	req.Header.Set("Prob_signature", signature)
	req.Header.Set("Prob_timestamp", timestamp)
	req.Header.Set("Prob_nonce", "0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		venues.ObserveRequest(venueLabel, op, "transport-error", time.Since(start).Seconds())
		return venues.Credentials{}, &types.TransientNetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := venues.ReadBody(resp)
	venues.ObserveRequest(venueLabel, op, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return venues.Credentials{}, &types.TransientNetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return venues.Credentials{}, venues.ClassifyStatus(types.ProtocolProbable, op, resp.StatusCode, body)
	}

	var creds venues.Credentials
	if err := json.Unmarshal(body, &creds); err != nil {
		return venues.Credentials{}, fmt.Errorf("%s: unmarshal credentials: %w", op, err)
	}

	return creds, nil
}
