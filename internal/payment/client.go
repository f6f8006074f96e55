package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/yasin2514/nest-nature-nursery-server/internal/metrics"
)

// IntentProvider creates a payment intent for an amount and currency and
// returns the opaque client secret the frontend needs to confirm payment.
type IntentProvider interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string) (string, error)
}

// Client talks to a Stripe-style payment-intents API through a circuit
// breaker so a struggling payment provider cannot pile up requests here.
type Client struct {
	http      *resty.Client
	breaker   *gobreaker.CircuitBreaker
	secretKey string
}

func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "payment-intents",
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			state := float64(0)
			switch to {
			case gobreaker.StateOpen:
				state = 1
			case gobreaker.StateHalfOpen:
				state = 2
			}
			metrics.CircuitBreakerState.WithLabelValues(name).Set(state)

			log.WithFields(log.Fields{
				"circuit": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Info("Circuit breaker state changed")
		},
	})
	metrics.CircuitBreakerState.WithLabelValues("payment-intents").Set(0)

	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetRetryCount(0), // breaker decides, not blind retries
		breaker:   cb,
		secretKey: secretKey,
	}
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

func (c *Client) CreateIntent(ctx context.Context, amountCents int64, currency string) (string, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var out intentResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bearer "+c.secretKey).
			SetFormData(map[string]string{
				"amount":                 strconv.FormatInt(amountCents, 10),
				"currency":               currency,
				"payment_method_types[]": "card",
			}).
			SetResult(&out).
			Post("/v1/payment_intents")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("payment intent request failed: %s", resp.Status())
		}
		if out.ClientSecret == "" {
			return nil, errors.New("payment intent response missing client_secret")
		}
		return out.ClientSecret, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return "", fmt.Errorf("payment provider unavailable (circuit open): %w", err)
		}
		return "", err
	}

	return result.(string), nil
}
