package eta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/medisync/clinic-queue/internal/model"
	"github.com/medisync/clinic-queue/pkg/circuitbreaker"
)

// OSRMProvider resolves routes against an OSRM routing server.
type OSRMProvider struct {
	baseURL string
	client  *http.Client
	cb      *circuitbreaker.CircuitBreaker
}

func NewOSRMProvider(baseURL string, timeout time.Duration) *OSRMProvider {
	return &OSRMProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		cb: circuitbreaker.New(circuitbreaker.Settings{
			Name:        "osrm",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"` // meters
		Duration float64 `json:"duration"` // seconds
	} `json:"routes"`
}

// DistanceAndTime queries OSRM for the driving route. A peak-hour traffic
// multiplier is applied to the raw duration.
func (p *OSRMProvider) DistanceAndTime(ctx context.Context, origin, dest model.Location) (Route, error) {
	var route Route
	err := p.cb.Execute(func() error {
		// OSRM expects lng,lat order.
		url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=false&steps=false&alternatives=false",
			p.baseURL, origin.Longitude, origin.Latitude, dest.Longitude, dest.Latitude)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("osrm returned status %d", resp.StatusCode)
		}

		var body osrmResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fmt.Errorf("failed to decode osrm response: %w", err)
		}
		if body.Code != "Ok" || len(body.Routes) == 0 {
			return fmt.Errorf("osrm returned no route (code %s)", body.Code)
		}

		r := body.Routes[0]
		route = Route{
			DistanceKm: r.Distance / 1000,
			TravelMins: r.Duration / 60 * trafficMultiplier(time.Now()),
		}
		return nil
	})
	return route, err
}

// trafficMultiplier inflates durations during clinic peak hours.
func trafficMultiplier(now time.Time) float64 {
	hour := now.Hour()
	peak := (hour >= 9 && hour <= 11) || (hour >= 12 && hour <= 14) || (hour >= 16 && hour <= 18)
	if peak {
		return 1.3
	}
	return 1.1
}
