package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Place is a trip endpoint as the API expects it.
type Place struct {
	Address     string   `json:"address"`
	Coordinates Location `json:"coordinates"`
}

type stop struct {
	name string
	loc  Location
}

// Delivery stops around the Springfield depot
var stops = []stop{
	{"1 Depot Rd, Springfield", Location{Lat: 39.7817, Lon: -89.6501}},
	{"200 Market St, Chatham", Location{Lat: 39.6762, Lon: -89.7043}},
	{"45 Lake Ave, Decatur", Location{Lat: 39.8403, Lon: -88.9548}},
	{"9 Harbor Way, Peoria", Location{Lat: 40.6936, Lon: -89.5890}},
	{"77 College Dr, Jacksonville", Location{Lat: 39.7339, Lon: -90.2290}},
	{"12 Main St, Lincoln", Location{Lat: 40.1484, Lon: -89.3648}},
	{"300 Prairie Blvd, Bloomington", Location{Lat: 40.4842, Lon: -88.9937}},
	{"5 River Rd, Taylorville", Location{Lat: 39.5489, Lon: -89.2945}},
}

var purposes = []string{"delivery", "pickup", "service", "transfer"}

func haversineKm(a, b Location) float64 {
	R := 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return R * c
}

// APIError is a non-success envelope returned by the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d: %s", e.Status, e.Message)
}

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
}

type resource struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type vehicleResource struct {
	ID           string `json:"id"`
	LicensePlate string `json:"licensePlate"`
}

// Client talks to the AivoDrive REST API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode data: %w", err)
		}
	}
	return nil
}

// Login exchanges credentials for a token used by later calls.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return err
	}
	c.token = out.Token
	return nil
}

func (c *Client) availableDrivers(ctx context.Context) ([]resource, error) {
	var drivers []resource
	err := c.do(ctx, http.MethodGet, "/drivers?status=available&limit=100", nil, &drivers)
	return drivers, err
}

func (c *Client) activeVehicles(ctx context.Context) ([]vehicleResource, error) {
	var vehicles []vehicleResource
	err := c.do(ctx, http.MethodGet, "/vehicles?status=active&limit=100", nil, &vehicles)
	return vehicles, err
}

// Simulator drives trips through scheduled, in_progress and completed.
type Simulator struct {
	client   *Client
	rng      *rand.Rand
	maxTrips int
	tripTime time.Duration
}

func (s *Simulator) planTrip(vehicleID, driverID string) map[string]interface{} {
	from := stops[s.rng.Intn(len(stops))]
	to := stops[s.rng.Intn(len(stops))]
	for to.name == from.name {
		to = stops[s.rng.Intn(len(stops))]
	}
	return map[string]interface{}{
		"vehicleId":         vehicleID,
		"driverId":          driverID,
		"origin":            Place{Address: from.name, Coordinates: from.loc},
		"destination":       Place{Address: to.name, Coordinates: to.loc},
		"startTime":         time.Now().UTC(),
		"estimatedDistance": math.Round(haversineKm(from.loc, to.loc)*10) / 10,
		"purpose":           purposes[s.rng.Intn(len(purposes))],
	}
}

// runTrip creates one trip and walks it to completion with the given
// actual distance.
func (s *Simulator) runTrip(ctx context.Context, plan map[string]interface{}, actual float64) error {
	var trip resource
	if err := s.client.do(ctx, http.MethodPost, "/trips", plan, &trip); err != nil {
		return fmt.Errorf("create trip: %w", err)
	}
	logger := log.WithFields(log.Fields{
		"trip_id":    trip.ID,
		"vehicle_id": plan["vehicleId"],
		"driver_id":  plan["driverId"],
	})
	logger.Info("Trip scheduled")

	if err := s.client.do(ctx, http.MethodPut, "/trips/"+trip.ID, map[string]string{"status": "in_progress"}, nil); err != nil {
		return fmt.Errorf("start trip %s: %w", trip.ID, err)
	}
	logger.Info("Trip started")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.tripTime):
	}

	err := s.client.do(ctx, http.MethodPut, "/trips/"+trip.ID, map[string]interface{}{
		"status":         "completed",
		"actualDistance": actual,
	}, nil)
	if err != nil {
		return fmt.Errorf("complete trip %s: %w", trip.ID, err)
	}
	logger.WithField("distance_km", actual).Info("Trip completed")
	return nil
}

// Round pairs available drivers with active vehicles and runs one trip per
// pair concurrently. It returns the number of completed trips.
func (s *Simulator) Round(ctx context.Context) (int, error) {
	drivers, err := s.client.availableDrivers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list drivers: %w", err)
	}
	vehicles, err := s.client.activeVehicles(ctx)
	if err != nil {
		return 0, fmt.Errorf("list vehicles: %w", err)
	}

	n := len(drivers)
	if len(vehicles) < n {
		n = len(vehicles)
	}
	if s.maxTrips > 0 && s.maxTrips < n {
		n = s.maxTrips
	}
	if n == 0 {
		log.Warn("No available driver and vehicle pairs")
		return 0, nil
	}

	// plans are drawn up front; rand.Rand is not safe for concurrent use
	plans := make([]map[string]interface{}, n)
	actuals := make([]float64, n)
	for i := 0; i < n; i++ {
		plans[i] = s.planTrip(vehicles[i].ID, drivers[i].ID)
		est := plans[i]["estimatedDistance"].(float64)
		actuals[i] = math.Round(est*(0.95+s.rng.Float64()*0.2)*10) / 10
	}

	completed := make([]bool, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := s.runTrip(gctx, plans[i], actuals[i]); err != nil {
				// a conflicting dispatcher only costs this pair its trip
				log.WithError(err).Warn("Trip abandoned")
				return nil
			}
			completed[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	done := 0
	for _, ok := range completed {
		if ok {
			done++
		}
	}
	return done, ctx.Err()
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	apiURL := envString("API_BASE_URL", "http://localhost:5000/api")
	email := envString("SIM_EMAIL", "dispatcher@aivodrive.com")
	password := envString("SIM_PASSWORD", "password123")
	maxTrips := envInt("SIM_MAX_TRIPS", 3)
	tripTime := time.Duration(envInt("SIM_TRIP_SECONDS", 5)) * time.Second
	pause := time.Duration(envInt("SIM_PAUSE_SECONDS", 10)) * time.Second

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := NewClient(apiURL)
	if err := client.Login(ctx, email, password); err != nil {
		log.WithError(err).Fatal("Login failed")
	}

	sim := &Simulator{
		client:   client,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		maxTrips: maxTrips,
		tripTime: tripTime,
	}

	log.WithFields(log.Fields{
		"api_url":   apiURL,
		"max_trips": maxTrips,
		"trip_time": tripTime,
	}).Info("Starting trip simulation")

	for {
		n, err := sim.Round(ctx)
		if ctx.Err() != nil {
			log.Info("Simulation stopped")
			return
		}
		if err != nil {
			log.WithError(err).Error("Simulation round failed")
		} else {
			log.WithField("completed_trips", n).Info("Round finished")
		}

		select {
		case <-ctx.Done():
			log.Info("Simulation stopped")
			return
		case <-time.After(pause):
		}
	}
}
