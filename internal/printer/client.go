package printer

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/icholy/digest"
	"github.com/kiranshivaraju/printwatch/pkg/models"
)

// Sentinel errors for printer client failures.
var (
	ErrPrinterUnreachable = errors.New("printer unreachable")
	ErrPrinterTimeout     = errors.New("printer request timeout")
	ErrUnexpectedStatus   = errors.New("printer returned unexpected status")
	ErrMalformedResponse  = errors.New("printer returned malformed response")
)

// Column labels of the temperature_flow diagnostics endpoint, in order.
var flowColumns = []string{
	"Time",
	"temperature0", "target0", "heater0", "flow_sensor0", "flow_steps0",
	"temperature1", "target1", "heater1", "flow_sensor1", "flow_steps1",
	"bed_temperature", "bed_target", "bed_heater",
	"active_hotend_or_state",
}

// Client is the interface for querying the printer API.
type Client interface {
	StatusSnapshot(ctx context.Context) (models.StatusSnapshot, error)
	TemperatureSamples(ctx context.Context, n int) ([]models.TemperatureSample, error)
	Uptime(ctx context.Context) (time.Duration, error)
	LED(ctx context.Context) (models.LEDColor, error)
	SetLED(ctx context.Context, color models.LEDColor) error
	CameraSnapshot(ctx context.Context) ([]byte, error)
}

// HTTPClient implements Client using the printer's /api/v1 HTTP API.
type HTTPClient struct {
	baseURL   string
	cameraURL string
	client    *http.Client
	// authClient answers the digest challenge on write endpoints.
	authClient *http.Client
}

// NewHTTPClient creates a printer client. host may be a bare host name or
// address, or a full base URL ending in /api/v1.
func NewHTTPClient(host, apiID, apiKey string, timeout time.Duration) *HTTPClient {
	base := host
	hostname := host
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		if u, err := url.Parse(host); err == nil {
			hostname = u.Hostname()
		}
	} else {
		base = fmt.Sprintf("http://%s/api/v1", host)
	}

	return &HTTPClient{
		baseURL:   strings.TrimSuffix(base, "/"),
		cameraURL: fmt.Sprintf("http://%s:8080/?action=snapshot", hostname),
		client:    &http.Client{Timeout: timeout},
		authClient: &http.Client{
			Timeout:   timeout,
			Transport: &digest.Transport{Username: apiID, Password: apiKey},
		},
	}
}

// StatusSnapshot collects printer identity, setup, status and, while
// printing, the job parameters. Only a failure of printer/status is returned
// as an error; every other field degrades to models.Unknown.
func (c *HTTPClient) StatusSnapshot(ctx context.Context) (models.StatusSnapshot, error) {
	snap := models.StatusSnapshot{
		Printer: models.PrinterInfo{
			Type:     c.stringOrUnknown(ctx, "system/variant"),
			Name:     c.stringOrUnknown(ctx, "system/name"),
			Firmware: c.stringOrUnknown(ctx, "system/firmware"),
			GUID:     c.stringOrUnknown(ctx, "system/guid"),
		},
		Status:    models.StatusUnknown,
		FetchedAt: time.Now().UTC(),
	}

	var status string
	if err := c.getJSON(ctx, "printer/status", &status); err != nil {
		return snap, err
	}
	snap.Reachable = true
	snap.Status = models.ParseDeviceStatus(status)

	var heads headResponse
	headErr := c.getJSON(ctx, "printer/heads/0", &heads)
	snap.Setup = c.printSetup(ctx, heads, headErr)

	if snap.Status == models.StatusPrinting {
		snap.Job = c.jobParameters(ctx, heads, headErr)
	}

	return snap, nil
}

func (c *HTTPClient) printSetup(ctx context.Context, heads headResponse, headErr error) models.PrintSetup {
	setup := models.PrintSetup{
		Extruder0: models.Unknown,
		Material0: models.Unknown,
		Extruder1: models.Unknown,
		Material1: models.Unknown,
		BedType:   c.stringOrUnknown(ctx, "printer/bed/type"),
	}
	if headErr != nil || len(heads.Extruders) < 2 {
		return setup
	}

	setup.Extruder0 = orUnknown(heads.Extruders[0].Hotend.ID)
	setup.Extruder1 = orUnknown(heads.Extruders[1].Hotend.ID)
	setup.Material0 = c.material(ctx, heads.Extruders[0].ActiveMaterial.GUID)
	setup.Material1 = c.material(ctx, heads.Extruders[1].ActiveMaterial.GUID)
	return setup
}

// material describes a material profile as "name brand color (d mm, rho g/cm^3)".
func (c *HTTPClient) material(ctx context.Context, guid string) string {
	unknown := fmt.Sprintf("%s %s %s (%s mm, %s g/cm^3)",
		models.Unknown, models.Unknown, models.Unknown, models.Unknown, models.Unknown)
	if guid == "" {
		return unknown
	}

	var raw string
	if err := c.getJSON(ctx, "materials/"+url.PathEscape(guid), &raw); err != nil {
		return unknown
	}

	var doc fdmMaterial
	if err := xml.Unmarshal([]byte(raw), &doc); err != nil {
		return unknown
	}

	return fmt.Sprintf("%s %s %s (%s mm, %s g/cm^3)",
		orUnknown(doc.Metadata.Name.Material),
		orUnknown(doc.Metadata.Name.Brand),
		orUnknown(doc.Metadata.Name.Color),
		orUnknown(doc.Properties.Diameter),
		orUnknown(doc.Properties.Density))
}

// jobParameters fetches print_job. Missing or malformed fields default to
// models.Unknown, and progress to -1.
func (c *HTTPClient) jobParameters(ctx context.Context, heads headResponse, headErr error) *models.JobParameters {
	jp := &models.JobParameters{
		UUID:      models.Unknown,
		Name:      models.Unknown,
		Source:    models.Unknown,
		User:      models.Unknown,
		TimeStart: models.Unknown,
		JobState:  models.Unknown,
		Progress:  -1,
	}

	var bed temperaturePair
	if err := c.getJSON(ctx, "printer/bed/temperature", &bed); err == nil {
		jp.BedTemp, jp.BedTarget = bed.Current, bed.Target
	}
	if headErr == nil && len(heads.Extruders) >= 2 {
		jp.Extruder0Temp = heads.Extruders[0].Hotend.Temperature.Current
		jp.Extruder0Target = heads.Extruders[0].Hotend.Temperature.Target
		jp.Extruder1Temp = heads.Extruders[1].Hotend.Temperature.Current
		jp.Extruder1Target = heads.Extruders[1].Hotend.Temperature.Target
	}

	var job printJobResponse
	if err := c.getJSON(ctx, "print_job", &job); err != nil {
		return jp
	}

	jp.UUID = orUnknown(job.UUID)
	jp.Name = orUnknown(job.Name)
	jp.Source = orUnknown(job.Source)
	jp.User = orUnknown(job.SourceUser)
	jp.TimeStart = orUnknown(job.DatetimeStarted)
	jp.JobState = orUnknown(job.State)
	jp.ElapsedHours = job.TimeElapsed / 3600
	jp.EstimatedHours = job.TimeTotal / 3600
	if job.Progress != nil {
		jp.Progress = *job.Progress * 100
	}
	return jp
}

// TemperatureSamples returns the last n rows of the temperature flow
// diagnostics, oldest first.
func (c *HTTPClient) TemperatureSamples(ctx context.Context, n int) ([]models.TemperatureSample, error) {
	if n <= 0 {
		n = 1
	}

	var rows [][]json.RawMessage
	if err := c.getJSON(ctx, fmt.Sprintf("printer/diagnostics/temperature_flow/%d", n), &rows); err != nil {
		return []models.TemperatureSample{}, err
	}

	return parseFlowRows(rows)
}

// parseFlowRows converts the label row plus data rows into samples.
func parseFlowRows(rows [][]json.RawMessage) ([]models.TemperatureSample, error) {
	samples := []models.TemperatureSample{}
	if len(rows) < 2 {
		return samples, nil
	}

	for _, row := range rows[1:] {
		if len(row) < len(flowColumns) {
			return []models.TemperatureSample{}, fmt.Errorf("%w: flow row has %d columns, want %d",
				ErrMalformedResponse, len(row), len(flowColumns))
		}
		vals := make([]float64, len(flowColumns))
		for i := range flowColumns {
			if err := json.Unmarshal(row[i], &vals[i]); err != nil {
				return []models.TemperatureSample{}, fmt.Errorf("%w: column %s: %v",
					ErrMalformedResponse, flowColumns[i], err)
			}
		}
		samples = append(samples, models.TemperatureSample{
			Time:            vals[0],
			Extruder0Temp:   vals[1],
			Extruder0Target: vals[2],
			Extruder1Temp:   vals[6],
			Extruder1Target: vals[7],
			BedTemp:         vals[11],
			BedTarget:       vals[12],
			FlowState:       int(vals[14]),
		})
	}
	return samples, nil
}

func (c *HTTPClient) Uptime(ctx context.Context) (time.Duration, error) {
	var secs float64
	if err := c.getJSON(ctx, "system/uptime", &secs); err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func (c *HTTPClient) LED(ctx context.Context) (models.LEDColor, error) {
	var led models.LEDColor
	if err := c.getJSON(ctx, "printer/led", &led); err != nil {
		return models.LEDColor{}, err
	}
	return led, nil
}

// SetLED changes the case LED color. The endpoint requires digest auth and
// answers 204 on success.
func (c *HTTPClient) SetLED(ctx context.Context, color models.LEDColor) error {
	body, err := json.Marshal(color)
	if err != nil {
		return fmt.Errorf("encoding led color: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/printer/led", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.authClient.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: PUT printer/led status %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

// CameraSnapshot grabs a still from the printer's built-in camera stream.
func (c *HTTPClient) CameraSnapshot(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cameraURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: camera status %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	img, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyError(err)
	}
	return img, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, endpoint string, v any) error {
	u := fmt.Sprintf("%s/%s", c.baseURL, endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s status %d", ErrUnexpectedStatus, endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrMalformedResponse, endpoint, err)
	}
	return nil
}

func (c *HTTPClient) stringOrUnknown(ctx context.Context, endpoint string) string {
	var s string
	if err := c.getJSON(ctx, endpoint, &s); err != nil {
		return models.Unknown
	}
	return orUnknown(s)
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrPrinterTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrPrinterTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrPrinterUnreachable, err)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.Unknown
	}
	return s
}

// --- printer response types ---

type temperaturePair struct {
	Current float64 `json:"current"`
	Target  float64 `json:"target"`
}

type headResponse struct {
	Extruders []struct {
		Hotend struct {
			ID          string          `json:"id"`
			Temperature temperaturePair `json:"temperature"`
		} `json:"hotend"`
		ActiveMaterial struct {
			GUID string `json:"guid"`
		} `json:"active_material"`
	} `json:"extruders"`
}

type printJobResponse struct {
	Name            string   `json:"name"`
	DatetimeStarted string   `json:"datetime_started"`
	Source          string   `json:"source"`
	SourceUser      string   `json:"source_user"`
	UUID            string   `json:"uuid"`
	TimeElapsed     float64  `json:"time_elapsed"`
	TimeTotal       float64  `json:"time_total"`
	Progress        *float64 `json:"progress"`
	State           string   `json:"state"`
}

type fdmMaterial struct {
	Metadata struct {
		Name struct {
			Brand    string `xml:"brand"`
			Material string `xml:"material"`
			Color    string `xml:"color"`
		} `xml:"name"`
	} `xml:"metadata"`
	Properties struct {
		Diameter string `xml:"diameter"`
		Density  string `xml:"density"`
	} `xml:"properties"`
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
