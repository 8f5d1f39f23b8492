// Package client is an HTTP client for a dbasesrv instance, used by
// dbasectl and suitable for embedding in other tooling.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/frame-lab/dbaserh/dbase"
	"github.com/frame-lab/dbaserh/server"
	"github.com/frame-lab/dbaserh/spectrum"
)

// Client talks to the HTTP interface of one detector
type Client struct {
	base string

	http *http.Client
}

// New returns a client for the detector served at base,
// e.g. http://localhost:8000/dbase
func New(base string) *Client {
	base = strings.TrimSuffix(base, "/")
	// acquisitions block for their full realtime, so no client timeout
	return &Client{base: base, http: &http.Client{}}
}

func (c *Client) get(path string, query url.Values, out interface{}) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	resp, err := c.http.Get(u)
	if err != nil {
		return errors.Wrap(err, "contacting dbasesrv")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) post(path string, body interface{}) error {
	buf := &bytes.Buffer{}
	if body != nil {
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return err
		}
	}
	resp, err := c.http.Post(c.base+path, "application/json", buf)
	if err != nil {
		return errors.Wrap(err, "contacting dbasesrv")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	if resp.StatusCode == http.StatusLocked {
		return errors.New("detector is locked, an acquisition is in progress")
	}
	msg, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("dbasesrv returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
}

// Status fetches the detector status snapshot
func (c *Client) Status() (dbase.Status, error) {
	var st dbase.Status
	err := c.get("/status", nil, &st)
	return st, err
}

// HVOn turns the high voltage on
func (c *Client) HVOn() error {
	return c.post("/hv/on", nil)
}

// HVOff turns the high voltage off
func (c *Client) HVOff() error {
	return c.post("/hv/off", nil)
}

// SetHV sets the high voltage target in volts
func (c *Client) SetHV(volts int) error {
	return c.post("/hv", server.IntT{Int: volts})
}

// SetFineGain sets the fine gain
func (c *Client) SetFineGain(gain float64) error {
	return c.post("/fine-gain", server.FloatT{F64: gain})
}

// SetPulseWidth sets the pulse width in microseconds
func (c *Client) SetPulseWidth(us float64) error {
	return c.post("/pulse-width", server.FloatT{F64: us})
}

// SetLock locks or unlocks the detector routes
func (c *Client) SetLock(locked bool) error {
	return c.post("/lock", server.BoolT{Bool: locked})
}

// Calibrate fits and installs a calibration from reference points
func (c *Client) Calibrate(channels, energies []float64) (spectrum.Calibration, error) {
	body := struct {
		Channels []float64 `json:"channels"`
		Energies []float64 `json:"energies"`
	}{channels, energies}
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		return spectrum.Calibration{}, err
	}
	resp, err := c.http.Post(c.base+"/calibration", "application/json", buf)
	if err != nil {
		return spectrum.Calibration{}, errors.Wrap(err, "contacting dbasesrv")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return spectrum.Calibration{}, decodeError(resp)
	}
	var cal spectrum.Calibration
	err = json.NewDecoder(resp.Body).Decode(&cal)
	return cal, err
}

func secondsQuery(seconds float64) url.Values {
	q := url.Values{}
	if seconds > 0 {
		q.Set("seconds", fmt.Sprintf("%g", seconds))
	}
	return q
}

// List runs a listmode acquisition and returns the raw samples.
// The call blocks for the duration of the measurement.
func (c *Client) List(seconds float64) ([]dbase.Sample, error) {
	var samples []dbase.Sample
	err := c.get("/acquire/list", secondsQuery(seconds), &samples)
	return samples, err
}

// Count runs an acquisition and returns the channel histogram
func (c *Client) Count(seconds float64) (spectrum.Spectrum, error) {
	var s spectrum.Spectrum
	err := c.get("/acquire/count", secondsQuery(seconds), &s)
	return s, err
}

// Spectrum runs an acquisition and returns the energy-calibrated histogram
func (c *Client) Spectrum(seconds float64) (spectrum.Spectrum, error) {
	var s spectrum.Spectrum
	err := c.get("/acquire/spectrum", secondsQuery(seconds), &s)
	return s, err
}
