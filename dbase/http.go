package dbase

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/frame-lab/dbaserh/generichttp"
	"github.com/frame-lab/dbaserh/server/middleware/locker"
	"github.com/frame-lab/dbaserh/spectrum"
)

// RunRecorder accepts the metadata of a completed acquisition, e.g. to
// append it to a run log.  Implementations must be safe for use from HTTP
// handlers.
type RunRecorder interface {
	RecordRun(Run) error
}

// HTTPWrapper provides an HTTP interface on top of the detector driver.
// The detector is a single sequential device, so the wrapper locks its
// routes (HTTP 423) while an acquisition is in progress.
type HTTPWrapper struct {
	d *DBase

	// Lock guards the route table during acquisitions
	Lock *locker.Locker

	// acqMu serializes acquisitions.  The Locker only bounces requests
	// that arrive while the flag is set; two acquires passing the check
	// in the same instant still need mutual exclusion on the device.
	acqMu sync.Mutex

	// Recorder, if not nil, is handed the metadata of each completed
	// acquisition
	Recorder RunRecorder

	// RouteTable maps method-path pairs to HTTP handlers
	RouteTable generichttp.RouteTable
}

// NewHTTPWrapper returns a new HTTP wrapper with the route table pre-configured
func NewHTTPWrapper(d *DBase) *HTTPWrapper {
	w := &HTTPWrapper{d: d, Lock: locker.New()}
	rt := generichttp.RouteTable{}
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/hv"}] = generichttp.GetInt(d.HVTarget)
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/hv"}] = generichttp.SetInt(d.SetHV)
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/hv/on"}] = w.HVOn
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/hv/off"}] = w.HVOff

	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/fine-gain"}] = generichttp.GetFloat(d.FineGain)
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/fine-gain"}] = generichttp.SetFloat(d.SetFineGain)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/pulse-width"}] = generichttp.GetFloat(d.PulseWidth)
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/pulse-width"}] = generichttp.SetFloat(d.SetPulseWidth)

	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/gain-stabilization"}] = generichttp.GetBool(w.gsOn)
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/gain-stabilization"}] = generichttp.SetBool(d.GSOn, d.GSOff)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/zero-stabilization"}] = generichttp.GetBool(w.zsOn)
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/zero-stabilization"}] = generichttp.SetBool(d.ZSOn, d.ZSOff)

	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/status"}] = w.Status
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/calibration"}] = w.GetCalibration
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/calibration"}] = w.SetCalibration

	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/start"}] = w.Start
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/stop"}] = w.Stop
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/clear"}] = w.Clear

	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/acquire/list"}] = w.AcquireList
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/acquire/count"}] = w.AcquireCount
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/acquire/spectrum"}] = w.AcquireSpectrum
	w.RouteTable = rt
	locker.Inject(w, w.Lock)
	return w
}

// RT satisfies generichttp.HTTPer
func (h *HTTPWrapper) RT() generichttp.RouteTable {
	return h.RouteTable
}

func (h *HTTPWrapper) gsOn() (bool, error) {
	st, err := h.d.Status()
	return st.GainStabilization, err
}

func (h *HTTPWrapper) zsOn() (bool, error) {
	st, err := h.d.Status()
	return st.ZeroStabilization, err
}

// HVOn turns the high voltage on over HTTP
func (h *HTTPWrapper) HVOn(w http.ResponseWriter, r *http.Request) {
	if err := h.d.HVOn(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HVOff turns the high voltage off over HTTP
func (h *HTTPWrapper) HVOff(w http.ResponseWriter, r *http.Request) {
	if err := h.d.HVOff(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Start begins a measurement over HTTP
func (h *HTTPWrapper) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Start(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Stop ends a measurement over HTTP
func (h *HTTPWrapper) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Stop(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Clear clears all presets over HTTP
func (h *HTTPWrapper) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.d.ClearAll(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Status returns the driver status snapshot as JSON
func (h *HTTPWrapper) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.d.Status()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GetCalibration returns the channel -> energy calibration as JSON
func (h *HTTPWrapper) GetCalibration(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.d.Calibration()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type calibrationPoints struct {
	Channels []float64 `json:"channels"`

	Energies []float64 `json:"energies"`
}

// SetCalibration fits and installs a calibration from reference
// (channel, energy) pairs posted as JSON
func (h *HTTPWrapper) SetCalibration(w http.ResponseWriter, r *http.Request) {
	pts := calibrationPoints{}
	err := json.NewDecoder(r.Body).Decode(&pts)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cal, err := spectrum.Fit(pts.Channels, pts.Energies)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.d.SetCalibration(cal)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(cal); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// acquireCtx derives the request context for an acquisition, honoring a
// ?seconds= override of the configured realtime
func acquireCtx(r *http.Request) (context.Context, context.CancelFunc, error) {
	ctx := r.Context()
	raw := r.URL.Query().Get("seconds")
	if raw == "" {
		return ctx, func() {}, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, nil, err
	}
	if secs <= 0 {
		return nil, nil, errors.Errorf("seconds %v is not positive", secs)
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(secs*float64(time.Second)))
	return ctx, cancel, nil
}

// AcquireList runs a listmode measurement and returns the raw samples as
// JSON.  The measurement runs for the configured realtime, or ?seconds= if
// given.  Other routes return 423 until it completes.
func (h *HTTPWrapper) AcquireList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, err := acquireCtx(r)
	if err != nil {
		http.Error(w, "seconds must be a positive number", http.StatusBadRequest)
		return
	}
	defer cancel()
	h.acqMu.Lock()
	defer h.acqMu.Unlock()
	h.Lock.Lock()
	defer h.Lock.Unlock()
	started := time.Now()
	samples, err := h.d.ListMode(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.record(started, len(samples))
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(samples); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// AcquireCount runs a measurement and returns the channel histogram,
// as JSON or as two-column CSV with ?format=csv
func (h *HTTPWrapper) AcquireCount(w http.ResponseWriter, r *http.Request) {
	h.acquireHist(w, r, h.d.Count)
}

// AcquireSpectrum runs a measurement and returns the energy-calibrated
// histogram, as JSON or as two-column CSV with ?format=csv
func (h *HTTPWrapper) AcquireSpectrum(w http.ResponseWriter, r *http.Request) {
	h.acquireHist(w, r, h.d.Spectra)
}

func (h *HTTPWrapper) acquireHist(w http.ResponseWriter, r *http.Request, fcn func(context.Context) (spectrum.Spectrum, error)) {
	ctx, cancel, err := acquireCtx(r)
	if err != nil {
		http.Error(w, "seconds must be a positive number", http.StatusBadRequest)
		return
	}
	defer cancel()
	h.acqMu.Lock()
	defer h.acqMu.Unlock()
	h.Lock.Lock()
	defer h.Lock.Unlock()
	started := time.Now()
	s, err := fcn(ctx)
	if err != nil {
		code := http.StatusInternalServerError
		if err == ErrNoCalibration {
			code = http.StatusBadRequest
		}
		http.Error(w, err.Error(), code)
		return
	}
	h.record(started, s.Total())
	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		if err := spectrum.EncodeCSV(w, s); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// record hands run metadata to the recorder, logging instead of failing the
// request if the run log is unreachable
func (h *HTTPWrapper) record(started time.Time, events int) {
	if h.Recorder == nil {
		return
	}
	st, err := h.d.Status()
	if err != nil {
		return
	}
	cal := h.d.Calibration()
	run := Run{
		Serial:       st.Serial,
		Started:      started,
		Seconds:      time.Since(started).Seconds(),
		HVTarget:     st.HVTarget,
		FineGain:     st.FineGain,
		PulseWidth:   st.PulseWidth,
		Events:       events,
		CalSlope:     cal.Slope,
		CalIntercept: cal.Intercept,
	}
	if err := h.Recorder.RecordRun(run); err != nil {
		logrus.WithError(err).Warn("failed to record run metadata")
	}
}
