package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nekruzvatanshoev/carchat/pkg/carchat/dal"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/stats"
)

const maxBodyBytes = 64 << 10

type askRequest struct {
	Query string `json:"query"`
}

type carsResponse struct {
	Total    int       `json:"total"`
	Level    int       `json:"level"`
	Attempts int       `json:"attempts"`
	Cars     []dal.Car `json:"cars"`
}

type averageResponse struct {
	Field   dal.Field `json:"field"`
	Average float64   `json:"average"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Health reports that the server is up
func (h *httpServer) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ask defines a POST handler answering one chat message
func (h *httpServer) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.badRequest(w, fmt.Errorf("decode request: %w", err))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		h.badRequest(w, errors.New("query is required"))
		return
	}
	h.writeJSON(w, http.StatusOK, h.chat.Reply(r.Context(), req.Query))
}

// GetCars defines a GET handler to run the fallback search from query parameters
func (h *httpServer) GetCars(w http.ResponseWriter, r *http.Request) {
	vars := r.URL.Query()

	var fs dal.FilterSet
	for _, f := range dal.Categorical {
		if names := validateNames(vars, string(f)); len(names) > 0 {
			if err := fs.SetCandidates(f, names); err != nil {
				h.badRequest(w, err)
				return
			}
		}
	}
	for _, b := range dal.Bounds {
		v, ok, err := validateNumber(vars, string(b))
		if err != nil {
			h.log.Debug().Err(err).Str("param", string(b)).Msg("validation failed")
			h.badRequest(w, err)
			return
		}
		if ok {
			_ = fs.SetBound(b, v)
		}
	}

	res := h.search.Search(fs)
	cars := res.Cars
	if cars == nil {
		cars = []dal.Car{}
	}
	h.writeJSON(w, http.StatusOK, carsResponse{
		Total:    res.Total(),
		Level:    res.Level,
		Attempts: res.Attempts,
		Cars:     cars,
	})
}

// GetCount defines a GET handler returning a frequency table for a field.
// Several fields (repeated or comma-separated) return one table per field.
func (h *httpServer) GetCount(w http.ResponseWriter, r *http.Request) {
	vars := r.URL.Query()
	fields, err := validateFields(vars, "field")
	if err != nil {
		h.badRequest(w, err)
		return
	}

	city := strings.TrimSpace(vars.Get("city"))
	var tables map[dal.Field][]stats.Count
	if city == "" {
		tables = h.stats.CountFieldsSummary(fields...)
	} else {
		tables = make(map[dal.Field][]stats.Count, len(fields))
		for _, f := range fields {
			tables[f] = h.stats.CountByFieldInCity(f, city)
		}
	}
	for f, counts := range tables {
		if counts == nil {
			tables[f] = []stats.Count{}
		}
	}

	if len(fields) == 1 {
		h.writeJSON(w, http.StatusOK, tables[fields[0]])
		return
	}
	h.writeJSON(w, http.StatusOK, tables)
}

// GetExtreme defines a GET handler returning the car with the lowest or highest field value
func (h *httpServer) GetExtreme(w http.ResponseWriter, r *http.Request) {
	vars := r.URL.Query()
	field, err := validateField(vars, "field", true)
	if err != nil {
		h.badRequest(w, err)
		return
	}
	mode := stats.Mode(strings.ToLower(vars.Get("mode")))
	if mode == "" {
		mode = stats.ModeMin
	}
	if mode != stats.ModeMin && mode != stats.ModeMax {
		h.badRequest(w, fmt.Errorf("mode must be min or max: %q", mode))
		return
	}

	car, ok := h.stats.ExtremeValue(field, mode, equalsFilter(vars))
	if !ok {
		h.noRecord(w)
		return
	}
	h.writeJSON(w, http.StatusOK, car)
}

// GetAverage defines a GET handler returning the mean of a numeric field
func (h *httpServer) GetAverage(w http.ResponseWriter, r *http.Request) {
	vars := r.URL.Query()
	field, err := validateField(vars, "field", true)
	if err != nil {
		h.badRequest(w, err)
		return
	}
	avg, ok := h.stats.AverageValue(field, equalsFilter(vars))
	if !ok {
		h.noRecord(w)
		return
	}
	h.writeJSON(w, http.StatusOK, averageResponse{Field: field, Average: avg})
}

// GetPriceRange defines a GET handler returning cars priced within [min, max]
func (h *httpServer) GetPriceRange(w http.ResponseWriter, r *http.Request) {
	vars := r.URL.Query()
	lo, ok, err := validateNumber(vars, "min")
	if err == nil && !ok {
		err = errors.New("min is required")
	}
	if err != nil {
		h.badRequest(w, err)
		return
	}
	hi, ok, err := validateNumber(vars, "max")
	if err == nil && !ok {
		err = errors.New("max is required")
	}
	if err != nil {
		h.badRequest(w, err)
		return
	}
	if lo > hi {
		h.badRequest(w, fmt.Errorf("min must not exceed max: %v > %v", lo, hi))
		return
	}

	cars := h.stats.CarsInPriceRange(lo, hi, equalsFilter(vars))
	if cars == nil {
		cars = []dal.Car{}
	}
	h.writeJSON(w, http.StatusOK, cars)
}

// validateNumber parses an optional non-negative number
func validateNumber(vars url.Values, key string) (float64, bool, error) {
	raw := strings.TrimSpace(vars.Get(key))
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	if v < 0 {
		return 0, false, fmt.Errorf("%s must be a positive number: %v", key, v)
	}
	return v, true, nil
}

// validateNames collects repeated and comma-separated values of key
func validateNames(vars url.Values, key string) dal.Candidates {
	var out dal.Candidates
	for _, v := range vars[key] {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

// validateFields parses one or more schema fields given in key
func validateFields(vars url.Values, key string) ([]dal.Field, error) {
	names := validateNames(vars, key)
	if len(names) == 0 {
		return nil, fmt.Errorf("%s is required", key)
	}
	fields := make([]dal.Field, 0, len(names))
	for _, name := range names {
		f, err := dal.ParseField(name)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func validateField(vars url.Values, key string, numeric bool) (dal.Field, error) {
	raw := vars.Get(key)
	if raw == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	f, err := dal.ParseField(raw)
	if err != nil {
		return "", err
	}
	if numeric && !f.Numeric() {
		return "", fmt.Errorf("%s must be numeric: %s", key, f)
	}
	return f, nil
}

// equalsFilter builds an exact-match filter from any schema field in vars
func equalsFilter(vars url.Values) stats.Equals {
	var eq stats.Equals
	for _, f := range dal.Fields {
		if v, ok := vars[string(f)]; ok && len(v) > 0 {
			if eq == nil {
				eq = stats.Equals{}
			}
			eq[f] = v[0]
		}
	}
	return eq
}

func (h *httpServer) noRecord(w http.ResponseWriter) {
	h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "no such record"})
}

func (h *httpServer) badRequest(w http.ResponseWriter, err error) {
	h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func (h *httpServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("encode response")
	}
}
