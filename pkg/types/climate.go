package types

import "sort"

// InstallationID is the climate provider's identifier for an installation
// (the "giid").
type InstallationID string

// ClimateReading is the temperature reported by one sensor area.
type ClimateReading struct {
	Area        string  `json:"area"`
	Temperature float64 `json:"temperature"`
}

// ClimateSet maps a sensor area to its temperature. It may be empty.
type ClimateSet struct {
	temps map[string]float64
}

// NewClimateSet builds a set from readings. A repeated area keeps the last
// reading.
func NewClimateSet(readings ...ClimateReading) *ClimateSet {
	s := &ClimateSet{temps: make(map[string]float64, len(readings))}
	for _, r := range readings {
		s.Set(r.Area, r.Temperature)
	}
	return s
}

// Set records the temperature for an area, replacing any previous value.
func (s *ClimateSet) Set(area string, temperature float64) {
	if s.temps == nil {
		s.temps = make(map[string]float64)
	}
	s.temps[area] = temperature
}

// Get returns the temperature for an area.
func (s *ClimateSet) Get(area string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	t, ok := s.temps[area]
	return t, ok
}

// Len returns the number of areas, treating a nil set as empty.
func (s *ClimateSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.temps)
}

// Areas returns the area names sorted.
func (s *ClimateSet) Areas() []string {
	if s == nil {
		return nil
	}
	areas := make([]string, 0, len(s.temps))
	for a := range s.temps {
		areas = append(areas, a)
	}
	sort.Strings(areas)
	return areas
}

// Readings returns the readings sorted by area.
func (s *ClimateSet) Readings() []ClimateReading {
	areas := s.Areas()
	if areas == nil {
		return nil
	}
	readings := make([]ClimateReading, 0, len(areas))
	for _, a := range areas {
		readings = append(readings, ClimateReading{Area: a, Temperature: s.temps[a]})
	}
	return readings
}

// Map returns a copy of the underlying area to temperature map.
func (s *ClimateSet) Map() map[string]float64 {
	m := make(map[string]float64, s.Len())
	if s == nil {
		return m
	}
	for k, v := range s.temps {
		m[k] = v
	}
	return m
}
