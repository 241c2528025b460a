package server

import (
	"net/http"
	"time"

	"github.com/bwestlin/pi-home-info/pkg/types"
)

type sourceError struct {
	Kind    types.ErrorKind `json:"kind"`
	Message string          `json:"message"`
}

type snapshotPrices struct {
	Rows  []types.PriceRow `json:"rows"`
	Error *sourceError     `json:"error,omitempty"`
}

type snapshotClimate struct {
	Readings []types.ClimateReading `json:"readings"`
	Error    *sourceError           `json:"error,omitempty"`
}

type snapshotResponse struct {
	CycleID    string           `json:"cycleID"`
	StartedAt  time.Time        `json:"startedAt"`
	DurationMS int64            `json:"durationMS"`
	Prices     *snapshotPrices  `json:"prices"`
	Climate    *snapshotClimate `json:"climate"`
}

func newSourceError(err error) *sourceError {
	if err == nil {
		return nil
	}
	kind := types.KindOf(err)
	if kind == "" {
		kind = types.KindNetwork
	}
	return &sourceError{Kind: kind, Message: err.Error()}
}

// newSnapshotResponse converts a snapshot to its JSON form. A source that is
// not configured on the account is null.
func newSnapshotResponse(snap types.Snapshot) snapshotResponse {
	res := snapshotResponse{
		CycleID:    snap.CycleID,
		StartedAt:  snap.StartedAt,
		DurationMS: snap.Duration.Milliseconds(),
	}
	if snap.Prices != nil || snap.PriceErr != nil {
		res.Prices = &snapshotPrices{
			Rows:  snap.PriceRows,
			Error: newSourceError(snap.PriceErr),
		}
		if res.Prices.Rows == nil {
			res.Prices.Rows = []types.PriceRow{}
		}
	}
	if snap.Climate != nil || snap.ClimateErr != nil {
		res.Climate = &snapshotClimate{
			Readings: snap.Climate.Readings(),
			Error:    newSourceError(snap.ClimateErr),
		}
		if res.Climate.Readings == nil {
			res.Climate.Readings = []types.ClimateReading{}
		}
	}
	return res
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.latest()
	if !ok {
		writeJSONError(w, "no snapshot yet", http.StatusNotFound)
		return
	}
	writeJSON(w, newSnapshotResponse(snap))
}
