package services

import (
	"volexplorer/internal/panel"
)

// PanelSummary describes the loaded dataset
type PanelSummary struct {
	Source       string               `json:"source"`
	StartTimeID  int64                `json:"start_time_id"`
	EndTimeID    int64                `json:"end_time_id"`
	TimeIDs      int                  `json:"time_ids"`
	Instruments  []panel.InstrumentID `json:"instruments"`
	Observations int                  `json:"observations"`
	DefaultTopN  int                  `json:"default_top_n"`
}

// PanelService reports dataset metadata for the client's initial controls
type PanelService struct {
	dataset     *panel.Dataset
	defaultTopN int
}

// NewPanelService creates a panel service
func NewPanelService(ds *panel.Dataset, defaultTopN int) *PanelService {
	return &PanelService{dataset: ds, defaultTopN: defaultTopN}
}

// Summary returns the time range, instruments and observation count
func (s *PanelService) Summary() PanelSummary {
	start, end := s.dataset.TimeRange()
	return PanelSummary{
		Source:       s.dataset.Source(),
		StartTimeID:  start,
		EndTimeID:    end,
		TimeIDs:      len(s.dataset.TimeIDs()),
		Instruments:  s.dataset.InstrumentIDs(),
		Observations: s.dataset.Len(),
		DefaultTopN:  s.defaultTopN,
	}
}

// Ready reports whether a dataset is loaded
func (s *PanelService) Ready() bool {
	return s != nil && s.dataset != nil
}
