package trackers

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Layout describes one tracker sheet: where its parameter cells, header
// row, and data region live, and which outreach medium its required
// count refers to. Layouts ship with compiled-in defaults and can be
// overridden from a YAML file.
type Layout struct {
	Name              string `yaml:"name"`
	Sheet             string `yaml:"sheet"`
	Medium            string `yaml:"medium"` // "call" or "sms"
	HeaderRow         int    `yaml:"headerRow"`
	DataStartRow      int    `yaml:"dataStartRow"`
	StartColumn       int    `yaml:"startColumn"`
	PriorityCell      string `yaml:"priorityCell"`
	RequiredCountCell string `yaml:"requiredCountCell"`
	RequireRoster     bool   `yaml:"requireRoster"`
	DefaultPriority   int    `yaml:"defaultPriority"`
	RepReportSort     bool   `yaml:"repReportSort"`
}

// DefaultLayouts are the trackers the operation runs today.
func DefaultLayouts() []Layout {
	return []Layout{
		{
			Name:              "call-tracker",
			Sheet:             "CallTracker",
			Medium:            "call",
			HeaderRow:         2,
			DataStartRow:      3,
			StartColumn:       1,
			PriorityCell:      "B1",
			RequiredCountCell: "D1",
			RequireRoster:     true,
			DefaultPriority:   -1,
		},
		{
			Name:              "text-tracker",
			Sheet:             "TextTracker",
			Medium:            "sms",
			HeaderRow:         2,
			DataStartRow:      3,
			StartColumn:       1,
			PriorityCell:      "B1",
			RequiredCountCell: "D1",
			RequireRoster:     true,
			DefaultPriority:   -1,
		},
		{
			Name:              "follow-up",
			Sheet:             "FollowUp",
			Medium:            "call",
			HeaderRow:         2,
			DataStartRow:      3,
			StartColumn:       1,
			PriorityCell:      "B1",
			RequiredCountCell: "D1",
			RequireRoster:     false,
			DefaultPriority:   0,
			RepReportSort:     true,
		},
	}
}

type layoutsFile struct {
	Trackers []Layout `yaml:"trackers"`
}

// LoadLayouts parses tracker layouts from YAML, applying the defaults a
// layout omits.
func LoadLayouts(data []byte) ([]Layout, error) {
	var file layoutsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse tracker layouts: %w", err)
	}
	if len(file.Trackers) == 0 {
		return nil, fmt.Errorf("tracker layouts file defines no trackers")
	}

	for i := range file.Trackers {
		layout := &file.Trackers[i]
		if layout.Sheet == "" {
			return nil, fmt.Errorf("tracker %q has no sheet", layout.Name)
		}
		if layout.Name == "" {
			layout.Name = layout.Sheet
		}
		if layout.Medium == "" {
			layout.Medium = "call"
		}
		if layout.Medium != "call" && layout.Medium != "sms" {
			return nil, fmt.Errorf("tracker %q has unknown medium %q", layout.Name, layout.Medium)
		}
		if layout.HeaderRow == 0 {
			layout.HeaderRow = 2
		}
		if layout.DataStartRow == 0 {
			layout.DataStartRow = layout.HeaderRow + 1
		}
		if layout.StartColumn == 0 {
			layout.StartColumn = 1
		}
		if layout.PriorityCell == "" {
			layout.PriorityCell = "B1"
		}
		if layout.RequiredCountCell == "" {
			layout.RequiredCountCell = "D1"
		}
	}
	return file.Trackers, nil
}
