// Package settings describes the super admin configuration tabs and routes
// their toggles to the settings store.
package settings

import (
	"context"
	"errors"

	"github.com/hackutd/harp-sub001/internal/model"
	"github.com/hackutd/harp-sub001/internal/store"
)

const (
	TabApplications  = "applications"
	TabReviewsPerApp = "reviews_per_app"
	TabQuestions     = "questions"
	TabScanTypes     = "scan_types"

	ToggleApplicationSubmissions = "application_submissions"
	ToggleReviewAssignment       = "review_assignment"
)

var (
	ErrUnknownTab    = errors.New("unknown settings tab")
	ErrUnknownToggle = errors.New("unknown toggle")
	// ErrInertToggle is returned for toggles that are shown but not backed by
	// any setting yet.
	ErrInertToggle = errors.New("toggle is not wired to a setting")
)

// Toggle is a named switch on a tab. Wired is false for placeholders whose
// value is never stored.
type Toggle struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
	Wired   bool   `json:"wired"`
}

type Tab struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Toggles []Toggle `json:"toggles"`
	Value   any      `json:"value,omitempty"`
}

type Store interface {
	GetShortAnswerQuestions(ctx context.Context) ([]model.ShortAnswerQuestion, error)
	GetReviewsPerApplication(ctx context.Context) (int, error)
	GetReviewAssignmentEnabled(ctx context.Context, adminID string) (bool, error)
	SetReviewAssignmentEnabled(ctx context.Context, adminID string, enabled bool) error
	GetScanTypes(ctx context.Context) ([]model.ScanType, error)
	SetScanTypeActive(ctx context.Context, name string, active bool) (*model.ScanType, error)
}

type Panels struct {
	store Store
}

func NewPanels(store Store) *Panels {
	return &Panels{store: store}
}

// Tabs renders every tab for adminID in display order.
func (p *Panels) Tabs(ctx context.Context, adminID string) ([]Tab, error) {
	reviewsPerApp, err := p.store.GetReviewsPerApplication(ctx)
	if err != nil {
		return nil, err
	}
	assignment, err := p.store.GetReviewAssignmentEnabled(ctx, adminID)
	if err != nil {
		return nil, err
	}
	questions, err := p.store.GetShortAnswerQuestions(ctx)
	if err != nil {
		return nil, err
	}
	scanTypes, err := p.store.GetScanTypes(ctx)
	if err != nil {
		return nil, err
	}
	scanToggles := make([]Toggle, 0, len(scanTypes))
	for _, scanType := range scanTypes {
		scanToggles = append(scanToggles, scanTypeToggle(scanType))
	}

	return []Tab{
		{
			Key:   TabApplications,
			Title: "Applications",
			Toggles: []Toggle{
				{Key: ToggleApplicationSubmissions, Label: "Application Submissions"},
			},
		},
		{
			Key:   TabReviewsPerApp,
			Title: "Reviews per Application",
			Toggles: []Toggle{
				{Key: ToggleReviewAssignment, Label: "Assign Reviews to Me", Enabled: assignment, Wired: true},
			},
			Value: reviewsPerApp,
		},
		{
			Key:     TabQuestions,
			Title:   "Short Answer Questions",
			Toggles: []Toggle{},
			Value:   questions,
		},
		{
			Key:     TabScanTypes,
			Title:   "Scan Types",
			Toggles: scanToggles,
			Value:   scanTypes,
		},
	}, nil
}

func scanTypeToggle(scanType model.ScanType) Toggle {
	return Toggle{Key: scanType.Name, Label: scanType.DisplayName, Enabled: scanType.IsActive, Wired: true}
}

// SetToggle flips a toggle for adminID and returns its new state.
func (p *Panels) SetToggle(ctx context.Context, adminID, tab, toggle string, enabled bool) (Toggle, error) {
	switch tab {
	case TabApplications:
		if toggle == ToggleApplicationSubmissions {
			return Toggle{}, ErrInertToggle
		}
	case TabReviewsPerApp:
		if toggle == ToggleReviewAssignment {
			if err := p.store.SetReviewAssignmentEnabled(ctx, adminID, enabled); err != nil {
				return Toggle{}, err
			}
			return Toggle{Key: toggle, Label: "Assign Reviews to Me", Enabled: enabled, Wired: true}, nil
		}
	case TabScanTypes:
		updated, err := p.store.SetScanTypeActive(ctx, toggle, enabled)
		if errors.Is(err, store.ErrNotFound) {
			return Toggle{}, ErrUnknownToggle
		}
		if err != nil {
			return Toggle{}, err
		}
		return scanTypeToggle(*updated), nil
	case TabQuestions:
	default:
		return Toggle{}, ErrUnknownTab
	}
	return Toggle{}, ErrUnknownToggle
}
