// Package checkin records event-day QR scans: the check-in itself and the
// meal and swag pickups that follow it.
package checkin

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/hackutd/harp-sub001/internal/model"
	"github.com/hackutd/harp-sub001/internal/store"
)

var (
	ErrUnknownScanType  = errors.New("unknown scan type")
	ErrInactiveScanType = errors.New("scan type is not active")
	ErrNotCheckedIn     = errors.New("user has not checked in")
	ErrAlreadyScanned   = errors.New("user already scanned for this type")
	ErrUserNotFound     = errors.New("user not found")
)

type ScanTypeSource interface {
	GetScanTypes(ctx context.Context) ([]model.ScanType, error)
}

type Store interface {
	Create(ctx context.Context, scan *model.Scan) error
	HasCheckIn(ctx context.Context, userID string, checkInTypes []string) (bool, error)
}

type Service struct {
	types ScanTypeSource
	scans Store
	log   *logrus.Entry
}

func NewService(types ScanTypeSource, scans Store, log *logrus.Entry) *Service {
	return &Service{types: types, scans: scans, log: log}
}

func (s *Service) ScanTypes(ctx context.Context) ([]model.ScanType, error) {
	return s.types.GetScanTypes(ctx)
}

// Record stores a scan of userID for scanType made by adminID.
func (s *Service) Record(ctx context.Context, adminID, userID, scanType string) (*model.Scan, error) {
	scanTypes, err := s.types.GetScanTypes(ctx)
	if err != nil {
		return nil, err
	}

	var found *model.ScanType
	checkInTypes := []string{}
	for i := range scanTypes {
		if scanTypes[i].Name == scanType {
			found = &scanTypes[i]
		}
		if scanTypes[i].Category == model.ScanCategoryCheckIn {
			checkInTypes = append(checkInTypes, scanTypes[i].Name)
		}
	}
	if found == nil {
		return nil, ErrUnknownScanType
	}
	if !found.IsActive {
		return nil, ErrInactiveScanType
	}

	if found.Category != model.ScanCategoryCheckIn {
		checkedIn, err := s.scans.HasCheckIn(ctx, userID, checkInTypes)
		if err != nil {
			return nil, err
		}
		if !checkedIn {
			return nil, ErrNotCheckedIn
		}
	}

	scan := &model.Scan{UserID: userID, ScanType: scanType, ScannedBy: adminID}
	if err := s.scans.Create(ctx, scan); err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return nil, ErrAlreadyScanned
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrUserNotFound
		default:
			return nil, err
		}
	}

	s.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"scan_type": scanType,
		"admin_id":  adminID,
	}).Info("scan recorded")
	return scan, nil
}

// ValidateScanTypes checks a replacement scan type list: names are unique and
// at least one type has the check_in category.
func ValidateScanTypes(scanTypes []model.ScanType) error {
	seen := make(map[string]struct{}, len(scanTypes))
	hasCheckIn := false
	for _, scanType := range scanTypes {
		if _, ok := seen[scanType.Name]; ok {
			return fmt.Errorf("duplicate scan type name %q", scanType.Name)
		}
		seen[scanType.Name] = struct{}{}
		if scanType.Category == model.ScanCategoryCheckIn {
			hasCheckIn = true
		}
	}
	if !hasCheckIn {
		return errors.New("at least one scan type must have the check_in category")
	}
	return nil
}
