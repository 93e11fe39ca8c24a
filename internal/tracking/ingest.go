package tracking

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateInput runs the struct's validate tags and reports every failing
// field as one ValidationError.
func (s *Service) validateInput(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return invalid(err.Error())
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			problems = append(problems, fe.Field()+" is required")
		case "gte", "lte":
			problems = append(problems, fmt.Sprintf("%s %v is out of range", fe.Field(), fe.Value()))
		case "gt":
			problems = append(problems, fe.Field()+" must be positive")
		default:
			problems = append(problems, fe.Field()+" is invalid")
		}
	}
	return invalid(problems...)
}

// Ingest validates a report and stores it. Reports from a known user attach
// to the user's open trip (opening one when needed) and advance its distance
// before Ingest returns; device-only reports are stored unassigned.
func (s *Service) Ingest(ctx context.Context, report RawReport, id Identity) (IngestResult, error) {
	if err := s.validateInput(report); err != nil {
		return IngestResult{}, err
	}

	deviceID := id.DeviceID
	if deviceID == "" {
		deviceID = report.DeviceID
	}
	if id.UserID == "" && deviceID == "" {
		return IngestResult{}, invalid("either a device id or a user id is required")
	}

	ping := Ping{
		DeviceID:   deviceID,
		Lat:        *report.Latitude,
		Lng:        *report.Longitude,
		AltitudeM:  report.Altitude,
		SpeedMps:   report.Speed,
		ObservedAt: time.UnixMilli(*report.Timestamp).UTC(),
	}

	if id.UserID == "" {
		stored, err := s.store.InsertPing(ctx, ping)
		if err != nil {
			return IngestResult{}, fmt.Errorf("insert ping: %w", err)
		}
		result := IngestResult{Ping: stored}
		if s.notifier != nil {
			s.notifier.PingRecorded(ctx, result)
		}
		return result, nil
	}

	if err := s.requireUser(ctx, id.UserID); err != nil {
		return IngestResult{}, err
	}

	var result IngestResult
	err := s.withOwner(ctx, id.UserID, func(repo Repository) error {
		trip, opened, err := s.getOrOpenTrip(ctx, repo, id.UserID, ping.ObservedAt)
		if err != nil {
			return err
		}

		ping.TripID = trip.ID
		stored, err := repo.InsertPing(ctx, ping)
		if err != nil {
			return fmt.Errorf("insert ping: %w", err)
		}

		total, err := accumulate(ctx, repo, trip, stored)
		if err != nil {
			return err
		}
		trip.DistanceM = total

		stored.UserID = id.UserID
		result = IngestResult{Ping: stored, TripID: trip.ID, Trip: &trip, Opened: opened}
		return nil
	})
	if err != nil {
		return IngestResult{}, err
	}

	if s.notifier != nil {
		if result.Opened {
			s.notifier.TripOpened(ctx, *result.Trip)
		}
		s.notifier.PingRecorded(ctx, result)
	}
	return result, nil
}
