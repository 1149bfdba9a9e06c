package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// IntervalUnit is the unit of an interval schedule.
type IntervalUnit string

const (
	IntervalMinutes IntervalUnit = "minutes"
	IntervalHours   IntervalUnit = "hours"
	IntervalDays    IntervalUnit = "days"
	IntervalWeeks   IntervalUnit = "weeks"
	IntervalMonths  IntervalUnit = "months" // fixed 30-day months
)

// Interval is a simple {value, unit} recurrence.
type Interval struct {
	Value int          `json:"value" validate:"required,min=1"`
	Unit  IntervalUnit `json:"unit"  validate:"required"`
}

// Duration converts the interval to a wall-clock duration.
func (i Interval) Duration() (time.Duration, error) {
	if i.Value <= 0 {
		return 0, fmt.Errorf("%w: interval value must be positive", ErrInvalidSchedule)
	}

	var unit time.Duration

	switch i.Unit {
	case IntervalMinutes:
		unit = time.Minute
	case IntervalHours:
		unit = time.Hour
	case IntervalDays:
		unit = 24 * time.Hour
	case IntervalWeeks:
		unit = 7 * 24 * time.Hour
	case IntervalMonths:
		unit = 30 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("%w: unknown interval unit %q", ErrInvalidSchedule, i.Unit)
	}

	return time.Duration(i.Value) * unit, nil
}

// Schedule causes a workflow to auto-execute on a cron expression or a fixed
// interval. It is owned by its workflow and re-armed whenever the workflow's
// schedule field changes.
type Schedule struct {
	Enabled        bool       `json:"enabled"`
	Timezone       string     `json:"timezone,omitempty"`
	CronExpression string     `json:"cron_expression,omitempty"`
	Interval       *Interval  `json:"interval,omitempty"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`

	// NextFireAt is the precomputed next fire time, persisted so scheduled
	// workflows survive a process restart without losing their place.
	NextFireAt *time.Time `json:"next_fire_at,omitempty"`
}

var (
	// ErrInvalidSchedule is returned when a schedule spec cannot be parsed.
	ErrInvalidSchedule = errors.New("invalid schedule configuration")

	// ErrScheduleExpired is returned when the next fire time would fall past
	// the schedule's end date.
	ErrScheduleExpired = errors.New("schedule end date passed")
)

// Validate checks that the schedule specifies exactly one recurrence form
// and that it parses.
func (s *Schedule) Validate() error {
	if s.CronExpression == "" && s.Interval == nil {
		return fmt.Errorf("%w: either cron_expression or interval is required", ErrInvalidSchedule)
	}

	if s.CronExpression != "" && s.Interval != nil {
		return fmt.Errorf("%w: cron_expression and interval are mutually exclusive", ErrInvalidSchedule)
	}

	if s.CronExpression != "" {
		if _, err := cron.ParseStandard(s.CronExpression); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
	}

	if s.Interval != nil {
		if _, err := s.Interval.Duration(); err != nil {
			return err
		}
	}

	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
	}

	return nil
}

// NextFireTime projects the next fire instant strictly after the reference
// time, honoring the schedule's timezone and start/end bounds.
func (s *Schedule) NextFireTime(from time.Time) (time.Time, error) {
	if err := s.Validate(); err != nil {
		return time.Time{}, err
	}

	if s.StartDate != nil && from.Before(*s.StartDate) {
		from = s.StartDate.Add(-time.Nanosecond)
	}

	var next time.Time

	if s.CronExpression != "" {
		loc := time.UTC

		if s.Timezone != "" {
			l, err := time.LoadLocation(s.Timezone)
			if err != nil {
				return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
			}

			loc = l
		}

		spec, err := cron.ParseStandard(s.CronExpression)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}

		next = spec.Next(from.In(loc))
	} else {
		d, err := s.Interval.Duration()
		if err != nil {
			return time.Time{}, err
		}

		next = from.Add(d)
	}

	if s.EndDate != nil && next.After(*s.EndDate) {
		return time.Time{}, ErrScheduleExpired
	}

	return next, nil
}
