package executor

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/Wireflow/internal/domain"
)

// cronParser — парсер cron-выражений (5 полей).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Форматы specificDate для разового запуска.
var onceLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// NextRun вычисляет следующий запуск расписания после from.
//
// Учитывает timezone расписания (по умолчанию Asia/Kolkata, при
// некорректном значении UTC). Разовый запуск в прошлом возвращает
// нулевое время: следующего запуска нет. Результат в UTC.
func NextRun(state domain.ScheduleState, from time.Time) (time.Time, error) {
	loc := scheduleLocation(state.Timezone)
	fromInTz := from.In(loc)

	switch state.ScheduleType {
	case domain.ScheduleInterval:
		return nextInterval(state.IntervalValue, state.IntervalUnit, fromInTz)
	case domain.ScheduleDaily:
		return nextDaily(state.SpecificTime, fromInTz)
	case domain.ScheduleOnce:
		return nextOnce(state.SpecificDate, state.SpecificTime, fromInTz)
	case domain.ScheduleCron:
		return nextCron(state.CronExpression, fromInTz)
	default:
		return time.Time{}, fmt.Errorf("%w: unknown schedule type %q", ErrSchedule, state.ScheduleType)
	}
}

// ValidateCronExpr проверяет cron-выражение.
func ValidateCronExpr(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("%w: invalid cron expression %q: %v", ErrSchedule, expr, err)
	}
	return nil
}

func scheduleLocation(tz string) *time.Location {
	if tz == "" {
		tz = domain.DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

func nextInterval(value int, unit string, from time.Time) (time.Time, error) {
	if value <= 0 {
		return time.Time{}, fmt.Errorf("%w: interval must be positive, got %d", ErrSchedule, value)
	}

	var step time.Duration
	switch unit {
	case "", "minutes":
		step = time.Minute
	case "hours":
		step = time.Hour
	case "days":
		return from.AddDate(0, 0, value).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("%w: unknown interval unit %q", ErrSchedule, unit)
	}
	return from.Add(time.Duration(value) * step).UTC(), nil
}

func nextDaily(clock string, from time.Time) (time.Time, error) {
	hour, minute, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	next := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, from.Location())
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next.UTC(), nil
}

func nextOnce(date, clock string, from time.Time) (time.Time, error) {
	date = strings.TrimSpace(date)
	for _, layout := range onceLayouts {
		at, err := time.ParseInLocation(layout, date, from.Location())
		if err != nil {
			continue
		}
		// Дата без времени дополняется specificTime
		if layout == "2006-01-02" && clock != "" {
			hour, minute, err := parseClock(clock)
			if err != nil {
				return time.Time{}, err
			}
			at = time.Date(at.Year(), at.Month(), at.Day(), hour, minute, 0, 0, at.Location())
		}
		if !at.After(from) {
			return time.Time{}, nil
		}
		return at.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: invalid specificDate %q", ErrSchedule, date)
}

func nextCron(expr string, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: parse cron expression %q: %v", ErrSchedule, expr, err)
	}
	return schedule.Next(from).UTC(), nil
}

// parseClock разбирает время суток HH:MM.
func parseClock(clock string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid time %q, expected HH:MM", ErrSchedule, clock)
	}
	return t.Hour(), t.Minute(), nil
}
