package domain

import "time"

// MinimumInstructorAge is the age an applicant must have reached to teach on the marketplace.
const MinimumInstructorAge = 18

// HasReachedAge reports whether a person born on birthDate is at least years old at now.
// Uses calendar arithmetic (AddDate) so the birthday itself counts.
func HasReachedAge(birthDate, now time.Time, years int) bool {
	reachedAt := birthDate.UTC().AddDate(years, 0, 0)
	return !now.UTC().Before(reachedAt)
}

// IsOldEnoughToTeach applies MinimumInstructorAge.
func IsOldEnoughToTeach(birthDate, now time.Time) bool {
	return HasReachedAge(birthDate, now, MinimumInstructorAge)
}

// GraduationYearInRange reports whether year is a plausible graduation year at now.
func GraduationYearInRange(year int, now time.Time) bool {
	return year >= EarliestGraduationYear && year <= now.UTC().Year()
}

// EarliestGraduationYear bounds certificate metadata.
const EarliestGraduationYear = 1950
