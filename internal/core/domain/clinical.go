package domain

import (
	"regexp"
	"strings"
)

// ClinicalData is structured patient information pulled out of report text.
type ClinicalData struct {
	PatientName PatientName `json:"patient_name"`
	DateOfBirth string      `json:"date_of_birth,omitempty"`
	Confidence  string      `json:"extraction_confidence"`
}

type PatientName struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	FullName  string `json:"full_name,omitempty"`
}

const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

var patientNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)patient\s+name\s*:\s*([^\n\r]+)`),
	regexp.MustCompile(`(?i)patient\s*:\s*([^\n\r]+)`),
	regexp.MustCompile(`(?i)name\s*:\s*([^\n\r]+)`),
}

var dobPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)dob\s*:\s*([^\n\r]+)`),
	regexp.MustCompile(`(?i)date\s+of\s+birth\s*:\s*([^\n\r]+)`),
	regexp.MustCompile(`(?i)birth\s+date\s*:\s*([^\n\r]+)`),
	regexp.MustCompile(`(?i)born\s*:\s*([^\n\r]+)`),
}

var dobCleanup = regexp.MustCompile(`[^\d/\-\s]`)

// ExtractClinicalData scans report text for a patient name and date of birth.
// The confidence grade reflects how many of the two fields were found.
func ExtractClinicalData(text string) ClinicalData {
	data := ClinicalData{Confidence: ConfidenceLow}
	if text == "" {
		return data
	}

	for _, pattern := range patientNamePatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		full := strings.TrimSpace(match[1])
		data.PatientName.FullName = full

		parts := strings.Fields(full)
		switch {
		case len(parts) >= 2:
			data.PatientName.FirstName = parts[0]
			data.PatientName.LastName = strings.Join(parts[1:], " ")
		case len(parts) == 1:
			data.PatientName.FirstName = parts[0]
		}
		break
	}

	for _, pattern := range dobPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		data.DateOfBirth = strings.TrimSpace(dobCleanup.ReplaceAllString(match[1], ""))
		break
	}

	found := 0
	if data.PatientName.FullName != "" {
		found++
	}
	if data.DateOfBirth != "" {
		found++
	}
	switch found {
	case 2:
		data.Confidence = ConfidenceHigh
	case 1:
		data.Confidence = ConfidenceMedium
	}
	return data
}
