package domain

import "testing"

func TestExtractClinicalDataBothFields(t *testing.T) {
	text := "Report\nPatient Name: Maria Delgado\nDOB: 04/12/1987\nFindings: none"
	data := ExtractClinicalData(text)

	if data.PatientName.FullName != "Maria Delgado" {
		t.Fatalf("unexpected full name %q", data.PatientName.FullName)
	}
	if data.PatientName.FirstName != "Maria" || data.PatientName.LastName != "Delgado" {
		t.Fatalf("unexpected name split %q / %q", data.PatientName.FirstName, data.PatientName.LastName)
	}
	if data.DateOfBirth != "04/12/1987" {
		t.Fatalf("unexpected dob %q", data.DateOfBirth)
	}
	if data.Confidence != ConfidenceHigh {
		t.Fatalf("expected high confidence, got %q", data.Confidence)
	}
}

func TestExtractClinicalDataNameOnly(t *testing.T) {
	data := ExtractClinicalData("Patient: Cher\nNo other details")

	if data.PatientName.FirstName != "Cher" {
		t.Fatalf("unexpected first name %q", data.PatientName.FirstName)
	}
	if data.PatientName.LastName != "" {
		t.Fatalf("expected empty last name, got %q", data.PatientName.LastName)
	}
	if data.Confidence != ConfidenceMedium {
		t.Fatalf("expected medium confidence, got %q", data.Confidence)
	}
}

func TestExtractClinicalDataStripsOCRArtifactsFromDOB(t *testing.T) {
	data := ExtractClinicalData("date of birth: 12-03-1950x.")

	if data.DateOfBirth != "12-03-1950" {
		t.Fatalf("unexpected dob %q", data.DateOfBirth)
	}
}

func TestExtractClinicalDataEmptyText(t *testing.T) {
	data := ExtractClinicalData("")

	if data.Confidence != ConfidenceLow {
		t.Fatalf("expected low confidence, got %q", data.Confidence)
	}
	if data.PatientName.FullName != "" || data.DateOfBirth != "" {
		t.Fatalf("expected empty clinical data, got %+v", data)
	}
}
