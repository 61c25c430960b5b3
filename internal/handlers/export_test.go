package handlers

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/payflow/payflow-api/internal/models"
)

func TestEmployeesCSV(t *testing.T) {
	created := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	employees := []models.Employee{
		{Matricule: "1001", Name: "JEAN DUPONT", Email: "jean@example.com", Status: models.EmployeeActive, Source: models.SourcePDFImport, CreatedAt: created},
		{Matricule: "1002", Name: "MARIE, MARTIN", Email: "marie@example.com", Status: models.EmployeeInactive, Source: models.SourceManual, CreatedAt: created},
	}

	data, err := employeesCSV(employees)
	if err != nil {
		t.Fatalf("employeesCSV() error: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("output is not parseable CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3 (header + 2 rows)", len(records))
	}
	if records[0][0] != "matricule" {
		t.Errorf("header starts with %q, want matricule", records[0][0])
	}
	if records[1][1] != "JEAN DUPONT" {
		t.Errorf("row 1 name = %q", records[1][1])
	}
	// A comma inside a name must survive the round trip.
	if records[2][1] != "MARIE, MARTIN" {
		t.Errorf("row 2 name = %q", records[2][1])
	}
}

func TestEmployeesCSV_Empty(t *testing.T) {
	data, err := employeesCSV(nil)
	if err != nil {
		t.Fatalf("employeesCSV() error: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("output is not parseable CSV: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want header only", len(records))
	}
}
