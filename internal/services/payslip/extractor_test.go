// extractor_test.go — Unit tests for the payslip page heuristics.
//
// Test function names follow the pattern: TestFunctionName_Scenario.
package payslip

import (
	"testing"
)

func TestExtractName(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "inline after M",
			text: "Emploi Cadre   Catégorie M JEAN DUPONT\nMatricule 1001",
			want: "JEAN DUPONT",
		},
		{
			name: "inline after Mme",
			text: "Catégorie Mme MARIE MARTIN\nMatricule 1002",
			want: "MARIE MARTIN",
		},
		{
			name: "name on following line when inline absent",
			text: "Catégorie Employé\nJEAN-PIERRE DURAND\nMatricule 1003",
			want: "JEAN-PIERRE DURAND",
		},
		{
			name: "following line rejected when not upper case",
			text: "Catégorie Employé\nJean Dupont",
			want: "",
		},
		{
			name: "inline name too short falls through to next line",
			text: "Catégorie M ABC\nPAUL MERCIER",
			want: "PAUL MERCIER",
		},
		{
			name: "next line too short rejected",
			text: "Catégorie Employé\nDUPON",
			want: "",
		},
		{
			name: "no marker",
			text: "Salaire brut 2 500,00\nNet à payer 1 980,00",
			want: "",
		},
		{
			name: "empty page",
			text: "",
			want: "",
		},
		{
			name: "upper case line with digits still accepted",
			text: "Catégorie Employé\nDUPONT 2",
			want: "DUPONT 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractName(tt.text); got != tt.want {
				t.Errorf("ExtractName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractMatricule(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "inline after label",
			text: "Matricule 2204      Ancienneté 2an(s) et 8mois",
			want: "2204",
		},
		{
			name: "four digit token on next line",
			text: "Matricule Ancienneté\n1234 2an(s)",
			want: "1234",
		},
		{
			name: "next line token must be exactly four digits at start",
			text: "Matricule\n123 quelque chose",
			want: "",
		},
		{
			name: "inline wins over next line",
			text: "Matricule 1001\n9999",
			want: "1001",
		},
		{
			name: "no label",
			text: "Salaire de base 2 500,00",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractMatricule(tt.text); got != tt.want {
				t.Errorf("ExtractMatricule() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractPeriod(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "periode with two digit year",
			text: "Période du 01/08/25 au 31/08/25",
			want: "2025_08",
		},
		{
			name: "periode with four digit year",
			text: "Période du 01/08/2025 au 31/08/2025",
			want: "2025_08",
		},
		{
			name: "du .. au form without label",
			text: "du 01/12/24 au 31/12/24",
			want: "2024_12",
		},
		{
			name: "mois colon form",
			text: "Mois : 08/2025",
			want: "2025_08",
		},
		{
			name: "mois colon form without space",
			text: "Mois: 03/2024",
			want: "2024_03",
		},
		{
			name: "generic date fallback",
			text: "Payé le 31/8/25",
			want: "2025_08",
		},
		{
			name: "pivot year 49 expands to 2049",
			text: "Période du 01/06/49 au 30/06/49",
			want: "2049_06",
		},
		{
			name: "pivot year 50 expands to 1950",
			text: "Période du 01/06/50 au 30/06/50",
			want: "1950_06",
		},
		{
			name: "no date anywhere",
			text: "Bulletin de salaire\nNet à payer 1 980,00",
			want: "",
		},
		{
			name: "empty page",
			text: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractPeriod(tt.text); got != tt.want {
				t.Errorf("ExtractPeriod() = %q, want %q", got, tt.want)
			}
		})
	}
}
