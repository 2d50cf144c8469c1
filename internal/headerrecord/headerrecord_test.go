package headerrecord

import (
	"errors"
	"testing"
)

func TestParseCompleteRecord(t *testing.T) {
	line := "Apple,Banana,Potato,,Carrot,Cherry,Date,55,85,0"
	rec, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	want := [7]string{"Apple", "Banana", "Potato", "", "Carrot", "Cherry", "Date"}
	if rec.Fields != want {
		t.Errorf("Fields = %v, want %v", rec.Fields, want)
	}
	if rec.InputSize != 55 || rec.OutputSize != 85 || rec.PayloadOffset != 0 {
		t.Errorf("sizes = (%d, %d, %d), want (55, 85, 0)", rec.InputSize, rec.OutputSize, rec.PayloadOffset)
	}
	if rec.End() != 140 {
		t.Errorf("End() = %d, want 140", rec.End())
	}
}

func TestParsePreservesEmptyFields(t *testing.T) {
	rec, err := Parse("a,,c,,,f,g,1,2,3")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if rec.Fields[1] != "" || rec.Fields[3] != "" || rec.Fields[4] != "" {
		t.Errorf("expected empty fields to be preserved, got %v", rec.Fields)
	}
}

func TestParseTooFewFieldsIsTorn(t *testing.T) {
	_, err := Parse("Apple,Banana,Potato,,Carrot,Che")
	if !errors.Is(err, ErrTorn) {
		t.Fatalf("expected ErrTorn, got %v", err)
	}
}

func TestParseTooManyFieldsIsTorn(t *testing.T) {
	// Exactly 10 commas means 11 fields.
	_, err := Parse("a,b,c,d,e,f,g,1,2,3,extra")
	if !errors.Is(err, ErrTorn) {
		t.Fatalf("expected ErrTorn, got %v", err)
	}
}

func TestParseNegativeNumericFieldIsFatal(t *testing.T) {
	_, err := Parse("a,b,c,d,e,f,g,-1,2,3")
	if err == nil || errors.Is(err, ErrTorn) {
		t.Fatalf("expected a non-torn parse error, got %v", err)
	}
}

func TestParseNonNumericFieldIsFatal(t *testing.T) {
	_, err := Parse("a,b,c,d,e,f,g,notanumber,2,3")
	if err == nil || errors.Is(err, ErrTorn) {
		t.Fatalf("expected a non-torn parse error, got %v", err)
	}
}
