package extract_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ledgerline/ledgerline/internal/extract"
)

func TestTextPlain(t *testing.T) {
	e := extract.New()

	got, err := e.Text("notes.txt", "text/plain", []byte("invoice INV-1001 total $350.00"))
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if got != "invoice INV-1001 total $350.00" {
		t.Errorf("Text() = %q", got)
	}
}

func TestTextCSV(t *testing.T) {
	e := extract.New()

	tests := []struct {
		name string
		data string
		want string
	}{
		{
			"simple",
			"id,description,amount\n1,consulting,100.00\n",
			"id | description | amount\n1 | consulting | 100.00\n",
		},
		{
			"quoted commas",
			`1,"Hosting, monthly",250.00` + "\n",
			"1 | Hosting, monthly | 250.00\n",
		},
		{
			"ragged rows",
			"a,b,c\nx,y\n",
			"a | b | c\nx | y\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Text("data.csv", "text/csv", []byte(tt.data))
			if err != nil {
				t.Fatalf("Text() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextCSVByExtension(t *testing.T) {
	e := extract.New()

	// generic content type still routes through the CSV normalizer
	got, err := e.Text("data.csv", "application/octet-stream", []byte("a,b\n"))
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if got != "a | b\n" {
		t.Errorf("Text() = %q", got)
	}
}

func TestTextEmptyCSV(t *testing.T) {
	e := extract.New()

	if _, err := e.Text("empty.csv", "text/csv", nil); !errors.Is(err, extract.ErrNoText) {
		t.Errorf("Text() error = %v, want %v", err, extract.ErrNoText)
	}
}

func TestTextUnsupportedType(t *testing.T) {
	e := extract.New()

	if _, err := e.Text("archive.zip", "application/zip", []byte{0x50, 0x4b}); !errors.Is(err, extract.ErrUnsupportedType) {
		t.Errorf("Text() error = %v, want %v", err, extract.ErrUnsupportedType)
	}
}

func TestDataURI(t *testing.T) {
	e := extract.New()

	got := e.DataURI("image/png", []byte{0x89, 0x50, 0x4e, 0x47})
	if !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Errorf("DataURI() = %q", got)
	}
	if got != "data:image/png;base64,iVBORw==" {
		t.Errorf("DataURI() = %q, want data:image/png;base64,iVBORw==", got)
	}
}

func TestTypePredicates(t *testing.T) {
	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"png is image", extract.IsImage("image/png"), true},
		{"pdf is not image", extract.IsImage("application/pdf"), false},
		{"pdf by content type", extract.IsPDF("application/pdf", "scan.bin"), true},
		{"pdf by extension", extract.IsPDF("application/octet-stream", "Invoice.PDF"), true},
		{"csv by content type", extract.IsCSV("text/csv", "data.bin"), true},
		{"csv by extension", extract.IsCSV("application/octet-stream", "data.csv"), true},
		{"plain text", extract.IsText("text/plain"), true},
		{"json counts as text", extract.IsText("application/json"), true},
		{"zip is not text", extract.IsText("application/zip"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("predicate = %v, want %v", tt.got, tt.want)
			}
		})
	}
}
