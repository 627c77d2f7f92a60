package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/JonMunkholm/freight/internal/core"
	"github.com/JonMunkholm/freight/internal/store"
)

type stubCorrector struct{}

func (stubCorrector) CorrectCity(ctx context.Context, city string) (core.CityCorrection, error) {
	if strings.EqualFold(city, "nowhere") {
		return core.CityCorrection{}, errors.New("correction service returned 500")
	}
	conf := 0.87
	return core.CityCorrection{Original: strings.ToLower(city), Corrected: "Helsinki", Confidence: &conf}, nil
}

func newTestService(t *testing.T) (*core.Service, *store.Memory) {
	t.Helper()
	color.NoColor = true
	mem := store.NewMemory("shipments")
	svc := core.NewService(mem, stubCorrector{}, core.ServiceConfig{
		MaxConcurrentImports: 1,
		MaxImportWait:        time.Second,
		ExportLocation:       time.UTC,
	})
	return svc, mem
}

// run executes shipctl with args against svc and returns its output.
func run(t *testing.T, svc *core.Service, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(func(ctx context.Context) (*core.Service, func(), error) {
		return svc, func() {}, nil
	})

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func addShipment(t *testing.T, svc *core.Service, name string) {
	t.Helper()
	_, err := run(t, svc, "add",
		"--name", name,
		"--company", "1234567-8",
		"--street", "Mannerheimintie 1",
		"--postal-code", "00100",
		"--city", "helsingfors",
	)
	if err != nil {
		t.Fatalf("add %s: %v", name, err)
	}
}

func TestAddAndList(t *testing.T) {
	svc, mem := newTestService(t)

	out, err := run(t, svc, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No shipments found.") {
		t.Errorf("empty list output = %q", out)
	}

	addShipment(t, svc, "Matti")
	addShipment(t, svc, "Aino")

	list, _ := mem.LoadAll(context.Background())
	if len(list) != 2 {
		t.Fatalf("stored %d shipments, want 2", len(list))
	}

	out, err = run(t, svc, "list", "--sort", "name", "--dir", "asc")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("list printed %d lines, want 4:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[0], "CONFIDENCE") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[2], "Aino") || !strings.Contains(lines[3], "Matti") {
		t.Errorf("rows not sorted by name:\n%s", out)
	}
	if !strings.Contains(lines[2], "87%") || !strings.Contains(lines[2], "Mannerheimintie 1, 00100 helsingfors") {
		t.Errorf("row = %q", lines[2])
	}
}

func TestAdd_ValidationErrors(t *testing.T) {
	svc, mem := newTestService(t)

	_, err := run(t, svc, "add", "--name", "Matti", "--postal-code", "12")
	if err == nil {
		t.Fatal("add with invalid input succeeded")
	}
	if !strings.Contains(err.Error(), "street") || !strings.Contains(err.Error(), "postal_code") {
		t.Errorf("error = %v, want field errors", err)
	}

	list, _ := mem.LoadAll(context.Background())
	if len(list) != 0 {
		t.Errorf("stored %d shipments, want 0", len(list))
	}
}

func TestList_InvalidSort(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := run(t, svc, "list", "--sort", "weight"); err == nil {
		t.Error("list --sort weight succeeded")
	}
}

func TestImport(t *testing.T) {
	svc, mem := newTestService(t)

	path := filepath.Join(t.TempDir(), "batch.csv")
	content := "name,company,street,postal_code,city\n" +
		"Matti,1234567-8,Mannerheimintie 1,00100,Helsinki\n" +
		"Liisa,,Hämeenkatu 5,postal,Tampere\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, svc, "import", path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "100%") {
		t.Errorf("no final progress in output:\n%s", out)
	}
	if !strings.Contains(out, "Import partially successful") {
		t.Errorf("missing outcome title:\n%s", out)
	}
	if !strings.Contains(out, "row 3:") {
		t.Errorf("missing row error:\n%s", out)
	}

	list, _ := mem.LoadAll(context.Background())
	if len(list) != 1 {
		t.Errorf("stored %d shipments, want 1", len(list))
	}
}

func TestImport_Rejected(t *testing.T) {
	svc, _ := newTestService(t)
	dir := t.TempDir()

	if _, err := run(t, svc, "import", filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("import of missing file succeeded")
	}

	txt := filepath.Join(dir, "shipments.txt")
	os.WriteFile(txt, []byte("name\n"), 0o644)
	_, err := run(t, svc, "import", txt)
	if err == nil || !strings.Contains(err.Error(), "failed to start import") {
		t.Errorf("import of .txt error = %v", err)
	}
}

func TestExportAndDelete(t *testing.T) {
	svc, mem := newTestService(t)
	addShipment(t, svc, "Matti")
	addShipment(t, svc, "Aino")

	out, err := run(t, svc, "export")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(out, "Shipment ID,Recipient Name") || strings.Count(out, "\n") != 3 {
		t.Errorf("export output:\n%s", out)
	}

	list, _ := mem.LoadAll(context.Background())
	dest := filepath.Join(t.TempDir(), "out.csv")
	if _, err := run(t, svc, "export", "-o", dest, "--ids", list[0].ID); err != nil {
		t.Fatalf("export -o: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(string(data), "\n"); len(lines) != 2 || !strings.HasPrefix(lines[1], list[0].ID+",") {
		t.Errorf("exported file:\n%s", data)
	}

	out, err = run(t, svc, "delete", list[0].ID, "NOPE1234")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(out, "Deleted 1 shipment(s)") || !strings.Contains(out, "1 ID(s) not found") {
		t.Errorf("delete output = %q", out)
	}

	list, _ = mem.LoadAll(context.Background())
	if len(list) != 1 {
		t.Errorf("%d shipments left, want 1", len(list))
	}
}

func TestTemplate(t *testing.T) {
	svc, _ := newTestService(t)
	out, err := run(t, svc, "template")
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if out != core.TemplateCSV {
		t.Errorf("template output = %q", out)
	}
}

func TestCorrect(t *testing.T) {
	svc, _ := newTestService(t)

	out, err := run(t, svc, "correct", "  HELSINGFORS ")
	if err != nil {
		t.Fatalf("correct: %v", err)
	}
	if !strings.Contains(out, "-> Helsinki (87%)") {
		t.Errorf("correct output = %q", out)
	}

	if _, err := run(t, svc, "correct", "nowhere"); err == nil {
		t.Error("correct nowhere succeeded")
	}
}

func TestOpenerError(t *testing.T) {
	root := NewRootCmd(func(ctx context.Context) (*core.Service, func(), error) {
		return nil, nil, errors.New("store unavailable")
	})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"list"})

	if err := root.Execute(); err == nil || err.Error() != "store unavailable" {
		t.Errorf("Execute() error = %v", err)
	}
}
