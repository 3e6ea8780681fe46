package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestAnalyze_EmptyFile(t *testing.T) {
	path := writeTemp(t, "empty.csv", nil)

	_, err := Analyze(path, 0)
	var rej *RejectionError
	if !errors.As(err, &rej) || rej.Kind != KindEmpty {
		t.Fatalf("expected empty rejection, got %v", err)
	}
}

func TestAnalyze_ExecutableMagic(t *testing.T) {
	path := writeTemp(t, "payload.dat", []byte("\x7FELF\x02\x01\x01\x00rest of data here"))

	_, err := Analyze(path, 0)
	var rej *RejectionError
	if !errors.As(err, &rej) || rej.Kind != KindExecutable {
		t.Fatalf("expected executable rejection, got %v", err)
	}
}

func TestAnalyze_BinaryExtensionRejectedBeforeSniffing(t *testing.T) {
	path := writeTemp(t, "tool.exe", []byte("hello,world\n1,2\n"))

	_, err := Analyze(path, 0)
	var rej *RejectionError
	if !errors.As(err, &rej) || rej.Kind != KindExecutable {
		t.Fatalf("expected executable rejection for binary extension, got %v", err)
	}
}

func TestAnalyze_NullByteIsBinary(t *testing.T) {
	path := writeTemp(t, "weird.csv", []byte("a,b,c\x00\n1,2,3\n"))

	_, err := Analyze(path, 0)
	var rej *RejectionError
	if !errors.As(err, &rej) || rej.Kind != KindBinary {
		t.Fatalf("expected binary rejection, got %v", err)
	}
}

func TestAnalyze_SimpleCSV(t *testing.T) {
	path := writeTemp(t, "simple.csv", []byte("a,b,c\n1,2,3\n\"x, y\",z,\"q\"\n"))

	res, err := Analyze(path, 0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !res.Safe {
		t.Fatal("expected safe result")
	}
	if res.FormatHint != FormatCSV {
		t.Errorf("expected csv hint, got %s", res.FormatHint)
	}
}

func TestAnalyze_TSV(t *testing.T) {
	path := writeTemp(t, "simple.tsv", []byte("a\tb\tc\n1\t2\t3\n4\t5\t6\n"))

	res, err := Analyze(path, 0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.FormatHint != FormatTSV {
		t.Errorf("expected tsv hint, got %s", res.FormatHint)
	}
}

func TestAnalyze_JSON(t *testing.T) {
	path := writeTemp(t, "simple.json", []byte(`[{"a":1},{"a":2}]`))

	res, err := Analyze(path, 0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.FormatHint != FormatJSON {
		t.Errorf("expected json hint, got %s", res.FormatHint)
	}
}

func TestAnalyze_XML(t *testing.T) {
	path := writeTemp(t, "simple.xml", []byte("<root><row>1</row></root>"))

	res, err := Analyze(path, 0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.FormatHint != FormatXML {
		t.Errorf("expected xml hint, got %s", res.FormatHint)
	}
}

func TestAnalyze_GzipDetected(t *testing.T) {
	path := writeTemp(t, "data.csv.gz", []byte{0x1F, 0x8B, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00})

	res, err := Analyze(path, 0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Compression != CompressionGzip {
		t.Errorf("expected gzip compression, got %s", res.Compression)
	}
	if res.NestingLevel != 1 {
		t.Errorf("expected nesting level 1, got %d", res.NestingLevel)
	}
}

func TestAnalyze_CompressionTooNested(t *testing.T) {
	path := writeTemp(t, "data.gz", []byte{0x1F, 0x8B, 0x08, 0x00})

	_, err := Analyze(path, maxCompressionNesting)
	var rej *RejectionError
	if !errors.As(err, &rej) || rej.Kind != KindCompressionTooNested {
		t.Fatalf("expected compression_too_nested rejection, got %v", err)
	}
}

func TestAnalyze_Oversized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.Truncate(maxFileSize + 1); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	f.Close()

	_, err = Analyze(path, 0)
	var rej *RejectionError
	if !errors.As(err, &rej) || rej.Kind != KindOversized {
		t.Fatalf("expected oversized rejection, got %v", err)
	}
}
