package log_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ezoic/treesplit/pkg/log"
)

func TestLogger_StructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetLevel("debug")
	defer log.SetLevel("warn")

	logger := log.GetLoggerWithName("scan").With(log.ComponentKey, "scan")
	logger.Info("Sweep completed",
		log.RowsKey, 1000,
		log.WorkersKey, 8,
	)

	var event map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if event["logger"] != "scan" || event[log.ComponentKey] != "scan" {
		t.Errorf("missing logger tags: %v", event)
	}
	if event[log.RowsKey] != float64(1000) || event[log.WorkersKey] != float64(8) {
		t.Errorf("missing event fields: %v", event)
	}
	if event["message"] != "Sweep completed" {
		t.Errorf("missing message: %v", event)
	}
}

func TestSetLevel_Filters(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetLevel("error")
	defer log.SetLevel("warn")

	log.GetLogger().Debug("hidden")
	log.GetLogger().Info("hidden too")
	if buf.Len() != 0 {
		t.Errorf("expected no output below the error level, got %q", buf.String())
	}

	log.GetLogger().Error("visible")
	if buf.Len() == 0 {
		t.Errorf("expected error output")
	}
}

func TestSetLevel_IgnoresUnknown(t *testing.T) {
	log.SetLevel("nonsense")
}
