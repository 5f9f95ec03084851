package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteSchemaDescribesConfigFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "config.schema.json")
	if err := writeSchema(out, buildSchema()); err != nil {
		t.Fatalf("writeSchema: %v", err)
	}
	if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file should be renamed away, stat err=%v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	if doc["title"] != "Sulphate server configuration" {
		t.Fatalf("unexpected title %v", doc["title"])
	}
	props, _ := doc["properties"].(map[string]any)
	for _, key := range []string{"server", "world", "loop", "logging", "observability"} {
		if _, ok := props[key]; !ok {
			t.Fatalf("schema missing %q section: %s", key, data)
		}
	}
}
