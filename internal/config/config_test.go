package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/field"
)

func validConfig() Config {
	cfg := Config{
		CloudSearch: CloudSearchConfig{
			AccessKeyID:     "AKIA",
			SecretAccessKey: "secret",
			IPAddress:       "10.0.0.1",
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("http.port = %d", cfg.HTTP.Port)
	}
	if cfg.CloudSearch.Region != "us-east-1" || cfg.CloudSearch.DomainPrefix != "haystack" {
		t.Errorf("region/prefix = %q/%q", cfg.CloudSearch.Region, cfg.CloudSearch.DomainPrefix)
	}
	if cfg.CloudSearch.MaxSpinlockSec != 3600 || cfg.CloudSearch.SpinlockIntervalSec != 60 {
		t.Errorf("spinlock = %d/%d", cfg.CloudSearch.MaxSpinlockSec, cfg.CloudSearch.SpinlockIntervalSec)
	}
	if cfg.CloudSearch.PrepareSilently {
		t.Error("prepare_silently should default to false")
	}
	if cfg.Records.KeyPrefix != "csindex:rec:" || cfg.Records.SyncBatchSize != 100 {
		t.Errorf("records = %+v", cfg.Records)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:        HTTPConfig{Port: 9090, ReadTimeoutSec: 3},
		CloudSearch: CloudSearchConfig{Region: "eu-west-1", DomainPrefix: "acme", MaxSpinlockSec: 10, SpinlockIntervalSec: 1},
	}
	cfg.ApplyDefaults()
	if cfg.HTTP.Port != 9090 || cfg.HTTP.ReadTimeoutSec != 3 {
		t.Errorf("http = %+v", cfg.HTTP)
	}
	if cfg.CloudSearch.Region != "eu-west-1" || cfg.CloudSearch.DomainPrefix != "acme" {
		t.Errorf("cloudsearch = %+v", cfg.CloudSearch)
	}
	if cfg.CloudSearch.MaxSpinlockSec != 10 || cfg.CloudSearch.SpinlockIntervalSec != 1 {
		t.Errorf("spinlock = %d/%d", cfg.CloudSearch.MaxSpinlockSec, cfg.CloudSearch.SpinlockIntervalSec)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing credentials", func(c *Config) { c.CloudSearch.SecretAccessKey = "" }, "secret_access_key"},
		{"unknown region", func(c *Config) { c.CloudSearch.Region = "mars-1" }, "mars-1"},
		{"missing ip", func(c *Config) { c.CloudSearch.IPAddress = "" }, "ip_address"},
		{"bad port", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"interval above ceiling", func(c *Config) { c.CloudSearch.SpinlockIntervalSec = 7200 }, "spinlock_interval_sec"},
		{"negative limits", func(c *Config) { c.CloudSearch.RequestsPerSecond = -1 }, "negative"},
		{"bad record type", func(c *Config) {
			c.Indexes = []IndexConfig{{Name: "notes", RecordType: "notes"}}
		}, "indexes[0]"},
		{"bad field kind", func(c *Config) {
			c.Indexes = []IndexConfig{{Name: "notes", RecordType: "notes.note", Fields: []FieldConfig{{Name: "at", Kind: "date"}}}}
		}, "date"},
		{"duplicate index", func(c *Config) {
			c.Indexes = []IndexConfig{{Name: "notes", RecordType: "notes.note"}, {Name: "notes", RecordType: "notes.other"}}
		}, "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("error %v should wrap ErrConfiguration", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestParse_IndexesAndEnv(t *testing.T) {
	t.Setenv("CS_SECRET", "from-env")
	raw := []byte(`
cloudsearch:
  access_key_id: AKIA
  secret_access_key: ${CS_SECRET}
  region: ${CS_REGION:-ap-northeast-1}
  ip_address: 10.1.2.3
  prepare_silently: true
indexes:
  - name: notes
    class_name: NoteIndex
    record_type: notes.note
    fields:
      - name: title
        kind: text
        stored: true
      - name: year
        kind: uint
        default: 2000
        indexed: false
      - name: tags
        kind: literal
        source: labels
        multi_valued: true
        faceted: true
`)
	cfg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.CloudSearch.SecretAccessKey != "from-env" || cfg.CloudSearch.Region != "ap-northeast-1" {
		t.Errorf("env expansion: %+v", cfg.CloudSearch)
	}
	if !cfg.CloudSearch.PrepareSilently {
		t.Error("prepare_silently not read")
	}

	def, err := cfg.Indexes[0].Definition()
	if err != nil {
		t.Fatalf("Definition: %v", err)
	}
	if def.RecordType != (domain.RecordType{Namespace: "notes", Model: "note"}) || def.ClassName != "NoteIndex" {
		t.Errorf("definition = %+v", def)
	}
	if len(def.Fields) != 3 {
		t.Fatalf("fields = %d", len(def.Fields))
	}
	title, year, tags := def.Fields[0], def.Fields[1], def.Fields[2]
	if title.Kind != field.KindText || !title.Stored || !title.Indexed {
		t.Errorf("title = %+v", title)
	}
	if year.Indexed || year.Default != 2000 {
		t.Errorf("year = %+v", year)
	}
	if tags.Source != "labels" || !tags.MultiValued || !tags.Faceted {
		t.Errorf("tags = %+v", tags)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("cloudsearch: [")); err == nil {
		t.Error("malformed YAML should fail")
	}
	if _, err := Parse([]byte("http:\n  port: 8080\n")); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("missing credentials: error = %v", err)
	}
}
