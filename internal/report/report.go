// Package report serializes completed scope registries into a YAML catalog
// for tooling and documentation consumers, optionally publishing it to
// object storage.
package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/koustreak/pgscope/internal/filestore"
	"github.com/koustreak/pgscope/internal/scope"
	"go.yaml.in/yaml/v3"
)

// Report is one snapshot of every generated scope, grouped by table.
type Report struct {
	GeneratedAt time.Time     `yaml:"generated_at"`
	Tables      []TableReport `yaml:"tables"`
}

// TableReport lists the scopes of one table.
type TableReport struct {
	Table  string       `yaml:"table"`
	Scopes []ScopeEntry `yaml:"scopes"`
}

// ScopeEntry documents one registered scope: its name, argument contract,
// operator template, and the always-applied predicate when the backing
// index is partial.
type ScopeEntry struct {
	Name         string   `yaml:"name"`
	Index        string   `yaml:"index"`
	Contract     string   `yaml:"contract"`
	RequiredKeys []string `yaml:"required_keys,omitempty"`
	Template     string   `yaml:"template"`
	Predicate    string   `yaml:"predicate,omitempty"`
}

// Build assembles a Report from registries, tables sorted by name and
// scopes in registration order.
func Build(registries map[string]*scope.Registry) *Report {
	tables := make([]string, 0, len(registries))
	for t := range registries {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	r := &Report{GeneratedAt: time.Now().UTC()}
	for _, t := range tables {
		tr := TableReport{Table: t}
		for _, d := range registries[t].Descriptors() {
			tr.Scopes = append(tr.Scopes, ScopeEntry{
				Name:         d.Name,
				Index:        d.Index,
				Contract:     d.Contract.String(),
				RequiredKeys: d.RequiredKeys,
				Template:     d.Template,
				Predicate:    d.Predicate,
			})
		}
		r.Tables = append(r.Tables, tr)
	}
	return r
}

// WriteYAML renders the report as YAML to w.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()

	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// Publish uploads the report as a YAML object, creating the bucket when
// needed.
func Publish(ctx context.Context, store filestore.Store, bucket, key string, r *Report) error {
	var buf bytes.Buffer
	if err := r.WriteYAML(&buf); err != nil {
		return err
	}

	if err := store.EnsureBucket(ctx, bucket); err != nil {
		return err
	}
	return store.PutObject(ctx, bucket, key, &buf, int64(buf.Len()), "application/yaml")
}
