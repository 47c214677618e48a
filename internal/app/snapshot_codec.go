package app

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// SnapshotFormat names a snapshot encoding.
type SnapshotFormat string

// SnapshotFormatJSON and related constants define package defaults.
const (
	SnapshotFormatJSON SnapshotFormat = "json"
	SnapshotFormatYAML SnapshotFormat = "yaml"
)

//go:embed snapshot.schema.json
var snapshotSchemaJSON string

const snapshotSchemaURL = "statusdesk://snapshot.schema.json"

var (
	snapshotSchemaOnce sync.Once
	snapshotSchema     *jsonschema.Schema
	snapshotSchemaErr  error
)

// SchemaValidationError describes a snapshot document that does not match the schema.
type SchemaValidationError struct {
	Path    string
	Message string
}

// Error renders the schema-validation failure.
func (e SchemaValidationError) Error() string {
	path := strings.TrimSpace(e.Path)
	if path == "" {
		path = "$"
	}
	return fmt.Sprintf("%s: %s", path, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidSnapshot.
func (e SchemaValidationError) Unwrap() error {
	return ErrInvalidSnapshot
}

// FormatForPath picks a snapshot format from a file extension; unknown extensions are JSON.
func FormatForPath(path string) SnapshotFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return SnapshotFormatYAML
	default:
		return SnapshotFormatJSON
	}
}

// ParseSnapshotFormat validates a user-supplied format name.
func ParseSnapshotFormat(raw string) (SnapshotFormat, error) {
	switch SnapshotFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case SnapshotFormatJSON:
		return SnapshotFormatJSON, nil
	case SnapshotFormatYAML, "yml":
		return SnapshotFormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unsupported snapshot format %q", ErrInvalidRequest, raw)
	}
}

// DecodeSnapshot reads, schema-validates and decodes one snapshot document.
func DecodeSnapshot(r io.Reader, format SnapshotFormat) (Snapshot, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	if format == SnapshotFormatYAML {
		raw, err = yamlToJSON(raw)
		if err != nil {
			return Snapshot{}, err
		}
	}
	if err := validateSnapshotDocument(raw); err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: decode snapshot: %v", ErrInvalidSnapshot, err)
	}
	return snap, nil
}

// EncodeSnapshot writes snap in the requested format.
func EncodeSnapshot(w io.Writer, snap Snapshot, format SnapshotFormat) error {
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if format != SnapshotFormatYAML {
		_, err = w.Write(append(raw, '\n'))
		return err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("encode snapshot yaml: %w", err)
	}
	return enc.Close()
}

// yamlToJSON re-encodes a YAML document as JSON so one schema and one set of tags serve both.
func yamlToJSON(raw []byte) ([]byte, error) {
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalidSnapshot, err)
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("%w: convert yaml: %v", ErrInvalidSnapshot, err)
	}
	return out, nil
}

// compiledSnapshotSchema compiles the embedded schema once.
func compiledSnapshotSchema() (*jsonschema.Schema, error) {
	snapshotSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		if err := compiler.AddResource(snapshotSchemaURL, strings.NewReader(snapshotSchemaJSON)); err != nil {
			snapshotSchemaErr = fmt.Errorf("add snapshot schema: %w", err)
			return
		}
		snapshotSchema, snapshotSchemaErr = compiler.Compile(snapshotSchemaURL)
	})
	return snapshotSchema, snapshotSchemaErr
}

// validateSnapshotDocument checks raw JSON against the snapshot schema.
func validateSnapshotDocument(raw []byte) error {
	schema, err := compiledSnapshotSchema()
	if err != nil {
		return err
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return SchemaValidationError{Path: "$", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if err := schema.Validate(doc); err != nil {
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			leaf := verr
			for len(leaf.Causes) > 0 {
				leaf = leaf.Causes[0]
			}
			return SchemaValidationError{Path: leaf.InstanceLocation, Message: leaf.Message}
		}
		return SchemaValidationError{Path: "$", Message: err.Error()}
	}
	return nil
}
