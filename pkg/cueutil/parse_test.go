// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"
)

const testSchema = `
#Thing: {
	name:   string & =~"^[a-z]+$"
	count?: int & >=0
}
`

type thing struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	result, err := ParseAndDecode[thing]([]byte(testSchema), []byte(`name: "core", count: 2`), "#Thing")
	if err != nil {
		t.Fatalf("ParseAndDecode() error = %v", err)
	}
	if result.Value.Name != "core" || result.Value.Count != 2 {
		t.Errorf("decoded %+v", *result.Value)
	}
}

func TestParseAndDecode_SchemaViolation(t *testing.T) {
	t.Parallel()

	_, err := ParseAndDecode[thing]([]byte(testSchema), []byte(`name: "Core"`), "#Thing", WithFilename("project.cue"))
	if err == nil {
		t.Fatal("ParseAndDecode() should reject a value outside the schema")
	}
	if !strings.Contains(err.Error(), "project.cue") {
		t.Errorf("error should name the file, got %v", err)
	}
}

func TestParseAndDecode_FileTooLarge(t *testing.T) {
	t.Parallel()

	_, err := ParseAndDecode[thing]([]byte(testSchema), []byte(`name: "core"`), "#Thing", WithMaxFileSize(4))
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("ParseAndDecode() = %v, want size error", err)
	}
}
