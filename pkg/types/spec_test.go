// pkg/types/spec_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test name[@version] parsing rules

package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arthur-debert/kegs/pkg/types"
)

func TestParseSpecification(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantName    string
		wantVersion string
		wantValid   bool
	}{
		{"bare name", "wget", "wget", "", true},
		{"name and version", "wget@1.24.5", "wget", "1.24.5", true},
		{"first at only", "a@1.0@extra", "a", "1.0@extra", true},
		{"empty version normalizes", "wget@", "wget", "", true},
		{"whitespace around separator", " node @ 20.1.0 ", "node", "20.1.0", true},
		{"dots dashes underscores", "python_3.12-dev@3.12.1", "python_3.12-dev", "3.12.1", true},
		{"empty name", "@1.0", "", "1.0", false},
		{"empty input", "", "", "", false},
		{"space in name", "a b", "a b", "", false},
		{"slash in name", "a/b", "a/b", "", false},
		{"colon in name", "a:b", "a:b", "", false},
		{"dot dot", "..", "..", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := types.ParseSpecification(tt.input)
			assert.Equal(t, tt.wantName, spec.Name)
			assert.Equal(t, tt.wantVersion, spec.Version)
			assert.Equal(t, tt.wantValid, spec.IsValid())
			assert.Equal(t, tt.wantVersion != "", spec.HasVersion())
		})
	}
}

func TestSpecificationRoundTrip(t *testing.T) {
	for _, s := range []string{"wget@1.24.5", "a@1.0@extra", "openssl@3@3.3.1", "x-y_z.w@0"} {
		assert.Equal(t, s, types.ParseSpecification(s).FullSpecification())
	}
	assert.Equal(t, "wget", types.ParseSpecification("wget").FullSpecification())
	assert.Equal(t, "wget", types.ParseSpecification("wget@").String())
}
