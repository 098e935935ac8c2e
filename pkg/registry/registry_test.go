// pkg/registry/registry_test.go
package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// TEST HELPERS
// ==========================

func sampleActivity(id string) Activity {
	return Activity{
		ID:                   id,
		DisplayName:          "Verify Completeness",
		Description:          "Checks required fields",
		Phase:                "verification",
		Version:              "1.0.0",
		Handler:              "internal/workers/loan/verify-completeness",
		ImplementationStatus: "verified",
		InputSchema:          map[string]interface{}{},
		OutputSchema:         map[string]interface{}{},
		ErrorCodes:           []string{},
		Timeout:              "10s",
		Retries:              0,
		Workflows:            []string{"loan-approval"},
		Tags:                 []string{"verification"},
	}
}

// ==========================
// LOAD / SAVE TESTS
// ==========================

func TestSaveAndLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "activity-registry.json")
	reg := &ActivityRegistry{
		Version:    "1.0.0",
		Activities: []Activity{sampleActivity("verify-completeness")},
	}

	require.NoError(t, SaveRegistry(reg, path))
	assert.NotEmpty(t, reg.LastUpdated)

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, loaded.Activities, 1)
	assert.Equal(t, "verify-completeness", loaded.Activities[0].ID)
	assert.Equal(t, "verification", loaded.Activities[0].Phase)
	assert.Equal(t, reg.LastUpdated, loaded.LastUpdated)
}

func TestLoadRegistry_MissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

// ==========================
// VALIDATION TESTS
// ==========================

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(reg *ActivityRegistry)
		errContains string
	}{
		{
			name:   "valid registry",
			mutate: func(reg *ActivityRegistry) {},
		},
		{
			name: "empty registry",
			mutate: func(reg *ActivityRegistry) {
				reg.Activities = nil
			},
			errContains: "no activities",
		},
		{
			name: "duplicate id",
			mutate: func(reg *ActivityRegistry) {
				reg.Activities = append(reg.Activities, sampleActivity("verify-completeness"))
			},
			errContains: "duplicate",
		},
		{
			name: "id breaks naming convention",
			mutate: func(reg *ActivityRegistry) {
				reg.Activities[0].ID = "VerifyCompleteness"
			},
			errContains: "lowercase dash-separated",
		},
		{
			name: "missing display name",
			mutate: func(reg *ActivityRegistry) {
				reg.Activities[0].DisplayName = ""
			},
			errContains: "DisplayName",
		},
		{
			name: "missing phase",
			mutate: func(reg *ActivityRegistry) {
				reg.Activities[0].Phase = ""
			},
			errContains: "Phase",
		},
		{
			name: "missing handler",
			mutate: func(reg *ActivityRegistry) {
				reg.Activities[0].Handler = ""
			},
			errContains: "Handler",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &ActivityRegistry{
				Version:    "1.0.0",
				Activities: []Activity{sampleActivity("verify-completeness")},
			}
			tt.mutate(reg)

			err := reg.Validate()
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestFind(t *testing.T) {
	reg := &ActivityRegistry{
		Activities: []Activity{
			sampleActivity("verify-completeness"),
			sampleActivity("prepare-agreement"),
		},
	}

	found := reg.Find("prepare-agreement")
	require.NotNil(t, found)
	assert.Equal(t, "prepare-agreement", found.ID)

	// Find returns a pointer into the registry, so edits stick.
	found.ImplementationStatus = "in-progress"
	assert.Equal(t, "in-progress", reg.Activities[1].ImplementationStatus)

	assert.Nil(t, reg.Find("unknown-activity"))
}
