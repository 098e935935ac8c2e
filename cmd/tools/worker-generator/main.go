// cmd/tools/worker-generator/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"loanflow/pkg/registry"
)

// WorkerData holds data for templates
type WorkerData struct {
	Name                 string                 `json:"name"`
	PackageName          string                 `json:"packageName"`
	TaskType             string                 `json:"taskType"`
	InputSchema          map[string]interface{} `json:"inputSchema"`
	OutputSchema         map[string]interface{} `json:"outputSchema"`
	ErrorCodes           []string               `json:"errorCodes"`
	Description          string                 `json:"description"`
	Phase                string                 `json:"phase"`
	Timeout              string                 `json:"timeout"`
	Retries              int                    `json:"retries"`
	ImplementationStatus string                 `json:"implementationStatus"`
}

// parseSchema extracts properties from a JSON schema object
func parseSchema(schemaObj interface{}) map[string]interface{} {
	if schemaMap, ok := schemaObj.(map[string]interface{}); ok {
		if props, exists := schemaMap["properties"]; exists {
			if properties, ok := props.(map[string]interface{}); ok {
				return properties
			}
		}
	}
	return map[string]interface{}{}
}

// goTypeFromJSONType maps JSON schema types to Go types
func goTypeFromJSONType(jsonType interface{}) string {
	if jt, ok := jsonType.(string); ok {
		switch jt {
		case "string":
			return "string"
		case "number":
			return "float64"
		case "integer":
			return "int"
		case "boolean":
			return "bool"
		case "object":
			return "map[string]interface{}"
		case "array":
			return "[]interface{}"
		default:
			return "interface{}"
		}
	}
	return "interface{}"
}

// generateStructFields generates Go struct field definitions from schema
// properties, in a stable order.
func generateStructFields(properties map[string]interface{}) string {
	names := make([]string, 0, len(properties))
	for prop := range properties {
		names = append(names, prop)
	}
	sort.Strings(names)

	var fields []string
	for _, prop := range names {
		propDetails, ok := properties[prop].(map[string]interface{})
		if !ok {
			continue
		}
		goType := goTypeFromJSONType(propDetails["type"])
		jsonTag := fmt.Sprintf("`json:\"%s\"`", prop)

		comment := ""
		if desc, exists := propDetails["description"]; exists {
			if d, ok := desc.(string); ok && d != "" {
				comment = fmt.Sprintf(" // %s", d)
			}
		}

		fields = append(fields, fmt.Sprintf("\t%s %s %s%s", exportedName(prop), goType, jsonTag, comment))
	}
	return strings.Join(fields, "\n")
}

// exportedName converts a snake_case property name to an exported Go name
func exportedName(s string) string {
	parts := strings.Split(s, "_")
	for i, part := range parts {
		if part == "id" {
			parts[i] = "ID"
			continue
		}
		parts[i] = upperFirst(part)
	}
	return strings.Join(parts, "")
}

// upperFirst makes the first character uppercase
func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// recordInput reports whether the activity consumes the shared loan
// record projection instead of a bespoke input struct.
func recordInput(schemaObj interface{}) bool {
	props := parseSchema(schemaObj)
	if len(props) != 1 {
		return false
	}
	details, ok := props["record"].(map[string]interface{})
	if !ok {
		return false
	}
	t, _ := details["type"].(string)
	return t == "object"
}

const handlerTemplate = `// internal/workers/loan/{{ .TaskType }}/handler.go
package {{ .PackageName }}

import (
	"context"

	"loanflow/internal/common/logger"
)

const (
	TaskType = "{{ .TaskType }}"
)

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	// TODO: implement {{ .Name }}

	output := &Output{}

	h.logger.Info("{{ .TaskType }} executed", map[string]interface{}{})

	return output, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
`

const configTemplate = `// internal/workers/loan/{{ .TaskType }}/config.go
package {{ .PackageName }}

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
`

const modelsTemplate = `// internal/workers/loan/{{ .TaskType }}/models.go
package {{ .PackageName }}

{{ if recordInput .InputSchema -}}
// Input carries the relevant projection of a loan application record.
type Input struct {
	Record map[string]interface{} ` + "`json:\"record\"`" + `
}
{{- else -}}
// Input holds the variables consumed by the '{{ .TaskType }}' activity.
type Input struct {
{{- $inputProps := parseSchema .InputSchema }}
{{- if $inputProps }}
{{ generateStructFields $inputProps }}
{{- else }}
	// TODO: add input fields for {{ .Name }}
{{- end }}
}
{{- end }}

// Output holds the result produced by the '{{ .TaskType }}' activity.
type Output struct {
{{- $outputProps := parseSchema .OutputSchema }}
{{- if $outputProps }}
{{ generateStructFields $outputProps }}
{{- else }}
	// TODO: add output fields for {{ .Name }}
{{- end }}
}
`

const testTemplate = `// internal/workers/loan/{{ .TaskType }}/handler_test.go
package {{ .PackageName }}

import (
	"context"
	"testing"

	"loanflow/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return LoadConfig()
}

func newTestLogger(t *testing.T) logger.Logger {
	return logger.NewTestLogger(t)
}

// ==========================
// Execute Tests
// ==========================

func TestExecute(t *testing.T) {
	tests := []struct {
		name        string
		input       *Input
		errContains string
	}{
		{
			name:  "valid input",
			input: &Input{},
		},
		// TODO: add cases for {{ .Name }}
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(createTestConfig(), newTestLogger(t))

			output, err := handler.Execute(context.Background(), tt.input)

			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, output)
		})
	}
}
`

func main() {
	activity := flag.String("activity", "", "Activity ID from the registry (e.g., verify-completeness)")
	outputDir := flag.String("output", "./internal/workers/loan/", "Output directory for the generated evaluator")
	registryPath := flag.String("registry", "configs/activity-registry.json", "Path to the activity registry JSON file")
	flag.Parse()

	if *activity == "" {
		fmt.Println("Usage: worker-generator --activity <id> --output <dir> [--registry <path>]")
		fmt.Println("\nExample:")
		fmt.Println("  go run cmd/tools/worker-generator/main.go --activity verify-completeness")
		os.Exit(1)
	}

	reg, err := registry.LoadRegistry(*registryPath)
	if err != nil {
		fmt.Printf("Error loading registry from %s: %v\n", *registryPath, err)
		os.Exit(1)
	}

	foundActivity := reg.Find(*activity)
	if foundActivity == nil {
		fmt.Printf("Activity '%s' not found in registry %s\n", *activity, *registryPath)
		os.Exit(1)
	}

	data := WorkerData{
		Name:                 foundActivity.DisplayName,
		PackageName:          strings.ReplaceAll(foundActivity.ID, "-", ""),
		TaskType:             foundActivity.ID,
		InputSchema:          foundActivity.InputSchema,
		OutputSchema:         foundActivity.OutputSchema,
		ErrorCodes:           foundActivity.ErrorCodes,
		Description:          foundActivity.Description,
		Phase:                foundActivity.Phase,
		Timeout:              foundActivity.Timeout,
		Retries:              foundActivity.Retries,
		ImplementationStatus: foundActivity.ImplementationStatus,
	}

	workerDir := filepath.Join(*outputDir, foundActivity.ID)
	if err := os.MkdirAll(workerDir, 0755); err != nil {
		fmt.Printf("Error creating directory: %v\n", err)
		os.Exit(1)
	}

	funcMap := template.FuncMap{
		"parseSchema":          parseSchema,
		"generateStructFields": generateStructFields,
		"recordInput":          recordInput,
	}

	templates := map[string]string{
		"handler.go":      handlerTemplate,
		"config.go":       configTemplate,
		"models.go":       modelsTemplate,
		"handler_test.go": testTemplate,
	}

	for filename, tmplStr := range templates {
		tmpl, err := template.New(filename).Funcs(funcMap).Parse(tmplStr)
		if err != nil {
			fmt.Printf("Error parsing template %s: %v\n", filename, err)
			continue
		}

		filePath := filepath.Join(workerDir, filename)
		file, err := os.Create(filePath)
		if err != nil {
			fmt.Printf("Error creating file %s: %v\n", filePath, err)
			continue
		}

		if err := tmpl.Execute(file, data); err != nil {
			fmt.Printf("Error executing template for %s: %v\n", filename, err)
		}
		file.Close()

		fmt.Printf("✓ Generated %s\n", filePath)
	}

	fmt.Printf("\n✅ Evaluator scaffold generated at: %s\n", workerDir)
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  1. Implement the evaluation logic in handler.go\n")
	fmt.Printf("  2. Fill in the test cases in handler_test.go\n")
	fmt.Printf("  3. Wire the handler into internal/orchestrator/orchestrator.go\n")
	fmt.Printf("  4. Keep configs/activity-registry.json current with registry-updater\n")
}
