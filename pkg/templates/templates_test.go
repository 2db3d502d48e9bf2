package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/flowops/pkg/flowops"
	"github.com/dukex/flowops/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderTemplate = `
schema_version: "1"
display_name: Order follow-up
trigger:
  display_name: Every morning
  type: SCHEDULE
  valid: true
  schedule:
    cron_expression: "0 8 * * *"
  steps: [fetch_orders, each_order, notify]
steps:
  - name: fetch_orders
    display_name: Fetch orders
    type: PIECE
    valid: true
    piece:
      piece_name: "@pieces/piece-http"
      piece_version: "0.5.0"
      action_name: send_request
      input:
        url: https://shop.example.com/orders
  - name: each_order
    display_name: Each order
    type: LOOP_ON_ITEMS
    valid: true
    loop:
      items: "{{fetch_orders.body.orders}}"
    children: [check_total]
  - name: check_total
    display_name: Check total
    type: ROUTER
    valid: true
    router:
      execution_type: EXECUTE_FIRST_MATCH
      branches:
        - name: Large
          type: CONDITION
          conditions:
            - - operator: NUMBER_IS_GREATER_THAN
                first_value: "{{each_order.item.total}}"
                second_value: "100"
          steps: [flag_order]
        - name: Otherwise
          type: FALLBACK
          steps: []
  - name: flag_order
    display_name: Flag order
    type: CODE
    valid: true
    code:
      source_code:
        code: "export const code = async (inputs) => inputs.order"
        package_json: "{}"
      input:
        order: "{{each_order.item}}"
  - name: notify
    display_name: Notify
    type: CODE
    valid: true
    code:
      source_code:
        code: "export const code = async () => true"
        package_json: "{}"
      input: {}
notes:
  - id: note-1
    content: Large orders are flagged
    color: yellow
`

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("flow.yaml"))
	assert.Equal(t, FormatYAML, FormatFromPath("/tmp/FLOW.YML"))
	assert.Equal(t, FormatJSON, FormatFromPath("flow.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("flow"))
}

func TestDecode_YAML(t *testing.T) {
	template, err := Decode([]byte(orderTemplate), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "Order follow-up", template.DisplayName)
	assert.Equal(t, models.TriggerTypeSchedule, template.Trigger.Type)
	assert.Equal(t, "0 8 * * *", template.Trigger.Schedule.CronExpression)
	assert.Equal(t, []string{"fetch_orders", "each_order", "notify"}, template.Trigger.Steps)
	require.Len(t, template.Steps, 5)
	assert.Equal(t, []string{"check_total"}, template.Steps[1].Children)
	assert.Equal(t, []string{"flag_order"}, template.Steps[2].Router.Branches[0].Steps)
	assert.Equal(t, "https://shop.example.com/orders", template.Steps[0].Piece.Input["url"])
	require.Len(t, template.Notes, 1)
}

func TestDecode_SchemaErrors(t *testing.T) {
	tests := []struct {
		name     string
		document string
		format   Format
		wantErr  error
	}{
		{
			name:     "missing trigger",
			document: `{"display_name": "x"}`,
			format:   FormatJSON,
			wantErr:  ErrInvalidDocument,
		},
		{
			name:     "unknown step type",
			document: `{"display_name": "x", "trigger": {"display_name": "t", "type": "EMPTY", "steps": ["a"]}, "steps": [{"name": "a", "display_name": "A", "type": "SCRIPT"}]}`,
			format:   FormatJSON,
			wantErr:  ErrInvalidDocument,
		},
		{
			name:     "step name with hyphen",
			document: `{"display_name": "x", "trigger": {"display_name": "t", "type": "EMPTY", "steps": ["my-step"]}, "steps": [{"name": "my-step", "display_name": "A", "type": "CODE"}]}`,
			format:   FormatJSON,
			wantErr:  ErrInvalidDocument,
		},
		{
			name:     "router without branches",
			document: "display_name: x\ntrigger: {display_name: t, type: EMPTY, steps: [a]}\nsteps:\n  - {name: a, display_name: A, type: ROUTER, router: {branches: []}}\n",
			format:   FormatYAML,
			wantErr:  ErrInvalidDocument,
		},
		{
			name:     "malformed yaml",
			document: "display_name: [",
			format:   FormatYAML,
			wantErr:  ErrInvalidDocument,
		},
		{
			name:     "empty display name",
			document: `{"display_name": "", "trigger": {"display_name": "t", "type": "EMPTY"}}`,
			format:   FormatJSON,
			wantErr:  ErrInvalidDocument,
		},
		{
			name:     "unsupported format",
			document: `{}`,
			format:   Format("toml"),
			wantErr:  ErrUnsupportedFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.document), tt.format)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecode_DefaultsSchemaVersion(t *testing.T) {
	template, err := Decode([]byte(`{"display_name": "x", "trigger": {"display_name": "t", "type": "EMPTY", "steps": []}}`), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, models.TemplateSchemaVersion, template.SchemaVersion)
}

func TestPlan(t *testing.T) {
	template, err := Decode([]byte(orderTemplate), FormatYAML)
	require.NoError(t, err)

	ops, err := Plan(template)
	require.NoError(t, err)

	var names []string
	for _, op := range ops {
		names = append(names, op.(models.AddActionRequest).Action.Name)
	}

	assert.Equal(t, []string{"fetch_orders", "each_order", "check_total", "flag_order", "notify"}, names)
}

func TestPlan_RejectsOrphans(t *testing.T) {
	template, err := Decode([]byte(orderTemplate), FormatYAML)
	require.NoError(t, err)

	template.Trigger.Steps = []string{"fetch_orders"}

	_, err = Plan(template)
	require.ErrorIs(t, err, flowops.ErrStructuralViolation)
}

func TestInstantiate(t *testing.T) {
	template, err := Decode([]byte(orderTemplate), FormatYAML)
	require.NoError(t, err)

	flow, err := Instantiate("version-1", "flow-1", template)
	require.NoError(t, err)

	assert.Equal(t, "version-1", flow.ID)
	assert.Equal(t, "Order follow-up", flow.DisplayName)
	assert.Len(t, flow.Steps, 5)
	assert.True(t, flow.Valid)
	assert.Equal(t, []string{"check_total"}, flow.Steps["each_order"].Children)
	assert.Equal(t, "note-1", flow.Notes[0].ID)
}

func TestEncode_RoundTrip(t *testing.T) {
	template, err := Decode([]byte(orderTemplate), FormatYAML)
	require.NoError(t, err)

	flow, err := Instantiate("version-1", "flow-1", template)
	require.NoError(t, err)

	exported := flowops.Export(flow)

	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			data, err := Encode(exported, format)
			require.NoError(t, err)

			decoded, err := Decode(data, format)
			require.NoError(t, err)

			rebuilt, err := Instantiate("version-2", "flow-1", decoded)
			require.NoError(t, err)

			assert.Equal(t, flow.Trigger, rebuilt.Trigger)
			assert.Equal(t, flow.Steps, rebuilt.Steps)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.yml")
	require.NoError(t, os.WriteFile(path, []byte(orderTemplate), 0o600))

	template, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Order follow-up", template.DisplayName)

	_, err = Load(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}
