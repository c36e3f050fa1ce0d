package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Wireflow/internal/api"
	"github.com/shaiso/Wireflow/internal/domain"
	"github.com/shaiso/Wireflow/internal/editor"
	"github.com/shaiso/Wireflow/internal/engine"
)

const flowJSON = `{
  "id": "f1",
  "name": "Greeting",
  "nodes": [
    {"id": "b", "type": "text-other-tool", "data": {"state": {"fields": [{"label": "echo", "value": "{{ $text-other-tool.greeting }} world"}]}}},
    {"id": "a", "type": "text-other-tool", "data": {"state": {"fields": [{"label": "greeting", "value": "hello"}]}, "output": {"greeting": "hello"}}}
  ],
  "edges": [{"id": "e1", "source": "a", "target": "b"}]
}`

const flowYAML = `id: f2
name: Yaml
nodes:
  - id: t
    type: manual-trigger
  - id: s
    type: sleep-other-tool
    data:
      state:
        duration: 0
edges:
  - id: e1
    source: t
    target: s
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

type harness struct {
	out    *bytes.Buffer
	errOut *bytes.Buffer
	output func() *Output
}

func newHarness(jsonMode bool) *harness {
	h := &harness{out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	h.output = func() *Output { return NewOutputTo(jsonMode, h.out, h.errOut) }
	return h
}

func run(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.Execute()
}

func TestLoadFlow(t *testing.T) {
	f, err := LoadFlow(writeFile(t, "flow.json", flowJSON))
	require.NoError(t, err)
	assert.Equal(t, "f1", f.ID)
	assert.Len(t, f.Nodes, 2)

	f, err = LoadFlow(writeFile(t, "flow.yaml", flowYAML))
	require.NoError(t, err)
	assert.Equal(t, "f2", f.ID)
	require.Len(t, f.Nodes, 2)
	assert.Equal(t, domain.KindManualTrigger, f.Nodes[0].Type)
	assert.Equal(t, float64(0), f.Nodes[1].Data.State["duration"])

	_, err = LoadFlow(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestFlowValidate(t *testing.T) {
	h := newHarness(false)
	require.NoError(t, run(t, NewFlowCmd(h.output), "validate", writeFile(t, "flow.json", flowJSON)))
	assert.Contains(t, h.errOut.String(), `"Greeting" is valid`)
	assert.Contains(t, h.errOut.String(), "entry: a")

	cyclic := `{"id":"c","nodes":[{"id":"a","type":"sleep-other-tool"},{"id":"b","type":"sleep-other-tool"}],
		"edges":[{"id":"1","source":"a","target":"b"},{"id":"2","source":"b","target":"a"}]}`
	err := run(t, NewFlowCmd(h.output), "validate", writeFile(t, "cyclic.json", cyclic))
	assert.ErrorIs(t, err, engine.ErrCyclicDependency)

	err = run(t, NewFlowCmd(h.output), "validate", writeFile(t, "empty.json", `{"id":"e","nodes":[]}`))
	assert.ErrorIs(t, err, engine.ErrEmptyFlow)
}

func TestFlowOrder(t *testing.T) {
	h := newHarness(true)
	require.NoError(t, run(t, NewFlowCmd(h.output), "order", writeFile(t, "flow.json", flowJSON)))

	var order []string
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &order))
	assert.Equal(t, []string{"a", "b"}, order)

	h = newHarness(false)
	require.NoError(t, run(t, NewFlowCmd(h.output), "order", writeFile(t, "flow.yaml", flowYAML)))
	assert.Contains(t, h.out.String(), "manual-trigger")
}

func TestNodeInput(t *testing.T) {
	h := newHarness(true)
	deps := func() NodeDeps { return NodeDeps{} }

	require.NoError(t, run(t, NewNodeCmd(deps, h.output), "input", writeFile(t, "flow.json", flowJSON), "b"))

	var ctx map[string]any
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &ctx))
	assert.Equal(t, map[string]any{"text-other-tool": map[string]any{"greeting": "hello"}}, ctx)

	err := run(t, NewNodeCmd(deps, h.output), "input", writeFile(t, "flow.json", flowJSON), "ghost")
	assert.Error(t, err)
}

func TestNodeTestWrite(t *testing.T) {
	h := newHarness(true)
	path := writeFile(t, "flow.json", flowJSON)

	require.NoError(t, run(t, NewNodeCmd(func() NodeDeps { return NodeDeps{} }, h.output), "test", path, "b", "--write"))

	var out map[string]any
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &out))
	assert.Equal(t, map[string]any{"echo": "hello world"}, out)

	saved, err := LoadFlow(path)
	require.NoError(t, err)
	n, ok := saved.Node("b")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"echo": "hello world"}, n.Data.Output)
}

func TestNodeTestTriggerPayload(t *testing.T) {
	h := newHarness(true)
	path := writeFile(t, "flow.yaml", flowYAML)

	require.NoError(t, run(t, NewNodeCmd(func() NodeDeps { return NodeDeps{} }, h.output),
		"test", path, "t", "--payload", `{"id": 7}`))

	var out map[string]any
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &out))
	assert.Equal(t, map[string]any{"id": float64(7)}, out["payload"])

	err := run(t, NewNodeCmd(func() NodeDeps { return NodeDeps{} }, h.output),
		"test", path, "t", "--payload", `{bad`)
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	h := newHarness(false)
	ctxFile := writeFile(t, "ctx.yaml", "user:\n  name: Ann\n  tags: [a, b]\n")

	require.NoError(t, run(t, NewResolveCmd(h.output), "Hi {{ $user.name }} {{ $user.tags[1] }}", "--context", ctxFile))
	assert.Equal(t, "Hi Ann b\n", h.out.String())

	h = newHarness(false)
	require.NoError(t, run(t, NewResolveCmd(h.output), "{{ $missing }}"))
	assert.Equal(t, "{{ $missing }}\n", h.out.String())
}

func TestResolveRefs(t *testing.T) {
	h := newHarness(true)
	ctxFile := writeFile(t, "ctx.json", `{"user": {"name": "Ann"}}`)

	require.NoError(t, run(t, NewResolveCmd(h.output), "{{ $user.name }} / {{ $user.age }}", "--context", ctxFile, "--refs"))

	var refs []reference
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &refs))
	require.Len(t, refs, 2)
	assert.Equal(t, reference{Expression: "user.name", Found: true, Value: "Ann"}, refs[0])
	assert.Equal(t, reference{Expression: "user.age"}, refs[1])
}

func TestClientAgainstAPI(t *testing.T) {
	session := editor.New(editor.Config{})
	_, err := session.OpenFlow(domain.StarterProjectID, domain.StarterFlowID)
	require.NoError(t, err)
	_, err = session.AddNode(domain.Node{ID: "t", Type: domain.KindManualTrigger})
	require.NoError(t, err)

	mux := http.NewServeMux()
	api.NewHandler(api.Config{Session: session}).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL+"/", "token")

	projects, err := client.ListProjects()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, domain.StarterProjectID, projects[0].ID)

	st, err := client.Canvas()
	require.NoError(t, err)
	assert.True(t, st.CanUndo)

	res, err := client.Run(map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"t"}, res.Executed)

	undo, err := client.Undo()
	require.NoError(t, err)
	assert.True(t, undo.Applied)
	require.Len(t, undo.Flow.Nodes, 1)
	assert.True(t, undo.Flow.Nodes[0].IsPlaceholder())

	_, err = client.Save()
	assert.ErrorContains(t, err, "UNAVAILABLE")

	h := newHarness(false)
	clientFn := func() *Client { return client }
	require.NoError(t, run(t, NewCanvasCmd(clientFn, h.output), "redo"))
	assert.Contains(t, h.out.String(), "manual-trigger")

	h = newHarness(false)
	require.NoError(t, run(t, NewProjectCmd(clientFn, h.output), "create", "--name", "Ops"))
	assert.Contains(t, h.errOut.String(), "Project created")
}
