package domain

import "time"

// Идентификаторы стартового проекта и flow, создаваемых для нового workspace.
const (
	StarterProjectID = "starter-project"
	StarterFlowID    = "starter-flow"
)

// Viewport — положение и масштаб канваса.
type Viewport struct {
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Zoom float64 `json:"zoom" yaml:"zoom"`
}

// Flow — граф узлов и рёбер, описывающий одну автоматизацию.
//
// Flow — единица выполнения и сохранения. Каждое ребро должно ссылаться
// на узлы этого же flow; проверка выполняется при валидации и сохранении,
// обход графа висячие рёбра просто пропускает.
type Flow struct {
	// ID — идентификатор flow.
	ID string `json:"id" yaml:"id"`

	// Name — имя flow, обязательно.
	Name string `json:"name" yaml:"name"`

	// Description — описание назначения flow.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Nodes — узлы flow.
	Nodes []Node `json:"nodes" yaml:"nodes"`

	// Edges — рёбра flow.
	Edges []Edge `json:"edges" yaml:"edges"`

	// Viewport — последнее положение канваса.
	Viewport Viewport `json:"viewport" yaml:"viewport"`

	// ProjectID — проект, которому принадлежит flow.
	ProjectID string `json:"projectId" yaml:"projectId"`

	// UpdatedAt — время последнего сохранения.
	UpdatedAt time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// Clone возвращает глубокую копию flow.
func (f Flow) Clone() Flow {
	f.Nodes = CloneNodes(f.Nodes)
	f.Edges = CloneEdges(f.Edges)
	return f
}

// Node возвращает узел по ID.
func (f *Flow) Node(id string) (Node, bool) {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// NewStarterFlow создаёт пустой flow с placeholder'ом.
func NewStarterFlow(id, name, projectID string) Flow {
	return Flow{
		ID:        id,
		Name:      name,
		Nodes:     []Node{NewFlowPlaceholder()},
		Edges:     []Edge{},
		Viewport:  Viewport{Zoom: 1},
		ProjectID: projectID,
	}
}

// Project — проект пользователя, содержащий набор flows.
type Project struct {
	// ID — идентификатор проекта.
	ID string `json:"id" yaml:"id"`

	// Name — имя проекта, обязательно.
	Name string `json:"name" yaml:"name"`

	// Description — описание проекта.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Flows — flows проекта.
	Flows []Flow `json:"flows" yaml:"flows"`
}

// Clone возвращает глубокую копию проекта.
func (p Project) Clone() Project {
	if p.Flows != nil {
		flows := make([]Flow, len(p.Flows))
		for i := range p.Flows {
			flows[i] = p.Flows[i].Clone()
		}
		p.Flows = flows
	}
	return p
}

// FlowIndex возвращает индекс flow в проекте или -1.
func (p *Project) FlowIndex(flowID string) int {
	for i := range p.Flows {
		if p.Flows[i].ID == flowID {
			return i
		}
	}
	return -1
}
